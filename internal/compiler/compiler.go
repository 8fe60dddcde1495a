// Package compiler implements AntEater's single-pass code generator (spec
// §4.5): a recursive walk over the AST that emits into a shared flat
// instruction vector, creating scopes as it enters FUNC nodes and
// backpatching forward jumps once their targets are known.
//
// The per-node emission rules are grounded directly in
// original_source/ant_codegen.cpp's AntCodeGen::CodeGen switch; FOREACH,
// DO_WHILE, BREAK, and NODE_CAT, which that file declares but never
// implements, are compiled per SPEC_FULL.md's SUPPLEMENTED FEATURES section
// using the same backpatch machinery as IF/WHILE.
package compiler

import (
	"anteater/internal/ast"
	"anteater/internal/bytecode"
	"anteater/internal/diagnostics"
	"anteater/internal/scope"
	"anteater/internal/strtable"
)

// Compiler walks one or more AST trees into a single shared Program and
// scope Context.
type Compiler struct {
	prog    *bytecode.Program
	ctx     *scope.Context
	strings *strtable.Table

	loops    []*loopFrame
	tempSeq  int
}

// loopFrame tracks the pending BREAK jump patches for one enclosing loop,
// the "break-patch list" extension of the single-target backpatching
// spec §4.5 already uses for IF/WHILE.
type loopFrame struct {
	breakPatches []int
}

// New creates a Compiler that emits into prog using ctx for scope
// resolution and strings for the shared intern table.
func New(prog *bytecode.Program, ctx *scope.Context, strings *strtable.Table) *Compiler {
	return &Compiler{prog: prog, ctx: ctx, strings: strings}
}

// Compile generates code for root (an ABSTRACT node containing one compiled
// file's top-level statements), appending to the shared Program. Errors are
// returned as *diagnostics.AntError.
func (c *Compiler) Compile(root *ast.Node) (err error) {
	defer func() {
		if r := recover(); r != nil {
			ae, ok := r.(*diagnostics.AntError)
			if !ok {
				panic(r)
			}
			err = ae
		}
	}()
	c.gen(root)
	return nil
}

func (c *Compiler) name(strID int) string {
	return c.strings.Lookup(strID)
}

// tempName synthesizes a local name that cannot collide with any
// user-declared identifier: the lexer's identifier grammar never produces
// '$', so no source-level name can match one of these.
func (c *Compiler) tempName(tag string) string {
	c.tempSeq++
	return "$" + tag + "$" + string(rune('0'+c.tempSeq%10)) + string(rune('a'+c.tempSeq/10%26))
}

var binaryOps = map[ast.Kind]bytecode.OpCode{
	ast.Add: bytecode.OpAdd, ast.Sub: bytecode.OpSub, ast.Mul: bytecode.OpMul,
	ast.Div: bytecode.OpDiv, ast.Mod: bytecode.OpMod,
	ast.Equal: bytecode.OpEqual, ast.NotEqual: bytecode.OpNEqual,
	ast.Less: bytecode.OpLess, ast.Greater: bytecode.OpGreater,
	ast.LEqual: bytecode.OpLEqual, ast.GEqual: bytecode.OpGEqual,
	ast.And: bytecode.OpAnd, ast.Or: bytecode.OpOr,
	ast.Cat: bytecode.OpCat,
}

func (c *Compiler) gen(n *ast.Node) {
	switch n.Kind {
	case ast.Int:
		c.prog.EmitOp(bytecode.OpPushInt, n.Line, n.Column)
		c.prog.Emit(bytecode.Word(n.IntVal))

	case ast.Float:
		c.prog.EmitOp(bytecode.OpPushFloat, n.Line, n.Column)
		c.prog.EmitFloat(n.FloatVal)

	case ast.String:
		c.prog.EmitOp(bytecode.OpPushString, n.Line, n.Column)
		c.prog.Emit(bytecode.Word(n.StrVal))

	case ast.True:
		c.prog.EmitOp(bytecode.OpPushInt, n.Line, n.Column)
		c.prog.Emit(1)

	case ast.False:
		c.prog.EmitOp(bytecode.OpPushInt, n.Line, n.Column)
		c.prog.Emit(0)

	case ast.Null:
		c.prog.EmitOp(bytecode.OpPushNull, n.Line, n.Column)

	case ast.ID:
		slot := c.ctx.Current().GetLocal(c.name(n.StrVal), n.Line, n.Column)
		c.prog.EmitOp(bytecode.OpPushVar, n.Line, n.Column)
		c.prog.Emit(bytecode.Word(slot))

	case ast.Array:
		for i := len(n.Children) - 1; i >= 0; i-- {
			c.gen(n.Children[i])
		}
		c.prog.EmitOp(bytecode.OpPushArray, n.Line, n.Column)
		c.prog.Emit(bytecode.Word(len(n.Children)))

	case ast.ArrayGet:
		c.gen(n.Children[0])
		c.gen(n.Children[1])
		c.prog.EmitOp(bytecode.OpGet, n.Line, n.Column)

	case ast.ArraySet:
		c.gen(n.Children[0])
		c.gen(n.Children[1])
		c.gen(n.Children[2])
		c.prog.EmitOp(bytecode.OpSet, n.Line, n.Column)

	case ast.Assign:
		slot := c.ctx.Current().GetLocal(c.name(n.Children[0].StrVal), n.Line, n.Column)
		c.gen(n.Children[1])
		c.prog.EmitOp(bytecode.OpAssign, n.Line, n.Column)
		c.prog.Emit(bytecode.Word(slot))

	case ast.Local:
		slot := c.ctx.Current().AddLocal(c.name(n.Children[0].StrVal), n.Line, n.Column)
		c.gen(n.Children[1])
		c.prog.EmitOp(bytecode.OpAssign, n.Line, n.Column)
		c.prog.Emit(bytecode.Word(slot))

	case ast.Neg:
		c.prog.EmitOp(bytecode.OpPushInt, n.Line, n.Column)
		c.prog.Emit(0)
		c.gen(n.Children[0])
		c.prog.EmitOp(bytecode.OpSub, n.Line, n.Column)

	case ast.Not:
		c.gen(n.Children[0])
		c.prog.EmitOp(bytecode.OpNot, n.Line, n.Column)

	case ast.Abstract:
		for _, child := range n.Children {
			c.gen(child)
		}

	case ast.If:
		c.genIf(n)

	case ast.While:
		c.genWhile(n)

	case ast.DoWhile:
		c.genDoWhile(n)

	case ast.Foreach:
		c.genForeach(n)

	case ast.Break:
		c.genBreak(n)

	case ast.Func:
		c.genFunc(n)

	case ast.Call:
		c.genCall(n)

	case ast.Return:
		if len(n.Children) > 0 {
			c.gen(n.Children[0])
		} else {
			c.prog.EmitOp(bytecode.OpPushInt, n.Line, n.Column)
			c.prog.Emit(0)
		}
		c.prog.EmitOp(bytecode.OpReturn, n.Line, n.Column)

	default:
		if op, ok := binaryOps[n.Kind]; ok {
			c.gen(n.Children[0])
			c.gen(n.Children[1])
			c.prog.EmitOp(op, n.Line, n.Column)
			return
		}
		panic(diagnostics.New(diagnostics.Unsupported, n.Line, n.Column,
			"no code generation rule for node kind %v", n.Kind))
	}
}

func (c *Compiler) genIf(n *ast.Node) {
	c.gen(n.Children[0])
	c.prog.EmitOp(bytecode.OpBrz, n.Line, n.Column)
	patch := c.prog.ForwardJump()
	c.gen(n.Children[1])

	if len(n.Children) == 3 {
		c.prog.EmitOp(bytecode.OpBra, n.Line, n.Column)
		patch2 := c.prog.ForwardJump()
		c.prog.PatchForwardJump(patch)
		c.gen(n.Children[2])
		c.prog.PatchForwardJump(patch2)
	} else {
		c.prog.PatchForwardJump(patch)
	}
}

func (c *Compiler) genWhile(n *ast.Node) {
	start := c.prog.Len()
	c.gen(n.Children[0])
	c.prog.EmitOp(bytecode.OpBrz, n.Line, n.Column)
	patch := c.prog.ForwardJump()

	c.pushLoop()
	c.gen(n.Children[1])
	breaks := c.popLoop()

	c.prog.EmitOp(bytecode.OpBra, n.Line, n.Column)
	c.prog.Emit(c.prog.BackwardJumpOperand(start))
	c.prog.PatchForwardJump(patch)
	for _, bp := range breaks {
		c.prog.PatchForwardJump(bp)
	}
}

func (c *Compiler) genDoWhile(n *ast.Node) {
	start := c.prog.Len()

	c.pushLoop()
	c.gen(n.Children[0])
	breaks := c.popLoop()

	c.gen(n.Children[1])
	c.prog.EmitOp(bytecode.OpBnz, n.Line, n.Column)
	c.prog.Emit(c.prog.BackwardJumpOperand(start))
	for _, bp := range breaks {
		c.prog.PatchForwardJump(bp)
	}
}

// genForeach desugars `foreach (v in iterable) body` into an index-driven
// while loop over two hidden locals (the iterable itself and the current
// index), per SPEC_FULL.md's "obvious semantics" resolution: iterate an
// Array, binding each element in turn to v.
func (c *Compiler) genForeach(n *ast.Node) {
	varNode, iterable, body := n.Children[0], n.Children[1], n.Children[2]
	sc := c.ctx.Current()

	arrSlot := sc.AddLocal(c.tempName("iter_arr"), n.Line, n.Column)
	c.gen(iterable)
	c.prog.EmitOp(bytecode.OpAssign, n.Line, n.Column)
	c.prog.Emit(bytecode.Word(arrSlot))

	idxSlot := sc.AddLocal(c.tempName("iter_idx"), n.Line, n.Column)
	c.prog.EmitOp(bytecode.OpPushInt, n.Line, n.Column)
	c.prog.Emit(0)
	c.prog.EmitOp(bytecode.OpAssign, n.Line, n.Column)
	c.prog.Emit(bytecode.Word(idxSlot))

	start := c.prog.Len()
	c.prog.EmitOp(bytecode.OpPushVar, n.Line, n.Column)
	c.prog.Emit(bytecode.Word(idxSlot))
	c.prog.EmitOp(bytecode.OpPushVar, n.Line, n.Column)
	c.prog.Emit(bytecode.Word(arrSlot))
	c.prog.EmitOp(bytecode.OpArrayLen, n.Line, n.Column)
	c.prog.EmitOp(bytecode.OpLess, n.Line, n.Column)
	c.prog.EmitOp(bytecode.OpBrz, n.Line, n.Column)
	exitPatch := c.prog.ForwardJump()

	varSlot := sc.AddLocal(c.name(varNode.StrVal), varNode.Line, varNode.Column)
	c.prog.EmitOp(bytecode.OpPushVar, n.Line, n.Column)
	c.prog.Emit(bytecode.Word(arrSlot))
	c.prog.EmitOp(bytecode.OpPushVar, n.Line, n.Column)
	c.prog.Emit(bytecode.Word(idxSlot))
	c.prog.EmitOp(bytecode.OpGet, n.Line, n.Column)
	c.prog.EmitOp(bytecode.OpAssign, n.Line, n.Column)
	c.prog.Emit(bytecode.Word(varSlot))

	c.pushLoop()
	c.gen(body)
	breaks := c.popLoop()

	c.prog.EmitOp(bytecode.OpPushVar, n.Line, n.Column)
	c.prog.Emit(bytecode.Word(idxSlot))
	c.prog.EmitOp(bytecode.OpPushInt, n.Line, n.Column)
	c.prog.Emit(1)
	c.prog.EmitOp(bytecode.OpAdd, n.Line, n.Column)
	c.prog.EmitOp(bytecode.OpAssign, n.Line, n.Column)
	c.prog.Emit(bytecode.Word(idxSlot))

	c.prog.EmitOp(bytecode.OpBra, n.Line, n.Column)
	c.prog.Emit(c.prog.BackwardJumpOperand(start))
	c.prog.PatchForwardJump(exitPatch)
	for _, bp := range breaks {
		c.prog.PatchForwardJump(bp)
	}
}

func (c *Compiler) genBreak(n *ast.Node) {
	if len(c.loops) == 0 {
		panic(diagnostics.New(diagnostics.Unsupported, n.Line, n.Column,
			"break used outside of a loop"))
	}
	c.prog.EmitOp(bytecode.OpBra, n.Line, n.Column)
	patch := c.prog.ForwardJump()
	top := c.loops[len(c.loops)-1]
	top.breakPatches = append(top.breakPatches, patch)
}

func (c *Compiler) pushLoop() { c.loops = append(c.loops, &loopFrame{}) }

func (c *Compiler) popLoop() []int {
	top := c.loops[len(c.loops)-1]
	c.loops = c.loops[:len(c.loops)-1]
	return top.breakPatches
}

// genFunc creates a child scope, registers its params, skips over the
// function body with a forward jump, then records the scope's code-begin
// and emits the body in place.
func (c *Compiler) genFunc(n *ast.Node) {
	nameNode, paramsNode, _, body := n.Children[0], n.Children[1], n.Children[2], n.Children[3]

	id := c.ctx.AddFunction(c.name(nameNode.StrVal), n.Line, n.Column)
	c.ctx.Push(id)
	fnScope := c.ctx.Scope(id)

	for _, p := range paramsNode.Children {
		fnScope.AddParam(c.name(p.StrVal), p.Line, p.Column)
	}

	c.prog.EmitOp(bytecode.OpBra, n.Line, n.Column)
	patch := c.prog.ForwardJump()

	fnScope.CodeBegin = c.prog.Len()
	c.ctx.FunctionMap[fnScope.CodeBegin] = id

	c.gen(body)

	c.prog.PatchForwardJump(patch)
	c.ctx.Pop()
}

// genCall handles the built-in "print" specially; every other callee is
// resolved by name against the function table.
func (c *Compiler) genCall(n *ast.Node) {
	calleeName := c.name(n.Children[0].StrVal)

	if calleeName == "print" {
		if len(n.Children) != 2 {
			panic(diagnostics.New(diagnostics.BadArity, n.Line, n.Column,
				"print expects exactly one argument, got %d", len(n.Children)-1))
		}
		c.gen(n.Children[1])
		c.prog.EmitOp(bytecode.OpPrint, n.Line, n.Column)
		return
	}

	calleeID := c.ctx.FindFunction(calleeName, n.Line, n.Column)
	callee := c.ctx.Scope(calleeID)

	for i := len(n.Children) - 1; i >= 1; i-- {
		c.gen(n.Children[i])
	}

	c.prog.EmitOp(bytecode.OpCall, n.Line, n.Column)
	c.prog.Emit(bytecode.Word(callee.CodeBegin))
	c.prog.Emit(bytecode.Word(len(callee.Params)))
	c.prog.Emit(bytecode.Word(len(callee.Locals)))
}
