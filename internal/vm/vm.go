// Package vm implements the AntEater stack machine (spec §4.6): a single
// operand stack of Values, a frame pointer, an instruction pointer, and a
// secondary stack of per-call argument counts.
//
// The calling convention, frame layout, and every opcode's exact semantics
// are grounded directly in original_source/ant_vm.cpp's AntVM::Run — the
// spec's single most load-bearing source file. Notably the frame pointer,
// once OP_CALL sets it, addresses the stack cell holding the *saved* frame
// pointer itself (Local(0) == the caller's fp); the return-instruction
// offset sits one cell below it (Local(-1)), and the first parameter one
// cell below that (Local(-2)) — this is the layout the original's Run()
// actually implements, which internal/scope's slot arithmetic (first
// param -2, second -3, ...) already matches.
//
// AND/OR are declared in the original's opcode enum but never reached by
// any case in its interpreter switch (confirmed dead code by inspection).
// Per SPEC_FULL.md, spec text is authoritative over that gap: both are
// implemented here with the promotion/truthiness rules spec §4.6 describes.
package vm

import (
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"

	"anteater/internal/bytecode"
	"anteater/internal/diagnostics"
	"anteater/internal/strtable"
	"anteater/internal/value"
)

// VM executes a single compiled Program against a shared string table.
type VM struct {
	prog    *bytecode.Program
	strings *strtable.Table

	stack []value.Value
	fp    int
	ip    int

	// paramCounts mirrors the original's numParams stack: the argument
	// count of each currently active call, popped by OP_RETURN.
	paramCounts []int

	// Out receives OP_PRINT's rendered output, one line per call. Defaults
	// to os.Stdout.
	Out io.Writer
}

// New returns a VM ready to execute prog.
func New(prog *bytecode.Program, strings *strtable.Table) *VM {
	return &VM{prog: prog, strings: strings, Out: os.Stdout}
}

func (vm *VM) push(v value.Value) { vm.stack = append(vm.stack, v) }

func (vm *VM) pop() value.Value {
	top := vm.stack[len(vm.stack)-1]
	vm.stack = vm.stack[:len(vm.stack)-1]
	return top
}

func (vm *VM) top() value.Value { return vm.stack[len(vm.stack)-1] }

// local returns the frame-relative slot k (negative for params/saved fp,
// positive for locals), per original_source/ant_vm.cpp's Local(i) macro.
func (vm *VM) local(k int) *value.Value { return &vm.stack[vm.fp+k] }

// fetch reads the operand word following the opcode at the current ip,
// advancing ip past it.
func (vm *VM) fetch() bytecode.Word {
	w := vm.prog.Code[vm.ip]
	vm.ip++
	return w
}

// fail raises a runtime diagnostic located at the instruction currently
// being executed. vm.ip points just past its operands at this point, and
// operand words carry an empty Debug entry, so fail walks back from vm.ip-1
// over empty entries to the opcode's own position.
func (vm *VM) fail(kind diagnostics.Kind, format string, args ...interface{}) {
	idx := vm.ip - 1
	if idx < 0 {
		idx = 0
	}
	for idx > 0 && vm.prog.Debug[idx] == (bytecode.DebugInfo{}) {
		idx--
	}
	d := vm.prog.Debug[idx]
	panic(diagnostics.New(kind, d.Line, d.Column, format, args...))
}

// Run executes the program from its first instruction until OP_DONE or ip
// runs past the end of the code. A panic raised anywhere in the
// interpreter loop (type errors, bad indices, an unexpected internal
// inconsistency) is recovered here and reported as err, following
// db47h/ngaro's vm/run.go boundary-recovery shape: an *diagnostics.AntError
// passes through unwrapped (it already carries the right kind and source
// position); anything else is wrapped with github.com/pkg/errors so it
// still satisfies error without losing the panic's message. Per
// original_source/ant_vm.cpp ("output += \"Script runtime error: \" +
// e.what()"), the same literal prefix is appended to Out so the error
// shows up in the captured output log alongside whatever OP_PRINT already
// wrote, before Run returns it as err too.
func (vm *VM) Run() (err error) {
	defer func() {
		if r := recover(); r != nil {
			if ae, ok := r.(*diagnostics.AntError); ok {
				err = ae
			} else {
				err = errors.Errorf("internal vm error: %v", r)
			}
			fmt.Fprintln(vm.Out, "Script runtime error: "+err.Error())
		}
	}()

	for vm.ip < vm.prog.Len() && vm.prog.Code[vm.ip] != bytecode.Word(bytecode.OpDone) {
		op := bytecode.OpCode(vm.fetch())
		vm.exec(op)
	}
	return nil
}

func (vm *VM) exec(op bytecode.OpCode) {
	switch op {
	case bytecode.OpPushInt:
		vm.push(value.VInt(int32(vm.fetch())))

	case bytecode.OpPushFloat:
		vm.push(value.VFloat(wordToFloat32(vm.fetch())))

	case bytecode.OpPushString:
		vm.push(value.VString(int(vm.fetch())))

	case bytecode.OpPushNull:
		vm.push(value.VNull())

	case bytecode.OpPushVar:
		slot := int(vm.fetch())
		vm.push(*vm.local(slot))

	case bytecode.OpAssign:
		slot := int(vm.fetch())
		v := vm.pop()
		*vm.local(slot) = cloneArray(v)

	case bytecode.OpPushArray:
		n := int(vm.fetch())
		elems := make([]value.Value, n)
		for i := range elems {
			elems[i] = vm.stack[len(vm.stack)-1-i]
		}
		vm.stack = vm.stack[:len(vm.stack)-n]
		vm.push(value.VArray(elems))

	case bytecode.OpArrayLen:
		v := vm.pop()
		if !v.IsArray() {
			vm.fail(diagnostics.NotIndexable, "cannot take the length of a %s", v.Kind)
		}
		vm.push(value.VInt(int32(len(v.A))))

	case bytecode.OpGet:
		idx := vm.pop()
		container := vm.pop()
		vm.push(vm.arrayGet(container, idx))

	case bytecode.OpSet:
		v := vm.pop()
		idx := vm.pop()
		container := vm.pop()
		vm.arraySet(container, idx, v)

	case bytecode.OpAdd:
		vm.binaryAdd()
	case bytecode.OpSub, bytecode.OpMul, bytecode.OpDiv:
		vm.binaryArith(op)
	case bytecode.OpMod:
		vm.binaryMod()
	case bytecode.OpCat:
		vm.binaryCat()

	case bytecode.OpEqual, bytecode.OpNEqual:
		vm.equality(op == bytecode.OpEqual)
	case bytecode.OpLess, bytecode.OpGreater, bytecode.OpLEqual, bytecode.OpGEqual:
		vm.comparison(op)

	case bytecode.OpAnd, bytecode.OpOr:
		vm.logical(op)

	case bytecode.OpNot:
		v := vm.top()
		if !v.IsInt() {
			vm.fail(diagnostics.TypeMismatch, "not expects an int, got %s", v.Kind)
		}
		vm.stack[len(vm.stack)-1] = boolValue(v.I == 0)

	case bytecode.OpPrint:
		v := vm.pop()
		fmt.Fprintln(vm.Out, v.ToString(vm.strings))

	case bytecode.OpBra:
		off := int(vm.fetch())
		vm.ip += off

	case bytecode.OpBrz:
		off := int(vm.fetch())
		v := vm.pop()
		if !v.IsInt() {
			vm.fail(diagnostics.TypeMismatch, "if/while condition must be an int, got %s", v.Kind)
		}
		if v.I == 0 {
			vm.ip += off
		}

	case bytecode.OpBnz:
		off := int(vm.fetch())
		v := vm.pop()
		if !v.IsInt() {
			vm.fail(diagnostics.TypeMismatch, "if/while condition must be an int, got %s", v.Kind)
		}
		if v.I != 0 {
			vm.ip += off
		}

	case bytecode.OpCall:
		vm.call()

	case bytecode.OpReturn:
		vm.ret()

	default:
		vm.fail(diagnostics.UnknownOpcode, "unknown opcode %d", int32(op))
	}
}

// call implements OP_CALL exactly as original_source/ant_vm.cpp's Run():
// push the return ip, push the caller's fp, set fp to the index of that
// just-pushed cell, reserve nlocals slots, then jump.
func (vm *VM) call() {
	target := int(vm.fetch())
	nparams := int(vm.fetch())
	nlocals := int(vm.fetch())

	vm.paramCounts = append(vm.paramCounts, nparams)
	vm.push(value.VInt(int32(vm.ip)))
	vm.push(value.VInt(int32(vm.fp)))
	vm.fp = len(vm.stack) - 1
	for i := 0; i < nlocals; i++ {
		vm.push(value.Value{})
	}
	vm.ip = target
}

// ret implements OP_RETURN exactly as original_source/ant_vm.cpp's Run().
func (vm *VM) ret() {
	ret := vm.top()
	vm.stack = vm.stack[:vm.fp+1]
	vm.fp = int(vm.top().I)
	vm.pop()
	vm.ip = int(vm.top().I)
	vm.pop()
	nparams := vm.paramCounts[len(vm.paramCounts)-1]
	vm.paramCounts = vm.paramCounts[:len(vm.paramCounts)-1]
	vm.stack = vm.stack[:len(vm.stack)-nparams]
	vm.push(ret)
}

func boolValue(b bool) value.Value {
	if b {
		return value.VInt(1)
	}
	return value.VInt(0)
}
