// Package bytecode defines AntEater's flat instruction vector and opcode
// set (spec §3's Instruction vector, §6.2).
//
// Sentra's own bytecode.Chunk pairs a byte-opcode stream with a separate
// constant pool; AntEater's spec instead encodes every operand directly as
// a signed 32-bit word in the instruction stream itself (spec §3: "A word
// is a signed 32-bit integer reinterpreted as an opcode, an immediate
// integer, a float's bit pattern, or a signed relative jump offset"), with
// no constant pool at all. The parallel per-instruction DebugInfo slice is
// kept from Chunk's shape (internal/bytecode/chunk.go's Debug field),
// generalized to record one entry per emitted word rather than per byte.
// The opcode set, word layout, and jump-patch arithmetic are grounded in
// original_source/ant.h's AntCode enum and AntCodeGen::Emit/ForwardJump/
// PatchForwardJump.
package bytecode

import "math"

// Word is the unit of the instruction vector: an opcode, an immediate
// value, a float's bit pattern, or a relative jump offset.
type Word = int32

// OpCode is the closed set of AntEater opcodes (spec §6.2).
type OpCode Word

const (
	OpDone OpCode = iota
	OpPushInt
	OpPushFloat
	OpPushString
	OpPushVar
	OpEqual
	OpNEqual
	OpAnd
	OpOr
	OpNot
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpBra
	OpBNE // reserved, never emitted
	OpBEQ // reserved, never emitted
	OpBrz
	OpBnz
	OpCall
	OpAssign
	OpReturn
	OpPrint
	OpLess
	OpGreater
	OpLEqual
	OpGEqual
	OpMod
	OpPushArray
	OpGet
	OpSet
	OpPushNull // supplemented per SPEC_FULL.md; no operand
	OpCat      // supplemented per SPEC_FULL.md: unconditional string concatenation ($)
	OpArrayLen // supplemented per SPEC_FULL.md: pop array, push its element count (drives FOREACH)
)

var opNames = map[OpCode]string{
	OpDone: "DONE", OpPushInt: "PUSH_INT", OpPushFloat: "PUSH_FLOAT",
	OpPushString: "PUSH_STRING", OpPushVar: "PUSH_VAR", OpEqual: "EQUAL",
	OpNEqual: "NEQUAL", OpAnd: "AND", OpOr: "OR", OpNot: "NOT",
	OpAdd: "ADD", OpSub: "SUB", OpMul: "MUL", OpDiv: "DIV",
	OpBra: "BRA", OpBNE: "BNE", OpBEQ: "BEQ", OpBrz: "BRZ", OpBnz: "BNZ",
	OpCall: "CALL", OpAssign: "ASSIGN", OpReturn: "RETURN", OpPrint: "PRINT",
	OpLess: "LESS", OpGreater: "GREATER", OpLEqual: "LEQUAL", OpGEqual: "GEQUAL",
	OpMod: "MOD", OpPushArray: "PUSH_ARRAY", OpGet: "GET", OpSet: "SET",
	OpPushNull: "PUSH_NULL", OpCat: "CAT", OpArrayLen: "ARRAY_LEN",
}

func (op OpCode) String() string {
	if s, ok := opNames[op]; ok {
		return s
	}
	return "<unknown opcode>"
}

// DebugInfo carries the source position an instruction was generated from,
// for runtime-error diagnostics (spec §6.3).
type DebugInfo struct {
	Line   int
	Column int
}

// Program is the single shared, flat instruction vector a Context compiles
// into: every Compile call appends to it (spec §2's control-flow summary).
type Program struct {
	Code  []Word
	Debug []DebugInfo
}

// NewProgram returns an empty Program.
func NewProgram() *Program {
	return &Program{}
}

// Emit appends a raw word with no associated debug info (used for operands
// immediately following an opcode).
func (p *Program) Emit(w Word) int {
	p.Code = append(p.Code, w)
	p.Debug = append(p.Debug, DebugInfo{})
	return len(p.Code) - 1
}

// EmitOp appends an opcode, recording the source position it was generated
// from.
func (p *Program) EmitOp(op OpCode, line, column int) int {
	p.Code = append(p.Code, Word(op))
	p.Debug = append(p.Debug, DebugInfo{Line: line, Column: column})
	return len(p.Code) - 1
}

// EmitFloat appends f's IEEE-754 bit pattern as a word (spec §4.5's FLOAT
// emission rule).
func (p *Program) EmitFloat(f float32) int {
	return p.Emit(Word(int32(math.Float32bits(f))))
}

// ForwardJump emits a zero placeholder operand and returns its offset, to
// be filled in later by PatchForwardJump once the target is known.
func (p *Program) ForwardJump() int {
	return p.Emit(0)
}

// PatchForwardJump backpatches the placeholder at offset patch so that,
// once the VM has consumed the jump operand, ip+=operand lands on the
// current end of the program. This is exactly
// original_source/ant.h's AntCodeGen::PatchForwardJump:
// code[p] = (len(code) - p) - 1.
func (p *Program) PatchForwardJump(patch int) {
	p.Code[patch] = Word((len(p.Code) - patch) - 1)
}

// Len returns the current length of the instruction vector.
func (p *Program) Len() int { return len(p.Code) }

// BackwardJumpOperand computes the operand for a jump whose target address
// is already known (the top of a loop, for instance), to be emitted right
// after an opcode at the instruction immediately preceding the operand's own
// slot. It uses the same (target - operand_offset) - 1 rule as
// PatchForwardJump, the two differing only in whether the target is known
// before or after the jump's body is emitted.
func (p *Program) BackwardJumpOperand(targetAddr int) Word {
	return Word((targetAddr - p.Len()) - 1)
}
