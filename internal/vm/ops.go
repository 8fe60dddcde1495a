package vm

import (
	"math"

	"anteater/internal/bytecode"
	"anteater/internal/diagnostics"
	"anteater/internal/value"
)

func wordToFloat32(w bytecode.Word) float32 {
	return math.Float32frombits(uint32(w))
}

// cloneArray gives v an independent backing slice if it's an Array, so
// that storing it into a variable slot (OP_ASSIGN) can never alias the
// value it was copied from. Reading a variable (OP_PUSH_VAR) does not
// clone: that shared backing is what lets OP_SET mutate a variable's array
// in place via `a[i] = x`, matching spec §4.6's OP_SET contract, which
// requires assignment's "no sharing" guarantee to apply only at the
// rebind boundary, not to every read.
func cloneArray(v value.Value) value.Value {
	if !v.IsArray() {
		return v
	}
	elems := make([]value.Value, len(v.A))
	for i, e := range v.A {
		elems[i] = cloneArray(e)
	}
	return value.VArray(elems)
}

// binaryAdd implements OP_ADD's two rules: String-operand concatenation
// takes priority over arithmetic (spec §4.6: "ADD where either operand is
// String -> concatenate"), otherwise the usual numeric promotion applies.
func (vm *VM) binaryAdd() {
	b := vm.pop()
	a := vm.pop()
	if a.IsString() || b.IsString() {
		text := a.ToString(vm.strings) + b.ToString(vm.strings)
		vm.push(value.VString(vm.strings.Intern(text)))
		return
	}
	vm.push(vm.numericArith(bytecode.OpAdd, a, b))
}

// binaryCat implements the supplemented $ operator: unconditional
// stringify-and-concatenate, regardless of operand kind (distinct from
// ADD, which only concatenates when an operand is already a String).
func (vm *VM) binaryCat() {
	b := vm.pop()
	a := vm.pop()
	text := a.ToString(vm.strings) + b.ToString(vm.strings)
	vm.push(value.VString(vm.strings.Intern(text)))
}

// binaryArith implements SUB/MUL/DIV's numeric promotion (spec §4.6: two
// Ints stay Int; any Float operand widens the result to Float).
func (vm *VM) binaryArith(op bytecode.OpCode) {
	b := vm.pop()
	a := vm.pop()
	vm.push(vm.numericArith(op, a, b))
}

func (vm *VM) numericArith(op bytecode.OpCode, a, b value.Value) value.Value {
	if !a.IsNumber() || !b.IsNumber() {
		vm.fail(diagnostics.BadTypes, "arithmetic operator used on non-numeric operand: %s, %s", a.Kind, b.Kind)
	}
	if a.IsInt() && b.IsInt() {
		x, y := a.I, b.I
		switch op {
		case bytecode.OpAdd:
			return value.VInt(x + y)
		case bytecode.OpSub:
			return value.VInt(x - y)
		case bytecode.OpMul:
			return value.VInt(x * y)
		case bytecode.OpDiv:
			if y == 0 {
				vm.fail(diagnostics.DivideByZero, "division by zero")
			}
			return value.VInt(x / y)
		}
	}
	x, y := a.AsFloat64(), b.AsFloat64()
	switch op {
	case bytecode.OpAdd:
		return value.VFloat(float32(x + y))
	case bytecode.OpSub:
		return value.VFloat(float32(x - y))
	case bytecode.OpMul:
		return value.VFloat(float32(x * y))
	case bytecode.OpDiv:
		if y == 0 {
			vm.fail(diagnostics.DivideByZero, "division by zero")
		}
		return value.VFloat(float32(x / y))
	}
	panic("unreachable: numericArith called with non-arithmetic opcode")
}

// binaryMod implements OP_MOD: both operands must be Int (spec §4.6).
func (vm *VM) binaryMod() {
	b := vm.pop()
	a := vm.pop()
	if !a.IsInt() || !b.IsInt() {
		vm.fail(diagnostics.BadTypes, "%% can only be used with integer values")
	}
	if b.I == 0 {
		vm.fail(diagnostics.DivideByZero, "division by zero")
	}
	vm.push(value.VInt(a.I % b.I))
}

// equality implements OP_EQUAL/OP_NEQUAL: numeric promotion for numbers,
// interned-id comparison for Strings, Null equal only to Null. Arrays never
// compare equal, and operands of different kinds compare unequal.
func (vm *VM) equality(wantEqual bool) {
	b := vm.pop()
	a := vm.pop()

	var eq bool
	switch {
	case a.IsNumber() && b.IsNumber():
		eq = a.AsFloat64() == b.AsFloat64()
	case a.IsString() && b.IsString():
		eq = a.S == b.S
	default:
		eq = value.Equal(a, b)
	}

	vm.push(boolValue(eq == wantEqual))
}

// comparison implements LESS/GREATER/LEQUAL/GEQUAL: numeric promotion
// only, per spec §4.6 ("String-to-String comparison is permitted only for
// equality"). Cross-kind or non-numeric operands fail TypeMismatch.
func (vm *VM) comparison(op bytecode.OpCode) {
	b := vm.pop()
	a := vm.pop()
	if !a.IsNumber() || !b.IsNumber() {
		vm.fail(diagnostics.TypeMismatch, "comparison between unrelated types: %s, %s", a.Kind, b.Kind)
	}
	x, y := a.AsFloat64(), b.AsFloat64()
	var result bool
	switch op {
	case bytecode.OpLess:
		result = x < y
	case bytecode.OpGreater:
		result = x > y
	case bytecode.OpLEqual:
		result = x <= y
	case bytecode.OpGEqual:
		result = x >= y
	}
	vm.push(boolValue(result))
}

// logical implements AND/OR: both operands must be Int, any non-zero Int
// is truthy. Genuinely new code (the original declares but never
// implements these, per the package doc), following spec §4.6 literally.
func (vm *VM) logical(op bytecode.OpCode) {
	b := vm.pop()
	a := vm.pop()
	if !a.IsInt() || !b.IsInt() {
		vm.fail(diagnostics.TypeMismatch, "%s requires int operands, got %s, %s", op, a.Kind, b.Kind)
	}
	var result bool
	if op == bytecode.OpAnd {
		result = a.I != 0 && b.I != 0
	} else {
		result = a.I != 0 || b.I != 0
	}
	vm.push(boolValue(result))
}

// arrayGet implements OP_GET: container must be an Array, index an Int
// within [0, len).
func (vm *VM) arrayGet(container, idx value.Value) value.Value {
	if !container.IsArray() {
		vm.fail(diagnostics.NotIndexable, "indexer used on a %s", container.Kind)
	}
	if !idx.IsInt() {
		vm.fail(diagnostics.BadIndexType, "array index must be an int, got %s", idx.Kind)
	}
	if idx.I < 0 || int(idx.I) >= len(container.A) {
		vm.fail(diagnostics.IndexOutOfRange, "array index out of range: %d", idx.I)
	}
	return container.A[idx.I]
}

// arraySet implements OP_SET: same checks as arrayGet, then overwrites the
// element in place. container must be the actual backing array, not a
// copy — the caller popped it straight off the stack slot holding the
// live array value, matching the original's Stack(3)[Stack(2)] = Stack(1)
// in-place assignment.
func (vm *VM) arraySet(container, idx, v value.Value) {
	if !container.IsArray() {
		vm.fail(diagnostics.NotIndexable, "indexer used on a %s", container.Kind)
	}
	if !idx.IsInt() {
		vm.fail(diagnostics.BadIndexType, "array index must be an int, got %s", idx.Kind)
	}
	if idx.I < 0 || int(idx.I) >= len(container.A) {
		vm.fail(diagnostics.IndexOutOfRange, "array index out of range: %d", idx.I)
	}
	container.A[idx.I] = v
}
