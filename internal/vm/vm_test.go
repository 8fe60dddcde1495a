package vm

import (
	"bytes"
	"strings"
	"testing"

	"anteater/internal/bytecode"
	"anteater/internal/compiler"
	"anteater/internal/diagnostics"
	"anteater/internal/parser"
	"anteater/internal/scope"
	"anteater/internal/strtable"
)

// runSource compiles src as a single top-level program (no file-wrapper)
// behind the driver's four-word prologue, which gives the global scope's
// locals a frame, and runs it, returning the captured print output.
func runSource(t *testing.T, src string) (string, error) {
	t.Helper()
	tbl := strtable.New()
	root, err := parser.Parse(src, tbl)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	prog := bytecode.NewProgram()
	ctx := scope.NewContext()
	prog.EmitOp(bytecode.OpCall, 0, 0)
	prog.Emit(4)
	prog.Emit(0)
	globalsPatch := prog.Emit(0)
	c := compiler.New(prog, ctx, tbl)
	if err := c.Compile(root); err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	prog.Code[globalsPatch] = bytecode.Word(len(ctx.Scope(ctx.Global).Locals))
	prog.EmitOp(bytecode.OpDone, 0, 0)

	machine := New(prog, tbl)
	var out bytes.Buffer
	machine.Out = &out
	runErr := machine.Run()
	return out.String(), runErr
}

func TestArithmeticAndPromotion(t *testing.T) {
	out, err := runSource(t, `print(1 + 2 * 3); print(1 / 2); print(1 / 2.0);`)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if out != "7\n0\n0.5\n" {
		t.Fatalf("output = %q, want %q", out, "7\n0\n0.5\n")
	}
}

func TestControlFlowWhileLoop(t *testing.T) {
	out, err := runSource(t, `
		local i = 0;
		while (i < 3) {
			print(i);
			i = i + 1;
		};
	`)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if out != "0\n1\n2\n" {
		t.Fatalf("output = %q, want %q", out, "0\n1\n2\n")
	}
}

func TestRecursion(t *testing.T) {
	out, err := runSource(t, `
		function fact(n) {
			if (n <= 1) {
				return 1;
			};
			return n * fact(n - 1);
		};
		print(fact(5));
	`)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if out != "120\n" {
		t.Fatalf("output = %q, want %q", out, "120\n")
	}
}

func TestArraysIndexAndMutate(t *testing.T) {
	out, err := runSource(t, `
		local a = [10, 20, 30];
		print(a[1]);
		a[1] = 99;
		print(a[1]);
	`)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if out != "20\n99\n" {
		t.Fatalf("output = %q, want %q", out, "20\n99\n")
	}
}

func TestArrayAssignmentCopiesNotShares(t *testing.T) {
	out, err := runSource(t, `
		local a = [1, 2, 3];
		local b = a;
		b[0] = 999;
		print(a[0]);
		print(b[0]);
	`)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if out != "1\n999\n" {
		t.Fatalf("output = %q, want %q (assignment must copy the array)", out, "1\n999\n")
	}
}

func TestStringConcatenation(t *testing.T) {
	out, err := runSource(t, `print("a" + "b"); print(1 $ 2); print("x" $ 1);`)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if out != "ab\n12\nx1\n" {
		t.Fatalf("output = %q, want %q", out, "ab\n12\nx1\n")
	}
}

func TestRuntimeTypeErrorOnArithmetic(t *testing.T) {
	_, err := runSource(t, `print(1 % 2.0);`)
	if err == nil {
		t.Fatal("expected a runtime error for MOD on a non-int operand")
	}
	ae, ok := err.(*diagnostics.AntError)
	if !ok || ae.Kind != diagnostics.BadTypes {
		t.Fatalf("expected BadTypes, got %v", err)
	}
}

func TestDivideByZero(t *testing.T) {
	_, err := runSource(t, `print(1 / 0);`)
	ae, ok := err.(*diagnostics.AntError)
	if !ok || ae.Kind != diagnostics.DivideByZero {
		t.Fatalf("expected DivideByZero, got %v", err)
	}
}

func TestIndexOutOfRange(t *testing.T) {
	_, err := runSource(t, `local a = [1]; print(a[5]);`)
	ae, ok := err.(*diagnostics.AntError)
	if !ok || ae.Kind != diagnostics.IndexOutOfRange {
		t.Fatalf("expected IndexOutOfRange, got %v", err)
	}
}

func TestNotIndexableOnInt(t *testing.T) {
	_, err := runSource(t, `local a = 5; print(a[0]);`)
	ae, ok := err.(*diagnostics.AntError)
	if !ok || ae.Kind != diagnostics.NotIndexable {
		t.Fatalf("expected NotIndexable, got %v", err)
	}
}

func TestAndOrTruthiness(t *testing.T) {
	out, err := runSource(t, `
		print(1 and 1);
		print(1 and 0);
		print(0 or 1);
		print(0 or 0);
	`)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if out != "1\n0\n1\n0\n" {
		t.Fatalf("output = %q, want %q", out, "1\n0\n1\n0\n")
	}
}

func TestForeachIteratesArray(t *testing.T) {
	out, err := runSource(t, `
		local sum = 0;
		foreach (v in [1, 2, 3, 4]) {
			sum = sum + v;
		};
		print(sum);
	`)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if out != "10\n" {
		t.Fatalf("output = %q, want %q", out, "10\n")
	}
}

func TestBreakExitsLoopEarly(t *testing.T) {
	out, err := runSource(t, `
		local i = 0;
		while (1) {
			if (i == 3) {
				break;
			};
			print(i);
			i = i + 1;
		};
	`)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if out != "0\n1\n2\n" {
		t.Fatalf("output = %q, want %q", out, "0\n1\n2\n")
	}
}

func TestDoWhileRunsBodyAtLeastOnce(t *testing.T) {
	out, err := runSource(t, `
		local i = 0;
		do {
			print(i);
			i = i + 1;
		} while (i < 1);
	`)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if out != "0\n" {
		t.Fatalf("output = %q, want %q", out, "0\n")
	}
}

func TestNullPrintsAsNull(t *testing.T) {
	out, err := runSource(t, `print(null);`)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if strings.TrimSpace(out) != "null" {
		t.Fatalf("output = %q, want %q", out, "null\n")
	}
}

func TestRuntimeErrorIsLoggedToOutput(t *testing.T) {
	out, err := runSource(t, `print(1 + [1, 2]);`)
	if err == nil {
		t.Fatal("expected a runtime error for ADD against an array")
	}
	if !strings.Contains(out, "Script runtime error:") {
		t.Fatalf("output = %q, want it to contain %q", out, "Script runtime error:")
	}
}

func TestNonIntConditionFailsTypeMismatch(t *testing.T) {
	_, err := runSource(t, `if ("x") { print(1); };`)
	ae, ok := err.(*diagnostics.AntError)
	if !ok || ae.Kind != diagnostics.TypeMismatch {
		t.Fatalf("expected TypeMismatch, got %v", err)
	}
}

func TestStringEqualityByInternedID(t *testing.T) {
	out, err := runSource(t, `print("abc" == "abc"); print("abc" == "xyz");`)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if out != "1\n0\n" {
		t.Fatalf("output = %q, want %q", out, "1\n0\n")
	}
}
