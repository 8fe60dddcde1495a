// Command anteater is the AntEater driver: it compiles each file named on
// the command line into a single shared program and runs it (spec §6.1).
//
// The flag set, the per-file synthetic-function wrapping, and the VM
// prologue/patch sequence are grounded directly in
// original_source/ant.cpp's main() and AntVM::CompileFile/Finalize; the
// flag-scan-then-compile-then-run shape and the panic/recover parse
// boundary follow the teacher's cmd/sentra/main.go.
package main

import (
	"fmt"
	"math"
	"os"
	"strings"

	"anteater/internal/ast"
	"anteater/internal/bytecode"
	"anteater/internal/compiler"
	"anteater/internal/parser"
	"anteater/internal/scope"
	"anteater/internal/strtable"
	"anteater/internal/vm"
)

type options struct {
	dumpTree bool
	dumpCode bool
	pause    bool
	files    []string
}

func parseArgs(args []string) options {
	var opt options
	for _, a := range args {
		if len(a) > 1 && a[0] == '-' {
			for _, c := range a[1:] {
				switch c {
				case 't':
					opt.dumpTree = true
				case 'c':
					opt.dumpCode = true
				case 'p':
					opt.pause = true
				}
			}
			continue
		}
		opt.files = append(opt.files, a)
	}
	return opt
}

func main() {
	opt := parseArgs(os.Args[1:])
	if len(opt.files) == 0 {
		fmt.Fprintln(os.Stderr, "usage: ant [-tcp] file1 [file2 ...]")
		os.Exit(1)
	}
	os.Exit(run(opt))
}

// run compiles every requested file into one shared Program and executes
// it, returning the process exit status.
func run(opt options) int {
	tbl := strtable.New()
	prog := bytecode.NewProgram()
	ctx := scope.NewContext()

	// The synthetic VM prologue (spec §6.2): OP_CALL into the global
	// scope's code at offset 4, patched with the global scope's local count
	// once every file has been compiled (original_source/ant_vm.cpp's
	// AntVM constructor and Finalize).
	prog.EmitOp(bytecode.OpCall, 0, 0)
	prog.Emit(4)
	prog.Emit(0)
	globalsPatch := prog.Emit(0)

	comp := compiler.New(prog, ctx, tbl)

	for n, path := range opt.files {
		contents, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: cannot read %s: %v\n", path, err)
			return 1
		}

		wrapped := fmt.Sprintf("function __%d() { %s return; }; __%d();", n, contents, n)

		root, err := parser.Parse(wrapped, tbl)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}

		if opt.dumpTree {
			dumpTree(root, 0, tbl)
		}

		if err := comp.Compile(root); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
	}

	prog.Code[globalsPatch] = bytecode.Word(len(ctx.Scope(ctx.Global).Locals))
	prog.EmitOp(bytecode.OpDone, 0, 0)

	if opt.dumpCode {
		dumpCode(ctx, tbl, prog)
	}

	machine := vm.New(prog, tbl)
	runErr := machine.Run()

	fmt.Println("\n--------------- Done ---------------")

	if opt.pause {
		fmt.Print("press enter to continue...")
		fmt.Scanln()
	}

	if runErr != nil {
		fmt.Fprintln(os.Stderr, runErr)
		return 1
	}
	return 0
}

// dumpTree prints root's shape the way the -t flag's cosmetic dumper does
// (original_source/ant_node.cpp's AntNode::PrintNode): one line per node,
// indented by nesting depth, payload nodes (ID/INT/FLOAT/STRING) annotated
// with their value.
func dumpTree(n *ast.Node, depth int, tbl *strtable.Table) {
	fmt.Print(strings.Repeat("  ", depth))
	switch n.Kind {
	case ast.ID:
		fmt.Printf("id: %s\n", tbl.Lookup(n.StrVal))
	case ast.Int:
		fmt.Printf("int: %d\n", n.IntVal)
	case ast.Float:
		fmt.Printf("float: %g\n", n.FloatVal)
	case ast.String:
		fmt.Printf("string: %q\n", tbl.Lookup(n.StrVal))
	default:
		fmt.Println(n.Kind.String())
	}
	for _, c := range n.Children {
		dumpTree(c, depth+1, tbl)
	}
}

// dumpCode prints the compiled instruction vector the way the -c flag's
// disassembler does (original_source/ant_codegen.cpp's
// AntCodeGen::PrintCode): one line per instruction, operands decoded
// according to the opcode's shape.
func dumpCode(ctx *scope.Context, tbl *strtable.Table, prog *bytecode.Program) {
	fmt.Println("\n\nCodeGen Output:")
	code := prog.Code
	i := 0
	for i < len(code) {
		off := i
		op := bytecode.OpCode(code[i])
		i++
		fmt.Printf("%4d:\t\t", off)
		switch op {
		case bytecode.OpPushInt:
			fmt.Printf("PUSH_INT             %d", code[i])
			i++
		case bytecode.OpPushFloat:
			fmt.Printf("PUSH_FLOAT             %g", math.Float32frombits(uint32(code[i])))
			i++
		case bytecode.OpPushString:
			fmt.Printf("PUSH_STRING             %s", tbl.Lookup(int(code[i])))
			i++
		case bytecode.OpPushVar:
			fmt.Printf("PUSH_VAR             %d", code[i])
			i++
		case bytecode.OpPushArray:
			fmt.Printf("PUSH_ARRAY             %d", code[i])
			i++
		case bytecode.OpGet:
			fmt.Print("GET")
		case bytecode.OpSet:
			fmt.Print("SET")
		case bytecode.OpArrayLen:
			fmt.Print("ARRAY_LEN")
		case bytecode.OpEqual:
			fmt.Print("EQUAL")
		case bytecode.OpNEqual:
			fmt.Print("NEQUAL")
		case bytecode.OpLess:
			fmt.Print("LESS")
		case bytecode.OpGreater:
			fmt.Print("GREATER")
		case bytecode.OpLEqual:
			fmt.Print("LEQUAL")
		case bytecode.OpGEqual:
			fmt.Print("GEQUAL")
		case bytecode.OpAnd:
			fmt.Print("AND")
		case bytecode.OpOr:
			fmt.Print("OR")
		case bytecode.OpNot:
			fmt.Print("NOT")
		case bytecode.OpAdd:
			fmt.Print("ADD")
		case bytecode.OpSub:
			fmt.Print("SUB")
		case bytecode.OpMul:
			fmt.Print("MUL")
		case bytecode.OpDiv:
			fmt.Print("DIV")
		case bytecode.OpMod:
			fmt.Print("MOD")
		case bytecode.OpCat:
			fmt.Print("CAT")
		case bytecode.OpBra:
			fmt.Printf("BRA             %d", code[i])
			i++
		case bytecode.OpBrz:
			fmt.Printf("BRZ             %d", code[i])
			i++
		case bytecode.OpBnz:
			fmt.Printf("BNZ             %d", code[i])
			i++
		case bytecode.OpCall:
			target, nargs, nlocals := code[i], code[i+1], code[i+2]
			i += 3
			name := "?"
			if id, ok := ctx.FunctionMap[int(target)]; ok {
				name = ctx.Scope(id).Name
			}
			fmt.Printf("CALL			%s  %d  %d", name, nargs, nlocals)
		case bytecode.OpAssign:
			fmt.Printf("ASSIGN			%d", code[i])
			i++
		case bytecode.OpReturn:
			fmt.Print("RETURN")
		case bytecode.OpPrint:
			fmt.Print("PRINT")
		case bytecode.OpPushNull:
			fmt.Print("PUSH_NULL")
		case bytecode.OpDone:
			fmt.Print("DONE")
		default:
			fmt.Printf("<INVALID_OP>: %d", int32(op))
		}
		fmt.Println()
	}
}
