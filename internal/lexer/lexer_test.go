package lexer

import (
	"anteater/internal/diagnostics"
	"testing"
)

func scanAll(src string) []Token {
	l := New(src)
	var toks []Token
	for {
		tok := l.Advance()
		toks = append(toks, tok)
		if tok.Kind == KindEOF {
			return toks
		}
	}
}

func TestPunctuationAndKeywords(t *testing.T) {
	toks := scanAll(`local x = 1 + 2; if (x) { print(x); } else { return; }`)
	wantKinds := []Kind{
		KindLocal, KindIdent, Kind('='), KindInt, Kind('+'), KindInt, Kind(';'),
		KindIf, Kind('('), KindIdent, Kind(')'), Kind('{'),
		KindIdent, Kind('('), KindIdent, Kind(')'), Kind(';'), Kind('}'),
		KindElse, Kind('{'), KindReturn, Kind(';'), Kind('}'),
		KindEOF,
	}
	if len(toks) != len(wantKinds) {
		t.Fatalf("got %d tokens, want %d: %+v", len(toks), len(wantKinds), toks)
	}
	for i, k := range wantKinds {
		if toks[i].Kind != k {
			t.Errorf("token %d: kind = %v, want %v", i, toks[i].Kind, k)
		}
	}
}

func TestTwoCharOperators(t *testing.T) {
	cases := map[string]Kind{
		"==": KindEqEq, "!=": KindNotEq, "<=": KindLtEq, ">=": KindGtEq,
		"+=": KindPlusEq, "-=": KindMinEq, "*=": KindMulEq, "/=": KindDivEq,
		"++": KindIncr, "--": KindDecr,
	}
	for src, want := range cases {
		toks := scanAll(src)
		if len(toks) != 2 || toks[0].Kind != want {
			t.Errorf("scanAll(%q) = %+v, want single token of kind %v", src, toks, want)
		}
	}
}

func TestStringEscapes(t *testing.T) {
	toks := scanAll(`"a\nb\tc\"d\\e"`)
	if toks[0].Kind != KindString {
		t.Fatalf("kind = %v, want KindString", toks[0].Kind)
	}
	want := "a\nb\tc\"d\\\\e"
	if toks[0].StrVal != want {
		t.Fatalf("StrVal = %q, want %q", toks[0].StrVal, want)
	}
}

func TestUnterminatedString(t *testing.T) {
	defer func() {
		r := recover()
		err, ok := r.(*diagnostics.AntError)
		if !ok || err.Kind != diagnostics.UnterminatedString {
			t.Fatalf("expected UnterminatedString, got %#v", r)
		}
	}()
	scanAll(`"never closed`)
}

func TestNestedBlockComment(t *testing.T) {
	toks := scanAll("/* outer /* inner */ still outer */ 42")
	if len(toks) != 2 || toks[0].Kind != KindInt || toks[0].IntVal != 42 {
		t.Fatalf("nested block comment not consumed as one unit: %+v", toks)
	}
}

func TestUnterminatedBlockComment(t *testing.T) {
	defer func() {
		r := recover()
		err, ok := r.(*diagnostics.AntError)
		if !ok || err.Kind != diagnostics.UnterminatedComment {
			t.Fatalf("expected UnterminatedComment, got %#v", r)
		}
	}()
	scanAll("/* never closed")
}

func TestLineComment(t *testing.T) {
	toks := scanAll("1 // ignored\n2")
	if len(toks) != 3 || toks[0].IntVal != 1 || toks[1].IntVal != 2 {
		t.Fatalf("line comment not skipped: %+v", toks)
	}
}

func TestNumberKinds(t *testing.T) {
	toks := scanAll("42 3.5")
	if toks[0].Kind != KindInt || toks[0].IntVal != 42 {
		t.Fatalf("toks[0] = %+v, want int 42", toks[0])
	}
	if toks[1].Kind != KindFloat || toks[1].FloatVal != 3.5 {
		t.Fatalf("toks[1] = %+v, want float 3.5", toks[1])
	}
}

func TestLineAndColumnTracking(t *testing.T) {
	l := New("ab\ncd")
	first := l.Advance() // "ab" identifier at line 1, column 0
	if first.Line != 1 || first.Column != 0 {
		t.Fatalf("first token at %d:%d, want 1:0", first.Line, first.Column)
	}
	second := l.Advance() // "cd" identifier at line 2, column 0
	if second.Line != 2 {
		t.Fatalf("second token line = %d, want 2", second.Line)
	}
}

func TestBadToken(t *testing.T) {
	defer func() {
		r := recover()
		err, ok := r.(*diagnostics.AntError)
		if !ok || err.Kind != diagnostics.BadToken {
			t.Fatalf("expected BadToken, got %#v", r)
		}
	}()
	scanAll("@")
}
