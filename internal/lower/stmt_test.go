package lower

import (
	"strings"
	"testing"

	"github.com/Hawkynt/Hawkynt.github.io-sub003/cast"
	"github.com/Hawkynt/Hawkynt.github.io-sub003/ilast"
)

func newStmtLowerer() (*StatementLowerer, *DiagnosticSink, *Scope) {
	diag := &DiagnosticSink{}
	scope := NewScope()
	types := NewTypeSystem(diag)
	mangler := NewNameMangler()
	file := &cast.File{}
	lengths := NewArrayLengthTracker(diag, false)
	idioms := NewIdiomLowerer(diag, mangler, types, lengths, file, scope)
	return NewStatementLowerer(diag, mangler, types, lengths, idioms, scope), diag, scope
}

// TestLowerForOfOverString is the "For-of over string" end-to-end scenario
// from spec.md §8: `for (const c of str)` on a char* becomes a counted
// for loop over str_length with a per-iteration char declaration.
func TestLowerForOfOverString(t *testing.T) {
	s, _, scope := newStmtLowerer()
	scope.Declare("str", cast.CharPtr)

	forOf := &ilast.Node{
		NodeKind: ilast.ForOfStatement,
		Right:    ident("str"),
		Left: &ilast.Node{
			NodeKind:     ilast.VariableDeclaration,
			Declarations: []*ilast.Node{{NodeKind: ilast.VariableDeclarator, Id: ident("c")}},
		},
		Body: nil,
	}
	fn := &cast.Function{Name: "count_vowels"}
	got := s.LowerStmt(forOf, fn, false, false)

	want := []string{
		"for (size_t _idx_0 = 0; _idx_0 < str_length; ++_idx_0) {",
		"\tchar c = str[_idx_0];",
		"}",
	}
	if len(got) != len(want) {
		t.Fatalf("LowerStmt(ForOf) = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestLowerForOfLoopCounterIsFreshPerFunction(t *testing.T) {
	s, _, scope := newStmtLowerer()
	scope.Declare("a", cast.Pointer(cast.Uint32))
	scope.Declare("b", cast.Pointer(cast.Uint32))
	loopOver := func(name string) *ilast.Node {
		return &ilast.Node{
			NodeKind: ilast.ForOfStatement,
			Right:    ident(name),
			Left: &ilast.Node{
				NodeKind:     ilast.VariableDeclaration,
				Declarations: []*ilast.Node{{NodeKind: ilast.VariableDeclarator, Id: ident("v")}},
			},
		}
	}
	fn := &cast.Function{}
	first := s.LowerStmt(loopOver("a"), fn, false, false)
	second := s.LowerStmt(loopOver("b"), fn, false, false)
	if !strings.Contains(first[0], "_idx_0") {
		t.Errorf("first loop header = %q, want it to use _idx_0", first[0])
	}
	if !strings.Contains(second[0], "_idx_1") {
		t.Errorf("second loop header = %q, want it to use _idx_1 (fresh counter within the same function)", second[0])
	}

	s.ResetLoopCounters()
	third := s.LowerStmt(loopOver("a"), fn, false, false)
	if !strings.Contains(third[0], "_idx_0") {
		t.Errorf("loop header after ResetLoopCounters = %q, want it to restart at _idx_0", third[0])
	}
}

func TestLowerReturnPointerFunctionNegativeBecomesNull(t *testing.T) {
	s, _, _ := newStmtLowerer()
	ret := &ilast.Node{NodeKind: ilast.ReturnStatement, Argument: numLit(-1)}
	if got := s.lowerReturn(ret, true); got != "return NULL;" {
		t.Errorf("lowerReturn(-1, pointerReturn) = %q, want \"return NULL;\"", got)
	}
}

func TestLowerReturnVoidAbsentValue(t *testing.T) {
	s, _, _ := newStmtLowerer()
	ret := &ilast.Node{NodeKind: ilast.ReturnStatement}
	if got := s.lowerReturn(ret, false); got != "return;" {
		t.Errorf("lowerReturn(no value, non-pointer) = %q, want \"return;\"", got)
	}
	if got := s.lowerReturn(ret, true); got != "return NULL;" {
		t.Errorf("lowerReturn(no value, pointer) = %q, want \"return NULL;\"", got)
	}
}

func TestLowerThrow(t *testing.T) {
	s, _, _ := newStmtLowerer()
	if got := s.lowerThrow(true); got != "return NULL;" {
		t.Errorf("lowerThrow(pointer) = %q, want \"return NULL;\"", got)
	}
	if got := s.lowerThrow(false); got != "return -1;" {
		t.Errorf("lowerThrow(non-pointer) = %q, want \"return -1;\"", got)
	}
}

// TestLowerVariableDeclarationPointerGetsLengthCompanion covers the
// universal invariant (spec.md §8 invariant 2): every pointer/array
// local declaration is immediately followed by its "<name>_length"
// companion.
func TestLowerVariableDeclarationPointerGetsLengthCompanion(t *testing.T) {
	s, _, _ := newStmtLowerer()
	decl := &ilast.Node{
		NodeKind: ilast.VariableDeclaration,
		Declarations: []*ilast.Node{
			{
				NodeKind: ilast.VariableDeclarator,
				Id:       ident("buf"),
				Init:     &ilast.Node{NodeKind: ilast.ArrayExpression, Elements: []*ilast.Node{numLit(1), numLit(2)}},
			},
		},
	}
	got := s.lowerVariableDeclaration(decl)
	if len(got) != 2 {
		t.Fatalf("lowerVariableDeclaration = %v, want 2 lines (decl + length companion)", got)
	}
	if !strings.Contains(got[0], "buf") || !strings.HasSuffix(got[1], "size_t buf_length = 2U;") {
		t.Errorf("lowerVariableDeclaration = %v, want a buf declaration followed by \"size_t buf_length = 2U;\"", got)
	}
}

func TestLowerIfElse(t *testing.T) {
	s, _, _ := newStmtLowerer()
	ifNode := &ilast.Node{
		NodeKind: ilast.IfStatement,
		Test:     ident("flag"),
		Consequent: &ilast.Node{
			NodeKind: ilast.BlockStatement,
			Body:     []*ilast.Node{{NodeKind: ilast.ReturnStatement, Argument: numLit(1)}},
		},
		Alternate: &ilast.Node{
			NodeKind: ilast.BlockStatement,
			Body:     []*ilast.Node{{NodeKind: ilast.ReturnStatement, Argument: numLit(0)}},
		},
	}
	fn := &cast.Function{}
	got := s.LowerStmt(ifNode, fn, false, false)
	want := []string{
		"if (flag) {",
		"\treturn 1U;",
		"} else {",
		"\treturn 0U;",
		"}",
	}
	if len(got) != len(want) {
		t.Fatalf("LowerStmt(if/else) = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d: got %q, want %q", i, got[i], want[i])
		}
	}
}
