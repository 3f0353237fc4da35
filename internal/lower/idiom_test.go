package lower

import (
	"testing"

	"github.com/Hawkynt/Hawkynt.github.io-sub003/cast"
	"github.com/Hawkynt/Hawkynt.github.io-sub003/ilast"
)

func newLowerer() (*IdiomLowerer, *DiagnosticSink) {
	diag := &DiagnosticSink{}
	scope := NewScope()
	types := NewTypeSystem(diag)
	mangler := NewNameMangler()
	file := &cast.File{}
	lengths := NewArrayLengthTracker(diag, false)
	return NewIdiomLowerer(diag, mangler, types, lengths, file, scope), diag
}

func ident(name string) *ilast.Node {
	return &ilast.Node{NodeKind: ilast.Identifier, Name: name}
}

func numLit(v float64) *ilast.Node {
	return &ilast.Node{NodeKind: ilast.Literal, RawValue: v}
}

// TestLowerRotateLeft is the Rotation scenario from spec.md §8:
// OpCodes.RotL32(x, 7) on a uint32_t x.
func TestLowerRotateLeft(t *testing.T) {
	l, _ := newLowerer()
	l.scope.Declare("x", cast.Uint32)
	n := &ilast.Node{
		NodeKind:  ilast.RotateLeft,
		Arguments: []*ilast.Node{ident("x"), numLit(7)},
	}
	got := l.LowerExpr(n)
	want := "(((uint32_t)(x) << ((7U) & 31U)) | ((uint32_t)(x) >> (32U - ((7U) & 31U))))"
	if got != want {
		t.Errorf("lowerRotate(RotL32(x,7)) = %q, want %q", got, want)
	}
}

func TestLowerRotateRight(t *testing.T) {
	l, _ := newLowerer()
	l.scope.Declare("x", cast.Uint32)
	n := &ilast.Node{
		NodeKind:  ilast.RotateRight,
		Arguments: []*ilast.Node{ident("x"), numLit(3)},
	}
	got := l.LowerExpr(n)
	want := "(((uint32_t)(x) >> ((3U) & 31U)) | ((uint32_t)(x) << (32U - ((3U) & 31U))))"
	if got != want {
		t.Errorf("lowerRotate(RotR32(x,3)) = %q, want %q", got, want)
	}
}

func TestLowerRotateWidthOverride(t *testing.T) {
	l, _ := newLowerer()
	n := &ilast.Node{
		NodeKind:  ilast.RotateLeft,
		Arguments: []*ilast.Node{ident("b"), numLit(1), numLit(8)},
	}
	got := l.LowerExpr(n)
	want := "(((uint8_t)(b) << ((1U) & 7U)) | ((uint8_t)(b) >> (8U - ((1U) & 7U))))"
	if got != want {
		t.Errorf("lowerRotate with width=8 = %q, want %q", got, want)
	}
}

// TestLowerPackBE covers spec.md §4.4 Pack: big-endian byte packing into a
// single integer, most-significant byte first.
func TestLowerPackBE(t *testing.T) {
	l, _ := newLowerer()
	n := &ilast.Node{
		NodeKind:  ilast.PackBE,
		Arguments: []*ilast.Node{ident("b0"), ident("b1"), ident("b2"), ident("b3")},
	}
	got := l.LowerExpr(n)
	want := "(((uint32_t)(b0) << 24) | ((uint32_t)(b1) << 16) | ((uint32_t)(b2) << 8) | ((uint32_t)(b3)))"
	if got != want {
		t.Errorf("lowerPack(PackBE) = %q, want %q", got, want)
	}
}

func TestLowerPackLE(t *testing.T) {
	l, _ := newLowerer()
	n := &ilast.Node{
		NodeKind:  ilast.PackLE,
		Arguments: []*ilast.Node{ident("b0"), ident("b1")},
	}
	got := l.LowerExpr(n)
	want := "(((uint16_t)(b0)) | ((uint16_t)(b1) << 8))"
	if got != want {
		t.Errorf("lowerPack(PackLE) = %q, want %q", got, want)
	}
}

func TestLowerUnpackLEDefaultWidth(t *testing.T) {
	l, _ := newLowerer()
	n := &ilast.Node{
		NodeKind:  ilast.UnpackLE,
		Arguments: []*ilast.Node{ident("v")},
	}
	got := l.LowerExpr(n)
	if got != "unpack32_le_ret(v)" {
		t.Errorf("lowerUnpack(UnpackLE) = %q, want unpack32_le_ret(v)", got)
	}
}

func TestLowerUnpackBEWidthHint(t *testing.T) {
	l, _ := newLowerer()
	n := &ilast.Node{
		NodeKind:  ilast.UnpackBE,
		Arguments: []*ilast.Node{ident("v"), numLit(16)},
	}
	got := l.LowerExpr(n)
	if got != "unpack16_be_ret(v)" {
		t.Errorf("lowerUnpack(UnpackBE, width=16) = %q, want unpack16_be_ret(v)", got)
	}
}

func TestLowerMathIntrinsics(t *testing.T) {
	l, _ := newLowerer()
	cases := []struct {
		name string
		args []*ilast.Node
		want string
	}{
		{"floor", []*ilast.Node{ident("x")}, "floor(x)"},
		{"sqrt", []*ilast.Node{ident("x")}, "sqrt(x)"},
		{"imul", []*ilast.Node{ident("a"), ident("b")}, "(int32_t)((int32_t)(a) * (int32_t)(b))"},
		{"max", []*ilast.Node{ident("a"), ident("b")}, "((a) > (b) ? (a) : (b))"},
		{"min", []*ilast.Node{ident("a"), ident("b")}, "((a) < (b) ? (a) : (b))"},
	}
	for _, c := range cases {
		n := &ilast.Node{NodeKind: ilast.MathCall, Name: c.name, Arguments: c.args}
		got := l.LowerExpr(n)
		if got != c.want {
			t.Errorf("lowerMath(%s) = %q, want %q", c.name, got, c.want)
		}
	}
}

func TestLowerMathUnknownDegradesToTODO(t *testing.T) {
	l, diag := newLowerer()
	n := &ilast.Node{NodeKind: ilast.MathCall, Name: "cosh", Arguments: []*ilast.Node{ident("x")}}
	got := l.LowerExpr(n)
	if got != "/* TODO: Math.cosh */0" {
		t.Errorf("lowerMath(unknown) = %q, want TODO placeholder", got)
	}
	if len(diag.Items()) != 1 || diag.Items()[0].Kind != DiagUnsupportedIdiom {
		t.Errorf("expected one DiagUnsupportedIdiom diagnostic, got %+v", diag.Items())
	}
}

// TestLowerLogicalOrPointer and the tests after it cover spec.md §4.4's
// JS-fallback encodings: `||` with a pointer-typed and with a scalar left
// operand, and `&&`.
func TestLowerLogicalOrPointer(t *testing.T) {
	l, _ := newLowerer()
	l.scope.Declare("a", cast.Pointer(cast.Uint8))
	n := &ilast.Node{NodeKind: ilast.LogicalExpression, Operator: "||", Left: ident("a"), Right: ident("b")}
	got := l.LowerExpr(n)
	if got != "(a ? a : b)" {
		t.Errorf("lowerLogical(||, pointer) = %q, want \"(a ? a : b)\"", got)
	}
}

func TestLowerLogicalOrScalarIsJustLeft(t *testing.T) {
	l, _ := newLowerer()
	l.scope.Declare("a", cast.Uint32)
	n := &ilast.Node{NodeKind: ilast.LogicalExpression, Operator: "||", Left: ident("a"), Right: ident("b")}
	got := l.LowerExpr(n)
	if got != "a" {
		t.Errorf("lowerLogical(||, scalar) = %q, want \"a\"", got)
	}
}

func TestLowerLogicalNullishPointer(t *testing.T) {
	l, _ := newLowerer()
	l.scope.Declare("a", cast.Pointer(cast.Uint8))
	n := &ilast.Node{NodeKind: ilast.LogicalExpression, Operator: "??", Left: ident("a"), Right: ident("b")}
	got := l.LowerExpr(n)
	if got != "(a != NULL ? a : b)" {
		t.Errorf("lowerLogical(??, pointer) = %q, want \"(a != NULL ? a : b)\"", got)
	}
}

func TestLowerLogicalAnd(t *testing.T) {
	l, _ := newLowerer()
	n := &ilast.Node{NodeKind: ilast.LogicalExpression, Operator: "&&", Left: ident("a"), Right: ident("b")}
	got := l.LowerExpr(n)
	if got != "(a ? b : a)" {
		t.Errorf("lowerLogical(&&) = %q, want \"(a ? b : a)\"", got)
	}
}

func TestLowerArrayPushSingleValue(t *testing.T) {
	l, _ := newLowerer()
	l.scope.Declare("buf", cast.Pointer(cast.Uint8))
	call := &ilast.Node{
		NodeKind: ilast.CallExpression,
		Callee:   &ilast.Node{NodeKind: ilast.MemberExpression, Object: ident("buf"), PropertyNode: ident("push")},
		Arguments: []*ilast.Node{numLit(5)},
	}
	got := l.LowerExpr(call)
	want := "ARRAY_PUSH(buf, buf_length, 5U)"
	if got != want {
		t.Errorf("lowerArrayPush(single) = %q, want %q", got, want)
	}
}

func TestLowerHigherOrderMapWithInlineClosure(t *testing.T) {
	l, diag := newLowerer()
	l.scope.Declare("arr", cast.Pointer(cast.Uint8))
	call := &ilast.Node{
		NodeKind: ilast.CallExpression,
		Callee:   &ilast.Node{NodeKind: ilast.MemberExpression, Object: ident("arr"), PropertyNode: ident("map")},
		Arguments: []*ilast.Node{
			{NodeKind: ilast.ArrowFunctionExpression},
		},
	}
	got := l.LowerExpr(call)
	want := "array_map(arr, arr_length, true /* TODO: array_map(...) */)"
	if got != want {
		t.Errorf("lowerHigherOrder(map, closure) = %q, want %q", got, want)
	}
	if len(diag.Items()) != 1 || diag.Items()[0].Kind != DiagUnsupportedIdiom {
		t.Errorf("expected one DiagUnsupportedIdiom diagnostic, got %+v", diag.Items())
	}
}

func TestLowerTypeof(t *testing.T) {
	l, _ := newLowerer()
	l.scope.Declare("flag", cast.Bool)
	l.scope.Declare("buf", cast.Pointer(cast.Uint8))
	l.scope.Declare("n", cast.Uint32)
	cases := []struct {
		name string
		want string
	}{
		{"flag", "\"boolean\""},
		{"buf", "\"object\""},
		{"n", "\"number\""},
	}
	for _, c := range cases {
		n := &ilast.Node{NodeKind: ilast.UnaryExpression, Operator: "typeof", Argument: ident(c.name)}
		got := l.LowerExpr(n)
		if got != c.want {
			t.Errorf("typeof %s = %q, want %q", c.name, got, c.want)
		}
	}
}
