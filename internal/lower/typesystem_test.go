package lower

import (
	"reflect"
	"testing"

	"github.com/Hawkynt/Hawkynt.github.io-sub003/cast"
	"github.com/Hawkynt/Hawkynt.github.io-sub003/ilast"
)

func newTypeSystem() *TypeSystem {
	return NewTypeSystem(&DiagnosticSink{})
}

// typesEqual compares two cast.Type values structurally. cast.Type embeds
// an *ElementType, so every cast.Pointer(...) call allocates a fresh
// pointee; plain == would compare those addresses instead of the types
// they describe, so tests use this helper (backed by reflect.DeepEqual,
// which follows pointers) instead of ==.
func typesEqual(a, b cast.Type) bool {
	return reflect.DeepEqual(a, b)
}

// TestInferFromNameRuleOrdering pins the load-bearing rule order from
// spec.md §4.1: size-suffix beats plain containment, round_keys beats
// key, *bit singular beats key containment, and input-like names get a
// const pointer unless they carry a numeric suffix.
func TestInferFromNameRuleOrdering(t *testing.T) {
	ts := newTypeSystem()
	cases := []struct {
		name string
		want cast.Type
	}{
		{"keySize", cast.SizeT},
		{"roundKeys", cast.Pointer(cast.Pointer(cast.Uint32))},
		{"parityBit", cast.Uint32},
		{"key", cast.Const(cast.Pointer(cast.Uint8))},
		{"key0", cast.Pointer(cast.Uint8)},
		{"outputBuffer", cast.Pointer(cast.Uint8)},
		{"sboxTable", cast.Pointer(cast.Uint32)},
		{"inputTable", cast.Const(cast.Pointer(cast.Uint32))},
		{"somethingRandom", cast.Uint32},
	}
	for _, c := range cases {
		if got := ts.InferFromName(c.name); !typesEqual(got, c.want) {
			t.Errorf("InferFromName(%q) = %+v, want %+v", c.name, got, c.want)
		}
	}
}

func TestInferFromNameStringLike(t *testing.T) {
	ts := newTypeSystem()
	if got := ts.InferFromName("message"); !typesEqual(got, cast.Const(cast.CharPtr)) {
		t.Errorf("InferFromName(\"message\") = %+v, want const char*", got)
	}
}

func TestUpgradeMonotonic(t *testing.T) {
	cases := []struct {
		existing, next, want cast.Type
	}{
		{cast.Uint32, cast.Pointer(cast.Uint8), cast.Pointer(cast.Uint8)},
		{cast.Pointer(cast.Uint8), cast.StructPtr("Foo"), cast.StructPtr("Foo")},
		{cast.StructPtr("Foo"), cast.Uint32, cast.StructPtr("Foo")}, // never downgrades
		{cast.Pointer(cast.Void), cast.Pointer(cast.Uint8), cast.Pointer(cast.Uint8)},
		{cast.Pointer(cast.Uint8), cast.Pointer(cast.Void), cast.Pointer(cast.Uint8)},
	}
	for i, c := range cases {
		if got := Upgrade(c.existing, c.next); !typesEqual(got, c.want) {
			t.Errorf("case %d: Upgrade(%+v, %+v) = %+v, want %+v", i, c.existing, c.next, got, c.want)
		}
	}
}

func TestInferFromValueIdentifierPrefersScope(t *testing.T) {
	ts := newTypeSystem()
	scope := NewScope()
	scope.Declare("key", cast.Pointer(cast.Uint32)) // deliberately not the name-inference answer
	got := ts.InferFromValue(ident("key"), scope)
	if !typesEqual(got, cast.Pointer(cast.Uint32)) {
		t.Errorf("InferFromValue(identifier in scope) = %+v, want the scope-declared type", got)
	}
}

func TestInferFromValueIdentifierFallsBackToNameInference(t *testing.T) {
	ts := newTypeSystem()
	scope := NewScope()
	got := ts.InferFromValue(ident("key"), scope)
	want := ts.InferFromName("key")
	if !typesEqual(got, want) {
		t.Errorf("InferFromValue(identifier not in scope) = %+v, want %+v", got, want)
	}
}

// TestInferArrayLiteralByteRange covers the boundary behavior from
// spec.md §8: an all-0..255 homogeneous array literal becomes a
// uint8_t[n], while one out-of-range element falls back to the
// first-element-type pointer.
func TestInferArrayLiteralByteRange(t *testing.T) {
	ts := newTypeSystem()
	scope := NewScope()

	inRange := &ilast.Node{NodeKind: ilast.ArrayExpression, Elements: []*ilast.Node{numLit(0), numLit(128), numLit(255)}}
	got := ts.InferFromValue(inRange, scope)
	if !got.IsArray || got.BaseName != "uint8_t" || got.ArraySize != 3 {
		t.Errorf("InferFromValue(in-range array) = %+v, want uint8_t[3]", got)
	}

	outOfRange := &ilast.Node{NodeKind: ilast.ArrayExpression, Elements: []*ilast.Node{numLit(0), numLit(256)}}
	got = ts.InferFromValue(outOfRange, scope)
	if got.IsArray {
		t.Errorf("InferFromValue(out-of-range array) = %+v, want a pointer, not an array type", got)
	}

	empty := &ilast.Node{NodeKind: ilast.ArrayExpression}
	got = ts.InferFromValue(empty, scope)
	if !got.IsPointer || got.BaseName != "void" {
		t.Errorf("InferFromValue(empty array) = %+v, want void*", got)
	}
}
