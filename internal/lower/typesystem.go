package lower

import (
	"strings"

	"github.com/Hawkynt/Hawkynt.github.io-sub003/cast"
	"github.com/Hawkynt/Hawkynt.github.io-sub003/ilast"
)

// TypeSystem assigns a C type to any IL expression by combining three
// information sources -- explicit source annotations, value structure,
// and identifier-name heuristics -- into one deterministic answer
// (spec.md §4.1).
type TypeSystem struct {
	diag *DiagnosticSink

	// sourceTypeMap is the closed table from source type names to C
	// types (spec.md §4.1 map_type).
	sourceTypeMap map[string]cast.Type
}

// NewTypeSystem constructs a TypeSystem reporting degradations to diag.
func NewTypeSystem(diag *DiagnosticSink) *TypeSystem {
	ts := &TypeSystem{diag: diag}
	ts.sourceTypeMap = map[string]cast.Type{
		"uint8": cast.Uint8, "uint16": cast.Uint16, "uint32": cast.Uint32, "uint64": cast.Uint64,
		"int8": cast.Int8, "int16": cast.Int16, "int32": cast.Int32, "int64": cast.Int64,
		"byte": cast.Uint8, "word": cast.Uint16, "dword": cast.Uint32, "qword": cast.Uint64,
		"boolean": cast.Bool, "bool": cast.Bool,
		"string": cast.CharPtr,
		"size_t": cast.SizeT,
		"number": cast.Uint32, // crypto-domain default (spec.md §4.1)
		"any": cast.Void, "object": cast.Void, "unknown": cast.Void,
		"float": cast.Float, "double": cast.Double,
	}
	return ts
}

// MapType implements map_type: a closed table from source type names to
// C types, with "T[]" suffixes recursing to Pointer(T) (spec.md §4.1).
func (ts *TypeSystem) MapType(sourceTypeName string) cast.Type {
	if strings.HasSuffix(sourceTypeName, "[]") {
		elem := ts.MapType(strings.TrimSuffix(sourceTypeName, "[]"))
		return cast.Pointer(elem)
	}
	if t, ok := ts.sourceTypeMap[sourceTypeName]; ok {
		return t
	}
	return cast.Uint32 // fallback: type inference never fails (spec.md §7)
}

// nameRule is one entry of the ordered, first-match-wins rule list used
// by InferFromName (spec.md §4.1). Order is load-bearing: see the
// comment on InferFromName.
type nameRule struct {
	match func(lower string) bool
	typ   func(lower string) cast.Type
}

func hasAnySubstring(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func hasAnySuffix(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.HasSuffix(s, sub) {
			return true
		}
	}
	return false
}

var bufferLikeNames = []string{"buffer", "output", "result", "decoded", "encoded"}
// "data" is deliberately absent: it is the generic byte-buffer name used
// for both inputs and in-place/output buffers across the domain (spec.md
// §8 Scenario 2 expects a plain, non-const `uint8_t* data`).
var inputLikeNames = []string{"input", "plaintext", "ciphertext", "key", "seed", "nonce", "iv", "salt", "tag", "mac", "aad"}

func hasNumericSuffix(s string) bool {
	if s == "" {
		return false
	}
	return s[len(s)-1] >= '0' && s[len(s)-1] <= '9'
}

// nameInferenceRules implements spec.md §4.1 InferFromName's ordered
// rule list. Rule ordering is load-bearing exactly as spec.md states:
// the "*bit" singular rule must precede "key" containment; round_keys
// must precede key; size-suffix must precede array patterns.
var nameInferenceRules = []nameRule{
	// 1. string-like names.
	{
		match: func(l string) bool {
			return hasAnySubstring(l, "str", "string", "text", "message", "msg", "ascii")
		},
		typ: func(string) cast.Type { return cast.Const(cast.CharPtr) },
	},
	// 2. size/length/count/... suffixes.
	{
		match: func(l string) bool {
			return hasAnySuffix(l, "size", "length", "count", "num", "index", "offset", "rounds", "bits")
		},
		typ: func(string) cast.Type { return cast.SizeT },
	},
	// 3. round_keys / sub_keys / rk / ks.
	{
		match: func(l string) bool {
			return hasAnySubstring(l, "round_key", "roundkey", "sub_key", "subkey") || l == "rk" || l == "ks"
		},
		typ: func(string) cast.Type { return cast.Pointer(cast.Pointer(cast.Uint32)) },
	},
	// 4. "*bit" singular (must precede the "key" containment rule).
	{
		match: func(l string) bool {
			return hasAnySuffix(l, "bit") && !hasAnySuffix(l, "bits")
		},
		typ: func(string) cast.Type { return cast.Uint32 },
	},
	// 5. state/table/sbox/pbox/lookup, any position.
	{
		match: func(l string) bool {
			return hasAnySubstring(l, "state", "table", "sbox", "pbox", "lookup")
		},
		typ: func(l string) cast.Type {
			if hasAnySubstring(l, inputLikeNames...) {
				return cast.Const(cast.Pointer(cast.Uint32))
			}
			return cast.Pointer(cast.Uint32)
		},
	},
	// 6. byte-buffer family.
	{
		match: func(l string) bool {
			return hasAnySubstring(l, "key", "data", "input", "output", "block", "bytes", "buffer",
				"encoded", "decoded", "encrypted", "decrypted", "hash", "digest",
				"plaintext", "ciphertext", "seed", "nonce", "iv", "salt", "tag", "mac",
				"vector", "register", "lfsr", "nlfsr", "permutation", "substitution",
				"frequencies", "percentages", "aad")
		},
		typ: func(l string) cast.Type {
			isInput := hasAnySubstring(l, inputLikeNames...)
			isBuffer := hasAnySubstring(l, bufferLikeNames...)
			if isInput && !isBuffer && !hasNumericSuffix(l) {
				return cast.Const(cast.Pointer(cast.Uint8))
			}
			return cast.Pointer(cast.Uint8)
		},
	},
}

// InferFromName implements spec.md §4.1 infer_type_from_name: the first
// matching rule wins; no match falls back to uint32_t.
func (ts *TypeSystem) InferFromName(name string) cast.Type {
	l := strings.ToLower(name)
	for _, rule := range nameInferenceRules {
		if rule.match(l) {
			return rule.typ(l)
		}
	}
	return cast.Uint32 // fallback (rule 7)
}

// packerFamily maps a pack/unpack call name to (width bits, isPack, isUnpack).
func packerFamily(name string) (width int, isPack bool, isUnpack bool) {
	l := strings.ToLower(name)
	pack := strings.Contains(l, "pack") && !strings.Contains(l, "unpack")
	unpack := strings.Contains(l, "unpack")
	switch {
	case strings.Contains(l, "64"):
		width = 64
	case strings.Contains(l, "32"):
		width = 32
	case strings.Contains(l, "16"):
		width = 16
	}
	return width, pack, unpack
}

// InferFromValue implements spec.md §4.1 infer_type_from_value: structural
// recursion over IL expressions.
func (ts *TypeSystem) InferFromValue(n *ilast.Node, scope *Scope) cast.Type {
	if n.IsNil() {
		return cast.Void
	}
	switch n.Kind() {
	case ilast.Literal:
		return ts.inferLiteral(n)
	case ilast.ArrayExpression:
		return ts.inferArrayLiteral(n, scope)
	case ilast.ObjectExpression:
		// Struct generation is StructBuilder's job; the type-system only
		// needs to know it is a struct pointer, named by the caller.
		return cast.StructPtr("")
	case ilast.Identifier:
		if t, ok := scope.Lookup(n.Name); ok {
			return t
		}
		return ts.InferFromName(n.Name)
	case ilast.ThisExpression:
		return cast.StructPtr("Self")
	case ilast.MemberExpression:
		return ts.inferMember(n, scope)
	case ilast.CallExpression:
		return ts.inferCall(n, scope)
	case ilast.NewExpression:
		return ts.inferNew(n, scope)
	case ilast.ConditionalExpression:
		a := ts.InferFromValue(n.Consequent, scope)
		b := ts.InferFromValue(n.Alternate, scope)
		return moreSpecific(a, b)
	case ilast.LogicalExpression:
		a := ts.InferFromValue(n.Left, scope)
		b := ts.InferFromValue(n.Right, scope)
		return moreSpecific(a, b)
	case ilast.UnaryExpression, ilast.UpdateExpression:
		return ts.InferFromValue(n.Argument, scope)
	case ilast.SequenceExpression:
		if len(n.Expressions) > 0 {
			return ts.InferFromValue(n.Expressions[len(n.Expressions)-1], scope)
		}
	}
	return cast.Uint32
}

func (ts *TypeSystem) inferLiteral(n *ilast.Node) cast.Type {
	if n.RawValue == nil {
		return cast.Pointer(cast.Void) // null
	}
	switch v := n.RawValue.(type) {
	case string:
		_ = v
		return cast.CharPtr
	case bool:
		return cast.Bool
	case float64:
		if v == float64(int64(v)) {
			return cast.Uint32
		}
		return cast.Double
	}
	if n.BigInt != "" {
		if strings.HasPrefix(n.BigInt, "-") {
			return cast.Int64
		}
		return cast.Uint64
	}
	return cast.Uint32
}

// inferArrayLiteral infers the element type from the first element; an
// all-0..255 homogeneous literal becomes uint8_t[n] (spec.md §4.1, §8).
func (ts *TypeSystem) inferArrayLiteral(n *ilast.Node, scope *Scope) cast.Type {
	if len(n.Elements) == 0 {
		return cast.Pointer(cast.Void)
	}
	allByteRange := true
	for _, el := range n.Elements {
		f, ok := el.NumberValue()
		if !ok || f < 0 || f > 255 || f != float64(int64(f)) {
			allByteRange = false
			break
		}
	}
	if allByteRange {
		t := cast.Uint8
		t.IsArray = true
		t.ArraySize = len(n.Elements)
		return t
	}
	elem := ts.InferFromValue(n.Elements[0], scope)
	return cast.Pointer(elem)
}

// receiverLikeReturnMethods are array/string runtime helper methods
// whose return value shares the receiver's element type (a slice/trim/
// case-conversion/etc. always hands back a freshly built buffer of the
// same kind it was called on), never the crypto-domain uint32_t default
// (spec.md §4.4, §8 Scenario 3).
var receiverLikeReturnMethods = map[string]bool{
	"slice": true, "substring": true, "reverse": true, "splice": true,
	"trim": true, "trimStart": true, "trimEnd": true,
	"toLowerCase": true, "toUpperCase": true, "replace": true, "repeat": true,
}

func stripConst(t cast.Type) cast.Type {
	t.IsConst = false
	return t
}

// inferCall classifies a callee name for return-type inference
// (spec.md §4.1 infer_type_from_value, CallExpression case).
func (ts *TypeSystem) inferCall(n *ilast.Node, scope *Scope) cast.Type {
	name := calleeName(n.Callee)
	width, isPack, isUnpack := packerFamily(name)
	switch {
	case isPack && width > 0:
		return cast.TypeFor(width)
	case isUnpack:
		return cast.Pointer(cast.Uint8)
	case strings.EqualFold(name, "CopyArray") && len(n.Arguments) > 0:
		return ts.InferFromValue(n.Arguments[0], scope)
	case strings.EqualFold(name, "CreateInstance"):
		recv := calleeName(n.Callee.Object)
		return cast.StructPtr(PascalCase(recv) + "Base")
	}
	if n.Callee.Kind() == ilast.MemberExpression && receiverLikeReturnMethods[propName(n.Callee)] {
		return stripConst(ts.InferFromValue(n.Callee.Object, scope))
	}
	if fn, ok := scope.Functions[name]; ok {
		return fn.ReturnType
	}
	return cast.Uint32
}

func (ts *TypeSystem) inferNew(n *ilast.Node, scope *Scope) cast.Type {
	name := calleeName(n.Callee)
	if strings.Contains(name, "Array") || strings.HasSuffix(name, "Array") {
		return cast.Pointer(cast.Uint8)
	}
	return cast.StructPtr(name)
}

func (ts *TypeSystem) inferMember(n *ilast.Node, scope *Scope) cast.Type {
	if n.Object.Kind() == ilast.ThisExpression {
		if t, ok := scope.StructFieldTypes[propName(n)]; ok {
			return t
		}
		return ts.InferFromName(propName(n))
	}
	if n.Object.Kind() == ilast.Identifier && scope.ClassNames[n.Object.Name] {
		if t, ok := scope.ModuleConstantTypes[n.Object.Name+"."+propName(n)]; ok {
			return t
		}
	}
	return ts.InferFromName(propName(n))
}

func propName(member *ilast.Node) string {
	if member.PropertyNode == nil {
		return ""
	}
	return member.PropertyNode.Name
}

func calleeName(n *ilast.Node) string {
	if n.IsNil() {
		return ""
	}
	switch n.Kind() {
	case ilast.Identifier:
		return n.Name
	case ilast.MemberExpression:
		return propName(n)
	}
	return ""
}

// moreSpecific returns the pointer-branch type when exactly one side of
// a conditional/logical expression is pointer-like, otherwise a (first
// non-uint32_t scalar); ties prefer a (spec.md §4.1).
func moreSpecific(a, b cast.Type) cast.Type {
	if a.IsPointerLike() && !b.IsPointerLike() {
		return a
	}
	if b.IsPointerLike() && !a.IsPointerLike() {
		return b
	}
	if a.BaseName != "uint32_t" {
		return a
	}
	return b
}

// rank implements the upgrade lattice order: scalar < primitive-pointer
// < struct-pointer (spec.md §3 invariant 4, §4.1 "Type upgrades").
func rank(t cast.Type) int {
	switch {
	case t.IsPointerLike() && isStructName(t):
		return 2
	case t.IsPointerLike():
		return 1
	default:
		return 0
	}
}

func isStructName(t cast.Type) bool {
	switch t.BaseName {
	case "", "void", "char", "bool", "uint8_t", "uint16_t", "uint32_t", "uint64_t",
		"int8_t", "int16_t", "int32_t", "int64_t", "float", "double", "size_t":
		return false
	default:
		return true
	}
}

// Upgrade implements spec.md §4.1/§3: a field/variable type may only
// upgrade, never downgrade, along scalar -> primitive-pointer ->
// struct-pointer. void* specifically upgrades to any concrete pointer.
func Upgrade(existing, next cast.Type) cast.Type {
	if existing.BaseName == "void" && existing.IsPointerLike() && next.IsPointerLike() {
		return next
	}
	if rank(next) > rank(existing) {
		return next
	}
	return existing
}

// InferReturnType implements spec.md §4.1 infer_return_type_from_body:
// scans return statements and resolves by priority array > pointer >
// non-uint32_t scalar > first return.
func (ts *TypeSystem) InferReturnType(body []*ilast.Node, scope *Scope) cast.Type {
	var returns []cast.Type
	var walk func(nodes []*ilast.Node)
	walk = func(nodes []*ilast.Node) {
		for _, n := range nodes {
			if n.IsNil() {
				continue
			}
			if n.Kind() == ilast.ReturnStatement {
				if n.Argument.IsNil() {
					continue
				}
				returns = append(returns, ts.InferFromValue(n.Argument, scope))
				continue
			}
			walk(n.Body)
			if n.Consequent != nil {
				walk([]*ilast.Node{n.Consequent})
			}
			if n.Alternate != nil {
				walk([]*ilast.Node{n.Alternate})
			}
		}
	}
	walk(body)
	if len(returns) == 0 {
		return cast.Void
	}
	for _, t := range returns {
		if t.IsArray {
			return t
		}
	}
	for _, t := range returns {
		if t.IsPointerLike() {
			return t
		}
	}
	for _, t := range returns {
		if t.BaseName != "uint32_t" {
			return t
		}
	}
	return returns[0]
}
