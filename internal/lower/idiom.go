package lower

import (
	"fmt"
	"strings"

	"github.com/Hawkynt/Hawkynt.github.io-sub003/cast"
	"github.com/Hawkynt/Hawkynt.github.io-sub003/ilast"
)

// IdiomLowerer maps IL node kinds to their C expression equivalent:
// rotation formulae, pack/unpack, array higher-order helper calls,
// ternary encodings of ||/??/&&, and the rest of the ~120-kind table in
// spec.md §4.4.
type IdiomLowerer struct {
	diag     *DiagnosticSink
	mangler  *NameMangler
	types    *TypeSystem
	lengths  *ArrayLengthTracker
	file     *cast.File
	scope    *Scope
	todoSeq  int

	// currentStruct is the enclosing class name while lowering a method
	// body, used to resolve `this.foo()` struct-method dispatch (spec.md
	// §4.2); empty at module scope.
	currentStruct string
}

// SetCurrentStruct records the struct whose method body is currently
// being lowered, or clears it with "" at module scope.
func (l *IdiomLowerer) SetCurrentStruct(name string) {
	l.currentStruct = name
}

// NewIdiomLowerer constructs an IdiomLowerer sharing the given
// transformer-instance state.
func NewIdiomLowerer(diag *DiagnosticSink, mangler *NameMangler, types *TypeSystem, lengths *ArrayLengthTracker, file *cast.File, scope *Scope) *IdiomLowerer {
	return &IdiomLowerer{diag: diag, mangler: mangler, types: types, lengths: lengths, file: file, scope: scope}
}

// LowerExpr lowers one IL expression node to a C expression string. It
// never fails (spec.md §7): an unrecognized kind or a missing required
// operand produces a comment placeholder and a Diagnostic, not an error.
func (l *IdiomLowerer) LowerExpr(n *ilast.Node) string {
	if n.IsNil() {
		return "/* missing expression */"
	}
	switch n.Kind() {
	case ilast.Literal:
		return l.lowerLiteral(n)
	case ilast.Identifier:
		return l.mangler.ResolveVariable(n.Name)
	case ilast.ThisExpression:
		return "self"
	case ilast.BinaryExpression:
		return l.lowerBinary(n)
	case ilast.UnaryExpression:
		if n.Operator == "typeof" {
			return l.lowerTypeof(n)
		}
		return fmt.Sprintf("(%s%s)", n.Operator, l.LowerExpr(n.Argument))
	case ilast.UpdateExpression:
		return fmt.Sprintf("%s%s", l.LowerExpr(n.Argument), n.Operator)
	case ilast.LogicalExpression:
		return l.lowerLogical(n)
	case ilast.ConditionalExpression:
		return fmt.Sprintf("(%s) ? (%s) : (%s)", l.LowerExpr(n.Test), l.LowerExpr(n.Consequent), l.LowerExpr(n.Alternate))
	case ilast.AssignmentExpression:
		return l.lowerAssignment(n)
	case ilast.MemberExpression:
		return l.lowerMember(n)
	case ilast.CallExpression:
		return l.lowerCall(n)
	case ilast.NewExpression:
		return l.lowerNew(n)
	case ilast.ArrayExpression:
		return l.lowerArrayLiteral(n)
	case ilast.SequenceExpression:
		parts := make([]string, len(n.Expressions))
		for i, e := range n.Expressions {
			parts[i] = l.LowerExpr(e)
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case ilast.InstanceOfExpr:
		return "0"
	case ilast.TypeOfExpr:
		return l.lowerTypeof(n)
	case ilast.RotateLeft, ilast.RotateRight:
		return l.lowerRotate(n)
	case ilast.PackBE, ilast.PackLE:
		return l.lowerPack(n)
	case ilast.UnpackBE, ilast.UnpackLE:
		return l.lowerUnpack(n)
	case ilast.MathCall:
		return l.lowerMath(n)
	case ilast.FrameworkConstant:
		return l.lowerFrameworkConstant(n)
	case ilast.TypedArrayNew:
		return l.lowerTypedArrayNew(n)
	case ilast.TemplateLiteral:
		return l.lowerTemplateLiteral(n)
	}
	l.diag.Add(DiagUnknownKind, n.Position, "unrecognized expression kind %q", n.Kind())
	return fmt.Sprintf("/* unknown expr: %s */NULL", n.Kind())
}

func (l *IdiomLowerer) lowerLiteral(n *ilast.Node) string {
	if n.RawValue == nil {
		return "NULL"
	}
	switch v := n.RawValue.(type) {
	case string:
		return fmt.Sprintf("%q", v)
	case bool:
		if v {
			return "true"
		}
		return "false"
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%dU", int64(v))
		}
		return fmt.Sprintf("%g", v)
	}
	return "0"
}

func (l *IdiomLowerer) lowerBinary(n *ilast.Node) string {
	if n.Operator == "+" {
		lt := l.types.InferFromValue(n.Left, l.scope)
		rt := l.types.InferFromValue(n.Right, l.scope)
		isStr := func(t cast.Type) bool { return t.IsPointer && t.BaseName == "char" }
		switch {
		case isStr(lt) && isStr(rt):
			l.file.AddInclude("string.h")
			return fmt.Sprintf("string_concat(%s, %s)", l.LowerExpr(n.Left), l.LowerExpr(n.Right))
		case isStr(lt) && !rt.IsPointerLike():
			return fmt.Sprintf("string_append_char(%s, %s)", l.LowerExpr(n.Left), l.LowerExpr(n.Right))
		}
	}
	return fmt.Sprintf("(%s %s %s)", l.LowerExpr(n.Left), n.Operator, l.LowerExpr(n.Right))
}

// lowerLogical implements spec.md §4.4's three JS-fallback encodings:
// a || b, a ?? b, a && b.
func (l *IdiomLowerer) lowerLogical(n *ilast.Node) string {
	a := l.LowerExpr(n.Left)
	b := l.LowerExpr(n.Right)
	at := l.types.InferFromValue(n.Left, l.scope)
	switch n.Operator {
	case "||":
		if !at.IsPointerLike() {
			// cannot be falsy in C beyond its own scalar truthiness, and the
			// spec treats any non-pointer primitive / struct value as
			// "cannot be falsy" for this purpose (spec.md §4.4).
			return a
		}
		return fmt.Sprintf("(%s ? %s : %s)", a, a, b)
	case "??":
		if !at.IsPointerLike() {
			return a
		}
		return fmt.Sprintf("(%s != NULL ? %s : %s)", a, a, b)
	case "&&":
		// Always b-if-a-else-a, to preserve JS "last truthy or first
		// falsy" semantics (spec.md §4.4).
		return fmt.Sprintf("(%s ? %s : %s)", a, b, a)
	}
	return fmt.Sprintf("(%s %s %s)", a, n.Operator, b)
}

func (l *IdiomLowerer) lowerAssignment(n *ilast.Node) string {
	return fmt.Sprintf("%s %s %s", l.LowerExpr(n.Left), n.Operator, l.LowerExpr(n.Right))
}

func (l *IdiomLowerer) lowerMember(n *ilast.Node) string {
	if n.Object.IsNil() {
		l.diag.Add(DiagMissingOperand, n.Position, "MemberExpression missing object")
		return "/* MemberExpression: missing object */NULL"
	}
	prop := l.mangler.ResolveVariable(propName(n))
	if n.Object.Kind() == ilast.ThisExpression {
		return "self->" + prop
	}
	if n.Computed {
		return fmt.Sprintf("%s[%s]", l.LowerExpr(n.Object), l.LowerExpr(n.PropertyNode))
	}
	objType := l.types.InferFromValue(n.Object, l.scope)
	if objType.IsPointerLike() && isStructName(objType) {
		return l.LowerExpr(n.Object) + "->" + prop
	}
	if n.Object.Kind() == ilast.Identifier && l.scope.ClassNames[n.Object.Name] {
		if name, ok := l.scope.StaticClassFields[n.Object.Name+"."+propName(n)]; ok {
			return name
		}
		return l.mangler.StaticFieldName(n.Object.Name, propName(n))
	}
	return l.LowerExpr(n.Object) + "." + prop
}

// lowerNew implements spec.md §4.2 "Constructor synthesis" at the call
// site: arguments carry their length companion like any other call
// (spec.md §4.3), and any constructor parameter left unsupplied falls
// back to its ConstructorDefaults default-string literal (spec.md §3).
func (l *IdiomLowerer) lowerNew(n *ilast.Node) string {
	name := calleeName(n.Callee)
	typeOf := func(e *ilast.Node) cast.Type { return l.types.InferFromValue(e, l.scope) }
	args := l.lengths.CallArgs(n.Arguments, l.scope, l.mangler, typeOf, l.LowerExpr)
	if defaults, ok := l.scope.ConstructorDefaults[name]; ok {
		for i := len(n.Arguments); i < len(defaults); i++ {
			if defaults[i] != "" {
				args = append(args, fmt.Sprintf("%q", defaults[i]))
			}
		}
	}
	return fmt.Sprintf("%s_new(%s)", SnakeCase(name), strings.Join(args, ", "))
}

func (l *IdiomLowerer) lowerArrayLiteral(n *ilast.Node) string {
	elemType := cast.Uint32
	if len(n.Elements) > 0 {
		elemType = l.types.InferFromValue(n.Elements[0], l.scope)
	}
	parts := make([]string, len(n.Elements))
	for i, e := range n.Elements {
		parts[i] = l.LowerExpr(e)
	}
	return fmt.Sprintf("(%s[]){%s}", elemType.String(), strings.Join(parts, ", "))
}

func (l *IdiomLowerer) lowerTemplateLiteral(n *ilast.Node) string {
	if len(n.Expressions) == 0 {
		return "\"\""
	}
	parts := make([]string, len(n.Expressions))
	for i, e := range n.Expressions {
		parts[i] = l.LowerExpr(e)
	}
	result := parts[0]
	for _, p := range parts[1:] {
		result = fmt.Sprintf("string_concat(%s, %s)", result, p)
	}
	return result
}

// lowerRotate implements spec.md §4.4 Rotation: a pre-cast, inline
// formula, no helper call.
func (l *IdiomLowerer) lowerRotate(n *ilast.Node) string {
	if len(n.Arguments) < 2 {
		l.diag.Add(DiagMissingOperand, n.Position, "rotation missing operands")
		return "/* rotation: missing operands */0U"
	}
	x := l.LowerExpr(n.Arguments[0])
	amount := l.LowerExpr(n.Arguments[1])
	width := rotateWidth(n)
	typ := cast.TypeFor(width).String()
	mask := fmt.Sprintf("%dU", width-1)
	widthLit := fmt.Sprintf("%dU", width)
	if n.Kind() == ilast.RotateLeft {
		return fmt.Sprintf("(((%s)(%s) << ((%s) & %s)) | ((%s)(%s) >> (%s - ((%s) & %s))))",
			typ, x, amount, mask, typ, x, widthLit, amount, mask)
	}
	return fmt.Sprintf("(((%s)(%s) >> ((%s) & %s)) | ((%s)(%s) << (%s - ((%s) & %s))))",
		typ, x, amount, mask, typ, x, widthLit, amount, mask)
}

func rotateWidth(n *ilast.Node) int {
	if len(n.Arguments) >= 3 {
		if f, ok := n.Arguments[2].NumberValue(); ok {
			return int(f)
		}
	}
	return 32
}

// lowerPack implements spec.md §4.4 Pack: byte[i] << shift(i) OR-reduced.
func (l *IdiomLowerer) lowerPack(n *ilast.Node) string {
	if len(n.Arguments) == 0 {
		l.diag.Add(DiagMissingOperand, n.Position, "pack missing byte operands")
		return "/* pack: missing operands */0U"
	}
	k := len(n.Arguments)
	terms := make([]string, k)
	for i, arg := range n.Arguments {
		shift := i * 8
		if n.Kind() == ilast.PackBE {
			shift = (k - 1 - i) * 8
		}
		byteExpr := l.LowerExpr(arg)
		if shift == 0 {
			terms[i] = fmt.Sprintf("((uint%d_t)(%s))", k*8, byteExpr)
		} else {
			terms[i] = fmt.Sprintf("((uint%d_t)(%s) << %d)", k*8, byteExpr, shift)
		}
	}
	return "(" + strings.Join(terms, " | ") + ")"
}

// lowerUnpack implements spec.md §4.4 Unpack in value position: a call
// to the width-specific runtime helper that returns a fresh buffer.
func (l *IdiomLowerer) lowerUnpack(n *ilast.Node) string {
	if len(n.Arguments) == 0 {
		l.diag.Add(DiagMissingOperand, n.Position, "unpack missing value operand")
		return "/* unpack: missing operand */NULL"
	}
	width := 32
	if f, ok := calleeWidthHint(n); ok {
		width = f
	}
	endian := "le"
	if n.Kind() == ilast.UnpackBE {
		endian = "be"
	}
	return fmt.Sprintf("unpack%d_%s_ret(%s)", width, endian, l.LowerExpr(n.Arguments[0]))
}

func calleeWidthHint(n *ilast.Node) (int, bool) {
	if len(n.Arguments) >= 2 {
		if f, ok := n.Arguments[1].NumberValue(); ok {
			return int(f), true
		}
	}
	return 0, false
}

// lowerMath implements spec.md §4.4 Math/Number intrinsics: dispatch to
// <math.h>, lazily adding the include on first use.
func (l *IdiomLowerer) lowerMath(n *ilast.Node) string {
	l.file.AddInclude("math.h")
	name := n.Name
	args := make([]string, len(n.Arguments))
	for i, a := range n.Arguments {
		args[i] = l.LowerExpr(a)
	}
	switch name {
	case "imul":
		if len(args) == 2 {
			return fmt.Sprintf("(int32_t)((int32_t)(%s) * (int32_t)(%s))", args[0], args[1])
		}
	case "clz32":
		if len(args) == 1 {
			return fmt.Sprintf("((%s) == 0 ? 32U : (uint32_t)__builtin_clz((unsigned int)(%s)))", args[0], args[0])
		}
	case "floor", "ceil", "sqrt", "abs", "pow", "round", "log", "log2", "exp":
		return fmt.Sprintf("%s(%s)", name, strings.Join(args, ", "))
	case "max", "min":
		if len(args) == 2 {
			op := ">"
			if name == "min" {
				op = "<"
			}
			return fmt.Sprintf("((%s) %s (%s) ? (%s) : (%s))", args[0], op, args[1], args[0], args[1])
		}
	}
	l.diag.Add(DiagUnsupportedIdiom, n.Position, "unrecognized Math intrinsic %q", name)
	return fmt.Sprintf("/* TODO: Math.%s */0", name)
}

// frameworkConstants is the closed enum table for spec.md §4.4 "Framework
// constants" (ComplexityType.BEGINNER, SecurityStatus.SECURE, ...).
var frameworkConstants = map[string]int{
	"ComplexityType.BEGINNER": 0, "ComplexityType.INTERMEDIATE": 1, "ComplexityType.ADVANCED": 2, "ComplexityType.EXPERT": 3,
	"SecurityStatus.SECURE": 0, "SecurityStatus.WEAK": 1, "SecurityStatus.BROKEN": 2, "SecurityStatus.DEPRECATED": 3,
}

func (l *IdiomLowerer) lowerFrameworkConstant(n *ilast.Node) string {
	if v, ok := frameworkConstants[n.Name]; ok {
		return fmt.Sprintf("%d", v)
	}
	l.diag.Add(DiagUnsupportedIdiom, n.Position, "unrecognized framework constant %q", n.Name)
	return "0 /* TODO: unrecognized framework constant " + n.Name + " */"
}

// lowerTypedArrayNew implements spec.md §4.4 "Typed arrays":
// malloc/calloc sized by the typed-array width, calloc when `.fill(0)`
// follows.
func (l *IdiomLowerer) lowerTypedArrayNew(n *ilast.Node) string {
	width := 32
	if strings.Contains(n.Name, "8") {
		width = 8
	} else if strings.Contains(n.Name, "16") {
		width = 16
	} else if strings.Contains(n.Name, "64") {
		width = 64
	}
	typ := cast.TypeFor(width).String()
	count := "0U"
	if len(n.Arguments) > 0 {
		count = l.LowerExpr(n.Arguments[0])
	}
	zeroFilled := n.Computed // reused flag: upstream marks `.fill(0)` chains this way
	if zeroFilled {
		return fmt.Sprintf("(%s*)calloc((%s), sizeof(%s))", typ, count, typ)
	}
	return fmt.Sprintf("(%s*)malloc((%s) * sizeof(%s))", typ, count, typ)
}

// lowerTypeof resolves `typeof x` statically from the inferred type
// (spec.md §4.4, §9).
func (l *IdiomLowerer) lowerTypeof(n *ilast.Node) string {
	target := n.Argument
	if target.IsNil() {
		target = n
	}
	t := l.types.InferFromValue(target, l.scope)
	switch {
	case t.BaseName == "bool":
		return "\"boolean\""
	case t.BaseName == "char" && t.IsPointer:
		return "\"string\""
	case t.IsPointerLike():
		return "\"object\""
	case t.BaseName == "void" && !t.IsPointerLike():
		return "\"undefined\""
	default:
		return "\"number\""
	}
}

// higherOrderHelpers maps a JS array method name to the runtime-helper
// it lowers to (spec.md §4.4 "Array higher-order ops").
var higherOrderHelpers = map[string]string{
	"map": "array_map", "filter": "array_filter", "reduce": "array_reduce",
	"some": "array_some", "every": "array_every", "find": "array_find",
	"findIndex": "array_find_index", "forEach": "array_for_each",
	"sort": "array_sort", "unshift": "array_unshift",
}

// lowerCall implements the call-position idioms from spec.md §4.4: array
// push, higher-order methods, string/number intrinsics, destructuring
// helpers and parseInt/parseFloat.
func (l *IdiomLowerer) lowerCall(n *ilast.Node) string {
	if n.Callee.IsNil() {
		l.diag.Add(DiagMissingOperand, n.Position, "CallExpression missing callee")
		return "/* CallExpression: missing callee */NULL"
	}
	method := ""
	var receiver *ilast.Node
	if n.Callee.Kind() == ilast.MemberExpression {
		method = propName(n.Callee)
		receiver = n.Callee.Object
	}

	if method == "push" {
		return l.lowerArrayPush(receiver, n)
	}

	name := calleeName(n.Callee)
	switch name {
	case "parseInt":
		radix := "10"
		if len(n.Arguments) > 1 {
			radix = l.LowerExpr(n.Arguments[1])
		}
		return fmt.Sprintf("strtol(%s, NULL, %s)", l.LowerExpr(n.Arguments[0]), radix)
	case "parseFloat":
		return fmt.Sprintf("strtod(%s, NULL)", l.LowerExpr(n.Arguments[0]))
	}

	if helper, ok := higherOrderHelpers[method]; ok {
		return l.lowerHigherOrder(helper, receiver, n)
	}

	if method == "fromCharCode" && calleeName(n.Callee.Object) == "String" {
		if len(n.Arguments) == 1 && n.Arguments[0].Kind() == ilast.SpreadElement {
			return fmt.Sprintf("(const char*)(%s)", l.LowerExpr(n.Arguments[0].Argument))
		}
		if len(n.Arguments) == 1 {
			return fmt.Sprintf("(char)(%s)", l.LowerExpr(n.Arguments[0]))
		}
	}

	if method == "from" && calleeName(n.Callee.Object) == "Array" {
		return l.lowerArrayFrom(n)
	}

	if method != "" && !receiver.IsNil() {
		if lowered, ok := l.lowerRuntimeHelperCall(method, receiver, n); ok {
			return lowered
		}
		if lowered, ok := l.lowerStructMethodCall(method, receiver, n); ok {
			return lowered
		}
	}

	args := make([]string, 0, len(n.Arguments))
	typeOf := func(e *ilast.Node) cast.Type { return l.types.InferFromValue(e, l.scope) }
	args = l.lengths.CallArgs(n.Arguments, l.scope, l.mangler, typeOf, l.LowerExpr)
	return fmt.Sprintf("%s(%s)", SnakeCase(name), strings.Join(args, ", "))
}

// lowerArrayFrom implements spec.md §4.4 "Array.from": the
// `{length:n}`-plus-callback form allocates a fresh zeroed buffer (the
// callback cannot be synthesized, so it is dropped with a TODO marker);
// the plain one-argument form is an identity pass-through.
func (l *IdiomLowerer) lowerArrayFrom(n *ilast.Node) string {
	if len(n.Arguments) >= 2 && n.Arguments[0].Kind() == ilast.ObjectExpression {
		count := "0U"
		for _, prop := range n.Arguments[0].Properties {
			if prop.Key.Name == "length" {
				count = l.LowerExpr(prop.Value)
			}
		}
		l.todoSeq++
		l.diag.Add(DiagUnsupportedIdiom, n.Position, "Array.from callback cannot be synthesized as a C function")
		return fmt.Sprintf("(uint8_t*)calloc((%s), sizeof(uint8_t)) /* TODO: Array.from(...) callback */", count)
	}
	if len(n.Arguments) == 1 {
		return l.LowerExpr(n.Arguments[0])
	}
	l.diag.Add(DiagMissingOperand, n.Position, "Array.from missing iterable argument")
	return "/* Array.from: missing operand */NULL"
}

// arrayBoundsHelpers are methods whose C call passes the receiver plus
// explicit start/end bounds, with no receiver-length companion needed
// (spec.md §6 ABI: string_substring).
var arrayBoundsHelpers = map[string]string{
	"substring": "string_substring",
}

// arrayWholeReceiverHelpers are array methods lowered to
// (receiver, receiver_length, ...rest), per spec.md §6 ABI.
var arrayWholeReceiverHelpers = map[string]string{
	"reverse": "array_reverse", "join": "array_join", "splice": "array_splice",
}

// stringReceiverOnlyHelpers are string methods that take the receiver
// alone with no length companion, since they operate on a
// null-terminated `const char*` (spec.md §6 ABI).
var stringReceiverOnlyHelpers = map[string]string{
	"trim": "string_trim", "trimStart": "string_trim_start", "trimEnd": "string_trim_end",
	"toLowerCase": "string_to_lower", "toUpperCase": "string_to_upper",
	"endsWith": "string_ends_with", "replace": "string_replace", "repeat": "string_repeat",
}

// lowerRuntimeHelperCall implements spec.md §6's array/string runtime
// helper family: a member-call like `data.slice(0, 16)` needs the
// receiver reinstated as the helper's first argument instead of being
// dropped under the generic calleeName fallback.
func (l *IdiomLowerer) lowerRuntimeHelperCall(method string, receiver *ilast.Node, call *ilast.Node) (string, bool) {
	switch method {
	case "slice":
		return l.lowerSliceCall(receiver, call), true
	case "indexOf", "includes":
		return l.lowerIndexOf(method, receiver, call), true
	}
	if helper, ok := arrayBoundsHelpers[method]; ok {
		args := append([]string{l.LowerExpr(receiver)}, l.renderArgs(call.Arguments)...)
		return fmt.Sprintf("%s(%s)", helper, strings.Join(args, ", ")), true
	}
	if helper, ok := arrayWholeReceiverHelpers[method]; ok {
		recv := l.LowerExpr(receiver)
		recvLength := l.lengths.argumentLength(receiver, l.scope, l.mangler)
		args := append([]string{recv, recvLength}, l.renderArgs(call.Arguments)...)
		return fmt.Sprintf("%s(%s)", helper, strings.Join(args, ", ")), true
	}
	if helper, ok := stringReceiverOnlyHelpers[method]; ok {
		args := append([]string{l.LowerExpr(receiver)}, l.renderArgs(call.Arguments)...)
		return fmt.Sprintf("%s(%s)", helper, strings.Join(args, ", ")), true
	}
	return "", false
}

func (l *IdiomLowerer) renderArgs(args []*ilast.Node) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = l.LowerExpr(a)
	}
	return out
}

// lowerSliceCall implements spec.md §4.3's two slice shapes: `x.slice(a,
// b)` needs no receiver length since the bounds are explicit;
// `x.slice(a)` slices to the end and so needs the receiver's own length.
func (l *IdiomLowerer) lowerSliceCall(receiver *ilast.Node, call *ilast.Node) string {
	recv := l.LowerExpr(receiver)
	if len(call.Arguments) >= 2 {
		return fmt.Sprintf("array_slice(%s, %s, %s)", recv, l.LowerExpr(call.Arguments[0]), l.LowerExpr(call.Arguments[1]))
	}
	recvLength := l.lengths.argumentLength(receiver, l.scope, l.mangler)
	start := "0U"
	if len(call.Arguments) == 1 {
		start = l.LowerExpr(call.Arguments[0])
	}
	return fmt.Sprintf("array_slice_from(%s, %s, %s)", recv, recvLength, start)
}

// lowerIndexOf dispatches indexOf/includes to the array or string
// variant of the helper depending on the receiver's inferred type
// (spec.md §6 ABI: array_index_of/array_includes vs string_index_of).
func (l *IdiomLowerer) lowerIndexOf(method string, receiver *ilast.Node, call *ilast.Node) string {
	recvType := l.types.InferFromValue(receiver, l.scope)
	isString := recvType.BaseName == "char" && recvType.IsPointer
	args := []string{l.LowerExpr(receiver)}
	var helper string
	switch {
	case method == "indexOf" && isString:
		helper = "string_index_of"
	case method == "indexOf":
		helper = "array_index_of"
		args = append(args, l.lengths.argumentLength(receiver, l.scope, l.mangler))
	default: // "includes" is array-only in the §6 ABI
		helper = "array_includes"
		args = append(args, l.lengths.argumentLength(receiver, l.scope, l.mangler))
	}
	args = append(args, l.renderArgs(call.Arguments)...)
	return fmt.Sprintf("%s(%s)", helper, strings.Join(args, ", "))
}

// lowerStructMethodCall implements `this.foo(...)`/`instance.foo(...)`
// dispatch to the struct's promoted free function (spec.md §4.2 "Method
// naming"): self plus its self_length companion become the first two
// arguments, remaining arguments follow the ordinary call-site length
// expansion (spec.md §4.3).
func (l *IdiomLowerer) lowerStructMethodCall(method string, receiver *ilast.Node, call *ilast.Node) (string, bool) {
	structName := l.structNameOf(receiver)
	if structName == "" {
		return "", false
	}
	recv := l.LowerExpr(receiver)
	recvLength := l.lengths.argumentLength(receiver, l.scope, l.mangler)
	args := []string{recv, recvLength}
	typeOf := func(e *ilast.Node) cast.Type { return l.types.InferFromValue(e, l.scope) }
	args = append(args, l.lengths.CallArgs(call.Arguments, l.scope, l.mangler, typeOf, l.LowerExpr)...)
	return fmt.Sprintf("%s(%s)", MethodName(structName, method, ""), strings.Join(args, ", ")), true
}

// structNameOf resolves the struct name a method-call receiver refers
// to: `this` resolves via the enclosing method's struct (SetCurrentStruct),
// any other expression via its inferred type.
func (l *IdiomLowerer) structNameOf(receiver *ilast.Node) string {
	if receiver.Kind() == ilast.ThisExpression {
		return l.currentStruct
	}
	t := l.types.InferFromValue(receiver, l.scope)
	if t.IsPointerLike() && isStructName(t) {
		return t.BaseName
	}
	return ""
}

// lowerArrayPush implements spec.md §4.4 "Array push": the ARRAY_PUSH
// macro, or a memcpy+length-bump for a spread push.
func (l *IdiomLowerer) lowerArrayPush(receiver *ilast.Node, call *ilast.Node) string {
	if receiver.IsNil() || len(call.Arguments) == 0 {
		l.diag.Add(DiagMissingOperand, call.Position, "push missing receiver or value")
		return "/* push: missing operand */"
	}
	arr := l.LowerExpr(receiver)
	arrLength := l.lengths.argumentLength(receiver, l.scope, l.mangler)
	if len(call.Arguments) == 1 && call.Arguments[0].Kind() == ilast.SpreadElement {
		src := l.LowerExpr(call.Arguments[0].Argument)
		srcLength := l.lengths.argumentLength(call.Arguments[0].Argument, l.scope, l.mangler)
		return fmt.Sprintf("memcpy(%s + %s, %s, (%s) * sizeof(*%s)), %s += %s",
			arr, arrLength, src, srcLength, arr, arrLength, srcLength)
	}
	return fmt.Sprintf("ARRAY_PUSH(%s, %s, %s)", arr, arrLength, l.LowerExpr(call.Arguments[0]))
}

// lowerHigherOrder implements spec.md §4.4 "Array higher-order ops":
// emit (arr, arr_length, callback_or_init, ...); an inline-closure
// callback produces a TODO-marked stub because C lacks closures
// (spec.md §9 "Closures").
func (l *IdiomLowerer) lowerHigherOrder(helper string, receiver *ilast.Node, call *ilast.Node) string {
	if receiver.IsNil() {
		l.diag.Add(DiagMissingOperand, call.Position, "%s missing receiver", helper)
		return fmt.Sprintf("/* %s: missing receiver */NULL", helper)
	}
	arr := l.LowerExpr(receiver)
	arrLength := l.lengths.argumentLength(receiver, l.scope, l.mangler)
	args := []string{arr, arrLength}
	for _, a := range call.Arguments {
		if isInlineClosure(a) {
			l.todoSeq++
			l.diag.Add(DiagUnsupportedIdiom, a.Position, "inline closure passed to %s cannot be synthesized as a C function", helper)
			args = append(args, fmt.Sprintf("true /* TODO: %s(...) */", helper))
			continue
		}
		args = append(args, l.LowerExpr(a))
	}
	return fmt.Sprintf("%s(%s)", helper, strings.Join(args, ", "))
}

func isInlineClosure(n *ilast.Node) bool {
	return n.Kind() == ilast.ArrowFunctionExpression || n.Kind() == ilast.FunctionExpression
}
