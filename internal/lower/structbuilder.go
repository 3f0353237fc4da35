package lower

import (
	"strings"

	"github.com/Hawkynt/Hawkynt.github.io-sub003/cast"
	"github.com/Hawkynt/Hawkynt.github.io-sub003/ilast"
)

// StructBuilder promotes a class declaration to a struct plus a family
// of free functions, through six ordered passes (numbered 0 to 5) based
// on spec.md §4.2.
type StructBuilder struct {
	diag    *DiagnosticSink
	mangler *NameMangler
	types   *TypeSystem
	lengths *ArrayLengthTracker
	idioms  *IdiomLowerer
	stmts   *StatementLowerer
	file    *cast.File
	scope   *Scope

	// anonStructSeq numbers anonymous object-literal structs ("AnonNT")
	// when no better hint is available (spec.md §4.2 "Anonymous object
	// literals").
	anonStructSeq int
	// anonBySignature deduplicates anonymous structs by their sorted
	// field:type signature (spec.md §4.2, GLOSSARY).
	anonBySignature map[string]*cast.Struct
}

// NewStructBuilder constructs a StructBuilder sharing the given
// transformer-instance state.
func NewStructBuilder(diag *DiagnosticSink, mangler *NameMangler, types *TypeSystem, lengths *ArrayLengthTracker, idioms *IdiomLowerer, stmts *StatementLowerer, file *cast.File, scope *Scope) *StructBuilder {
	return &StructBuilder{
		diag: diag, mangler: mangler, types: types, lengths: lengths, idioms: idioms, stmts: stmts,
		file: file, scope: scope, anonBySignature: make(map[string]*cast.Struct),
	}
}

// ProcessClass runs the six-pass pipeline over one class declaration
// and returns the resulting struct, having already pushed it (and its
// methods, and its `_new` constructor) onto the target file.
func (b *StructBuilder) ProcessClass(class *ilast.Node) *cast.Struct {
	name := class.Id.Name
	b.scope.ClassNames[name] = true

	st := &cast.Struct{Name: name, IsTypedef: true}
	b.file.AddStruct(st)

	ctor, methods, statics, instanceFields := splitMembers(class)

	b.idioms.SetCurrentStruct(name)
	defer b.idioms.SetCurrentStruct("")

	// Pass 0: static class fields globalize to module constants; instance
	// field declarations seed the struct before any method/constructor
	// scan (spec.md §4.2 "Static fields", "PropertyDefinition").
	b.processStaticFields(name, statics)
	instanceFieldInits := b.applyInstanceFieldDefaults(st, instanceFields)

	// Pass 1: method return-type pre-scan, published under three keys so
	// sibling methods can see each other's return types while field
	// inference runs (spec.md §4.2 pass 1).
	for _, m := range methods {
		retType := b.types.InferReturnType(m.Body, b.scope)
		methodName := m.Key.Name
		b.scope.Functions[name+"_"+methodName] = FunctionSignature{ReturnType: retType}
		b.scope.Functions[methodName] = FunctionSignature{ReturnType: retType}
		b.scope.Functions[lowerFirst(methodName)] = FunctionSignature{ReturnType: retType}
	}

	// Pass 2: constructor field extraction.
	var ctorParamAliases map[string]string // param name -> field name
	if ctor != nil {
		ctorParamAliases = b.extractConstructorFields(st, ctor)
	}

	// Pass 3: dynamic-field discovery (collect-then-join fixed point --
	// SPEC_FULL.md §3 resolves spec.md's Open Question on assignment
	// order by collecting every `this.X = V` across all methods first,
	// then joining types, instead of trusting left-to-right method walk
	// order as semantically earliest).
	assignments := b.collectThisAssignments(methods)
	b.applyFieldJoin(st, assignments)

	// Pass 4: 2D-array promotion.
	b.promote2DArrays(st, methods)

	// Pass 5: field-type refinement from member-access patterns.
	b.refineFieldsFromMemberAccess(st, methods)

	// Emit methods, then the `_new` constructor (spec.md §3: "_new
	// emission happens after the struct's methods").
	for _, m := range methods {
		b.emitMethod(st, m)
	}
	if ctor != nil {
		b.emitConstructor(st, ctor, ctorParamAliases, instanceFieldInits)
	} else {
		b.emitDefaultConstructor(st, instanceFieldInits)
	}

	return st
}

// splitMembers separates a class body into its constructor, ordinary
// methods, static PropertyDefinitions and instance PropertyDefinitions
// (spec.md §4.2 "Static fields", "PropertyDefinition").
func splitMembers(class *ilast.Node) (ctor *ilast.Node, methods []*ilast.Node, statics []*ilast.Node, instanceFields []*ilast.Node) {
	for _, m := range class.Body {
		switch m.Kind() {
		case ilast.MethodDefinition:
			if m.Kind2 == "constructor" {
				ctor = m
				continue
			}
			methods = append(methods, m)
		case ilast.PropertyDefinition:
			if m.Static {
				statics = append(statics, m)
			} else {
				instanceFields = append(instanceFields, m)
			}
		}
	}
	return ctor, methods, statics, instanceFields
}

// processStaticFields implements spec.md §4.2 "Static fields": each
// static class field becomes a SCREAMING(Class)_SCREAMING(Field) module
// constant via lowerFrozenGlobal, Object.freeze wrappers stripped, with
// nested array literals promoted to 2D arrays (spec.md §8 Scenario 5).
// Non-array static initializers are left to be read directly via
// lowerMember's scope.StaticClassFields fallback to the mangled name.
func (b *StructBuilder) processStaticFields(className string, statics []*ilast.Node) {
	for _, field := range statics {
		fieldName := field.Key.Name
		value := field.Value
		if isObjectFreeze(value) {
			value = value.Arguments[0]
		}
		if value.IsNil() || value.Kind() != ilast.ArrayExpression {
			continue
		}
		cName := b.mangler.StaticFieldName(className, fieldName)
		constantKey := className + "." + fieldName
		lowerFrozenGlobal(b.file, b.types, b.idioms, b.scope, cName, constantKey, value)
		b.scope.StaticClassFields[constantKey] = cName
	}
}

// applyInstanceFieldDefaults implements the non-static half of spec.md
// §4.2 "PropertyDefinition": a class-body field declaration (e.g.
// `rounds = 16;`, not assigned via the constructor) becomes a struct
// field whose default value is assigned in `_new`. (Constructor
// parameter defaults are handled differently: they are appended as
// arguments at each `new` call site.)
func (b *StructBuilder) applyInstanceFieldDefaults(st *cast.Struct, fields []*ilast.Node) []string {
	var inits []string
	for _, f := range fields {
		cField := SnakeCase(f.Key.Name)
		var typ cast.Type
		if f.Value.IsNil() {
			typ = b.types.InferFromName(cField)
		} else {
			typ = b.fieldTypeFromAssignment(cField, f.Value)
		}
		if _, exists := st.FieldType(cField); !exists {
			st.AddField(cast.Field{Name: cField, Type: typ})
		}
		b.scope.StructFieldTypes[cField] = typ
		if !f.Value.IsNil() {
			inits = append(inits, "self->"+cField+" = "+b.idioms.LowerExpr(f.Value)+";")
		}
	}
	return inits
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

// extractConstructorFields implements spec.md §4.2 pass 2: every
// `this.X = V` in the constructor becomes a field; returns the map of
// constructor-parameter names to the field they alias (tracked via
// `this.field = param`), used by the `_new` synthesis.
func (b *StructBuilder) extractConstructorFields(st *cast.Struct, ctor *ilast.Node) map[string]string {
	aliases := make(map[string]string)
	var defaults []string
	for _, param := range ctor.Params {
		if lit, ok := defaultOf(param); ok {
			defaults = append(defaults, lit)
		} else {
			defaults = append(defaults, "")
		}
	}
	b.scope.ConstructorDefaults[st.Name] = defaults

	for _, stmt := range ctor.Body {
		assign := thisAssignment(stmt)
		if assign == nil || assign.Operator != "=" {
			continue
		}
		fieldSrc := propName(assign.Left)
		fieldName := strings.TrimPrefix(fieldSrc, "_")
		cField := SnakeCase(fieldName)

		typ := b.fieldTypeFromAssignment(cField, assign.Right)
		st.AddField(cast.Field{Name: cField, Type: typ})
		b.scope.StructFieldTypes[cField] = typ

		if assign.Right.Kind() == ilast.Identifier {
			for _, p := range ctor.Params {
				if p.Name == assign.Right.Name {
					aliases[p.Name] = cField
				}
			}
		}
	}
	return aliases
}

func defaultOf(param *ilast.Node) (string, bool) {
	if param.Kind() == ilast.AssignmentExpression && !param.Right.IsNil() {
		if s, ok := param.Right.StringValue(); ok {
			return s, true
		}
	}
	return "", false
}

func thisAssignment(stmt *ilast.Node) *ilast.Node {
	var expr *ilast.Node
	if stmt.Kind() == ilast.ExpressionStatement {
		expr = stmt.Argument
	}
	if expr.IsNil() || expr.Kind() != ilast.AssignmentExpression {
		return nil
	}
	if expr.Left.Kind() != ilast.MemberExpression || expr.Left.Object.Kind() != ilast.ThisExpression {
		return nil
	}
	return expr
}

// fieldTypeFromAssignment resolves a field's type from a JSDoc @type
// hint if present, else name inference, else value inference -- with
// the spec.md §4.2 special cases: a null initializer never overrides
// name-based pointer inference, and an object-literal initializer
// always produces a struct pointer.
func (b *StructBuilder) fieldTypeFromAssignment(fieldName string, value *ilast.Node) cast.Type {
	if value.TypeHint != "" {
		return b.types.MapType(value.TypeHint)
	}
	if value.Kind() == ilast.ObjectExpression {
		anon := b.buildAnonStruct(fieldName, value)
		return cast.StructPtr(anon.Name)
	}
	if value.Kind() == ilast.Literal && value.RawValue == nil {
		byName := b.types.InferFromName(fieldName)
		if byName.IsPointerLike() {
			return byName
		}
		return cast.Pointer(cast.Void)
	}
	valType := b.types.InferFromValue(value, b.scope)
	byName := b.types.InferFromName(fieldName)
	return Upgrade(byName, valType)
}

// buildAnonStruct implements spec.md §4.2 "Anonymous object literals":
// a synthetic struct named "<HintOrAnonN>T", deduplicated by signature.
func (b *StructBuilder) buildAnonStruct(hint string, obj *ilast.Node) *cast.Struct {
	candidate := &cast.Struct{IsTypedef: true}
	for _, prop := range obj.Properties {
		fieldName := SnakeCase(prop.Key.Name)
		typ := b.types.InferFromValue(prop.Value, b.scope)
		candidate.AddField(cast.Field{Name: fieldName, Type: typ})
	}
	sig := candidate.Signature()
	if existing, ok := b.anonBySignature[sig]; ok {
		return existing
	}
	name := PascalCase(hint) + "T"
	if hint == "" {
		b.anonStructSeq++
		name = "Anon" + itoaSimple(b.anonStructSeq) + "T"
	}
	candidate.Name = name
	b.anonBySignature[sig] = candidate
	b.file.AddStruct(candidate)
	return candidate
}

func itoaSimple(n int) string {
	if n == 0 {
		return "0"
	}
	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

// thisAssignmentRef is one observed `this.X = V` (or `this.X op= V`)
// site, used by pass 3's collect-then-join.
type thisAssignmentRef struct {
	field string
	value *ilast.Node
	plain bool // operator is "=", not a compound assignment
}

// collectThisAssignments implements spec.md §4.2 pass 3's collection
// half: walk every method body recursively and gather every `this.X op V`
// assignment, plain "=" and compound alike; each ref records whether its
// operator was "=" so the join step can skip compound assignments.
func (b *StructBuilder) collectThisAssignments(methods []*ilast.Node) []thisAssignmentRef {
	var refs []thisAssignmentRef
	var walk func(nodes []*ilast.Node)
	walk = func(nodes []*ilast.Node) {
		for _, n := range nodes {
			if n.IsNil() {
				continue
			}
			if assign := thisAssignment(n); assign != nil {
				refs = append(refs, thisAssignmentRef{
					field: strings.TrimPrefix(propName(assign.Left), "_"),
					value: assign.Right,
					plain: assign.Operator == "=",
				})
			}
			walk(n.Body)
			if !n.Consequent.IsNil() {
				walk(bodyOf(n.Consequent))
			}
			if !n.Alternate.IsNil() {
				walk(bodyOf(n.Alternate))
			}
		}
	}
	for _, m := range methods {
		walk(m.Body)
	}
	return refs
}

// applyFieldJoin implements pass 3's join half: each field's final type
// is the lattice join across every plain-assignment site observed,
// applied in a stable, source-ordered pass (spec.md §4.2 pass 3;
// SPEC_FULL.md §3 resolves the Open Question on ordering this way).
func (b *StructBuilder) applyFieldJoin(st *cast.Struct, refs []thisAssignmentRef) {
	order := make([]string, 0)
	seen := make(map[string]bool)
	joined := make(map[string]cast.Type)
	for _, ref := range refs {
		if !ref.plain {
			continue
		}
		cField := SnakeCase(ref.field)
		valType := b.fieldTypeFromAssignment(cField, ref.value)
		if existing, ok := joined[cField]; ok {
			joined[cField] = Upgrade(existing, valType)
		} else {
			joined[cField] = valType
			if !seen[cField] {
				seen[cField] = true
				order = append(order, cField)
			}
		}
	}
	for _, cField := range order {
		if _, exists := st.FieldType(cField); exists {
			st.UpgradeField(cField, joined[cField], Upgrade)
		} else {
			st.AddField(cast.Field{Name: cField, Type: joined[cField]})
		}
		b.scope.StructFieldTypes[cField] = joined[cField]
	}
}

// promote2DArrays implements spec.md §4.2 pass 4: `this.f[i][j]` /
// `this.f[i] = new Array(...)` / `this.f[i] = [...]` upgrade f from T*
// (or scalar) to T**, with the length companion following.
func (b *StructBuilder) promote2DArrays(st *cast.Struct, methods []*ilast.Node) {
	promoted := make(map[string]bool)
	var walk func(nodes []*ilast.Node)
	walk = func(nodes []*ilast.Node) {
		for _, n := range nodes {
			if n.IsNil() {
				continue
			}
			if is2DIndexAssignOrAccess(n) {
				field := strings.TrimPrefix(propName(n.Object.Object), "_")
				cField := SnakeCase(field)
				if !promoted[cField] {
					promoted[cField] = true
					if cur, ok := st.FieldType(cField); ok {
						elem := elementTypeOf(cur)
						st.UpgradeField(cField, cast.Pointer(cast.Pointer(elem)), func(cast.Type, cast.Type) cast.Type {
							return cast.Pointer(cast.Pointer(elem))
						})
					}
				}
			}
			walk(n.Body)
		}
	}
	for _, m := range methods {
		walk(m.Body)
	}
}

// is2DIndexAssignOrAccess matches this.f[i][j] or this.f[i] = ... shapes:
// a computed MemberExpression whose Object is itself a computed
// MemberExpression rooted at `this`.
func is2DIndexAssignOrAccess(n *ilast.Node) bool {
	target := n
	if n.Kind() == ilast.AssignmentExpression {
		target = n.Left
	}
	if target.Kind() != ilast.MemberExpression || !target.Computed {
		return false
	}
	inner := target.Object
	return inner.Kind() == ilast.MemberExpression && inner.Computed && inner.Object.Kind() == ilast.ThisExpression
}

// refineFieldsFromMemberAccess implements spec.md §4.2 pass 5: for every
// `this.f.g` access, locate a sibling struct whose field set contains g
// (smallest matching struct wins, <=10 fields) and retype f as a pointer
// to it; plus the "Instance"-suffixed `algorithm` special case.
func (b *StructBuilder) refineFieldsFromMemberAccess(st *cast.Struct, methods []*ilast.Node) {
	accesses := make(map[string]map[string]bool) // field -> set of accessed sub-fields
	var walk func(nodes []*ilast.Node)
	walk = func(nodes []*ilast.Node) {
		for _, n := range nodes {
			if n.IsNil() {
				continue
			}
			if n.Kind() == ilast.MemberExpression && n.Object.Kind() == ilast.MemberExpression && n.Object.Object.Kind() == ilast.ThisExpression {
				field := SnakeCase(strings.TrimPrefix(propName(n.Object), "_"))
				sub := propName(n)
				if accesses[field] == nil {
					accesses[field] = make(map[string]bool)
				}
				accesses[field][sub] = true
			}
			walk(n.Body)
		}
	}
	for _, m := range methods {
		walk(m.Body)
	}

	for field, subs := range accesses {
		if match := b.smallestMatchingStruct(subs, st.Name); match != "" {
			st.UpgradeField(field, cast.StructPtr(match), func(existing, _ cast.Type) cast.Type {
				return cast.StructPtr(match)
			})
		}
	}

	if strings.HasSuffix(st.Name, "Instance") {
		if _, ok := st.FieldType("algorithm"); ok {
			base := strings.TrimSuffix(st.Name, "Instance")
			for _, suffix := range []string{"Algorithm", "Cipher", ""} {
				candidate := base + suffix
				if _, ok := b.file.StructByName(candidate); ok {
					st.UpgradeField("algorithm", cast.StructPtr(candidate), func(cast.Type, cast.Type) cast.Type {
						return cast.StructPtr(candidate)
					})
					break
				}
			}
		}
	}
}

// smallestMatchingStruct finds the sibling struct (excluding self) whose
// field set is a superset of subs, preferring the one with the fewest
// fields (<=10), per spec.md §4.2 pass 5.
func (b *StructBuilder) smallestMatchingStruct(subs map[string]bool, selfName string) string {
	var best string
	bestSize := 11
	for _, s := range b.file.Structs {
		if s.Name == selfName || len(s.Fields) > 10 {
			continue
		}
		has := true
		for sub := range subs {
			if _, ok := s.FieldType(sub); !ok {
				has = false
				break
			}
		}
		if has && len(s.Fields) < bestSize {
			best = s.Name
			bestSize = len(s.Fields)
		}
	}
	return best
}

// emitMethod implements spec.md §4.2 "Method naming": methods become
// free functions `snake(StructName_methodName)[_get|_set]` with an
// implicit `self: Struct*` first parameter; `this`/`this.x` lower to
// `self`/`self->x`.
func (b *StructBuilder) emitMethod(st *cast.Struct, m *ilast.Node) {
	accessor := ""
	switch m.Kind2 {
	case "get":
		accessor = "get"
	case "set":
		accessor = "set"
	}
	fnName := MethodName(st.Name, m.Key.Name, accessor)
	retType := b.types.InferReturnType(m.Body, b.scope)

	fn := &cast.Function{Name: fnName, ReturnType: retType}
	fn.AddParameter(cast.Parameter{Name: "self", Type: cast.StructPtr(st.Name)})

	b.scope.Push()
	for _, p := range m.Params {
		pType := b.types.InferFromName(p.Name)
		fn.AddParameter(cast.Parameter{Name: b.mangler.MangleVariable(p.Name), Type: pType})
		b.scope.Declare(p.Name, pType)
	}
	b.stmts.ResetLoopCounters()
	b.stmts.ScanEmptyArrayPushTypes(m.Body)
	pointerReturn := detectPointerReturn(fnName, retType, m)
	for _, stmt := range m.Body {
		fn.Emit(b.stmts.LowerStmt(stmt, fn, false, pointerReturn)...)
	}
	b.scope.Pop()

	b.file.AddFunction(fn)
	b.scope.Functions[st.Name+"_"+m.Key.Name] = FunctionSignature{ReturnType: retType}
}

// detectPointerReturn implements spec.md §4.4's nine-method detection
// cascade for whether a function returns a pointer, resolved to one
// canonical order (SPEC_FULL.md §3): the inferred return type's pointer
// flags, then name suffix, then the function-name-pattern list. The
// method body m is not scanned.
func detectPointerReturn(fnName string, retType cast.Type, m *ilast.Node) bool {
	if retType.IsPointerLike() {
		return true
	}
	l := strings.ToLower(fnName)
	for _, suffix := range []string{"buffer", "bytes", "array", "list", "data"} {
		if strings.HasSuffix(l, suffix) {
			return true
		}
	}
	for _, pat := range []string{"encrypt", "decrypt", "encode", "decode", "hash", "digest", "output", "result"} {
		if strings.Contains(l, pat) {
			return true
		}
	}
	return false
}

// emitConstructor implements spec.md §4.2 "Constructor synthesis": the
// `<Struct>_new` function allocates via the host allocator, assigns
// every parameter to its aliased field, and returns the pointer.
func (b *StructBuilder) emitConstructor(st *cast.Struct, ctor *ilast.Node, aliases map[string]string, instanceFieldInits []string) {
	fn := &cast.Function{Name: ConstructorName(st.Name), ReturnType: cast.StructPtr(st.Name)}
	var assigns []string
	for _, p := range ctor.Params {
		field, hasAlias := aliases[p.Name]
		var pType cast.Type
		if hasAlias {
			pType, _ = st.FieldType(field)
			if pType.IsPointerLike() {
				pType = stripArraySuffix(pType)
			}
		} else {
			pType = b.types.InferFromName(p.Name)
		}
		cName := b.mangler.MangleVariable(p.Name)
		fn.AddParameter(cast.Parameter{Name: cName, Type: pType})
		if hasAlias {
			assigns = append(assigns, "self->"+field+" = "+cName+";")
			if pType.IsPointerLike() {
				assigns = append(assigns, "self->"+field+"_length = "+cName+"_length;")
			}
		}
	}

	fn.Emit(st.Name + "* self = (" + st.Name + "*)malloc(sizeof(" + st.Name + "));")
	fn.Emit(assigns...)
	fn.Emit(instanceFieldInits...)
	fn.Emit("return self;")
	b.file.AddFunction(fn)
}

func stripArraySuffix(t cast.Type) cast.Type {
	t.IsArray = false
	t.ArraySize = 0
	if !t.IsPointer {
		t.IsPointer = true
		t.PointerLevel = 1
	}
	return t
}

// emitDefaultConstructor synthesizes a parameterless `_new` for a class
// with no explicit constructor (a class whose fields are all introduced
// via pass 3 dynamic-field discovery).
func (b *StructBuilder) emitDefaultConstructor(st *cast.Struct, instanceFieldInits []string) {
	fn := &cast.Function{Name: ConstructorName(st.Name), ReturnType: cast.StructPtr(st.Name)}
	fn.Emit(st.Name + "* self = (" + st.Name + "*)malloc(sizeof(" + st.Name + "));")
	fn.Emit(instanceFieldInits...)
	fn.Emit("return self;")
	b.file.AddFunction(fn)
}
