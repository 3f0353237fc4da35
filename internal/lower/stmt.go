package lower

import (
	"fmt"

	"github.com/Hawkynt/Hawkynt.github.io-sub003/cast"
	"github.com/Hawkynt/Hawkynt.github.io-sub003/ilast"
)

// StatementLowerer lowers control-flow statements: for-of -> indexed
// for, try -> block, throw -> typed return, declarations with
// type-driven initializer selection (spec.md §4.5).
type StatementLowerer struct {
	diag    *DiagnosticSink
	mangler *NameMangler
	types   *TypeSystem
	lengths *ArrayLengthTracker
	idioms  *IdiomLowerer
	scope   *Scope

	loopCounter int // fresh "_idx_<n>" suffix per function (spec.md §4.5)
}

// NewStatementLowerer constructs a StatementLowerer sharing the given
// transformer-instance state.
func NewStatementLowerer(diag *DiagnosticSink, mangler *NameMangler, types *TypeSystem, lengths *ArrayLengthTracker, idioms *IdiomLowerer, scope *Scope) *StatementLowerer {
	return &StatementLowerer{diag: diag, mangler: mangler, types: types, lengths: lengths, idioms: idioms, scope: scope}
}

// ResetLoopCounters starts a fresh "_idx_<n>" sequence, called on entry
// to each function/method body (spec.md §4.5: "a fresh _idx_<n> counter
// per function").
func (s *StatementLowerer) ResetLoopCounters() {
	s.loopCounter = 0
}

// LowerStmt lowers one IL statement node, returning zero or more C
// statement lines to append to the enclosing function body. pointerReturn
// tells throw/return-at-module-scope how to encode "no value"
// (spec.md §4.4 "Return-statement lowering", §4.5).
func (s *StatementLowerer) LowerStmt(n *ilast.Node, fn *cast.Function, isModuleScope bool, pointerReturn bool) []string {
	if n.IsNil() {
		return nil
	}
	switch n.Kind() {
	case ilast.ExpressionStatement:
		return []string{s.idioms.LowerExpr(n.Argument) + ";"}

	case ilast.VariableDeclaration:
		return s.lowerVariableDeclaration(n)

	case ilast.ReturnStatement:
		if isModuleScope {
			return nil // discarded: UMD wrapper pattern (spec.md §4.5)
		}
		return []string{s.lowerReturn(n, pointerReturn)}

	case ilast.IfStatement:
		return s.lowerIf(n, fn, isModuleScope, pointerReturn)

	case ilast.WhileStatement:
		body := s.lowerBlock(n.Body, fn, isModuleScope, pointerReturn)
		return wrapBlock(fmt.Sprintf("while (%s) {", s.idioms.LowerExpr(n.Test)), body)

	case ilast.DoWhileStatement:
		body := s.lowerBlock(n.Body, fn, isModuleScope, pointerReturn)
		out := append([]string{"do {"}, indent(body)...)
		return append(out, fmt.Sprintf("} while (%s);", s.idioms.LowerExpr(n.Test)))

	case ilast.ForStatement:
		return s.lowerFor(n, fn, isModuleScope, pointerReturn)

	case ilast.ForOfStatement, ilast.ForInStatement:
		return s.lowerForOf(n, fn, isModuleScope, pointerReturn)

	case ilast.SwitchStatement:
		return s.lowerSwitch(n, fn, isModuleScope, pointerReturn)

	case ilast.TryStatement:
		// try/catch: drop the catch, keep the try block (spec.md §4.5).
		return s.lowerBlock(n.Block.Body, fn, isModuleScope, pointerReturn)

	case ilast.ThrowStatement:
		if fn != nil && fn.ReturnType.BaseName == "void" && !fn.ReturnType.IsPointerLike() {
			return []string{"return;"}
		}
		return []string{s.lowerThrow(pointerReturn)}

	case ilast.BreakStatement:
		return []string{"break;"}
	case ilast.ContinueStatement:
		return []string{"continue;"}
	case ilast.BlockStatement:
		return s.lowerBlock(n.Body, fn, isModuleScope, pointerReturn)
	case ilast.EmptyStatement:
		return nil
	}
	s.diag.Add(DiagUnknownKind, n.Position, "unrecognized statement kind %q", n.Kind())
	return []string{fmt.Sprintf("/* unrecognized statement: %s */", n.Kind())}
}

func (s *StatementLowerer) lowerBlock(body []*ilast.Node, fn *cast.Function, isModuleScope bool, pointerReturn bool) []string {
	var out []string
	for _, stmt := range body {
		out = append(out, s.LowerStmt(stmt, fn, isModuleScope, pointerReturn)...)
	}
	return out
}

func wrapBlock(header string, body []string) []string {
	out := []string{header}
	out = append(out, indent(body)...)
	out = append(out, "}")
	return out
}

func indent(lines []string) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = "\t" + l
	}
	return out
}

// lowerReturn implements spec.md §4.4 "Return-statement lowering": a
// pointer-returning function turns `return -1`/an absent value into
// `return NULL`; array-initializer returns are wrapped in a compound
// literal.
func (s *StatementLowerer) lowerReturn(n *ilast.Node, pointerReturn bool) string {
	if n.Argument.IsNil() {
		if pointerReturn {
			return "return NULL;"
		}
		return "return;"
	}
	if n.Argument.Kind() == ilast.ArrayExpression {
		return "return " + s.idioms.LowerExpr(n.Argument) + ";"
	}
	expr := s.idioms.LowerExpr(n.Argument)
	if pointerReturn {
		if f, ok := n.Argument.NumberValue(); ok && f < 0 {
			return "return NULL;"
		}
	}
	return "return " + expr + ";"
}

// lowerThrow implements spec.md §4.5 "throw" for non-void functions:
// return NULL for pointer-returning functions, return -1 otherwise.
// LowerStmt emits a bare `return;` for a throw inside a void function
// before reaching this helper.
func (s *StatementLowerer) lowerThrow(pointerReturn bool) string {
	if pointerReturn {
		return "return NULL;"
	}
	return "return -1;"
}

func (s *StatementLowerer) lowerIf(n *ilast.Node, fn *cast.Function, isModuleScope bool, pointerReturn bool) []string {
	cons := s.lowerBlock(bodyOf(n.Consequent), fn, isModuleScope, pointerReturn)
	out := wrapBlock(fmt.Sprintf("if (%s) {", s.idioms.LowerExpr(n.Test)), cons)
	if !n.Alternate.IsNil() {
		if n.Alternate.Kind() == ilast.IfStatement {
			elseif := s.lowerIf(n.Alternate, fn, isModuleScope, pointerReturn)
			elseif[0] = "} else " + elseif[0]
			out = append(out[:len(out)-1], elseif...)
		} else {
			alt := s.lowerBlock(bodyOf(n.Alternate), fn, isModuleScope, pointerReturn)
			out[len(out)-1] = "} else {"
			out = append(out, indent(alt)...)
			out = append(out, "}")
		}
	}
	return out
}

func bodyOf(n *ilast.Node) []*ilast.Node {
	if n.Kind() == ilast.BlockStatement {
		return n.Body
	}
	return []*ilast.Node{n}
}

func (s *StatementLowerer) lowerFor(n *ilast.Node, fn *cast.Function, isModuleScope bool, pointerReturn bool) []string {
	init := ""
	if !n.Init.IsNil() {
		init = s.idioms.LowerExpr(n.Init)
	}
	test := s.idioms.LowerExpr(n.Test)
	update := s.idioms.LowerExpr(n.Update)
	body := s.lowerBlock(bodyOf(n.Consequent), fn, isModuleScope, pointerReturn)
	if len(body) == 0 {
		body = s.lowerBlock(n.Body, fn, isModuleScope, pointerReturn)
	}
	return wrapBlock(fmt.Sprintf("for (%s; %s; %s) {", init, test, update), body)
}

// lowerForOf implements spec.md §4.5/§8: `for (const x of A)` on a
// pointer-typed A becomes a counted for over A_length with a
// body-introduced `T x = A[_idx];`. for-in is treated identically
// (spec.md §4.5: "not meaningful in C").
func (s *StatementLowerer) lowerForOf(n *ilast.Node, fn *cast.Function, isModuleScope bool, pointerReturn bool) []string {
	iterName := calleeName(n.Right)
	arrType, _ := s.scope.Lookup(iterName)
	elemType := elementTypeOf(arrType)

	idx := fmt.Sprintf("_idx_%d", s.loopCounter)
	s.loopCounter++

	arr := s.mangler.ResolveVariable(iterName)
	arrLength := s.lengths.LengthExpr(iterName, s.mangler)

	var itemName string
	if n.Left.Kind() == ilast.VariableDeclaration && len(n.Left.Declarations) == 1 {
		itemName = n.Left.Declarations[0].Id.Name
	}
	cName := s.mangler.MangleVariable(itemName)
	s.scope.Declare(itemName, elemType)

	header := fmt.Sprintf("for (size_t %s = 0; %s < %s; ++%s) {", idx, idx, arrLength, idx)
	body := []string{fmt.Sprintf("%s %s = %s[%s];", elemType.String(), cName, arr, idx)}
	body = append(body, s.lowerBlock(n.Body, fn, isModuleScope, pointerReturn)...)
	return wrapBlock(header, body)
}

func elementTypeOf(arrType cast.Type) cast.Type {
	if arrType.BaseName == "char" && arrType.IsPointer {
		return cast.Char
	}
	if arrType.ElementType != nil {
		return *arrType.ElementType
	}
	if arrType.IsPointerLike() {
		return cast.Type{BaseName: arrType.BaseName}
	}
	return cast.Uint32
}

func (s *StatementLowerer) lowerSwitch(n *ilast.Node, fn *cast.Function, isModuleScope bool, pointerReturn bool) []string {
	out := []string{fmt.Sprintf("switch (%s) {", s.idioms.LowerExpr(n.Discriminant))}
	for _, c := range n.Cases {
		if c.Test.IsNil() {
			out = append(out, "\tdefault:")
		} else {
			out = append(out, fmt.Sprintf("\tcase %s:", s.idioms.LowerExpr(c.Test)))
		}
		body := s.lowerBlock(c.Body, fn, isModuleScope, pointerReturn)
		out = append(out, indent(body)...)
	}
	out = append(out, "}")
	return out
}

// lowerVariableDeclaration implements declaration lowering with
// type-driven initializer selection: the variable's type comes from a
// JSDoc hint, else name inference, else value inference (spec.md §4.1,
// §4.3), and a pointer-typed declaration gets its length companion
// declared immediately after (spec.md §3 invariant 2). Array/object
// destructuring delegates to LowerDestructuring; `x.split(...)` /
// `x.filter(...)` initializers get the helper-specific special-length
// treatment (spec.md §3); an empty array literal allocates scratch
// space sized for later pushes (spec.md §3/§4.3).
func (s *StatementLowerer) lowerVariableDeclaration(n *ilast.Node) []string {
	var out []string
	for _, decl := range n.Declarations {
		if decl.Id.Kind() == ilast.ArrayPattern || decl.Id.Kind() == ilast.ObjectPattern {
			out = append(out, s.LowerDestructuring(decl.Id, decl.Init)...)
			continue
		}

		name := decl.Id.Name
		cName := s.mangler.MangleVariable(name)
		if decl.Init.Kind() == ilast.CallExpression {
			calleeNames := map[string]bool{calleeName(decl.Init.Callee): true}
			if shadowed := AvoidShadow(name, calleeNames); shadowed != name {
				cName = EscapeReserved(SnakeCase(shadowed))
				s.mangler.Override(name, cName)
			}
		}

		if isStringSplitCall(decl.Init) {
			out = append(out, s.lowerSplitDeclaration(name, cName, decl.Init)...)
			continue
		}
		if isArrayFilterCall(decl.Init) {
			out = append(out, s.lowerFilterDeclaration(name, cName, decl.Init)...)
			continue
		}
		if decl.Init.Kind() == ilast.ArrayExpression && len(decl.Init.Elements) == 0 {
			out = append(out, s.lowerEmptyArrayDeclaration(name, cName)...)
			continue
		}

		var typ cast.Type
		if decl.Id.TypeHint != "" {
			typ = s.types.MapType(decl.Id.TypeHint)
		} else if decl.Init.IsNil() {
			typ = s.types.InferFromName(name)
		} else {
			typ = s.types.InferFromValue(decl.Init, s.scope)
			if !typ.IsPointerLike() {
				if byName := s.types.InferFromName(name); byName.IsPointerLike() && decl.Init.Kind() == ilast.Literal && decl.Init.RawValue == nil {
					typ = byName // null initializer keeps name-based pointer inference (spec.md §4.1/§4.2)
				}
			}
		}
		s.scope.Declare(name, typ)

		if decl.Init.IsNil() {
			out = append(out, fmt.Sprintf("%s %s;", typ.String(), cName))
			continue
		}
		init := s.idioms.LowerExpr(decl.Init)
		out = append(out, fmt.Sprintf("%s %s = %s;", typ.String(), cName, init))
		if typ.IsPointerLike() {
			lengthExpr := s.lengths.LengthInit(name, decl.Init, s.scope, s.mangler)
			out = append(out, fmt.Sprintf("size_t %s_length = %s;", cName, lengthExpr))
		}
	}
	return out
}

// isStringSplitCall/isArrayFilterCall recognize the two call shapes
// whose result length comes from a "<name>_count" local that the helper
// fills through an out-parameter, instead of a plain "<name>_length"
// companion; no global macro is involved (spec.md §3).
func isStringSplitCall(init *ilast.Node) bool {
	return init.Kind() == ilast.CallExpression && init.Callee.Kind() == ilast.MemberExpression && propName(init.Callee) == "split"
}

func isArrayFilterCall(init *ilast.Node) bool {
	return init.Kind() == ilast.CallExpression && init.Callee.Kind() == ilast.MemberExpression && propName(init.Callee) == "filter"
}

// lowerSplitDeclaration implements spec.md §3's split-result special
// case: `const parts = s.split(sep);` lowers to the string_split helper
// plus a `<name>_count` out-parameter, and registers that out-parameter
// as the companion length for every later reference to parts (spec.md
// §3 MarkSplitResult/MarkSpecialLength).
func (s *StatementLowerer) lowerSplitDeclaration(name, cName string, call *ilast.Node) []string {
	receiver := call.Callee.Object
	sep := "\"\""
	if len(call.Arguments) > 0 {
		sep = s.idioms.LowerExpr(call.Arguments[0])
	}
	countVar := cName + "_count"
	typ := cast.Pointer(cast.CharPtr)
	s.scope.Declare(name, typ)
	s.lengths.MarkSplitResult(name)
	s.lengths.MarkSpecialLength(name, countVar)
	return []string{
		fmt.Sprintf("size_t %s;", countVar),
		fmt.Sprintf("%s %s = string_split(%s, %s, &%s);", typ.String(), cName, s.idioms.LowerExpr(receiver), sep, countVar),
	}
}

// lowerFilterDeclaration implements spec.md §3's filter-result special
// case, mirroring lowerSplitDeclaration: array_filter takes the
// predicate and writes the surviving-element count through an
// out-parameter instead of reusing the source array's length.
func (s *StatementLowerer) lowerFilterDeclaration(name, cName string, call *ilast.Node) []string {
	receiver := call.Callee.Object
	recvLength := s.lengths.argumentLength(receiver, s.scope, s.mangler)
	pred := "NULL"
	if len(call.Arguments) > 0 {
		pred = s.idioms.LowerExpr(call.Arguments[0])
	}
	countVar := cName + "_count"
	typ := s.types.InferFromValue(receiver, s.scope)
	s.scope.Declare(name, typ)
	s.lengths.MarkFilterResult(name)
	s.lengths.MarkSpecialLength(name, countVar)
	return []string{
		fmt.Sprintf("size_t %s;", countVar),
		fmt.Sprintf("%s %s = array_filter(%s, %s, %s, &%s);", typ.String(), cName, s.idioms.LowerExpr(receiver), recvLength, pred, countVar),
	}
}

// lowerEmptyArrayDeclaration implements spec.md §3/§4.3's empty-array
// creation rule: `const buf = [];` allocates a scratch buffer sized for
// later pushes (calloc(256 / sizeof(T), sizeof(T))) with a 0U length
// companion; T comes from the first value pushed onto the same name
// later in the body, found by ScanEmptyArrayPushTypes, falling back to
// uint8_t when no push is observed.
func (s *StatementLowerer) lowerEmptyArrayDeclaration(name, cName string) []string {
	elemType := cast.Uint8
	if pushType, ok := s.scope.EmptyArrayPushTypes[name]; ok {
		elemType = pushType
	}
	typ := cast.Pointer(elemType)
	s.scope.Declare(name, typ)
	return []string{
		fmt.Sprintf("%s %s = (%s*)calloc(256 / sizeof(%s), sizeof(%s));", typ.String(), cName, elemType.String(), elemType.String(), elemType.String()),
		fmt.Sprintf("size_t %s_length = 0U;", cName),
	}
}

// ScanEmptyArrayPushTypes implements spec.md §3's empty-array push-type
// forward scan: `const buf = []; ... buf.push(x);` needs to know x's
// type when buf is declared, so each function/method body is scanned
// for `<name>.push(<value>)` calls before it is lowered, recording the
// first pushed value's inferred type per name. Cleared on every call so
// names don't leak across different function bodies.
func (s *StatementLowerer) ScanEmptyArrayPushTypes(body []*ilast.Node) {
	for k := range s.scope.EmptyArrayPushTypes {
		delete(s.scope.EmptyArrayPushTypes, k)
	}
	var walk func(nodes []*ilast.Node)
	walk = func(nodes []*ilast.Node) {
		for _, n := range nodes {
			if n.IsNil() {
				continue
			}
			if n.Kind() == ilast.ExpressionStatement && n.Argument.Kind() == ilast.CallExpression {
				call := n.Argument
				if call.Callee.Kind() == ilast.MemberExpression && propName(call.Callee) == "push" &&
					call.Callee.Object.Kind() == ilast.Identifier && len(call.Arguments) == 1 {
					name := call.Callee.Object.Name
					if _, already := s.scope.EmptyArrayPushTypes[name]; !already {
						s.scope.EmptyArrayPushTypes[name] = s.types.InferFromValue(call.Arguments[0], s.scope)
					}
				}
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
	walk(body)
}

// LowerDestructuring implements spec.md §4.4 "Destructuring
// `const [a,b,c] = arr`": expand to scalar declarations indexed into
// arr. Object-pattern destructuring is skipped with a comment marker
// (spec.md §4.4).
func (s *StatementLowerer) LowerDestructuring(pattern *ilast.Node, source *ilast.Node) []string {
	if pattern.Kind() == ilast.ObjectPattern {
		return []string{"/* destructuring: object pattern skipped */"}
	}
	srcName := calleeName(source)
	srcType, _ := s.scope.Lookup(srcName)
	elemType := elementTypeOf(srcType)
	var out []string
	for i, el := range pattern.Elements {
		if el.IsNil() {
			continue
		}
		cName := s.mangler.MangleVariable(el.Name)
		s.scope.Declare(el.Name, elemType)
		out = append(out, fmt.Sprintf("%s %s = %s[%d];", elemType.String(), cName, s.mangler.ResolveVariable(srcName), i))
	}
	return out
}
