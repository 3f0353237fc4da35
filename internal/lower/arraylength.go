package lower

import (
	"fmt"
	"strings"

	"github.com/Hawkynt/Hawkynt.github.io-sub003/cast"
	"github.com/Hawkynt/Hawkynt.github.io-sub003/ilast"
)

// ArrayLengthTracker creates, propagates and looks up "<name>_length"
// companions for every array-typed binding, and expands call-site
// arguments to carry their length (spec.md §4.3).
type ArrayLengthTracker struct {
	diag   *DiagnosticSink
	strict bool // StrictLengths option: unresolved -> sentinel, not 0U (SPEC_FULL.md §3)

	// splitResultVars, filterResultVars, specialLengthVars hold variables
	// whose length comes from a registered expression (for split/filter
	// results, the "<name>_count" local the helper fills through an
	// out-parameter) instead of a "<name>_length" companion; no global
	// macro is used (spec.md §3).
	splitResultVars    map[string]bool
	filterResultVars   map[string]bool
	specialLengthVars  map[string]string // var name -> length expression
}

// NewArrayLengthTracker constructs a tracker reporting degradations to
// diag; strict selects the SPEC_FULL.md §3 "build-breaking sentinel"
// fallback instead of the spec's documented 0U default.
func NewArrayLengthTracker(diag *DiagnosticSink, strict bool) *ArrayLengthTracker {
	return &ArrayLengthTracker{
		diag:              diag,
		strict:            strict,
		splitResultVars:   make(map[string]bool),
		filterResultVars:  make(map[string]bool),
		specialLengthVars: make(map[string]string),
	}
}

// unresolvedFallback is the length expression emitted when no companion
// can be resolved: "0U" by default, or a build-breaking macro reference
// under StrictLengths (SPEC_FULL.md §3, spec.md Open Questions).
func (t *ArrayLengthTracker) unresolvedFallback(pos int, context string) string {
	t.diag.Add(DiagUnresolvedLength, pos, "could not resolve a companion length for %s", context)
	if t.strict {
		return "ILC2C_UNRESOLVED_LENGTH"
	}
	return "0U"
}

// LengthInit computes the companion-length initializer for a local
// pointer declaration, per the creation-rules table in spec.md §4.3.
// name is the variable being declared (used for identifier-copy and
// self-referential cases); init is its initializer expression.
func (t *ArrayLengthTracker) LengthInit(name string, init *ilast.Node, scope *Scope, mangler *NameMangler) string {
	if init.IsNil() {
		return "0U"
	}
	switch init.Kind() {
	case ilast.ArrayExpression:
		if len(init.Elements) == 0 {
			return "0U"
		}
		return fmt.Sprintf("%dU", len(init.Elements))

	case ilast.CallExpression:
		return t.lengthFromCall(init, scope, mangler)

	case ilast.NewExpression:
		return t.lengthFromNew(init, scope, mangler)

	case ilast.Identifier:
		return mangler.ResolveVariable(init.Name) + "_length"

	case ilast.MemberExpression:
		if init.Object.Kind() == ilast.ThisExpression {
			return "self->" + mangler.ResolveVariable(propName(init)) + "_length"
		}
		return lengthAccessExpr(init, mangler)

	case ilast.ConditionalExpression:
		a := t.LengthInit(name, init.Consequent, scope, mangler)
		b := t.LengthInit(name, init.Alternate, scope, mangler)
		return fmt.Sprintf("(%s) ? (%s) : (%s)", renderExprStub(init.Test), a, b)

	case ilast.LogicalExpression:
		if init.Operator == "||" {
			return t.LengthInit(name, init.Left, scope, mangler)
		}
	}
	return t.unresolvedFallback(init.Position, name)
}

func (t *ArrayLengthTracker) lengthFromCall(call *ilast.Node, scope *Scope, mangler *NameMangler) string {
	name := calleeName(call.Callee)
	l := strings.ToLower(name)

	switch {
	case strings.Contains(l, "slice"):
		if len(call.Arguments) >= 2 {
			return fmt.Sprintf("(%s) - (%s)", renderExprStub(call.Arguments[1]), renderExprStub(call.Arguments[0]))
		}
		if len(call.Arguments) == 1 && call.Callee.Kind() == ilast.MemberExpression {
			recv := mangler.ResolveVariable(calleeName(call.Callee.Object))
			return fmt.Sprintf("%s_length - (%s)", recv, renderExprStub(call.Arguments[0]))
		}
	case strings.Contains(l, "ansitobytes"):
		if len(call.Arguments) == 1 {
			return fmt.Sprintf("strlen(%s)", renderExprStub(call.Arguments[0]))
		}
	case strings.Contains(l, "fromcharcode"):
		if len(call.Arguments) == 1 && call.Arguments[0].Kind() == ilast.SpreadElement {
			return mangler.ResolveVariable(calleeName(call.Arguments[0].Argument)) + "_length"
		}
	}
	if width, _, isUnpack := packerFamily(name); isUnpack && width > 0 {
		return fmt.Sprintf("%dU", width/8)
	}

	// Function call returning a pointer: propagate the length of any
	// pointer-typed argument with a known length (spec.md §4.3 table).
	for _, arg := range call.Arguments {
		if arg.Kind() == ilast.Identifier {
			if typ, ok := scope.Lookup(arg.Name); ok && typ.IsPointerLike() {
				return mangler.ResolveVariable(arg.Name) + "_length"
			}
		}
	}
	return t.unresolvedFallback(call.Position, "call to "+name)
}

func (t *ArrayLengthTracker) lengthFromNew(n *ilast.Node, scope *Scope, mangler *NameMangler) string {
	name := calleeName(n.Callee)
	if len(n.Arguments) == 0 {
		return "0U"
	}
	arg := n.Arguments[0]
	// new T(arr).fill(v): arg is the copied array (spec.md §4.3 table).
	if arg.Kind() == ilast.Identifier {
		if typ, ok := scope.Lookup(arg.Name); ok && typ.IsPointerLike() {
			return mangler.ResolveVariable(arg.Name) + "_length"
		}
	}
	_ = name
	return renderExprStub(arg)
}

func lengthAccessExpr(member *ilast.Node, mangler *NameMangler) string {
	base := calleeName(member.Object)
	return mangler.ResolveVariable(base) + "." + mangler.ResolveVariable(propName(member)) + "_length"
}

// renderExprStub renders a best-effort literal/identifier expression
// for use inside a length formula. Full expression lowering is
// IdiomLowerer's job; this stays intentionally narrow (literals,
// identifiers, simple binary expressions) since length formulas only
// ever combine those (spec.md §4.3 table).
func renderExprStub(n *ilast.Node) string {
	if n.IsNil() {
		return "0"
	}
	switch n.Kind() {
	case ilast.Literal:
		if s, ok := n.StringValue(); ok {
			return fmt.Sprintf("%q", s)
		}
		if f, ok := n.NumberValue(); ok {
			return fmt.Sprintf("%dU", int64(f))
		}
		return fmt.Sprint(n.RawValue)
	case ilast.Identifier:
		return SnakeCase(n.Name)
	case ilast.BinaryExpression:
		return fmt.Sprintf("(%s %s %s)", renderExprStub(n.Left), n.Operator, renderExprStub(n.Right))
	case ilast.MemberExpression:
		if n.Object.Kind() == ilast.ThisExpression {
			return "self->" + SnakeCase(propName(n))
		}
		return SnakeCase(calleeName(n.Object)) + "." + SnakeCase(propName(n))
	}
	return "0"
}

// CallArgs expands a call's arguments so every pointer/array argument is
// immediately followed by its length expression, per spec.md §4.3
// "Call-site expansion". typeOf resolves the static type of an argument
// expression (normally TypeSystem.InferFromValue).
func (t *ArrayLengthTracker) CallArgs(args []*ilast.Node, scope *Scope, mangler *NameMangler, typeOf func(*ilast.Node) cast.Type, render func(*ilast.Node) string) []string {
	out := make([]string, 0, len(args)*2)
	for _, arg := range args {
		rendered := render(arg)
		out = append(out, rendered)
		typ := typeOf(arg)
		if !typ.IsPointerLike() {
			continue
		}
		out = append(out, t.argumentLength(arg, scope, mangler))
	}
	return out
}

// argumentLength resolves the length expression for a call argument,
// trying, in order: a companion identifier already in scope, a
// member-access companion, a `this.x` spread companion, then the 0U
// (or StrictLengths sentinel) fallback (spec.md §4.3 "Call-site
// expansion").
func (t *ArrayLengthTracker) argumentLength(arg *ilast.Node, scope *Scope, mangler *NameMangler) string {
	switch arg.Kind() {
	case ilast.Identifier:
		return t.LengthExpr(arg.Name, mangler)
	case ilast.ThisExpression:
		return "self_length"
	case ilast.MemberExpression:
		if arg.Object.Kind() == ilast.ThisExpression {
			return "self->" + mangler.ResolveVariable(propName(arg)) + "_length"
		}
		return lengthAccessExpr(arg, mangler)
	case ilast.SpreadElement:
		if arg.Argument.Kind() == ilast.MemberExpression && arg.Argument.Object.Kind() == ilast.ThisExpression {
			return "self->" + mangler.ResolveVariable(propName(arg.Argument)) + "_length"
		}
	}
	return t.unresolvedFallback(arg.Position, "call argument")
}

// MarkSplitResult, MarkFilterResult and MarkSpecialLength register a
// variable whose length must come from a registered expression (the
// split/filter helpers' "<name>_count" out-parameter local) instead of a
// "<name>_length" companion (spec.md §3).
func (t *ArrayLengthTracker) MarkSplitResult(name string)  { t.splitResultVars[name] = true }
func (t *ArrayLengthTracker) MarkFilterResult(name string) { t.filterResultVars[name] = true }
func (t *ArrayLengthTracker) MarkSpecialLength(name, macro string) {
	t.specialLengthVars[name] = macro
}

// LengthExpr returns the length expression to use for a variable
// reference, honoring any special-length registration before falling
// back to the ordinary "<name>_length" companion.
func (t *ArrayLengthTracker) LengthExpr(name string, mangler *NameMangler) string {
	if macro, ok := t.specialLengthVars[name]; ok {
		return macro
	}
	return mangler.ResolveVariable(name) + "_length"
}
