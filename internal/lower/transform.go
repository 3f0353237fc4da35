// Package lower implements the IL-AST-to-C-AST lowering pass: the
// single-threaded, cooperative pass described in spec.md that combines
// TypeSystem, StructBuilder, ArrayLengthTracker, IdiomLowerer,
// StatementLowerer and NameMangler into one Transform call per input
// file (spec.md §2, §5).
package lower

import (
	"fmt"

	"golang.org/x/xerrors"

	"github.com/Hawkynt/Hawkynt.github.io-sub003/cast"
	"github.com/Hawkynt/Hawkynt.github.io-sub003/ilast"
)

// TransformMode is a bitmask of optional diagnostics, mirroring the
// print-to-stderr mode flags go/ssa's BuilderMode uses for its own
// optional tracing (spec.md §9 design notes do not require this; it is
// ambient tooling carried from the teacher's idiom).
type TransformMode uint32

const (
	PrintDiagnostics TransformMode = 1 << iota
	PrintTypeDecisions
)

// Options holds the recognized configuration (spec.md §6).
type Options struct {
	Standard            string // "c89"|"c99"|"c11"|"c17"|"c23"
	AddHeaders          bool
	AddComments         bool
	UseStrictTypes       bool
	UseConstCorrectness  bool
	// StrictLengths selects the build-breaking-sentinel fallback instead
	// of the spec's documented 0U default for unresolved array lengths
	// (SPEC_FULL.md §3, resolving spec.md's Open Question).
	StrictLengths bool
	Mode          TransformMode
}

// DefaultOptions returns the spec's documented defaults.
func DefaultOptions() Options {
	return Options{Standard: "c11", AddHeaders: true, AddComments: true}
}

// Transformer owns the mutable scratch state that accumulates across one
// pass (spec.md §3 "Scope state", §5: "Transformer-instance lifetime
// equals one file; all scratch state is reset in transform()").
type Transformer struct {
	opts    Options
	diag    DiagnosticSink
	mangler *NameMangler
	types   *TypeSystem
	lengths *ArrayLengthTracker
	scope   *Scope
	file    *cast.File
	idioms  *IdiomLowerer
	stmts   *StatementLowerer
	structs *StructBuilder
}

// NewTransformer constructs a Transformer. Each Transformer instance is
// good for exactly one Transform call; spec.md §5 explicitly allows
// "multiple transformer instances [to] run independently", which is what
// internal/batch exploits for concurrent multi-file CLI runs.
func NewTransformer(opts Options) *Transformer {
	t := &Transformer{opts: opts}
	t.file = &cast.File{}
	t.scope = NewScope()
	t.mangler = NewNameMangler()
	t.types = NewTypeSystem(&t.diag)
	t.lengths = NewArrayLengthTracker(&t.diag, opts.StrictLengths)
	t.idioms = NewIdiomLowerer(&t.diag, t.mangler, t.types, t.lengths, t.file, t.scope)
	t.stmts = NewStatementLowerer(&t.diag, t.mangler, t.types, t.lengths, t.idioms, t.scope)
	t.structs = NewStructBuilder(&t.diag, t.mangler, t.types, t.lengths, t.idioms, t.stmts, t.file, t.scope)
	if opts.AddHeaders {
		for _, h := range []string{"stdint.h", "stdbool.h", "stddef.h", "stdlib.h", "string.h"} {
			t.file.AddInclude(h)
		}
	}
	return t
}

// Transform lowers one IL AST Program node into a C AST file. error is
// reserved for a malformed input (spec.md §6 input contract violation);
// every other degradation is a Diagnostic (spec.md §7).
func (t *Transformer) Transform(program *ilast.Node) (*cast.File, []Diagnostic, error) {
	if program.IsNil() || program.Kind() != ilast.Program {
		return nil, nil, xerrors.Errorf("lower: root node is not a Program (got %q)", program.Kind())
	}

	for _, stmt := range program.Body {
		t.lowerModuleStatement(stmt)
	}

	if t.opts.AddComments {
		t.file.Defines = append([]cast.Define{{Name: "// generated by ilc2c", Value: ""}}, t.file.Defines...)
	}

	return t.file, t.diag.Items(), nil
}

func (t *Transformer) lowerModuleStatement(n *ilast.Node) {
	if n.IsNil() {
		return
	}
	switch n.Kind() {
	case ilast.ClassDeclaration:
		t.structs.ProcessClass(n)
	case ilast.FunctionDeclaration:
		t.lowerTopLevelFunction(n)
	case ilast.VariableDeclaration:
		t.lowerModuleVariable(n)
	case ilast.ExpressionStatement, ilast.ReturnStatement:
		// Module-scope ReturnStatement is the UMD-wrapper pattern and is
		// discarded (spec.md §4.5); a bare ExpressionStatement at module
		// scope carries no declarations worth emitting on its own.
	default:
		t.diag.Add(DiagUnknownKind, n.Position, "unrecognized module-level statement kind %q", n.Kind())
	}
}

func (t *Transformer) lowerTopLevelFunction(n *ilast.Node) {
	name := t.mangler.MangleVariable(n.Id.Name)
	retType := t.types.InferReturnType(n.Body, t.scope)
	fn := &cast.Function{Name: name, ReturnType: retType}

	t.scope.Push()
	for _, p := range n.Params {
		pType := t.types.InferFromName(p.Name)
		fn.AddParameter(cast.Parameter{Name: t.mangler.MangleVariable(p.Name), Type: pType})
		t.scope.Declare(p.Name, pType)
	}
	t.stmts.ResetLoopCounters()
	t.stmts.ScanEmptyArrayPushTypes(n.Body)
	pointerReturn := detectPointerReturn(name, retType, n)
	for _, stmt := range n.Body {
		fn.Emit(t.stmts.LowerStmt(stmt, fn, false, pointerReturn)...)
	}
	t.scope.Pop()

	t.file.AddFunction(fn)
	t.scope.Functions[n.Id.Name] = FunctionSignature{ReturnType: retType}
}

// lowerModuleVariable handles module-scope const/let/var declarations,
// including the Object.freeze(...) static-table case (spec.md §3
// "Globals are appended for module-level const/let/var declarations... and
// hoisted array literals", §8 invariant 4).
func (t *Transformer) lowerModuleVariable(n *ilast.Node) {
	for _, decl := range n.Declarations {
		name := decl.Id.Name
		if isObjectFreeze(decl.Init) {
			cName := t.mangler.ScreamingSnakeCase(name)
			lowerFrozenGlobal(t.file, t.types, t.idioms, t.scope, cName, name, decl.Init.Arguments[0])
			continue
		}
		typ := t.resolveModuleVarType(name, decl.Init)
		cName := t.mangler.MangleVariable(name)
		t.scope.Declare(name, typ)
		t.scope.ModuleConstantTypes[name] = typ
		g := &cast.Global{Name: cName, Type: typ}
		if !decl.Init.IsNil() {
			g.Init = t.idioms.LowerExpr(decl.Init)
		}
		t.file.AddGlobal(g)
	}
}

func (t *Transformer) resolveModuleVarType(name string, init *ilast.Node) cast.Type {
	if init.IsNil() {
		return t.types.InferFromName(name)
	}
	return t.types.InferFromValue(init, t.scope)
}

func isObjectFreeze(n *ilast.Node) bool {
	if n.IsNil() || n.Kind() != ilast.CallExpression {
		return false
	}
	return calleeName(n.Callee) == "freeze" && n.Callee.Kind() == ilast.MemberExpression &&
		n.Callee.Object.Kind() == ilast.Identifier && n.Callee.Object.Name == "Object" &&
		len(n.Arguments) == 1
}

// lowerFrozenGlobal implements spec.md §8 invariant 4 / §4.2 "Static
// fields": an Object.freeze([...]) array becomes a `static const T[]`
// global plus a matching `#define <NAME>_length <n>` macro; nested
// array literals become 2D arrays. It is a free function (not a
// Transformer method) so StructBuilder can reuse it for class static
// fields: cName is the already-mangled C name, constantKey is the
// scope.ModuleConstantTypes lookup key (a bare name for module
// constants, "Class.Field" for statics).
func lowerFrozenGlobal(file *cast.File, types *TypeSystem, idioms *IdiomLowerer, scope *Scope, cName, constantKey string, arrayLit *ilast.Node) {
	if len(arrayLit.Elements) > 0 && arrayLit.Elements[0].Kind() == ilast.ArrayExpression {
		lower2DFrozenGlobal(file, types, idioms, scope, cName, constantKey, arrayLit)
		return
	}
	elemType := cast.Uint32
	if len(arrayLit.Elements) > 0 {
		elemType = types.InferFromValue(arrayLit.Elements[0], scope)
	}
	baseType := cast.Type{BaseName: elemType.BaseName, IsConst: true, IsStatic: true, IsArray: true, ArraySize: len(arrayLit.Elements)}

	parts := make([]string, len(arrayLit.Elements))
	for i, el := range arrayLit.Elements {
		parts[i] = idioms.LowerExpr(el)
	}
	init := "{" + joinComma(parts) + "}"

	file.AddGlobal(&cast.Global{Name: cName, Type: baseType, Init: init})
	file.AddDefine(cast.Define{Name: cName + "_length", Value: fmt.Sprintf("%d", len(arrayLit.Elements))})
	scope.ModuleConstantTypes[constantKey] = cast.Pointer(cast.Const(cast.Type{BaseName: elemType.BaseName}))
}

func lower2DFrozenGlobal(file *cast.File, types *TypeSystem, idioms *IdiomLowerer, scope *Scope, cName, constantKey string, arrayLit *ilast.Node) {
	rows := len(arrayLit.Elements)
	cols := 0
	if rows > 0 {
		cols = len(arrayLit.Elements[0].Elements)
	}
	rowElemType := cast.Uint32
	if cols > 0 {
		rowElemType = types.InferFromValue(arrayLit.Elements[0].Elements[0], scope)
	}
	baseType := cast.Type{
		BaseName: rowElemType.BaseName, IsConst: true, IsStatic: true,
		IsArray: true, ArraySize: rows,
		ElementType: &cast.Type{BaseName: rowElemType.BaseName, IsArray: true, ArraySize: cols},
	}
	rowParts := make([]string, rows)
	for i, row := range arrayLit.Elements {
		cells := make([]string, len(row.Elements))
		for j, el := range row.Elements {
			cells[j] = idioms.LowerExpr(el)
		}
		rowParts[i] = "{" + joinComma(cells) + "}"
	}
	init := "{" + joinComma(rowParts) + "}"
	file.AddGlobal(&cast.Global{Name: cName, Type: baseType, Init: init})
	file.AddDefine(cast.Define{Name: cName + "_ROW_LENGTH", Value: fmt.Sprintf("%d", cols)})
	scope.ModuleConstantTypes[constantKey] = cast.Pointer(cast.Const(cast.Type{BaseName: rowElemType.BaseName, IsArray: true, ArraySize: cols}))
}

func joinComma(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ", "
		}
		out += p
	}
	return out
}
