// Package cast models the output contract of the lowering pass: a typed
// C AST (spec.md §3) suitable for a downstream emitter to serialize as
// C11 source. Structs, functions, fields and parameters are fully
// structured, per §3's invariants (length-companion pairing, struct
// emission order); statement and expression bodies are carried as
// already-formatted C text, matching the granularity the spec's own
// acceptance scenarios (§8) test at -- they assert exact expression
// strings, not a further AST layer below expressions.
//
// The actual text emitter is an external collaborator (spec.md §1); see
// internal/render for a minimal convenience renderer used only by the
// CLI smoke path.
package cast

import (
	"sort"
	"strings"
)

// Type is a C type descriptor (spec.md §3).
type Type struct {
	BaseName     string
	IsConst      bool
	IsPointer    bool
	PointerLevel int
	IsArray      bool
	ArraySize    int
	ElementType  *Type
	IsStatic     bool
	IsExtern     bool
}

// Common primitive types.
var (
	Void    = Type{BaseName: "void"}
	Bool    = Type{BaseName: "bool"}
	Char    = Type{BaseName: "char"}
	SizeT   = Type{BaseName: "size_t"}
	Float   = Type{BaseName: "float"}
	Double  = Type{BaseName: "double"}
	Uint8   = Type{BaseName: "uint8_t"}
	Uint16  = Type{BaseName: "uint16_t"}
	Uint32  = Type{BaseName: "uint32_t"}
	Uint64  = Type{BaseName: "uint64_t"}
	Int8    = Type{BaseName: "int8_t"}
	Int16   = Type{BaseName: "int16_t"}
	Int32   = Type{BaseName: "int32_t"}
	Int64   = Type{BaseName: "int64_t"}
	CharPtr = Type{BaseName: "char", IsPointer: true, PointerLevel: 1}
)

// Pointer returns elem* (one pointer level added on top of elem).
func Pointer(elem Type) Type {
	e := elem
	return Type{
		BaseName:     elem.BaseName,
		IsConst:      elem.IsConst,
		IsPointer:    true,
		PointerLevel: elem.PointerLevel + 1,
		ElementType:  &e,
	}
}

// Const returns a const-qualified copy of t.
func Const(t Type) Type {
	t.IsConst = true
	return t
}

// StructPtr returns a pointer to the named struct type.
func StructPtr(name string) Type {
	return Pointer(Type{BaseName: name})
}

// TypeFor returns the unsigned integer type of the given bit width,
// defaulting to Uint32 for unrecognized widths.
func TypeFor(bits int) Type {
	switch bits {
	case 8:
		return Uint8
	case 16:
		return Uint16
	case 32:
		return Uint32
	case 64:
		return Uint64
	default:
		return Uint32
	}
}

// IsPointerLike reports whether t is a pointer or array type -- the
// condition that requires a companion <name>_length field/parameter
// (spec.md §3 invariant 2).
func (t Type) IsPointerLike() bool {
	return t.IsPointer || t.IsArray
}

// String renders t as it would appear in a C declaration, e.g.
// "const uint8_t*" or "uint32_t[16]".
func (t Type) String() string {
	var b strings.Builder
	if t.IsConst {
		b.WriteString("const ")
	}
	b.WriteString(t.BaseName)
	if t.IsPointer {
		b.WriteString(strings.Repeat("*", t.PointerLevel))
	}
	if t.IsArray {
		if t.ArraySize > 0 {
			b.WriteString("[")
			b.WriteString(itoa(t.ArraySize))
			b.WriteString("]")
		} else {
			b.WriteString("[]")
		}
	}
	return b.String()
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	if neg {
		return "-" + string(digits)
	}
	return string(digits)
}

// Field is a struct member. Invariant (spec.md §3): for every
// pointer/array field there is a companion "<name>_length: size_t"
// field immediately following it in Struct.Fields.
type Field struct {
	Name string
	Type Type
}

// Struct is a promoted class or a signature-deduplicated anonymous
// struct (spec.md §4.2).
type Struct struct {
	Name               string
	Fields             []Field
	IsTypedef          bool
	StaticInitStatements []string
}

// Signature returns the sorted "field:type" key used to deduplicate
// anonymous object-literal structs (spec.md §4.2, GLOSSARY).
func (s *Struct) Signature() string {
	parts := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		parts[i] = f.Name + ":" + f.Type.String()
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}

// AddField appends f, and if f is pointer-like, immediately follows it
// with its "<name>_length: size_t" companion, per spec.md §3 invariant 2.
// A field whose name already ends in "_length" is assumed to already be
// a companion and is not re-companioned.
func (s *Struct) AddField(f Field) {
	for _, existing := range s.Fields {
		if existing.Name == f.Name {
			return // no duplicate field names (spec.md §3 invariant 5)
		}
	}
	s.Fields = append(s.Fields, f)
	if f.Type.IsPointerLike() && !strings.HasSuffix(f.Name, "_length") {
		lengthName := f.Name + "_length"
		for _, existing := range s.Fields {
			if existing.Name == lengthName {
				return
			}
		}
		s.Fields = append(s.Fields, Field{Name: lengthName, Type: SizeT})
	}
}

// FieldType looks up the current type of a field by name.
func (s *Struct) FieldType(name string) (Type, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f.Type, true
		}
	}
	return Type{}, false
}

// UpgradeField widens an existing field's type if next is a strict
// upgrade over its current type, per the upgrade lattice (spec.md §4.1).
// It returns the resulting type.
func (s *Struct) UpgradeField(name string, next Type, upgrade func(existing, next Type) Type) Type {
	for i, f := range s.Fields {
		if f.Name == name {
			s.Fields[i].Type = upgrade(f.Type, next)
			return s.Fields[i].Type
		}
	}
	return next
}

// Parameter is a function parameter. Invariant (spec.md §3): every
// pointer/array parameter is immediately followed by its
// "<name>_length: size_t" companion.
type Parameter struct {
	Name string
	Type Type
}

// Function is a free function -- a promoted method, a `_new`
// constructor, or a top-level function (spec.md §3).
type Function struct {
	Name       string
	ReturnType Type
	Parameters []Parameter
	Body       []string
}

// AddParameter appends p and its length companion if needed, mirroring
// Struct.AddField's pairing rule.
func (fn *Function) AddParameter(p Parameter) {
	fn.Parameters = append(fn.Parameters, p)
	if p.Type.IsPointerLike() && !strings.HasSuffix(p.Name, "_length") {
		fn.Parameters = append(fn.Parameters, Parameter{Name: p.Name + "_length", Type: SizeT})
	}
}

// Emit appends one or more already-formatted C statements to the
// function body.
func (fn *Function) Emit(stmt ...string) {
	fn.Body = append(fn.Body, stmt...)
}

// Global is a module-scope variable or promoted static class field.
type Global struct {
	Name string
	Type Type
	Init string
}

// Define is a preprocessor object-like macro, e.g. the `<NAME>_length`
// macro spec.md §8 requires for frozen module-scope arrays.
type Define struct {
	Name  string
	Value string
}

// File is the single output artifact of one Transform call (spec.md §3,
// §6): includes, defines, struct definitions, globals and functions, in
// emission order. Struct emission order is load-bearing: a struct must
// be pushed before any struct or function that references it by pointer
// (spec.md §3, §5, §8 invariant 7).
type File struct {
	Includes  []string
	Defines   []Define
	Structs   []*Struct
	Globals   []*Global
	Functions []*Function

	includeSet map[string]bool
}

// AddInclude appends header idempotently (the "lazy on first use" rule
// from spec.md §3: e.g. math.h is added on first Math.* call).
func (f *File) AddInclude(header string) {
	if f.includeSet == nil {
		f.includeSet = make(map[string]bool)
		for _, h := range f.Includes {
			f.includeSet[h] = true
		}
	}
	if f.includeSet[header] {
		return
	}
	f.includeSet[header] = true
	f.Includes = append(f.Includes, header)
}

// AddStruct appends a struct. Callers are responsible for pushing
// dependency structs first (spec.md §3 invariant / §8 invariant 7).
func (f *File) AddStruct(s *Struct) {
	f.Structs = append(f.Structs, s)
}

// StructByName finds a previously pushed struct.
func (f *File) StructByName(name string) (*Struct, bool) {
	for _, s := range f.Structs {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}

// AddFunction appends a function. The spec allows method functions to be
// pushed as soon as their owning struct exists (spec.md §3: "_new
// emission happens after the struct's methods").
func (f *File) AddFunction(fn *Function) {
	f.Functions = append(f.Functions, fn)
}

// FunctionByName looks up a previously registered function, used for
// call-site return-type inference (spec.md §3 "functions" scratch state).
func (f *File) FunctionByName(name string) (*Function, bool) {
	for _, fn := range f.Functions {
		if fn.Name == name {
			return fn, true
		}
	}
	return nil, false
}

// AddGlobal appends a module-scope global.
func (f *File) AddGlobal(g *Global) {
	f.Globals = append(f.Globals, g)
}

// AddDefine appends a macro define.
func (f *File) AddDefine(d Define) {
	f.Defines = append(f.Defines, d)
}
