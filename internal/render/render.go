// Package render is a minimal convenience C-AST-to-text renderer. It is
// not the production emitter spec.md §1 places out of scope -- it exists
// only so cmd/ilc2c has something runnable to write to disk for a smoke
// test, the same way go/ssa ships a debug-only text printer
// (ssa.WriteFunction) alongside its real, pluggable build pipeline.
package render

import (
	"fmt"
	"strings"

	"github.com/Hawkynt/Hawkynt.github.io-sub003/cast"
)

// File renders f as a single C translation unit.
func File(f *cast.File) string {
	var b strings.Builder
	for _, h := range f.Includes {
		fmt.Fprintf(&b, "#include <%s>\n", h)
	}
	if len(f.Includes) > 0 {
		b.WriteString("\n")
	}
	for _, d := range f.Defines {
		if d.Value == "" {
			fmt.Fprintf(&b, "%s\n", d.Name)
			continue
		}
		fmt.Fprintf(&b, "#define %s %s\n", d.Name, d.Value)
	}
	if len(f.Defines) > 0 {
		b.WriteString("\n")
	}
	for _, s := range f.Structs {
		b.WriteString(Struct(s))
		b.WriteString("\n")
	}
	for _, g := range f.Globals {
		b.WriteString(Global(g))
		b.WriteString("\n")
	}
	if len(f.Globals) > 0 {
		b.WriteString("\n")
	}
	for _, fn := range f.Functions {
		b.WriteString(Function(fn))
		b.WriteString("\n")
	}
	return b.String()
}

// Struct renders one struct definition, typedef'd to its own name, the
// way the spec's acceptance scenarios expect promoted classes to emit.
func Struct(s *cast.Struct) string {
	var b strings.Builder
	prefix := "struct"
	if s.IsTypedef {
		prefix = "typedef struct"
	}
	fmt.Fprintf(&b, "%s %s {\n", prefix, s.Name)
	for _, f := range s.Fields {
		fmt.Fprintf(&b, "  %s;\n", fieldDecl(f))
	}
	if s.IsTypedef {
		fmt.Fprintf(&b, "} %s;\n", s.Name)
	} else {
		b.WriteString("};\n")
	}
	for _, stmt := range s.StaticInitStatements {
		fmt.Fprintf(&b, "%s\n", stmt)
	}
	return b.String()
}

func fieldDecl(f cast.Field) string {
	return declOf(f.Type, f.Name)
}

// declOf renders a C declaration for name with type t, placing array
// brackets after the identifier as C requires (e.g. "uint8_t buf[16]"
// rather than "uint8_t[16] buf").
func declOf(t cast.Type, name string) string {
	var b strings.Builder
	if t.IsConst {
		b.WriteString("const ")
	}
	if t.IsStatic {
		b.WriteString("static ")
	}
	b.WriteString(t.BaseName)
	if t.IsPointer {
		b.WriteString(" ")
		b.WriteString(strings.Repeat("*", t.PointerLevel))
		b.WriteString(name)
	} else {
		b.WriteString(" ")
		b.WriteString(name)
	}
	if t.IsArray {
		if t.ArraySize > 0 {
			fmt.Fprintf(&b, "[%d]", t.ArraySize)
		} else {
			b.WriteString("[]")
		}
		if t.ElementType != nil && t.ElementType.IsArray {
			if t.ElementType.ArraySize > 0 {
				fmt.Fprintf(&b, "[%d]", t.ElementType.ArraySize)
			} else {
				b.WriteString("[]")
			}
		}
	}
	return b.String()
}

// Global renders one module-scope global declaration, with its
// initializer if present.
func Global(g *cast.Global) string {
	decl := declOf(g.Type, g.Name)
	if g.Init == "" {
		return decl + ";"
	}
	return fmt.Sprintf("%s = %s;", decl, g.Init)
}

// Function renders one function's signature and body.
func Function(fn *cast.Function) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s(%s) {\n", fn.ReturnType.String(), fn.Name, paramList(fn.Parameters))
	for _, stmt := range fn.Body {
		fmt.Fprintf(&b, "  %s\n", stmt)
	}
	b.WriteString("}\n")
	return b.String()
}

func paramList(params []cast.Parameter) string {
	if len(params) == 0 {
		return "void"
	}
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = declOf(p.Type, p.Name)
	}
	return strings.Join(parts, ", ")
}
