package lower

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// cReservedWords are C keywords plus the stdint/stdio identifiers the
// emitted source is guaranteed to see in scope (spec.md §4.6).
var cReservedWords = map[string]bool{
	"auto": true, "break": true, "case": true, "char": true, "const": true,
	"continue": true, "default": true, "do": true, "double": true, "else": true,
	"enum": true, "extern": true, "float": true, "for": true, "goto": true,
	"if": true, "inline": true, "int": true, "long": true, "register": true,
	"restrict": true, "return": true, "short": true, "signed": true, "sizeof": true,
	"static": true, "struct": true, "switch": true, "typedef": true, "union": true,
	"unsigned": true, "void": true, "volatile": true, "while": true,
	"int8_t": true, "int16_t": true, "int32_t": true, "int64_t": true,
	"uint8_t": true, "uint16_t": true, "uint32_t": true, "uint64_t": true,
	"size_t": true, "bool": true, "true": true, "false": true, "NULL": true,
	"stdin": true, "stdout": true, "stderr": true, "errno": true,
}

// cMacroNames are runtime-helper macro names that would collide with a
// mangled function name of the same spelling (spec.md §4.6).
var cMacroNames = map[string]bool{
	"to_byte": true, "xor_n": true, "rotl32": true, "rotr32": true,
	"get_bit": true, "set_bit": true, "set_bit_value": true, "clear_bit": true,
	"ARRAY_PUSH": true,
}

// NameMangler converts source identifiers to C-safe names and keeps the
// rename table that lets later passes recover a mangled name for a
// source name (spec.md §4.6, §3 "renamed_variables").
type NameMangler struct {
	renamed map[string]string // source name -> C name
	upper   cases.Caser
}

// NewNameMangler constructs an empty mangler.
func NewNameMangler() *NameMangler {
	return &NameMangler{
		renamed: make(map[string]string),
		upper:   cases.Upper(language.Und),
	}
}

// SnakeCase converts camelCase/PascalCase/kebab-case to snake_case. An
// identifier that is already all-uppercase (a module constant) is
// returned unchanged, per spec.md §4.6 "names preserved verbatim".
func SnakeCase(s string) string {
	if s == "" {
		return s
	}
	if isAllUpper(s) {
		return s
	}
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if r == '-' {
			b.WriteByte('_')
			continue
		}
		if unicode.IsUpper(r) {
			prevLower := i > 0 && (unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1]))
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if i > 0 && (prevLower || (nextLower && unicode.IsUpper(runes[i-1]))) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isAllUpper(s string) bool {
	seenLetter := false
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) {
			seenLetter = true
		}
	}
	return seenLetter
}

// PascalCase converts snake_case/camelCase to PascalCase.
func PascalCase(s string) string {
	parts := splitWords(s)
	var b strings.Builder
	for _, p := range parts {
		if p == "" {
			continue
		}
		r := []rune(p)
		b.WriteRune(unicode.ToUpper(r[0]))
		b.WriteString(strings.ToLower(string(r[1:])))
	}
	return b.String()
}

// ScreamingSnakeCase converts any identifier to SCREAMING_SNAKE_CASE
// using a Unicode-aware upper-caser (spec.md §4.6), matching how static
// class fields are globalized (spec.md §4.2 "Static fields").
func (m *NameMangler) ScreamingSnakeCase(s string) string {
	return m.upper.String(SnakeCase(s))
}

func splitWords(s string) []string {
	s = SnakeCase(s)
	return strings.FieldsFunc(s, func(r rune) bool { return r == '_' })
}

// EscapeReserved appends an underscore if name collides with a C
// keyword or stdint/stdio identifier (spec.md §4.6).
func EscapeReserved(name string) string {
	if cReservedWords[name] {
		return name + "_"
	}
	return name
}

// EscapeMacroCollision appends "_fn" if a mangled function name would
// collide with a runtime-helper macro name (spec.md §4.6).
func EscapeMacroCollision(name string) string {
	if cMacroNames[name] {
		return name + "_fn"
	}
	return name
}

// MangleVariable returns the C name for a source identifier, registering
// the mapping so later references to the same source name resolve
// consistently (spec.md §3 "renamed_variables").
func (m *NameMangler) MangleVariable(source string) string {
	if c, ok := m.renamed[source]; ok {
		return c
	}
	c := EscapeReserved(SnakeCase(source))
	m.renamed[source] = c
	return c
}

// Override replaces a previously mangled name's C spelling, so later
// references to the same source name resolve to the corrected spelling
// too. Used by shadow-avoidance (AvoidShadow) once a conflict is
// detected (spec.md §4.6).
func (m *NameMangler) Override(source, cName string) {
	m.renamed[source] = cName
}

// ResolveVariable looks up a previously mangled name without creating a
// new mapping; it returns the snake_case default if none was recorded.
func (m *NameMangler) ResolveVariable(source string) string {
	if c, ok := m.renamed[source]; ok {
		return c
	}
	return EscapeReserved(SnakeCase(source))
}

// AvoidShadow returns name suffixed with "_val" if it collides with the
// name of a function being called in its own initializer, per spec.md
// §4.6 "Local variables whose name matches the name of a function being
// called in the initializer get _val suffix to avoid shadowing the call."
func AvoidShadow(name string, calleeNames map[string]bool) string {
	if calleeNames[name] {
		return name + "_val"
	}
	return name
}

// MethodName mangles a method name, owning-struct-prefixed, per spec.md
// §4.2 "Method naming": snake(StructName + "_" + methodName), with an
// accessor suffix for getter/setter methods.
func MethodName(structName, method string, accessor string) string {
	name := SnakeCase(structName) + "_" + SnakeCase(method)
	if accessor != "" {
		name += "_" + accessor
	}
	return EscapeMacroCollision(EscapeReserved(name))
}

// ConstructorName returns the mangled name of a struct's `_new`
// constructor.
func ConstructorName(structName string) string {
	return SnakeCase(structName) + "_new"
}

// StaticFieldName mangles "Class.Field" to the SCREAMING(Class)_SCREAMING(Field)
// module constant name (spec.md §4.2 "Static fields").
func (m *NameMangler) StaticFieldName(class, field string) string {
	return m.ScreamingSnakeCase(class) + "_" + m.ScreamingSnakeCase(field)
}
