package lower

import "github.com/Hawkynt/Hawkynt.github.io-sub003/cast"

// FunctionSignature is the slice of a cast.Function the type system
// needs for call-site return-type inference (spec.md §3 "functions").
type FunctionSignature struct {
	ReturnType cast.Type
	Parameters []cast.Parameter
}

// Scope holds the transformer-instance-lifetime state from spec.md §3:
// a stack of variable-type maps (push on function/method entry, pop on
// exit) plus the shared lookup tables that every pass consults.
type Scope struct {
	stack []map[string]cast.Type

	StructFieldTypes    map[string]cast.Type         // global field-name -> type
	Functions           map[string]FunctionSignature // function-name -> signature
	ClassNames          map[string]bool              // set of source class names
	StaticClassFields   map[string]string            // "Class.Field" -> module-constant name
	ModuleConstantTypes map[string]cast.Type          // constant name -> type, keyed "Class.Field" too
	EmptyArrayPushTypes map[string]cast.Type          // var name -> inferred element type
	ConstructorDefaults map[string][]string           // class -> positional default values
}

// NewScope constructs an empty Scope with one (module-level) frame.
func NewScope() *Scope {
	s := &Scope{
		StructFieldTypes:    make(map[string]cast.Type),
		Functions:           make(map[string]FunctionSignature),
		ClassNames:          make(map[string]bool),
		StaticClassFields:   make(map[string]string),
		ModuleConstantTypes: make(map[string]cast.Type),
		EmptyArrayPushTypes: make(map[string]cast.Type),
		ConstructorDefaults: make(map[string][]string),
	}
	s.Push()
	return s
}

// Push opens a new variable-type frame, e.g. on function/method entry.
func (s *Scope) Push() {
	s.stack = append(s.stack, make(map[string]cast.Type))
}

// Pop closes the innermost variable-type frame, e.g. on function/method
// exit.
func (s *Scope) Pop() {
	if len(s.stack) > 0 {
		s.stack = s.stack[:len(s.stack)-1]
	}
}

// Declare binds name to t in the innermost frame.
func (s *Scope) Declare(name string, t cast.Type) {
	s.stack[len(s.stack)-1][name] = t
}

// Lookup searches frames innermost-first for name.
func (s *Scope) Lookup(name string) (cast.Type, bool) {
	for i := len(s.stack) - 1; i >= 0; i-- {
		if t, ok := s.stack[i][name]; ok {
			return t, true
		}
	}
	return cast.Type{}, false
}
