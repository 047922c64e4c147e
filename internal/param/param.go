package param

import (
	"fmt"
	"sort"

	"github.com/san-kum/ctrlenv/internal/dynamo"
)

// Kind is the value type of a parameter, fixed by its default.
type Kind int

const (
	Float Kind = iota
	Vector
	Bool
	String
)

func (k Kind) String() string {
	switch k {
	case Float:
		return "float"
	case Vector:
		return "vector"
	case Bool:
		return "bool"
	case String:
		return "string"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Param is one named, described configuration entry.
type Param struct {
	Name        string
	Value       any
	Description string
}

func F(name string, value float64, description string) Param {
	return Param{Name: name, Value: value, Description: description}
}

func V(name string, value []float64, description string) Param {
	return Param{Name: name, Value: value, Description: description}
}

func B(name string, value bool, description string) Param {
	return Param{Name: name, Value: value, Description: description}
}

func S(name string, value string, description string) Param {
	return Param{Name: name, Value: value, Description: description}
}

// Set is an ordered collection of parameters with unique names. The set of
// names is fixed at construction; overrides only change values.
type Set struct {
	params []Param
	kinds  []Kind
	index  map[string]int
}

// New builds a Set from defaults. It panics on a duplicate name or an
// unsupported value type, both of which are programming errors.
func New(defaults ...Param) *Set {
	s := &Set{
		params: make([]Param, 0, len(defaults)),
		kinds:  make([]Kind, 0, len(defaults)),
		index:  make(map[string]int, len(defaults)),
	}
	for _, p := range defaults {
		if _, dup := s.index[p.Name]; dup {
			panic(fmt.Sprintf("param: duplicate parameter %q", p.Name))
		}
		kind, ok := kindOf(p.Value)
		if !ok {
			panic(fmt.Sprintf("param: unsupported default type %T for %q", p.Value, p.Name))
		}
		v, _ := normalize(kind, p.Value)
		s.index[p.Name] = len(s.params)
		s.params = append(s.params, Param{Name: p.Name, Value: v, Description: p.Description})
		s.kinds = append(s.kinds, kind)
	}
	return s
}

func (s *Set) Len() int { return len(s.params) }

func (s *Set) Names() []string {
	names := make([]string, len(s.params))
	for i, p := range s.params {
		names[i] = p.Name
	}
	return names
}

// Params returns a copy of the entries in declaration order.
func (s *Set) Params() []Param {
	out := make([]Param, len(s.params))
	for i, p := range s.params {
		out[i] = Param{Name: p.Name, Value: copyValue(p.Value), Description: p.Description}
	}
	return out
}

func (s *Set) Has(name string) bool {
	_, ok := s.index[name]
	return ok
}

func (s *Set) Kind(name string) (Kind, bool) {
	i, ok := s.index[name]
	if !ok {
		return 0, false
	}
	return s.kinds[i], true
}

func (s *Set) Get(name string) (any, bool) {
	i, ok := s.index[name]
	if !ok {
		return nil, false
	}
	return copyValue(s.params[i].Value), true
}

// Float returns the value of a float parameter, or 0 when name is not a float.
func (s *Set) Float(name string) float64 {
	v, _ := s.lookup(name, Float).(float64)
	return v
}

// Vector returns a copy of a vector parameter.
func (s *Set) Vector(name string) []float64 {
	v, _ := s.lookup(name, Vector).([]float64)
	out := make([]float64, len(v))
	copy(out, v)
	return out
}

func (s *Set) Bool(name string) bool {
	v, _ := s.lookup(name, Bool).(bool)
	return v
}

// Text returns the value of a string parameter.
func (s *Set) Text(name string) string {
	v, _ := s.lookup(name, String).(string)
	return v
}

func (s *Set) lookup(name string, kind Kind) any {
	i, ok := s.index[name]
	if !ok || s.kinds[i] != kind {
		return nil
	}
	return s.params[i].Value
}

// Set assigns one value. Unknown names and kind mismatches fail with
// dynamo.ErrConfiguration.
func (s *Set) Set(name string, value any) error {
	return s.Override(map[string]any{name: value})
}

// Override assigns every value in values. It validates all entries before
// changing anything, so a failed override leaves the set untouched.
func (s *Set) Override(values map[string]any) error {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pending := make(map[int]any, len(values))
	for _, k := range keys {
		i, ok := s.index[k]
		if !ok {
			return fmt.Errorf("%w: unknown parameter %q", dynamo.ErrConfiguration, k)
		}
		v, err := normalize(s.kinds[i], values[k])
		if err != nil {
			return fmt.Errorf("%w: parameter %q: %v", dynamo.ErrConfiguration, k, err)
		}
		pending[i] = v
	}
	for i, v := range pending {
		s.params[i].Value = v
	}
	return nil
}

// Map is a read-only snapshot of name -> value.
func (s *Set) Map() map[string]any {
	out := make(map[string]any, len(s.params))
	for _, p := range s.params {
		out[p.Name] = copyValue(p.Value)
	}
	return out
}

func (s *Set) Clone() *Set {
	return New(s.Params()...)
}

// Equal reports whether both sets hold the same names in the same order with
// identical values. Descriptions are ignored.
func (s *Set) Equal(other *Set) bool {
	if other == nil || len(s.params) != len(other.params) {
		return false
	}
	for i, p := range s.params {
		q := other.params[i]
		if p.Name != q.Name || !valueEqual(p.Value, q.Value) {
			return false
		}
	}
	return true
}
