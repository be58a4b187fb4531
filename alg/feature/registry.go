package feature

import (
	"strings"

	"golang.org/x/text/language"
)

// BuildFunc constructs a feature from compiled, type-checked arguments.
// name is the canonical text of the call.
type BuildFunc func(name string, args []Feature) (Feature, error)

// A Builder is the static signature of one descriptor function
type Builder struct {
	Args     []Type
	Optional int  // trailing Args that may be omitted
	Variadic bool // the last Args entry repeats
	Build    BuildFunc
}

func (b Builder) arity(n int) bool {
	min := len(b.Args) - b.Optional
	if b.Variadic {
		return n >= min
	}
	return n >= min && n <= len(b.Args)
}

func (b Builder) param(i int) Type {
	if i >= len(b.Args) {
		return b.Args[len(b.Args)-1]
	}
	return b.Args[i]
}

// Registry maps descriptor function names to builders. Domain packages clone
// the base registry and register their own accessors.
type Registry struct {
	builders  map[string]Builder
	resources map[string]Resource
	Locale    language.Tag
}

// NewRegistry returns a registry holding the base functions
func NewRegistry() *Registry {
	r := &Registry{
		builders:  make(map[string]Builder),
		resources: make(map[string]Resource),
		Locale:    language.Und,
	}
	registerBase(r)
	return r
}

func (r *Registry) Register(name string, b Builder) {
	r.builders[name] = b
}

func (r *Registry) Lookup(name string) (Builder, bool) {
	b, ok := r.builders[name]
	return b, ok
}

func (r *Registry) AddResource(name string, res Resource) {
	r.resources[name] = res
}

func (r *Registry) Resource(name string) (Resource, bool) {
	res, ok := r.resources[name]
	return res, ok
}

// Clone copies builders and resources so the copy can be extended independently
func (r *Registry) Clone() *Registry {
	c := &Registry{
		builders:  make(map[string]Builder, len(r.builders)),
		resources: make(map[string]Resource, len(r.resources)),
		Locale:    r.Locale,
	}
	for k, v := range r.builders {
		c.builders[k] = v
	}
	for k, v := range r.resources {
		c.resources[k] = v
	}
	// builders registered from here on must see the clone's resources and locale
	registerResourceFunctions(c)
	registerStringFunctions(c)
	return c
}

// Names lists registered function names
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.builders))
	for k := range r.builders {
		names = append(names, k)
	}
	return names
}

func canonical(name string, args []Feature) string {
	names := make([]string, len(args))
	for i, a := range args {
		names[i] = a.Name()
	}
	return name + "(" + strings.Join(names, ",") + ")"
}
