// Package feature implements typed feature expressions compiled from a textual
// descriptor grammar and evaluated against a decoding context.
//
// A compiled Feature is immutable and may be shared between goroutines. Results
// are cached per context, so a context (and its cache) must not be shared.
package feature

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

type Type int

const (
	StringType Type = iota
	BooleanType
	DoubleType
	IntegerType
	CollectionType
	AddressType

	// signature-only types, never carried by a result
	NumericType
	AnyType
)

var typeNames = [...]string{"String", "Boolean", "Double", "Integer", "Collection", "Address", "Numeric", "Any"}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "Type(" + strconv.Itoa(int(t)) + ")"
}

// Accepts reports whether a value of type actual can fill a parameter of
// type t, with integers promoted to doubles.
func (t Type) Accepts(actual Type) bool {
	switch t {
	case AnyType:
		return actual != AddressType
	case NumericType:
		return actual == IntegerType || actual == DoubleType
	case DoubleType:
		return actual == IntegerType || actual == DoubleType
	}
	return t == actual
}

// Context is the object a feature is evaluated against: a token being
// tagged, an atom being tokenised, or anything a domain package addresses.
type Context interface {
	// FeatureCache returns the cache scoped to this context, or nil
	FeatureCache() *Cache
}

// Feature is a named, typed, pure function of a context and environment.
// Check returns a nil result when the feature is not applicable.
type Feature interface {
	Name() string
	Type() Type
	Check(ctx Context, env *Env) (*Result, error)
}

// A WeightedValue is one member of a collection result
type WeightedValue struct {
	Value  string
	Weight float64
}

type Result struct {
	Feature string
	Type    Type
	Value   interface{}
}

func (r *Result) Str() string {
	s, _ := r.Value.(string)
	return s
}

func (r *Result) Bool() bool {
	b, _ := r.Value.(bool)
	return b
}

func (r *Result) Int() int {
	switch v := r.Value.(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}

func (r *Result) Float() float64 {
	switch v := r.Value.(type) {
	case int:
		return float64(v)
	case float64:
		return v
	}
	return 0
}

func (r *Result) Items() []WeightedValue {
	items, _ := r.Value.([]WeightedValue)
	return items
}

func (r *Result) Addr() Context {
	ctx, _ := r.Value.(Context)
	return ctx
}

// Text renders the value the way it appears in model feature keys
func (r *Result) Text() string {
	return valueText(r.Type, r.Value)
}

func (r *Result) String() string {
	return r.Feature + "=" + r.Text()
}

func valueText(t Type, v interface{}) string {
	switch t {
	case StringType:
		return v.(string)
	case BooleanType:
		return strconv.FormatBool(v.(bool))
	case IntegerType:
		return strconv.Itoa(v.(int))
	case DoubleType:
		return strconv.FormatFloat(v.(float64), 'g', -1, 64)
	case CollectionType:
		items := v.([]WeightedValue)
		strs := make([]string, len(items))
		for i, item := range items {
			strs[i] = item.Value
		}
		return "[" + strings.Join(strs, ",") + "]"
	}
	return fmt.Sprintf("%v", v)
}

// Env carries evaluation-time variables. Its Key partitions the cache.
type Env struct {
	vars map[string]string
	key  string
}

func NewEnv() *Env {
	return &Env{}
}

// With returns a copy of the environment with name bound to value
func (e *Env) With(name, value string) *Env {
	vars := make(map[string]string, len(e.varsOrNil())+1)
	for k, v := range e.varsOrNil() {
		vars[k] = v
	}
	vars[name] = value
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + vars[k]
	}
	return &Env{vars: vars, key: strings.Join(parts, ";")}
}

func (e *Env) varsOrNil() map[string]string {
	if e == nil {
		return nil
	}
	return e.vars
}

func (e *Env) Var(name string) (string, bool) {
	v, ok := e.varsOrNil()[name]
	return v, ok
}

func (e *Env) Key() string {
	if e == nil {
		return ""
	}
	return e.key
}

// DescriptorSyntaxError reports malformed descriptor text
type DescriptorSyntaxError struct {
	Descriptor string
	Pos        int
	Msg        string
}

func (e *DescriptorSyntaxError) Error() string {
	return fmt.Sprintf("descriptor syntax error at %d: %s in %q", e.Pos, e.Msg, e.Descriptor)
}

// FeatureSyntaxError reports a well-formed descriptor that does not resolve:
// unknown names, wrong arity or mismatched argument types.
type FeatureSyntaxError struct {
	Descriptor string
	Name       string
	Msg        string
}

func (e *FeatureSyntaxError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("feature syntax error: %s in %q", e.Msg, e.Descriptor)
	}
	return fmt.Sprintf("feature syntax error: %s: %s in %q", e.Name, e.Msg, e.Descriptor)
}

// EvaluationError is a genuine failure while checking a feature
type EvaluationError struct {
	Feature string
	Err     error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("evaluating %s: %v", e.Feature, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	return e.Err
}
