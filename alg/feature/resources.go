package feature

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/orsinium-labs/stopwords"
	"golang.org/x/text/cases"

	"github.com/habeanf/beamtag/util/conf"
)

// Resource is an external lookup table addressed by one or more keys
type Resource interface {
	Lookup(keys ...string) (string, bool, error)
}

// TableResource is a tab-separated table: key columns followed by a value
type TableResource struct {
	Name    string
	Columns int
	rows    map[string]string
}

const keySeparator = "\x1f"

func (t *TableResource) Lookup(keys ...string) (string, bool, error) {
	if len(keys) != t.Columns {
		return "", false, fmt.Errorf("resource %s takes %d keys, got %d", t.Name, t.Columns, len(keys))
	}
	v, ok := t.rows[strings.Join(keys, keySeparator)]
	return v, ok, nil
}

func (t *TableResource) Len() int {
	return len(t.rows)
}

// LoadTableResource reads key1 \t ... \t keyN \t value lines. Every line must
// have the same number of fields.
func LoadTableResource(name string, reader io.Reader) (*TableResource, error) {
	c, err := conf.Read(reader)
	if err != nil {
		return nil, err
	}
	t := &TableResource{Name: name, rows: make(map[string]string, len(c.Lines))}
	for _, line := range c.Lines {
		fields := line.Fields()
		if len(fields) < 2 {
			return nil, fmt.Errorf("resource %s line %d: need at least a key and a value", name, line.Num)
		}
		if t.Columns == 0 {
			t.Columns = len(fields) - 1
		} else if len(fields)-1 != t.Columns {
			return nil, fmt.Errorf("resource %s line %d: expected %d keys, got %d", name, line.Num, t.Columns, len(fields)-1)
		}
		t.rows[strings.Join(fields[:t.Columns], keySeparator)] = fields[t.Columns]
	}
	return t, nil
}

func stringConstant(f Feature, what string) (string, error) {
	v, ok := Constant(f)
	if !ok {
		return "", errors.New(what + " must be a string literal")
	}
	return v.(string), nil
}

func loadStopwords(lang string) (*stopwords.Stopwords, error) {
	if len(lang) < 2 {
		return nil, fmt.Errorf("no stopwords for language %q", lang)
	}
	sw := stopwords.Get(lang)
	if sw == nil {
		return nil, fmt.Errorf("no stopwords for language %q", lang)
	}
	return sw, nil
}

func registerResourceFunctions(r *Registry) {
	r.Register("ExternalResource", Builder{
		Args:     []Type{StringType, StringType},
		Variadic: true,
		Build: func(name string, args []Feature) (Feature, error) {
			resName, err := stringConstant(args[0], "resource name")
			if err != nil {
				return nil, err
			}
			res, ok := r.Resource(resName)
			if !ok {
				return nil, fmt.Errorf("unknown resource %q", resName)
			}
			return NewFunction(name, StringType, args[1:], func(ctx Context, env *Env, args []Feature) (interface{}, bool, error) {
				ops, ok, err := Operands(ctx, env, args)
				if !ok {
					return nil, false, err
				}
				keys := make([]string, len(ops))
				for i, op := range ops {
					keys[i] = op.Str()
				}
				v, found, err := res.Lookup(keys...)
				return v, found, err
			}), nil
		},
	})
	r.Register("InSet", Builder{
		Args: []Type{StringType, StringType},
		Build: func(name string, args []Feature) (Feature, error) {
			resName, err := stringConstant(args[1], "resource name")
			if err != nil {
				return nil, err
			}
			res, ok := r.Resource(resName)
			if !ok {
				return nil, fmt.Errorf("unknown resource %q", resName)
			}
			return NewFunction(name, BooleanType, args[:1], func(ctx Context, env *Env, args []Feature) (interface{}, bool, error) {
				ops, ok, err := Operands(ctx, env, args)
				if !ok {
					return nil, false, err
				}
				_, found, err := res.Lookup(ops[0].Str())
				return found, err == nil, err
			}), nil
		},
	})
	r.Register("StopWord", Builder{
		Args: []Type{StringType, StringType},
		Build: func(name string, args []Feature) (Feature, error) {
			lang, err := stringConstant(args[1], "language")
			if err != nil {
				return nil, err
			}
			sw, err := loadStopwords(lang)
			if err != nil {
				return nil, err
			}
			locale := r.Locale
			return NewFunction(name, BooleanType, args[:1], func(ctx Context, env *Env, args []Feature) (interface{}, bool, error) {
				ops, ok, err := Operands(ctx, env, args)
				if !ok {
					return nil, false, err
				}
				return sw.Contains(cases.Lower(locale).String(ops[0].Str())), true, nil
			}), nil
		},
	})
}
