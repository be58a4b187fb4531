package feature

import (
	"errors"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/habeanf/beamtag/util"
)

const NULL_STRING = "*null*"

// Normalise strips diacritics and lowercases s for the given locale.
// Casers and transformers are stateful, so one is built per call.
func Normalise(locale language.Tag, s string) (string, error) {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		return "", err
	}
	return cases.Lower(locale).String(stripped), nil
}

func stringFn(f func(s string) interface{}, out Type) Builder {
	return unary(StringType, out, func(x *Result) (interface{}, error) {
		return f(x.Str()), nil
	})
}

func stringPair(f func(a, b string) bool) Builder {
	return Builder{
		Args: []Type{StringType, StringType},
		Build: func(name string, args []Feature) (Feature, error) {
			return NewFunction(name, BooleanType, args, func(ctx Context, env *Env, args []Feature) (interface{}, bool, error) {
				ops, ok, err := Operands(ctx, env, args)
				if !ok {
					return nil, false, err
				}
				return f(ops[0].Str(), ops[1].Str()), true, nil
			}), nil
		},
	}
}

func stringInt(f func(s string, n int) string) Builder {
	return Builder{
		Args: []Type{StringType, IntegerType},
		Build: func(name string, args []Feature) (Feature, error) {
			return NewFunction(name, StringType, args, func(ctx Context, env *Env, args []Feature) (interface{}, bool, error) {
				ops, ok, err := Operands(ctx, env, args)
				if !ok {
					return nil, false, err
				}
				return f(ops[0].Str(), ops[1].Int()), true, nil
			}), nil
		},
	}
}

func concat(skipNulls bool) Builder {
	return Builder{
		Args:     []Type{AnyType, AnyType},
		Variadic: true,
		Build: func(name string, args []Feature) (Feature, error) {
			return NewFunction(name, StringType, args, func(ctx Context, env *Env, args []Feature) (interface{}, bool, error) {
				parts := make([]string, len(args))
				for i, arg := range args {
					r, err := Eval(arg, ctx, env)
					if err != nil {
						return nil, false, err
					}
					if r == nil {
						if !skipNulls {
							return nil, false, nil
						}
						parts[i] = NULL_STRING
						continue
					}
					parts[i] = r.Text()
				}
				return strings.Join(parts, "|"), true, nil
			}), nil
		},
	}
}

// localeFn reads the registry locale when the feature is built
func localeFn(r *Registry, f func(locale language.Tag, s string) (string, error)) Builder {
	return Builder{
		Args: []Type{StringType},
		Build: func(name string, args []Feature) (Feature, error) {
			locale := r.Locale
			return unary(StringType, StringType, func(x *Result) (interface{}, error) {
				return f(locale, x.Str())
			}).Build(name, args)
		},
	}
}

func registerStringFunctions(r *Registry) {
	r.Register("Concat", concat(false))
	r.Register("ConcatNoNulls", concat(true))
	r.Register("Lower", localeFn(r, func(locale language.Tag, s string) (string, error) {
		return cases.Lower(locale).String(s), nil
	}))
	r.Register("Upper", localeFn(r, func(locale language.Tag, s string) (string, error) {
		return cases.Upper(locale).String(s), nil
	}))
	r.Register("Normalise", localeFn(r, Normalise))
	r.Register("Length", stringFn(func(s string) interface{} {
		return utf8.RuneCountInString(s)
	}, IntegerType))
	r.Register("Signature", stringFn(func(s string) interface{} {
		return util.Signature(s)
	}, StringType))
	r.Register("ToString", unary(AnyType, StringType, func(x *Result) (interface{}, error) {
		return x.Text(), nil
	}))
	r.Register("Prefix", stringInt(util.Prefix))
	r.Register("Suffix", stringInt(util.Suffix))
	r.Register("StartsWith", stringPair(strings.HasPrefix))
	r.Register("EndsWith", stringPair(strings.HasSuffix))
	r.Register("Contains", stringPair(strings.Contains))
	r.Register("Substring", Builder{
		Args: []Type{StringType, IntegerType, IntegerType},
		Build: func(name string, args []Feature) (Feature, error) {
			return NewFunction(name, StringType, args, func(ctx Context, env *Env, args []Feature) (interface{}, bool, error) {
				ops, ok, err := Operands(ctx, env, args)
				if !ok {
					return nil, false, err
				}
				return util.Substring(ops[0].Str(), ops[1].Int(), ops[2].Int()), true, nil
			}), nil
		},
	})
	r.Register("Regex", Builder{
		Args: []Type{StringType, StringType},
		Build: func(name string, args []Feature) (Feature, error) {
			pattern, ok := Constant(args[1])
			if !ok {
				return nil, errors.New("regex must be a string literal")
			}
			re, err := regexp.Compile(pattern.(string))
			if err != nil {
				return nil, err
			}
			return NewFunction(name, BooleanType, args[:1], func(ctx Context, env *Env, args []Feature) (interface{}, bool, error) {
				ops, ok, err := Operands(ctx, env, args)
				if !ok {
					return nil, false, err
				}
				return re.MatchString(ops[0].Str()), true, nil
			}), nil
		},
	})
}
