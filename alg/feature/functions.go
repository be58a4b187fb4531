package feature

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

type literal struct {
	name  string
	typ   Type
	value interface{}
}

func (l *literal) uncached() {}

func (l *literal) Name() string { return l.name }
func (l *literal) Type() Type   { return l.typ }

func (l *literal) Check(ctx Context, env *Env) (*Result, error) {
	return &Result{Feature: l.name, Type: l.typ, Value: l.value}, nil
}

// Literal wraps a constant string, bool, int or float64
func Literal(v interface{}) Feature {
	switch val := v.(type) {
	case string:
		return &literal{strconv.Quote(val), StringType, val}
	case bool:
		return &literal{strconv.FormatBool(val), BooleanType, val}
	case int:
		return &literal{strconv.Itoa(val), IntegerType, val}
	case float64:
		return &literal{strconv.FormatFloat(val, 'g', -1, 64), DoubleType, val}
	}
	panic(fmt.Sprintf("unsupported literal %T", v))
}

// Constant returns the value of a literal feature
func Constant(f Feature) (interface{}, bool) {
	if l, ok := f.(*literal); ok {
		return l.value, true
	}
	return nil, false
}

type named struct {
	name  string
	inner Feature
}

// Named gives f a new name; its results are reported under that name
func Named(name string, f Feature) Feature {
	return &named{name, f}
}

func (n *named) Name() string { return n.name }
func (n *named) Type() Type   { return n.inner.Type() }

func (n *named) Check(ctx Context, env *Env) (*Result, error) {
	r, err := Eval(n.inner, ctx, env)
	if r == nil || err != nil {
		return nil, err
	}
	return &Result{Feature: n.name, Type: r.Type, Value: r.Value}, nil
}

func promote(f Feature) Feature {
	return &function{
		name: "ToDouble(" + f.Name() + ")",
		typ:  DoubleType,
		args: []Feature{f},
		eval: func(ctx Context, env *Env, args []Feature) (interface{}, bool, error) {
			ops, ok, err := Operands(ctx, env, args)
			if !ok {
				return nil, false, err
			}
			return ops[0].Float(), true, nil
		},
	}
}

// EvalFunc computes a function value. ok is false when not applicable.
type EvalFunc func(ctx Context, env *Env, args []Feature) (value interface{}, ok bool, err error)

type function struct {
	name string
	typ  Type
	args []Feature
	eval EvalFunc
}

// NewFunction builds a feature from an evaluation function over its arguments
func NewFunction(name string, typ Type, args []Feature, eval EvalFunc) Feature {
	return &function{name, typ, args, eval}
}

func (f *function) Name() string { return f.name }
func (f *function) Type() Type   { return f.typ }

func (f *function) Check(ctx Context, env *Env) (*Result, error) {
	v, ok, err := f.eval(ctx, env, f.args)
	if err != nil {
		var evalErr *EvaluationError
		if errors.As(err, &evalErr) {
			return nil, err
		}
		return nil, &EvaluationError{Feature: f.name, Err: err}
	}
	if !ok {
		return nil, nil
	}
	return &Result{Feature: f.name, Type: f.typ, Value: v}, nil
}

// Operands evaluates every argument; ok is false as soon as one is not applicable
func Operands(ctx Context, env *Env, args []Feature) ([]*Result, bool, error) {
	res := make([]*Result, len(args))
	for i, a := range args {
		r, err := Eval(a, ctx, env)
		if err != nil {
			return nil, false, err
		}
		if r == nil {
			return nil, false, nil
		}
		res[i] = r
	}
	return res, true, nil
}

// Resolve evaluates an optional address argument, defaulting to ctx
func Resolve(ctx Context, env *Env, addr Feature) (Context, bool, error) {
	if addr == nil {
		return ctx, true, nil
	}
	r, err := Eval(addr, ctx, env)
	if r == nil || err != nil {
		return nil, false, err
	}
	target := r.Addr()
	return target, target != nil, nil
}

// AccessorFunc reads a value straight off a context
type AccessorFunc func(ctx Context, env *Env) (value interface{}, ok bool, err error)

// Accessor builds a function of an optional Address argument. The value is
// read from the addressed context and cached there under the bare call name.
func Accessor(typ Type, get AccessorFunc) Builder {
	return Builder{
		Args:     []Type{AddressType},
		Optional: 1,
		Build: func(name string, args []Feature) (Feature, error) {
			bare := name
			if i := strings.IndexByte(name, '('); i >= 0 {
				bare = name[:i] + "()"
			}
			local := NewFunction(bare, typ, nil, func(ctx Context, env *Env, _ []Feature) (interface{}, bool, error) {
				return get(ctx, env)
			})
			if len(args) == 0 {
				return local, nil
			}
			return NewFunction(name, typ, args, func(ctx Context, env *Env, args []Feature) (interface{}, bool, error) {
				target, ok, err := Resolve(ctx, env, args[0])
				if !ok {
					return nil, false, err
				}
				r, err := Eval(local, target, env)
				if r == nil || err != nil {
					return nil, false, err
				}
				return r.Value, true, nil
			}), nil
		},
	}
}

func numericResult(args []Feature) Type {
	for _, a := range args {
		if a.Type() == DoubleType {
			return DoubleType
		}
	}
	return IntegerType
}

func arithmetic(op string) Builder {
	return Builder{
		Args: []Type{NumericType, NumericType},
		Build: func(name string, args []Feature) (Feature, error) {
			typ := numericResult(args)
			if op == "%" && typ != IntegerType {
				return nil, errors.New("modulo needs integer operands")
			}
			return NewFunction(name, typ, args, func(ctx Context, env *Env, args []Feature) (interface{}, bool, error) {
				ops, ok, err := Operands(ctx, env, args)
				if !ok {
					return nil, false, err
				}
				if typ == IntegerType {
					a, b := ops[0].Int(), ops[1].Int()
					switch op {
					case "+":
						return a + b, true, nil
					case "-":
						return a - b, true, nil
					case "*":
						return a * b, true, nil
					case "/", "%":
						if b == 0 {
							return nil, false, errors.New("division by zero")
						}
						if op == "/" {
							return a / b, true, nil
						}
						return a % b, true, nil
					}
				}
				a, b := ops[0].Float(), ops[1].Float()
				switch op {
				case "+":
					return a + b, true, nil
				case "-":
					return a - b, true, nil
				case "*":
					return a * b, true, nil
				}
				if b == 0 {
					return nil, false, errors.New("division by zero")
				}
				return a / b, true, nil
			}), nil
		},
	}
}

func comparison(op string) Builder {
	return Builder{
		Args: []Type{NumericType, NumericType},
		Build: func(name string, args []Feature) (Feature, error) {
			return NewFunction(name, BooleanType, args, func(ctx Context, env *Env, args []Feature) (interface{}, bool, error) {
				ops, ok, err := Operands(ctx, env, args)
				if !ok {
					return nil, false, err
				}
				a, b := ops[0].Float(), ops[1].Float()
				switch op {
				case "<":
					return a < b, true, nil
				case ">":
					return a > b, true, nil
				case "<=":
					return a <= b, true, nil
				}
				return a >= b, true, nil
			}), nil
		},
	}
}

func equality(negate bool) Builder {
	return Builder{
		Args: []Type{AnyType, AnyType},
		Build: func(name string, args []Feature) (Feature, error) {
			a, b := args[0].Type(), args[1].Type()
			numeric := NumericType.Accepts(a) && NumericType.Accepts(b)
			if a != b && !numeric {
				return nil, fmt.Errorf("cannot compare %v with %v", a, b)
			}
			return NewFunction(name, BooleanType, args, func(ctx Context, env *Env, args []Feature) (interface{}, bool, error) {
				ops, ok, err := Operands(ctx, env, args)
				if !ok {
					return nil, false, err
				}
				var eq bool
				if numeric {
					eq = ops[0].Float() == ops[1].Float()
				} else {
					eq = ops[0].Text() == ops[1].Text()
				}
				return eq != negate, true, nil
			}), nil
		},
	}
}

func logical(and bool) Builder {
	return Builder{
		Args:     []Type{BooleanType, BooleanType},
		Variadic: true,
		Build: func(name string, args []Feature) (Feature, error) {
			return NewFunction(name, BooleanType, args, func(ctx Context, env *Env, args []Feature) (interface{}, bool, error) {
				for _, arg := range args {
					r, err := Eval(arg, ctx, env)
					if r == nil || err != nil {
						return nil, false, err
					}
					// false short-circuits And, true short-circuits Or
					if r.Bool() != and {
						return !and, true, nil
					}
				}
				return and, true, nil
			}), nil
		},
	}
}

func unary(in, out Type, f func(r *Result) (interface{}, error)) Builder {
	return Builder{
		Args: []Type{in},
		Build: func(name string, args []Feature) (Feature, error) {
			typ := out
			if out == NumericType {
				typ = args[0].Type()
			}
			return NewFunction(name, typ, args, func(ctx Context, env *Env, args []Feature) (interface{}, bool, error) {
				ops, ok, err := Operands(ctx, env, args)
				if !ok {
					return nil, false, err
				}
				v, err := f(ops[0])
				return v, err == nil, err
			}), nil
		},
	}
}

func sameType(args []Feature) error {
	for _, a := range args[1:] {
		if a.Type() != args[0].Type() && !(NumericType.Accepts(a.Type()) && NumericType.Accepts(args[0].Type())) {
			return fmt.Errorf("branches have different types: %v and %v", args[0].Type(), a.Type())
		}
	}
	return nil
}

func branchType(args []Feature) Type {
	if len(args) > 1 && NumericType.Accepts(args[0].Type()) {
		return numericResult(args)
	}
	return args[0].Type()
}

func coerce(typ Type, r *Result) interface{} {
	if typ == DoubleType {
		return r.Float()
	}
	return r.Value
}

func registerBase(r *Registry) {
	r.Register("Plus", arithmetic("+"))
	r.Register("Minus", arithmetic("-"))
	r.Register("Multiply", arithmetic("*"))
	r.Register("Divide", arithmetic("/"))
	r.Register("Modulo", arithmetic("%"))
	r.Register("Negate", unary(NumericType, NumericType, func(x *Result) (interface{}, error) {
		if x.Type == IntegerType {
			return -x.Int(), nil
		}
		return -x.Float(), nil
	}))
	r.Register("Abs", unary(NumericType, NumericType, func(x *Result) (interface{}, error) {
		if x.Type == IntegerType {
			if x.Int() < 0 {
				return -x.Int(), nil
			}
			return x.Int(), nil
		}
		return math.Abs(x.Float()), nil
	}))
	r.Register("Round", unary(DoubleType, IntegerType, func(x *Result) (interface{}, error) {
		return int(math.Round(x.Float())), nil
	}))
	r.Register("ToDouble", unary(DoubleType, DoubleType, func(x *Result) (interface{}, error) {
		return x.Float(), nil
	}))
	r.Register("ToInteger", unary(NumericType, IntegerType, func(x *Result) (interface{}, error) {
		return x.Int(), nil
	}))

	r.Register("And", logical(true))
	r.Register("Or", logical(false))
	r.Register("Not", unary(BooleanType, BooleanType, func(x *Result) (interface{}, error) {
		return !x.Bool(), nil
	}))
	r.Register("Equals", equality(false))
	r.Register("NotEquals", equality(true))
	r.Register("Less", comparison("<"))
	r.Register("Greater", comparison(">"))
	r.Register("LessOrEqual", comparison("<="))
	r.Register("GreaterOrEqual", comparison(">="))

	registerConditionals(r)
	registerStringFunctions(r)
	registerResourceFunctions(r)
}

func registerConditionals(r *Registry) {
	r.Register("IfThenElse", Builder{
		Args: []Type{BooleanType, AnyType, AnyType},
		Build: func(name string, args []Feature) (Feature, error) {
			if err := sameType(args[1:]); err != nil {
				return nil, err
			}
			typ := branchType(args[1:])
			return NewFunction(name, typ, args, func(ctx Context, env *Env, args []Feature) (interface{}, bool, error) {
				cond, err := Eval(args[0], ctx, env)
				if cond == nil || err != nil {
					return nil, false, err
				}
				branch := args[2]
				if cond.Bool() {
					branch = args[1]
				}
				res, err := Eval(branch, ctx, env)
				if res == nil || err != nil {
					return nil, false, err
				}
				return coerce(typ, res), true, nil
			}), nil
		},
	})
	r.Register("IfThenElseNull", Builder{
		Args: []Type{BooleanType, AnyType},
		Build: func(name string, args []Feature) (Feature, error) {
			return NewFunction(name, args[1].Type(), args, func(ctx Context, env *Env, args []Feature) (interface{}, bool, error) {
				cond, err := Eval(args[0], ctx, env)
				if cond == nil || err != nil || !cond.Bool() {
					return nil, false, err
				}
				res, err := Eval(args[1], ctx, env)
				if res == nil || err != nil {
					return nil, false, err
				}
				return res.Value, true, nil
			}), nil
		},
	})
	r.Register("NullIf", Builder{
		Args: []Type{BooleanType, AnyType},
		Build: func(name string, args []Feature) (Feature, error) {
			return NewFunction(name, args[1].Type(), args, func(ctx Context, env *Env, args []Feature) (interface{}, bool, error) {
				cond, err := Eval(args[0], ctx, env)
				if err != nil || (cond != nil && cond.Bool()) {
					return nil, false, err
				}
				res, err := Eval(args[1], ctx, env)
				if res == nil || err != nil {
					return nil, false, err
				}
				return res.Value, true, nil
			}), nil
		},
	})
	r.Register("IsNull", Builder{
		Args: []Type{AnyType},
		Build: func(name string, args []Feature) (Feature, error) {
			return NewFunction(name, BooleanType, args, func(ctx Context, env *Env, args []Feature) (interface{}, bool, error) {
				res, err := Eval(args[0], ctx, env)
				if err != nil {
					return nil, false, err
				}
				return res == nil, true, nil
			}), nil
		},
	})
	r.Register("NullToFalse", Builder{
		Args: []Type{BooleanType},
		Build: func(name string, args []Feature) (Feature, error) {
			return NewFunction(name, BooleanType, args, func(ctx Context, env *Env, args []Feature) (interface{}, bool, error) {
				res, err := Eval(args[0], ctx, env)
				if err != nil {
					return nil, false, err
				}
				return res != nil && res.Bool(), true, nil
			}), nil
		},
	})
	r.Register("OnlyTrue", Builder{
		Args: []Type{BooleanType},
		Build: func(name string, args []Feature) (Feature, error) {
			return NewFunction(name, BooleanType, args, func(ctx Context, env *Env, args []Feature) (interface{}, bool, error) {
				res, err := Eval(args[0], ctx, env)
				if res == nil || err != nil || !res.Bool() {
					return nil, false, err
				}
				return true, true, nil
			}), nil
		},
	})
	r.Register("Default", Builder{
		Args: []Type{AnyType, AnyType},
		Build: func(name string, args []Feature) (Feature, error) {
			if err := sameType(args); err != nil {
				return nil, err
			}
			typ := branchType(args)
			return NewFunction(name, typ, args, func(ctx Context, env *Env, args []Feature) (interface{}, bool, error) {
				for _, arg := range args {
					res, err := Eval(arg, ctx, env)
					if err != nil {
						return nil, false, err
					}
					if res != nil {
						return coerce(typ, res), true, nil
					}
				}
				return nil, false, nil
			}), nil
		},
	})
	r.Register("In", Builder{
		Args: []Type{AnyType, CollectionType},
		Build: func(name string, args []Feature) (Feature, error) {
			return NewFunction(name, BooleanType, args, func(ctx Context, env *Env, args []Feature) (interface{}, bool, error) {
				ops, ok, err := Operands(ctx, env, args)
				if !ok {
					return nil, false, err
				}
				needle := ops[0].Text()
				for _, item := range ops[1].Items() {
					if item.Value == needle {
						return true, true, nil
					}
				}
				return false, true, nil
			}), nil
		},
	})
}
