package feature

import (
	"fmt"
	"strconv"
)

type template struct {
	params []string
	body   *Node
}

// Compiler turns parsed descriptors into features. Named features and
// templates must be defined before they are referenced.
type Compiler struct {
	Registry  *Registry
	named     map[string]Feature
	templates map[string]*template
}

func NewCompiler(reg *Registry) *Compiler {
	return &Compiler{
		Registry:  reg,
		named:     make(map[string]Feature),
		templates: make(map[string]*template),
	}
}

// Compile parses and compiles a single descriptor expression
func (c *Compiler) Compile(descriptor string) (Feature, error) {
	n, err := Parse(descriptor)
	if err != nil {
		return nil, err
	}
	return c.compile(descriptor, n)
}

// Define compiles descriptor and registers it under name, so later
// descriptors can reference it
func (c *Compiler) Define(name, descriptor string) (Feature, error) {
	if _, exists := c.named[name]; exists {
		return nil, &FeatureSyntaxError{descriptor, name, "feature defined twice"}
	}
	f, err := c.Compile(descriptor)
	if err != nil {
		return nil, err
	}
	named := Named(name, f)
	c.named[name] = named
	return named, nil
}

// DefineTemplate registers a parametrised feature, expanded at each call site
func (c *Compiler) DefineTemplate(name string, params []string, descriptor string) error {
	if _, exists := c.templates[name]; exists {
		return &FeatureSyntaxError{descriptor, name, "feature defined twice"}
	}
	body, err := Parse(descriptor)
	if err != nil {
		return err
	}
	c.templates[name] = &template{params, body}
	return nil
}

func (c *Compiler) compile(src string, n *Node) (Feature, error) {
	switch n.Kind {
	case stringNode:
		return Literal(n.Str), nil
	case intNode:
		return Literal(n.Int), nil
	case doubleNode:
		return Literal(n.Double), nil
	case boolNode:
		return Literal(n.Bool), nil
	case listNode:
		items := make([]WeightedValue, len(n.Args))
		for i, item := range n.Args {
			items[i] = WeightedValue{literalText(item), 1}
		}
		return &literal{name: n.String(), typ: CollectionType, value: items}, nil
	case identNode:
		if f, ok := c.named[n.Name]; ok {
			return f, nil
		}
		if _, ok := c.templates[n.Name]; ok {
			return nil, &FeatureSyntaxError{src, n.Name, "parametrised feature used without arguments"}
		}
		return nil, &FeatureSyntaxError{src, n.Name, "unknown feature"}
	}
	if t, ok := c.templates[n.Name]; ok {
		if len(n.Args) != len(t.params) {
			return nil, &FeatureSyntaxError{src, n.Name, fmt.Sprintf("expects %d arguments, got %d", len(t.params), len(n.Args))}
		}
		params := make(map[string]*Node, len(t.params))
		for i, p := range t.params {
			params[p] = n.Args[i]
		}
		return c.compile(src, t.body.substitute(params))
	}
	if f, ok := c.named[n.Name]; ok && len(n.Args) == 0 {
		return f, nil
	}
	b, ok := c.Registry.Lookup(n.Name)
	if !ok {
		return nil, &FeatureSyntaxError{src, n.Name, "unknown function"}
	}
	if !b.arity(len(n.Args)) {
		return nil, &FeatureSyntaxError{src, n.Name, fmt.Sprintf("wrong number of arguments (%d)", len(n.Args))}
	}
	args := make([]Feature, len(n.Args))
	for i, argNode := range n.Args {
		arg, err := c.compile(src, argNode)
		if err != nil {
			return nil, err
		}
		want := b.param(i)
		if !want.Accepts(arg.Type()) {
			return nil, &FeatureSyntaxError{src, n.Name, fmt.Sprintf("argument %d: expected %v, got %v", i+1, want, arg.Type())}
		}
		if want == DoubleType && arg.Type() == IntegerType {
			arg = promote(arg)
		}
		args[i] = arg
	}
	f, err := b.Build(canonical(n.Name, args), args)
	if err != nil {
		if _, isSyntax := err.(*FeatureSyntaxError); isSyntax {
			return nil, err
		}
		return nil, &FeatureSyntaxError{src, n.Name, err.Error()}
	}
	return f, nil
}

func literalText(n *Node) string {
	switch n.Kind {
	case stringNode:
		return n.Str
	case intNode:
		return strconv.Itoa(n.Int)
	case doubleNode:
		return strconv.FormatFloat(n.Double, 'g', -1, 64)
	case boolNode:
		return strconv.FormatBool(n.Bool)
	}
	return n.String()
}
