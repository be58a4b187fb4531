package postag

import (
	"github.com/habeanf/beamtag/alg/feature"
	"github.com/habeanf/beamtag/nlp/types"

	"github.com/pkg/errors"
)

// Context is a token seen from a tagging history. Tagged is set when the
// token is already tagged in that history.
type Context struct {
	Token   *types.Token
	Tagged  *types.TaggedToken
	History *types.PosTagSequence

	cache *feature.Cache
}

// NewContext is the context of the next token to tag after history
func NewContext(token *types.Token, history *types.PosTagSequence) *Context {
	return &Context{Token: token, History: history, cache: feature.NewCache()}
}

func (c *Context) FeatureCache() *feature.Cache {
	return c.cache
}

// At addresses the token at index. A tagged token sees only its own prefix
// of the history, so results cached on it hold for every sequence sharing it.
func (c *Context) At(index int) *Context {
	tokens := c.History.Tokens
	if index < 0 || index >= tokens.Len() {
		return nil
	}
	if index < c.History.Len() {
		tagged := c.History.Get(index)
		return &Context{Token: tagged.Token, Tagged: tagged, History: c.History.Prefix(index + 1), cache: tagged.FeatureCache()}
	}
	return &Context{Token: tokens.Tokens[index], History: c.History}
}

func posContext(ctx feature.Context) (*Context, error) {
	c, ok := ctx.(*Context)
	if !ok {
		return nil, errors.Errorf("feature needs a pos-tagging context, got %T", ctx)
	}
	return c, nil
}

func accessor(typ feature.Type, get func(c *Context, env *feature.Env) (interface{}, bool, error)) feature.Builder {
	return feature.Accessor(typ, func(ctx feature.Context, env *feature.Env) (interface{}, bool, error) {
		c, err := posContext(ctx)
		if err != nil {
			return nil, false, err
		}
		return get(c, env)
	})
}

func address(args []feature.Type, target func(c *Context, ops []*feature.Result) *Context) feature.Builder {
	return feature.Builder{
		Args: args,
		Build: func(name string, args []feature.Feature) (feature.Feature, error) {
			return feature.NewFunction(name, feature.AddressType, args, func(ctx feature.Context, env *feature.Env, args []feature.Feature) (interface{}, bool, error) {
				c, err := posContext(ctx)
				if err != nil {
					return nil, false, err
				}
				ops, ok, err := feature.Operands(ctx, env, args)
				if !ok {
					return nil, false, err
				}
				t := target(c, ops)
				if t == nil {
					return nil, false, nil
				}
				return feature.Context(t), true, nil
			}), nil
		},
	}
}

// Register adds the pos-tagging accessors to reg
func Register(reg *feature.Registry) {
	reg.Register("Word", accessor(feature.StringType, func(c *Context, env *feature.Env) (interface{}, bool, error) {
		return c.Token.Text, true, nil
	}))
	reg.Register("PosTag", accessor(feature.StringType, func(c *Context, env *feature.Env) (interface{}, bool, error) {
		if c.Tagged == nil {
			return nil, false, nil
		}
		return c.Tagged.Tag.Code, true, nil
	}))
	reg.Register("TokenIndex", accessor(feature.IntegerType, func(c *Context, env *feature.Env) (interface{}, bool, error) {
		return c.Token.Index, true, nil
	}))
	reg.Register("FirstWordInSentence", accessor(feature.BooleanType, func(c *Context, env *feature.Env) (interface{}, bool, error) {
		return c.Token.Index == 0, true, nil
	}))
	reg.Register("LastWordInSentence", accessor(feature.BooleanType, func(c *Context, env *feature.Env) (interface{}, bool, error) {
		return c.Token.Index == c.History.Tokens.Len()-1, true, nil
	}))
	reg.Register("IsEmpty", accessor(feature.BooleanType, func(c *Context, env *feature.Env) (interface{}, bool, error) {
		return c.Token.Empty(), true, nil
	}))
	reg.Register("LexiconPosTags", accessor(feature.CollectionType, func(c *Context, env *feature.Env) (interface{}, bool, error) {
		if len(c.Token.PossibleTags) == 0 {
			return nil, false, nil
		}
		items := make([]feature.WeightedValue, len(c.Token.PossibleTags))
		for i, tag := range c.Token.PossibleTags {
			items[i] = feature.WeightedValue{Value: tag, Weight: 1}
		}
		return items, true, nil
	}))
	reg.Register("Attribute", feature.Builder{
		Args: []feature.Type{feature.StringType},
		Build: func(name string, args []feature.Feature) (feature.Feature, error) {
			return feature.NewFunction(name, feature.StringType, args, func(ctx feature.Context, env *feature.Env, args []feature.Feature) (interface{}, bool, error) {
				c, err := posContext(ctx)
				if err != nil {
					return nil, false, err
				}
				ops, ok, err := feature.Operands(ctx, env, args)
				if !ok {
					return nil, false, err
				}
				v, ok := c.Token.Attribute(ops[0].Str())
				return v, ok, nil
			}), nil
		},
	})
	reg.Register("Offset", address([]feature.Type{feature.IntegerType}, func(c *Context, ops []*feature.Result) *Context {
		return c.At(c.Token.Index + ops[0].Int())
	}))
	reg.Register("History", address([]feature.Type{feature.IntegerType}, func(c *Context, ops []*feature.Result) *Context {
		n := ops[0].Int()
		if n < 1 {
			return nil
		}
		return c.At(c.History.Len() - n)
	}))
}

// NewRegistry clones base and adds the pos-tagging accessors
func NewRegistry(base *feature.Registry) *feature.Registry {
	reg := base.Clone()
	Register(reg)
	return reg
}
