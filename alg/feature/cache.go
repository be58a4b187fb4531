package feature

type cacheKey struct {
	feature string
	env     string
}

// Cache stores results, including not-applicable ones, for a single context
type Cache struct {
	results map[cacheKey]*Result
	Hits    int
	Misses  int
}

func NewCache() *Cache {
	return &Cache{results: make(map[cacheKey]*Result)}
}

func (c *Cache) Get(feature, envKey string) (*Result, bool) {
	r, ok := c.results[cacheKey{feature, envKey}]
	if ok {
		c.Hits++
	} else {
		c.Misses++
	}
	return r, ok
}

func (c *Cache) Put(feature, envKey string, r *Result) {
	c.results[cacheKey{feature, envKey}] = r
}

func (c *Cache) Len() int {
	return len(c.results)
}

type uncachable interface {
	uncached()
}

// Eval checks f against ctx through the context's cache
func Eval(f Feature, ctx Context, env *Env) (*Result, error) {
	if _, ok := f.(uncachable); ok || ctx == nil {
		return f.Check(ctx, env)
	}
	cache := ctx.FeatureCache()
	if cache == nil {
		return f.Check(ctx, env)
	}
	if r, ok := cache.Get(f.Name(), env.Key()); ok {
		return r, nil
	}
	r, err := f.Check(ctx, env)
	if err != nil {
		return nil, err
	}
	cache.Put(f.Name(), env.Key(), r)
	return r, nil
}
