package types

// Filter post-processes a complete tagging
type Filter interface {
	Apply(*PosTagSequence)
}

type FilterFunc func(*PosTagSequence)

func (f FilterFunc) Apply(s *PosTagSequence) {
	f(s)
}

var (
	RemoveNullTokens  Filter = FilterFunc((*PosTagSequence).RemoveEmptyNullTokens)
	PrependRootFilter Filter = FilterFunc((*PosTagSequence).PrependRoot)
)

// FilterNames maps configuration names to the built-in filters
var FilterNames = map[string]Filter{
	"removeNullTokens": RemoveNullTokens,
	"prependRoot":      PrependRootFilter,
}
