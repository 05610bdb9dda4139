package autocomplete

import (
	"strings"

	"github.com/lintang-b-s/navigatorx-maps/pkg"
)

type Suggester interface {
	Suggest(prefix string) ([]string, error)
}

// StreetIndex lists distinct street names starting with a prefix, in index order.
type StreetIndex interface {
	StreetNames(prefix string, limit int) ([]string, error)
}

// Ranker reorders candidate names for a prefix.
type Ranker func(prefix string, names []string) []string

// KeepIndexOrder leaves candidates in street index order.
func KeepIndexOrder(_ string, names []string) []string {
	return names
}

// IndexSuggester completes street names from the street index.
type IndexSuggester struct {
	index StreetIndex
	limit int
	rank  Ranker
}

func NewIndexSuggester(index StreetIndex, limit int, rank Ranker) *IndexSuggester {
	if limit <= 0 {
		limit = pkg.DEFAULT_AUTOCOMPLETE_LIMIT
	}
	if rank == nil {
		rank = KeepIndexOrder
	}
	return &IndexSuggester{index: index, limit: limit, rank: rank}
}

// Suggest returns at most limit street names starting with prefix. A blank prefix has no
// suggestions.
func (s *IndexSuggester) Suggest(prefix string) ([]string, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return []string{}, nil
	}
	names, err := s.index.StreetNames(prefix, s.limit)
	if err != nil {
		return nil, err
	}
	return s.rank(prefix, names), nil
}
