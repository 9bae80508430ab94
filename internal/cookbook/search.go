package cookbook

import (
	"cmp"
	"slices"

	"github.com/mesh-intelligence/recipebox/pkg/types"
)

// Filter returns the recipes matching term, preserving order. An empty term
// returns every recipe.
func Filter(recipes []*types.Recipe, term string) []*types.Recipe {
	out := make([]*types.Recipe, 0, len(recipes))
	for _, r := range recipes {
		if r.Matches(term) {
			out = append(out, r)
		}
	}
	return out
}

// Option is one entry of a recipe selector.
type Option struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Options lists recipes for a selector, sorted by display title. Ties keep
// their source order.
func Options(recipes []*types.Recipe) []Option {
	out := make([]Option, 0, len(recipes))
	for _, r := range recipes {
		out = append(out, Option{ID: r.ID, Title: r.DisplayTitle()})
	}
	slices.SortStableFunc(out, func(a, b Option) int {
		return cmp.Compare(a.Title, b.Title)
	})
	return out
}
