package guide

import "sort"

const (
	CategoryTrending       = "Trending Spots"
	CategoryLocalFavorites = "Local Favorites"
	CategoryFineDining     = "Fine Dining"
	CategoryTopTen         = "Top 10"
	SectionCommunityBests  = "Community Bests"
)

var categoryOrder = map[string]int{
	CategoryTrending:       0,
	CategoryLocalFavorites: 1,
	CategoryFineDining:     2,
	CategoryTopTen:         3,
}

// Section is one category of a guide as it is displayed.
type Section struct {
	Title  string        `json:"title"`
	Places []PlaceRecord `json:"places"`
	// Bests holds the best-of places of "Trending Spots".
	Bests []PlaceRecord `json:"bests,omitempty"`
}

// Title is the display name of a guide for p.
func Title(p SearchParams) string {
	if p.Dish != nil && *p.Dish != "" {
		return "Top 10 " + *p.Dish
	}
	return "Guide to " + p.City
}

// GroupByCategory groups places for display. Known categories come first in
// a fixed order, the rest follow in order of first appearance.
func GroupByCategory(data []PlaceRecord) []Section {
	var sections []Section
	index := map[string]int{}

	for _, r := range data {
		i, ok := index[r.Category]
		if !ok {
			i = len(sections)
			index[r.Category] = i
			sections = append(sections, Section{Title: r.Category})
		}
		if r.Category == CategoryTrending && r.IsBestOf {
			sections[i].Bests = append(sections[i].Bests, r)
			continue
		}
		sections[i].Places = append(sections[i].Places, r)
	}

	rank := func(title string) int {
		if n, ok := categoryOrder[title]; ok {
			return n
		}
		return len(categoryOrder)
	}
	sort.SliceStable(sections, func(a, b int) bool {
		return rank(sections[a].Title) < rank(sections[b].Title)
	})
	return sections
}
