package generation

import (
	"strings"
	"testing"

	"foodguide/internal/guide"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const onePlace = `[{
  "category": "Trending Spots",
  "name": "Veracruz All Natural",
  "cuisine": "Mexican",
  "description": "Migas tacos from a trailer.",
  "food_story": "Two sisters started with a food truck.",
  "price_range": "$",
  "atmosphere": "casual",
  "recommended_dishes": ["migas taco", "mole"],
  "special_experience": "eat on picnic tables",
  "address": "1704 E Cesar Chavez St, Austin, TX",
  "is_best_of": true,
  "best_of_title": "Best Breakfast in Town"
}]`

func TestParsePlaces(t *testing.T) {
	places, err := ParsePlaces(onePlace)
	require.NoError(t, err)
	require.Len(t, places, 1)

	p := places[0]
	assert.Equal(t, "Veracruz All Natural", p.Name)
	assert.Equal(t, []string{"migas taco", "mole"}, p.RecommendedDishes)
	assert.True(t, p.IsBestOf)
	assert.Equal(t, "Best Breakfast in Town", p.BestOfTitle)
	assert.Equal(t, "Two sisters started with a food truck.", p.FoodStory)
}

func TestParsePlaces_Fenced(t *testing.T) {
	places, err := ParsePlaces("```json\n" + onePlace + "\n```")
	require.NoError(t, err)
	assert.Len(t, places, 1)

	places, err = ParsePlaces("```\n" + onePlace + "\n```\n")
	require.NoError(t, err)
	assert.Len(t, places, 1)
}

func TestParsePlaces_Empty(t *testing.T) {
	for _, in := range []string{"", "   \n", "[]", "```json\n```"} {
		_, err := ParsePlaces(in)
		assert.ErrorIs(t, err, guide.ErrEmptyResponse, "input %q", in)
	}
}

func TestParsePlaces_Malformed(t *testing.T) {
	cases := map[string]string{
		"not json":      "Here are some restaurants!",
		"object":        `{"name":"x"}`,
		"missing field": `[{"category":"Fine Dining","name":"x"}]`,
		"not an object": `[{"category":"a"}, "second"]`,
		"null element":  `[null]`,
		"wrong type":    `[{"category":"a","name":"b","cuisine":"c","description":"d","food_story":"e","price_range":"$","atmosphere":"f","recommended_dishes":"soup","special_experience":"g","address":"h","is_best_of":false,"best_of_title":""}]`,
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParsePlaces(in)
			assert.ErrorIs(t, err, guide.ErrMalformedResponse)
			assert.ErrorIs(t, err, guide.ErrGeneration)
		})
	}
}

func TestSchemaRequiresEveryField(t *testing.T) {
	s := placeListSchema()
	require.NotNil(t, s.Items)
	assert.ElementsMatch(t, requiredFields, s.Items.Required)
	for _, f := range requiredFields {
		assert.Contains(t, s.Items.Properties, f)
	}
}

func TestParsePlaces_ErrorNamesThePlace(t *testing.T) {
	in := "[" + strings.TrimSuffix(strings.TrimPrefix(onePlace, "["), "]") + `, {"name": 7}]`

	_, err := ParsePlaces(in)
	require.ErrorIs(t, err, guide.ErrMalformedResponse)
	assert.Contains(t, err.Error(), "place 1")
}
