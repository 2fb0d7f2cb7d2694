package main

import (
	"bytes"
	"strings"
	"testing"

	"foodguide/internal/auth"
	"foodguide/internal/guide"
	"foodguide/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetSearchFlags() {
	searchCity, searchDish, searchPrice, searchAudience = "", "", "", ""
	searchVibes, searchDiets = nil, nil
	searchMore, searchGuideID, searchAs = 0, "", ""
}

func TestSearchParams(t *testing.T) {
	t.Cleanup(resetSearchFlags)

	resetSearchFlags()
	_, err := searchParams()
	assert.Error(t, err)

	searchCity = " Austin "
	searchPrice = "$$$$$"
	_, err = searchParams()
	assert.ErrorContains(t, err, "--price")

	searchPrice = ""
	searchCity = "Caf\xff"
	_, err = searchParams()
	assert.ErrorIs(t, err, guide.ErrInvalidParams)

	searchCity = " Austin "
	searchPrice = "$$"
	searchDish = "tacos"
	searchVibes = []string{"cozy", "lively"}
	p, err := searchParams()
	require.NoError(t, err)
	assert.Equal(t, "Austin", p.City)
	require.NotNil(t, p.Dish)
	assert.Equal(t, "tacos", *p.Dish)
	require.NotNil(t, p.Price)
	assert.Nil(t, p.Audience)
	assert.Equal(t, []string{"cozy", "lively"}, p.Vibes)
	assert.Equal(t, "Top 10 tacos", guide.Title(p))
}

func TestRender(t *testing.T) {
	snap := session.Snapshot{
		Data: []guide.PlaceRecord{
			{Category: guide.CategoryFineDining, Name: "Uchi", Cuisine: "Japanese", PriceRange: "$$$$"},
			{Category: guide.CategoryTrending, Name: "Suerte", RecommendedDishes: []string{"suadero tacos", "mole"}},
			{Category: guide.CategoryTrending, Name: "Franklin", IsBestOf: true, BestOfTitle: "Best BBQ"},
		},
		LikeCount:    2,
		CommentCount: 1,
	}

	var buf bytes.Buffer
	render(&buf, "Guide to Austin", snap)
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "Guide to Austin\n===============\n"))
	assert.Contains(t, out, "3 places, 2 likes, 1 comments")
	assert.Contains(t, out, "  * Best BBQ: Franklin")
	assert.Contains(t, out, "      try: suadero tacos, mole")
	assert.Contains(t, out, "  - Uchi (Japanese) $$$$")
	assert.Less(t, strings.Index(out, "## "+guide.CategoryTrending), strings.Index(out, "## "+guide.CategoryFineDining))
}

func TestTokenCommand(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("JWT_SECRET", "dev-secret")
	t.Setenv("DATABASE_URL", "")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"token", "--uid", "u1", "--name", "Ann"})
	t.Cleanup(func() { rootCmd.SetArgs(nil); rootCmd.SetOut(nil) })

	require.NoError(t, rootCmd.Execute())

	id, err := auth.NewJWT("dev-secret").Verify(strings.TrimSpace(out.String()))
	require.NoError(t, err)
	assert.Equal(t, "u1", id.UID)
	assert.Equal(t, "Ann", id.DisplayName)
}

func TestTokenCommand_NeedsSecret(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("JWT_SECRET", "")

	rootCmd.SetArgs([]string{"token", "--uid", "u1"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	assert.Error(t, rootCmd.Execute())
}
