package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"foodguide/internal/auth"
	"foodguide/internal/db"
	"foodguide/internal/generation"
	"foodguide/internal/guide"
	"foodguide/internal/orchestrator"
	"foodguide/internal/session"

	"github.com/spf13/cobra"
)

var (
	searchCity     string
	searchDish     string
	searchPrice    string
	searchAudience string
	searchVibes    []string
	searchDiets    []string
	searchMore     int
	searchGuideID  string
	searchAs       string
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Build or load a guide and print it",
	Long: `Runs one search against the guide store and the generator and prints the
result grouped by category. A stored guide with the same parameters is reused.

Examples:
  foodguide search --city Austin --vibe cozy --price '$$'
  foodguide search --city Naples --dish pizza --more 2
  foodguide search --guide 3f1c2a9e-...`,
	RunE: runSearch,
}

func init() {
	f := searchCmd.Flags()
	f.StringVar(&searchCity, "city", "", "city to build a guide for")
	f.StringVar(&searchDish, "dish", "", "build a top 10 for this dish")
	f.StringVar(&searchPrice, "price", "", "price level: $, $$, $$$ or $$$$")
	f.StringVar(&searchAudience, "audience", "", "who the guide is for")
	f.StringArrayVar(&searchVibes, "vibe", nil, "vibe, repeatable")
	f.StringArrayVar(&searchDiets, "diet", nil, "dietary need, repeatable")
	f.IntVar(&searchMore, "more", 0, "find-more rounds after the guide is shown")
	f.StringVar(&searchGuideID, "guide", "", "load a stored guide by id instead of searching")
	f.StringVar(&searchAs, "as", "", "user id to act as; signed-in searches land in the library")
}

// searchParams builds the search from flags with the same normalization and
// validation the orchestrator applies to HTTP requests.
func searchParams() (guide.SearchParams, error) {
	switch searchPrice {
	case "", "$", "$$", "$$$", "$$$$":
	default:
		return guide.SearchParams{}, fmt.Errorf("--price %q: want $, $$, $$$ or $$$$", searchPrice)
	}

	p := guide.SearchParams{
		City:  searchCity,
		Vibes: searchVibes,
		Diets: searchDiets,
	}
	if searchDish != "" {
		p.Dish = &searchDish
	}
	if searchPrice != "" {
		p.Price = &searchPrice
	}
	if searchAudience != "" {
		p.Audience = &searchAudience
	}

	p = p.Normalize()
	if err := p.Validate(); err != nil {
		if p.City == "" {
			return p, errors.New("--city is required unless --guide is set")
		}
		return p, err
	}
	return p, nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var params guide.SearchParams
	if searchGuideID == "" {
		if params, err = searchParams(); err != nil {
			return err
		}
	}

	gdb, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}

	var gen orchestrator.Generator
	if cfg.GeminiAPIKey != "" {
		c, err := generation.New(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, log)
		if err != nil {
			return err
		}
		gen = c
	} else if searchGuideID == "" || searchMore > 0 {
		return cfg.RequireGenerator()
	}

	orch := orchestrator.New(&guide.Repo{DB: gdb}, gen, orchestrator.Options{
		Logger:        log,
		PublicBaseURL: cfg.PublicBaseURL,
	})
	s := session.NewState("cli")
	if searchAs != "" {
		s.SetIdentity(&auth.Identity{UID: searchAs, DisplayName: searchAs})
	}

	var g *guide.Guide
	if searchGuideID != "" {
		g, _, err = orch.LoadByID(ctx, s, searchGuideID)
	} else {
		g, err = orch.Search(ctx, s, params)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	render(out, guide.Title(g.Params), s.Snapshot())

	for i := 0; i < searchMore; i++ {
		res, err := orch.FindMore(ctx, s)
		if err != nil && res.Display.Total == 0 {
			return err
		}
		fmt.Fprintf(out, "\n+ %d more (%d total)\n", len(res.Display.Added), res.Display.Total)
		if err != nil {
			fmt.Fprintf(out, "  not saved: %v\n", err)
		}
		renderPlaces(out, res.Display.Added)
	}

	if link, err := orch.Share(s); err == nil {
		fmt.Fprintf(out, "\nshare: %s\n", link)
	} else if errors.Is(err, orchestrator.ErrInvalidState) {
		fmt.Fprintln(out, "\nthis guide was not saved and cannot be shared")
	}
	return nil
}

func render(w io.Writer, title string, snap session.Snapshot) {
	fmt.Fprintln(w, title)
	fmt.Fprintln(w, strings.Repeat("=", len(title)))
	fmt.Fprintf(w, "%d places, %d likes, %d comments\n", len(snap.Data), snap.LikeCount, snap.CommentCount)
	if snap.Error != "" {
		fmt.Fprintf(w, "! %s\n", snap.Error)
	}

	for _, sec := range guide.GroupByCategory(snap.Data) {
		fmt.Fprintf(w, "\n## %s\n", sec.Title)
		for _, b := range sec.Bests {
			fmt.Fprintf(w, "  * %s: %s\n", b.BestOfTitle, b.Name)
		}
		renderPlaces(w, sec.Places)
	}
}

func renderPlaces(w io.Writer, places []guide.PlaceRecord) {
	for _, p := range places {
		line := "  - " + p.Name
		if p.Cuisine != "" {
			line += " (" + p.Cuisine + ")"
		}
		if p.PriceRange != "" {
			line += " " + p.PriceRange
		}
		fmt.Fprintln(w, line)
		if len(p.RecommendedDishes) > 0 {
			fmt.Fprintf(w, "      try: %s\n", strings.Join(p.RecommendedDishes, ", "))
		}
		if p.Address != "" {
			fmt.Fprintf(w, "      %s\n", p.Address)
		}
	}
}
