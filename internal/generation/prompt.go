package generation

import (
	"fmt"
	"strings"

	"foodguide/internal/guide"
)

const fullGuideInstruction = `You are an AI assistant creating a premium JSON food guide.
Goal: Return a JSON array for a city, split into three categories with a specific structure.
Categories & Rules:
1. "Trending Spots" (13 places):
    - First 8 places: Trendy, highly-rated spots based on a meta-analysis of local reviews and buzz.
    - Next 5 places: The single best spot for each of the following: Best Pizza, Best Burger, Best Sushi, Best Breakfast, Best Coffee. For these 5, you MUST set "is_best_of" to true and provide a "best_of_title" like "Best Pizza in Town".
2. "Local Favorites" (6 places): Authentic, beloved spots popular with locals.
3. "Fine Dining" (3 places): High-end, acclaimed restaurants.

CRITICAL: When selecting restaurants for each category, you MUST strictly adhere to the user's specified preferences for price, vibe, and dietary needs. If the user specifies a dietary need, ensure the restaurants you select can accommodate it.

For each place, provide all of the following fields: category, name, cuisine, description, food_story, price_range, atmosphere, recommended_dishes (as a string array), special_experience, address, is_best_of (boolean), best_of_title (string, can be empty).
The food_story should be a brief, engaging story about the restaurant's signature dish, its origin, or its culinary philosophy.
The address must be a complete, real-world street address for the location.
The price_range field should accurately reflect the cost: $ (inexpensive), $$ (moderate), $$$ (expensive), $$$$ (luxury). Provide a variety of price ranges unless a specific one is requested by the user.
Your response MUST be ONLY the raw JSON array. Do not add any other text or markdown formatting.`

const topTenInstruction = `You are an AI assistant creating a "Top 10" list for a specific food or cuisine in a city.
Goal: Return a JSON array of the 10 best places for the requested item.
CRITICAL: The list must be strictly focused on the user's request. You MUST consider their specified preferences for price, vibe, and especially any dietary needs.

For each place, provide all of the following fields: category, name, cuisine, description, food_story, price_range, atmosphere, recommended_dishes (as a string array), special_experience, address. is_best_of and best_of_title should be false and empty respectively.
The food_story should be a brief, engaging story about the restaurant's signature dish, its origin, or its culinary philosophy.
The address must be a complete, real-world street address for the location.
The price_range field should accurately reflect the cost: $ (inexpensive), $$ (moderate), $$$ (expensive), $$$$ (luxury). Provide a variety of price ranges unless a specific one is requested by the user.
Every object in the array MUST have a "category" field with the exact value "Top 10".
Your response MUST be ONLY the raw JSON array. Do not add any other text or markdown formatting.`

const findMoreInstruction = `You are an AI assistant finding 5 more restaurants in a city.
Goal: Return a JSON array of 5 new places, excluding a provided list of names.
For each place, provide all of the following fields: category (e.g., "Hidden Gem", "Trendy Spot", "Breakfast Place"), name, cuisine, description, food_story, price_range, atmosphere, recommended_dishes (as a string array), special_experience, address. is_best_of and best_of_title should be false and empty respectively.
The food_story should be a brief, engaging story about the restaurant's signature dish, its origin, or its culinary philosophy.
The address must be a complete, real-world street address for the location.
Your response MUST be ONLY the raw JSON array. Do not add any other text or markdown formatting.`

// Request is one call to the generator.
type Request struct {
	Params        guide.SearchParams
	IsFindingMore bool
	// ExistingNames are excluded from a find-more answer.
	ExistingNames []string
}

// Instruction picks the system instruction for the request.
func Instruction(req Request) string {
	switch {
	case req.IsFindingMore:
		return findMoreInstruction
	case req.Params.Dish != nil && *req.Params.Dish != "":
		return topTenInstruction
	default:
		return fullGuideInstruction
	}
}

// Prompt renders the user turn for the request.
func Prompt(req Request) string {
	if req.IsFindingMore {
		return fmt.Sprintf("Find 5 more restaurants in %s, excluding these: %s.",
			req.Params.City, strings.Join(req.ExistingNames, ", "))
	}
	return userPrompt(req.Params)
}

func userPrompt(p guide.SearchParams) string {
	var prefs []string
	if p.Price != nil && *p.Price != "" {
		prefs = append(prefs, fmt.Sprintf("- Desired price range is %q.", *p.Price))
	}
	if p.Audience != nil && *p.Audience != "" {
		prefs = append(prefs, fmt.Sprintf("- The guide should be tailored for a %q audience.", *p.Audience))
	}
	if len(p.Vibes) > 0 {
		prefs = append(prefs, "- The desired vibe is: "+strings.Join(p.Vibes, ", ")+".")
	}
	if len(p.Diets) > 0 {
		prefs = append(prefs, "- IMPORTANT: The guide MUST include options suitable for the following dietary needs: "+strings.Join(p.Diets, ", ")+".")
	}

	var b strings.Builder
	if p.Dish != nil && *p.Dish != "" {
		fmt.Fprintf(&b, "Create a \"Top 10\" list for the best %q in %s.", *p.Dish, p.City)
	} else {
		fmt.Fprintf(&b, "Create a guide for %s.", p.City)
	}
	if len(prefs) > 0 {
		b.WriteString("\n\nPlease adhere to the following user preferences:\n")
		b.WriteString(strings.Join(prefs, "\n"))
	}
	return b.String()
}
