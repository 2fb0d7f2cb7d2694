package generation

import "google.golang.org/genai"

// requiredFields are the keys every place object must carry.
var requiredFields = []string{
	"category", "name", "cuisine", "description", "food_story", "price_range",
	"atmosphere", "recommended_dishes", "special_experience", "address",
	"is_best_of", "best_of_title",
}

func placeListSchema() *genai.Schema {
	str := func() *genai.Schema { return &genai.Schema{Type: genai.TypeString} }

	return &genai.Schema{
		Type: genai.TypeArray,
		Items: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"category":    str(),
				"name":        str(),
				"cuisine":     str(),
				"description": str(),
				"food_story":  str(),
				"price_range": {Type: genai.TypeString, Description: "Price range from '$' to '$$$$'."},
				"atmosphere":  str(),
				"recommended_dishes": {
					Type:  genai.TypeArray,
					Items: str(),
				},
				"special_experience": str(),
				"address":            str(),
				"is_best_of":         {Type: genai.TypeBoolean},
				"best_of_title":      str(),
			},
			Required: requiredFields,
		},
	}
}
