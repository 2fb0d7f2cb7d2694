package guide

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

// Normalize trims surrounding space from the city. Every entry point calls it
// before the key is computed, so " Austin" and "Austin" are one search.
func (p SearchParams) Normalize() SearchParams {
	p.City = strings.TrimSpace(p.City)
	return p
}

// Validate rejects a search ComputeKey cannot tell apart from another one:
// encoding/json folds every invalid UTF-8 byte into U+FFFD.
func (p SearchParams) Validate() error {
	if p.City == "" {
		return fmt.Errorf("%w: city is required", ErrInvalidParams)
	}
	check := func(field, v string) error {
		if !utf8.ValidString(v) {
			return fmt.Errorf("%w: %s is not valid UTF-8", ErrInvalidParams, field)
		}
		return nil
	}
	if err := check("city", p.City); err != nil {
		return err
	}
	optional := []struct {
		field string
		v     *string
	}{{"dish", p.Dish}, {"price", p.Price}, {"audience", p.Audience}}
	for _, o := range optional {
		if o.v == nil {
			continue
		}
		if err := check(o.field, *o.v); err != nil {
			return err
		}
	}
	for _, v := range p.Vibes {
		if err := check("vibes", v); err != nil {
			return err
		}
	}
	for _, v := range p.Diets {
		if err := check("diets", v); err != nil {
			return err
		}
	}
	return nil
}

// ComputeKey derives the dedup key for a search. Fields are emitted in name
// order, list fields sorted with duplicates kept, and absent optional fields
// encode as null so they never collide with an empty string. Distinct keys are
// only guaranteed for params that pass Validate.
func ComputeKey(p SearchParams) string {
	fields := map[string]any{
		"audience": p.Audience,
		"city":     p.City,
		"diets":    sortedCopy(p.Diets),
		"dish":     p.Dish,
		"price":    p.Price,
		"vibes":    sortedCopy(p.Vibes),
	}

	// encoding/json writes map keys in sorted order
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(fields)
	return strings.TrimSuffix(buf.String(), "\n")
}

func sortedCopy(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	sort.Strings(out)
	return out
}
