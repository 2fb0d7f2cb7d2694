package generation

import (
	"encoding/json"
	"fmt"
	"strings"

	"foodguide/internal/guide"
)

// ParsePlaces decodes a generator answer into place records. A body wrapped
// in a markdown code fence is accepted.
func ParsePlaces(text string) ([]guide.PlaceRecord, error) {
	body := stripFence(text)
	if body == "" {
		return nil, guide.ErrEmptyResponse
	}

	var raw []json.RawMessage
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", guide.ErrMalformedResponse, err)
	}
	if len(raw) == 0 {
		return nil, guide.ErrEmptyResponse
	}

	out := make([]guide.PlaceRecord, 0, len(raw))
	for i, elem := range raw {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(elem, &fields); err != nil {
			return nil, fmt.Errorf("%w: place %d: %v", guide.ErrMalformedResponse, i, err)
		}
		for _, f := range requiredFields {
			if _, ok := fields[f]; !ok {
				return nil, fmt.Errorf("%w: place %d has no %q", guide.ErrMalformedResponse, i, f)
			}
		}

		var rec guide.PlaceRecord
		if err := json.Unmarshal(elem, &rec); err != nil {
			return nil, fmt.Errorf("%w: place %d: %v", guide.ErrMalformedResponse, i, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		// drop the language tag line
		s = s[nl+1:]
	} else {
		s = ""
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
