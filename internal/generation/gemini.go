// Package generation produces place records from the Gemini API.
package generation

import (
	"context"
	"errors"
	"fmt"

	"foodguide/internal/guide"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

const DefaultModel = "gemini-2.5-flash"

// Client is the guide generator backed by genai.
type Client struct {
	client *genai.Client
	model  string
	log    *zap.Logger
}

func New(ctx context.Context, apiKey, model string, log *zap.Logger) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	if model == "" {
		model = DefaultModel
	}
	if log == nil {
		log = zap.NewNop()
	}

	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &Client{client: c, model: model, log: log}, nil
}

// Generate asks the model for places. Transport and quota failures are
// ErrGeneration; unusable answers are ErrEmptyResponse or ErrMalformedResponse.
func (c *Client) Generate(ctx context.Context, req Request) ([]guide.PlaceRecord, error) {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(Instruction(req), genai.RoleUser),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    placeListSchema(),
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(Prompt(req)), cfg)
	if err != nil {
		c.log.Warn("generate content failed",
			zap.String("model", c.model),
			zap.String("city", req.Params.City),
			zap.Bool("find_more", req.IsFindingMore),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %v", guide.ErrGeneration, err)
	}

	places, err := ParsePlaces(resp.Text())
	if err != nil {
		c.log.Info("unusable generator answer", zap.String("city", req.Params.City), zap.Error(err))
		return nil, err
	}

	c.log.Debug("generated places",
		zap.String("city", req.Params.City),
		zap.Bool("find_more", req.IsFindingMore),
		zap.Int("count", len(places)),
	)
	return places, nil
}
