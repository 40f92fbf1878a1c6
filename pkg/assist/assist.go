// Package assist asks a vision model to propose a bounding box for the
// subject of an image.
package assist

import (
	"context"
	"fmt"
	"image"
	"math"
	"strings"

	"github.com/menta2k/image-labeler/pkg/raster"
	"github.com/menta2k/image-labeler/pkg/types"
)

// VisionClient locates the primary subject of a base64 encoded image
type VisionClient interface {
	Locate(ctx context.Context, model, prompt, imgB64 string) (*types.Suggestion, error)
}

// DefaultPrompt asks for a single tight box around the dominant subject
const DefaultPrompt = `You are an image subject locator.

Return JSON only:
{
  "primary": {
    "label": "string",
    "confidence": 0.0,
    "box": {"x": 0.0, "y": 0.0, "w": 0.0, "h": 0.0}
  }
}

HARD RULES
- All coordinates are normalized to [0,1] (NOT pixels). x and y are the top-left corner.
- The box should tightly include the visually dominant subject.
- If no subject is found, return:
  {"primary":{"label":"none","confidence":0.0,"box":{"x":0,"y":0,"w":0,"h":0}}}
- JSON only. No markdown, no code fences, no comments, no trailing commas.`

// targetedPrompt narrows the search to a named object
const targetedPrompt = DefaultPrompt + `
- Only locate a %q. If there is none, use the "none" answer above.`

// Config holds configuration for the suggester
type Config struct {
	Model         string
	SendSize      int     // longest side of the image sent to the model
	SendQuality   int     // JPEG quality of the image sent to the model
	MinConfidence float64 // suggestions below this are discarded
}

// DefaultConfig returns the default suggester configuration
func DefaultConfig() Config {
	return Config{
		Model:         "openbmb/minicpm-v4.5",
		SendSize:      1024,
		SendQuality:   85,
		MinConfidence: 0.3,
	}
}

// Suggester turns vision model answers into normalized regions
type Suggester struct {
	client VisionClient
	config Config
}

// NewSuggester creates a suggester over client
func NewSuggester(client VisionClient, config Config) *Suggester {
	return &Suggester{client: client, config: config}
}

// Config returns the suggester configuration
func (s *Suggester) Config() Config {
	return s.config
}

// Suggest asks the model where the subject of img is. A non-empty subject
// names the object to look for. Answers labelled "none", below the
// confidence threshold or without area fail with types.ErrNoSuggestion.
func (s *Suggester) Suggest(ctx context.Context, img image.Image, subject string) (*types.Suggestion, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: no image", types.ErrImageDecode)
	}

	imgB64, err := raster.EncodeForModel(img, "jpg", s.config.SendSize, s.config.SendQuality)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare image: %w", err)
	}

	prompt := DefaultPrompt
	if subject = strings.TrimSpace(subject); subject != "" {
		prompt = fmt.Sprintf(targetedPrompt, subject)
	}

	sug, err := s.client.Locate(ctx, s.config.Model, prompt, imgB64)
	if err != nil {
		return nil, err
	}
	return s.validate(sug)
}

func (s *Suggester) validate(sug *types.Suggestion) (*types.Suggestion, error) {
	if sug == nil || strings.EqualFold(strings.TrimSpace(sug.Label), "none") {
		return nil, fmt.Errorf("%w: model found no subject", types.ErrNoSuggestion)
	}
	if sug.Confidence < s.config.MinConfidence {
		return nil, fmt.Errorf("%w: confidence %.2f below %.2f", types.ErrNoSuggestion, sug.Confidence, s.config.MinConfidence)
	}

	out := *sug
	out.Label = strings.TrimSpace(out.Label)
	out.Box = clampRegion(sug.Box)
	if out.Box.W <= 0 || out.Box.H <= 0 {
		return nil, fmt.Errorf("%w: empty box", types.ErrNoSuggestion)
	}
	return &out, nil
}

// clampRegion keeps the region inside the unit square, cutting off what
// hangs over an edge
func clampRegion(r types.Region) types.Region {
	x0 := clamp(r.X, 0, 1)
	y0 := clamp(r.Y, 0, 1)
	x1 := clamp(r.X+r.W, 0, 1)
	y1 := clamp(r.Y+r.H, 0, 1)
	return types.Region{X: x0, Y: y0, W: math.Max(0, x1-x0), H: math.Max(0, y1-y0)}
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
