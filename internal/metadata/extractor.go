package metadata

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/psykeus/designloft/internal/errors"
)

const maxCompletionTokens = 500

const systemPrompt = `You are analyzing CNC/laser cutting design files.
Extract metadata and return valid JSON with these fields:
- title: A descriptive title (without file extension)
- description: 2-3 sentence description of the design
- project_type: One of: coaster, sign, ornament, box, puzzle, jig, art, other
- difficulty: One of: easy, medium, hard
- materials: Array of suitable materials (wood, acrylic, leather, paper, metal)
- categories: Array of categories
- style: Design style (mandala, geometric, floral, minimal, detailed, celtic, tribal, etc.)
- tags: Array of descriptive tags (max 10)
- approx_dimensions: Estimated dimensions if visible (e.g., "4 inch diameter")

Return ONLY valid JSON, no markdown or explanation.`

var fencePattern = regexp.MustCompile("```(?:json)?\\s*")

var previewMimeTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
}

// Extractor asks a vision model to describe a design from its preview image.
// A nil client disables extraction; callers then get Basic metadata.
type Extractor struct {
	client *openai.Client
	model  string
	logger *slog.Logger
}

// NewExtractor builds an Extractor. An empty apiKey yields a disabled
// extractor that always falls back to filename metadata.
func NewExtractor(apiKey, model string, logger *slog.Logger) *Extractor {
	e := &Extractor{model: model, logger: logger}
	if apiKey != "" {
		e.client = openai.NewClient(apiKey)
	}
	return e
}

// Enabled reports whether a vision model is configured.
func (e *Extractor) Enabled() bool {
	return e != nil && e.client != nil
}

// Extract returns metadata for the design file. When the extractor is
// disabled, no preview exists, or the model's answer cannot be parsed into
// the expected schema, it degrades to Basic(filename) and never fails.
func (e *Extractor) Extract(ctx context.Context, previewPath, filename string) Metadata {
	if !e.Enabled() {
		return Basic(filename)
	}
	if previewPath == "" {
		return Basic(filename)
	}

	m, err := e.extract(ctx, previewPath, filename)
	if err != nil {
		e.logger.Warn("metadata extraction failed, using filename fallback",
			"file", filename,
			"error", err,
		)
		return Basic(filename)
	}
	return m
}

func (e *Extractor) extract(ctx context.Context, previewPath, filename string) (Metadata, error) {
	data, err := os.ReadFile(previewPath)
	if err != nil {
		return Metadata{}, errors.Wrap(err, errors.CodeInternal, "read preview")
	}

	mime := previewMimeTypes[strings.ToLower(filepath.Ext(previewPath))]
	if mime == "" {
		mime = "image/png"
	}
	dataURL := fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(data))

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: fmt.Sprintf("Analyze this CNC/laser design. Filename: %s", filename),
					},
					{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: dataURL},
					},
				},
			},
		},
		MaxCompletionTokens: maxCompletionTokens,
	})
	if err != nil {
		return Metadata{}, errors.Wrap(err, errors.CodeUnavailable, "chat completion")
	}
	if len(resp.Choices) == 0 {
		return Metadata{}, errors.Unavailable("model returned no choices")
	}

	return ParseResponse(resp.Choices[0].Message.Content)
}

// ParseResponse decodes a model answer into Metadata. Markdown code fences
// are stripped first. The decode is strict: unknown fields and enum
// violations are rejected so malformed answers fall back to filename
// metadata instead of landing in the catalog.
func ParseResponse(content string) (Metadata, error) {
	cleaned := strings.TrimSpace(fencePattern.ReplaceAllString(content, ""))

	var m Metadata
	dec := json.NewDecoder(bytes.NewReader([]byte(cleaned)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&m); err != nil {
		return Metadata{}, errors.Validationf("unparsable model response: %v", err)
	}
	if err := m.Validate(); err != nil {
		return Metadata{}, err
	}
	return m, nil
}
