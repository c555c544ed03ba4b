package contentgen

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidPrompt = errors.New("invalid_prompt")
	ErrInvalidCount  = errors.New("invalid_content_count")
)

const DefaultContentType = "post"

type GenerateRequest struct {
	Prompt      string
	ContentType string
	Count       int
}

// Draft is generated content not yet stored as a content item.
type Draft struct {
	Title string
	Body  string
	Meta  map[string]any
}

type Provider interface {
	Generate(ctx context.Context, req GenerateRequest) ([]Draft, error)
}

// TemplateProvider derives drafts from the prompt alone, so the same request
// always yields the same drafts.
type TemplateProvider struct{}

func NewTemplateProvider() *TemplateProvider {
	return &TemplateProvider{}
}

func (p *TemplateProvider) Generate(ctx context.Context, req GenerateRequest) ([]Draft, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, ErrInvalidPrompt
	}
	if req.Count < 1 {
		return nil, ErrInvalidCount
	}
	contentType := strings.TrimSpace(req.ContentType)
	if contentType == "" {
		contentType = DefaultContentType
	}

	drafts := make([]Draft, 0, req.Count)
	for i := 1; i <= req.Count; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		drafts = append(drafts, Draft{
			Title: fmt.Sprintf("%s #%d", prompt, i),
			Body:  fmt.Sprintf("%s (%s %d of %d)", prompt, contentType, i, req.Count),
			Meta: map[string]any{
				"source":       "ai",
				"content_type": contentType,
				"prompt":       prompt,
				"index":        i,
			},
		})
	}
	return drafts, nil
}
