package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

const (
	defaultGeminiChatModel  = "gemini-1.5-flash"
	defaultGeminiImageModel = "gemini-2.0-flash-preview-image-generation"
)

// GeminiProvider streams chat replies and generates images through the
// Google generative AI API.
type GeminiProvider struct {
	client     *genai.Client
	chatModel  string
	imageModel string
}

func NewGeminiProvider(ctx context.Context, apiKey, chatModel, imageModel string) (*GeminiProvider, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("gemini: %w", ErrMissingAPIKey)
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	if chatModel == "" {
		chatModel = defaultGeminiChatModel
	}
	if imageModel == "" {
		imageModel = defaultGeminiImageModel
	}
	return &GeminiProvider{client: client, chatModel: chatModel, imageModel: imageModel}, nil
}

func (p *GeminiProvider) Name() string { return "gemini" }

func (p *GeminiProvider) Close() error { return p.client.Close() }

func (p *GeminiProvider) StreamChat(ctx context.Context, req ChatRequest, onDelta func(string)) (string, error) {
	model := p.client.GenerativeModel(p.chatModel)
	if req.SystemInstruction != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(req.SystemInstruction)},
		}
	}

	cs := model.StartChat()
	cs.History = geminiHistory(req.History)

	parts := []genai.Part{genai.Text(req.Message)}
	if req.Attachment != nil {
		parts = append(parts, genai.Blob{MIMEType: req.Attachment.MIMEType, Data: req.Attachment.Data})
	}

	var full strings.Builder
	it := cs.SendMessageStream(ctx, parts...)
	for {
		resp, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			if cerr := ctx.Err(); cerr != nil {
				return full.String(), cerr
			}
			return full.String(), fmt.Errorf("gemini stream failed: %w", err)
		}
		for _, cand := range resp.Candidates {
			if cand.Content == nil {
				continue
			}
			for _, part := range cand.Content.Parts {
				if text, ok := part.(genai.Text); ok && text != "" {
					full.WriteString(string(text))
					if onDelta != nil {
						onDelta(string(text))
					}
				}
			}
		}
	}
	if full.Len() == 0 {
		return "", fmt.Errorf("gemini stream failed: empty response")
	}
	return full.String(), nil
}

// GenerateImage asks the image-capable model for inline image data and
// returns the first binary part found.
func (p *GeminiProvider) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	model := p.client.GenerativeModel(p.imageModel)
	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("gemini image generation failed: %w", err)
	}
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if blob, ok := part.(genai.Blob); ok && len(blob.Data) > 0 {
				return blob.Data, nil
			}
		}
	}
	return nil, fmt.Errorf("gemini image generation failed: no image in response")
}

func geminiHistory(history []Message) []*genai.Content {
	out := make([]*genai.Content, 0, len(history))
	for _, m := range history {
		role := "user"
		if m.Role == "assistant" {
			role = "model"
		}
		content := &genai.Content{Role: role}
		if m.Text != "" {
			content.Parts = append(content.Parts, genai.Text(m.Text))
		}
		if m.Attachment != nil {
			content.Parts = append(content.Parts, genai.Blob{MIMEType: m.Attachment.MIMEType, Data: m.Attachment.Data})
		}
		if len(content.Parts) == 0 {
			continue
		}
		out = append(out, content)
	}
	return out
}
