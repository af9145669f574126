package providers

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const (
	defaultOpenAIChatModel  = openai.GPT4oMini
	defaultOpenAIImageModel = openai.CreateImageModelDallE3
)

// OpenAIProvider streams chat completions and generates images through the
// OpenAI API. Attachments are encoded as data-URI image parts.
type OpenAIProvider struct {
	client     *openai.Client
	chatModel  string
	imageModel string
}

func NewOpenAIProvider(apiKey, chatModel, imageModel string) (*OpenAIProvider, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("openai: %w", ErrMissingAPIKey)
	}
	if chatModel == "" {
		chatModel = defaultOpenAIChatModel
	}
	if imageModel == "" {
		imageModel = defaultOpenAIImageModel
	}
	return &OpenAIProvider{
		client:     openai.NewClient(apiKey),
		chatModel:  chatModel,
		imageModel: imageModel,
	}, nil
}

func (p *OpenAIProvider) Name() string { return "openai" }

func (p *OpenAIProvider) StreamChat(ctx context.Context, req ChatRequest, onDelta func(string)) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.History)+2)
	if req.SystemInstruction != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemInstruction,
		})
	}
	for _, m := range req.History {
		messages = append(messages, openaiMessage(m.Role, m.Text, m.Attachment))
	}
	messages = append(messages, openaiMessage("user", req.Message, req.Attachment))

	stream, err := p.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:    p.chatModel,
		Messages: messages,
		Stream:   true,
	})
	if err != nil {
		return "", fmt.Errorf("openai stream failed: %w", err)
	}
	defer stream.Close()

	var full strings.Builder
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if cerr := ctx.Err(); cerr != nil {
				return full.String(), cerr
			}
			return full.String(), fmt.Errorf("openai stream failed: %w", err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		delta := resp.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		full.WriteString(delta)
		if onDelta != nil {
			onDelta(delta)
		}
	}
	if full.Len() == 0 {
		return "", fmt.Errorf("openai stream failed: empty response")
	}
	return full.String(), nil
}

func (p *OpenAIProvider) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	resp, err := p.client.CreateImage(ctx, openai.ImageRequest{
		Model:          p.imageModel,
		Prompt:         prompt,
		N:              1,
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		return nil, fmt.Errorf("openai image generation failed: %w", err)
	}
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return nil, fmt.Errorf("openai image generation failed: no image in response")
	}
	data, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("openai image generation failed: decode payload: %w", err)
	}
	return data, nil
}

func openaiMessage(role, text string, att *Attachment) openai.ChatCompletionMessage {
	if role != "assistant" {
		role = "user"
	} else {
		role = openai.ChatMessageRoleAssistant
	}
	if att == nil {
		return openai.ChatCompletionMessage{Role: role, Content: text}
	}
	uri := fmt.Sprintf("data:%s;base64,%s", att.MIMEType, base64.StdEncoding.EncodeToString(att.Data))
	return openai.ChatCompletionMessage{
		Role: role,
		MultiContent: []openai.ChatMessagePart{
			{Type: openai.ChatMessagePartTypeText, Text: text},
			{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: uri}},
		},
	}
}
