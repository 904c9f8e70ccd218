// Package anthropic adapts the Anthropic Messages API to the tier gateway's
// model.Client interface.
package anthropic

import (
	"context"
	"fmt"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/domainkit/platform/llm/model"
)

// MessagesClient is the subset of the SDK's message service the adapter
// needs, narrowed so tests can supply a fake.
type MessagesClient interface {
	New(ctx context.Context, params sdk.MessageNewParams) (*sdk.Message, error)
}

// Client adapts an Anthropic MessagesClient to model.Client.
type Client struct {
	messages MessagesClient
}

// New builds a Client around an explicit MessagesClient, for tests.
func New(messages MessagesClient) *Client {
	return &Client{messages: messages}
}

// NewFromAPIKey builds a Client backed by the real Anthropic SDK.
func NewFromAPIKey(apiKey string) *Client {
	sdkClient := sdk.NewClient(option.WithAPIKey(apiKey))
	return &Client{messages: &realMessages{client: &sdkClient}}
}

type realMessages struct {
	client *sdk.Client
}

func (r *realMessages) New(ctx context.Context, params sdk.MessageNewParams) (*sdk.Message, error) {
	return r.client.Messages.New(ctx, params)
}

// Complete implements model.Client.
func (c *Client) Complete(ctx context.Context, profile model.TierProfile, req model.Request) (model.Response, error) {
	maxTokens := profile.MaxTokens
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}

	var system string
	msgs := make([]sdk.MessageParam, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			system = m.Content
		case "assistant":
			msgs = append(msgs, sdk.NewAssistantMessage(sdk.NewTextBlock(m.Content)))
		default:
			msgs = append(msgs, sdk.NewUserMessage(sdk.NewTextBlock(m.Content)))
		}
	}

	params := sdk.MessageNewParams{
		Model:       sdk.Model(profile.ModelName),
		MaxTokens:   int64(maxTokens),
		Temperature: sdk.Float(profile.Temperature),
		Messages:    msgs,
	}
	if system != "" {
		params.System = []sdk.TextBlockParam{{Text: system}}
	}

	msg, err := c.messages.New(ctx, params)
	if err != nil {
		return model.Response{}, fmt.Errorf("anthropic: %w", translateError(err))
	}

	var content string
	for _, block := range msg.Content {
		if text := block.Text; text != "" {
			content += text
		}
	}

	return model.Response{
		Content:      content,
		InputTokens:  int(msg.Usage.InputTokens),
		OutputTokens: int(msg.Usage.OutputTokens),
		Model:        string(msg.Model),
	}, nil
}
