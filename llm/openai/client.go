// Package openai adapts the OpenAI Chat Completions API to the tier
// gateway's model.Client interface.
package openai

import (
	"context"
	"errors"
	"fmt"

	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/domainkit/platform/llm/model"
)

// ChatClient is the subset of the SDK's chat service the adapter needs.
type ChatClient interface {
	New(ctx context.Context, params sdk.ChatCompletionNewParams) (*sdk.ChatCompletion, error)
}

// Client adapts an OpenAI ChatClient to model.Client.
type Client struct {
	chat ChatClient
}

// New builds a Client around an explicit ChatClient, for tests.
func New(chat ChatClient) *Client {
	return &Client{chat: chat}
}

// NewFromAPIKey builds a Client backed by the real OpenAI SDK.
func NewFromAPIKey(apiKey string) *Client {
	sdkClient := sdk.NewClient(option.WithAPIKey(apiKey))
	return &Client{chat: &realChat{client: &sdkClient}}
}

type realChat struct {
	client *sdk.Client
}

func (r *realChat) New(ctx context.Context, params sdk.ChatCompletionNewParams) (*sdk.ChatCompletion, error) {
	return r.client.Chat.Completions.New(ctx, params)
}

// Complete implements model.Client.
func (c *Client) Complete(ctx context.Context, profile model.TierProfile, req model.Request) (model.Response, error) {
	maxTokens := profile.MaxTokens
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}

	msgs := make([]sdk.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			msgs = append(msgs, sdk.SystemMessage(m.Content))
		case "assistant":
			msgs = append(msgs, sdk.AssistantMessage(m.Content))
		default:
			msgs = append(msgs, sdk.UserMessage(m.Content))
		}
	}

	params := sdk.ChatCompletionNewParams{
		Model:               sdk.ChatModel(profile.ModelName),
		Messages:            msgs,
		Temperature:         sdk.Float(profile.Temperature),
		MaxCompletionTokens: sdk.Int(int64(maxTokens)),
	}
	if len(req.JSONSchema) > 0 {
		params.ResponseFormat = sdk.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &sdk.ResponseFormatJSONObjectParam{},
		}
	}

	completion, err := c.chat.New(ctx, params)
	if err != nil {
		return model.Response{}, fmt.Errorf("openai: %w", translateError(err))
	}
	if len(completion.Choices) == 0 {
		return model.Response{}, errors.New("openai: empty choices in response")
	}

	return model.Response{
		Content:      completion.Choices[0].Message.Content,
		InputTokens:  int(completion.Usage.PromptTokens),
		OutputTokens: int(completion.Usage.CompletionTokens),
		Model:        completion.Model,
	}, nil
}

func translateError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) && apiErr.StatusCode == 429 {
		return errors.Join(model.ErrRateLimited, err)
	}
	return err
}
