// Package bedrock adapts AWS Bedrock's Converse API to the tier gateway's
// model.Client interface, for deployments standardized on AWS-hosted
// models instead of calling Anthropic or OpenAI directly.
package bedrock

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/aws/smithy-go"

	"github.com/domainkit/platform/llm/model"
)

// ConverseClient is the subset of the SDK the adapter needs.
type ConverseClient interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// Client adapts a Bedrock ConverseClient to model.Client.
type Client struct {
	runtime ConverseClient
}

// New builds a Client around an explicit ConverseClient, for tests.
func New(runtime ConverseClient) *Client {
	return &Client{runtime: runtime}
}

// NewFromEnv builds a Client backed by the real Bedrock runtime client,
// loading AWS configuration from the environment/shared config files.
func NewFromEnv(ctx context.Context, region string) (*Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("bedrock: load AWS config: %w", err)
	}
	return &Client{runtime: bedrockruntime.NewFromConfig(cfg)}, nil
}

// Complete implements model.Client.
func (c *Client) Complete(ctx context.Context, profile model.TierProfile, req model.Request) (model.Response, error) {
	maxTokens := int32(profile.MaxTokens)
	if req.MaxTokens > 0 {
		maxTokens = int32(req.MaxTokens)
	}

	var system []types.SystemContentBlock
	msgs := make([]types.Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			system = append(system, &types.SystemContentBlockMemberText{Value: m.Content})
		case "assistant":
			msgs = append(msgs, types.Message{
				Role:    types.ConversationRoleAssistant,
				Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: m.Content}},
			})
		default:
			msgs = append(msgs, types.Message{
				Role:    types.ConversationRoleUser,
				Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: m.Content}},
			})
		}
	}

	out, err := c.runtime.Converse(ctx, &bedrockruntime.ConverseInput{
		ModelId:  aws.String(profile.ModelName),
		Messages: msgs,
		System:   system,
		InferenceConfig: &types.InferenceConfiguration{
			MaxTokens:   aws.Int32(maxTokens),
			Temperature: aws.Float32(float32(profile.Temperature)),
		},
	})
	if err != nil {
		return model.Response{}, fmt.Errorf("bedrock: %w", translateError(err))
	}

	outMsg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return model.Response{}, errors.New("bedrock: unexpected converse output shape")
	}
	var content string
	for _, block := range outMsg.Value.Content {
		if text, ok := block.(*types.ContentBlockMemberText); ok {
			content += text.Value
		}
	}

	resp := model.Response{Content: content, Model: profile.ModelName}
	if out.Usage != nil {
		resp.InputTokens = int(aws.ToInt32(out.Usage.InputTokens))
		resp.OutputTokens = int(aws.ToInt32(out.Usage.OutputTokens))
	}
	return resp, nil
}

func translateError(err error) error {
	if err == nil {
		return nil
	}
	var throttled *types.ThrottlingException
	var apiErr smithy.APIError
	if errors.As(err, &throttled) || (errors.As(err, &apiErr) && apiErr.ErrorCode() == "ThrottlingException") {
		return errors.Join(model.ErrRateLimited, err)
	}
	return err
}
