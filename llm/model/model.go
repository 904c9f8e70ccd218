// Package model defines the provider-agnostic request/response shapes and
// the closed tier set used by the LLM Tier Gateway.
package model

import (
	"context"
	"errors"
)

// Tier names a point in the fixed quality/cost/latency tradeoff table.
// Activities never choose a provider or model name directly; they choose a
// Tier and the gateway resolves it.
type Tier string

// The platform recognizes exactly these six tiers. Activities that need a
// tier outside this set are a bug, not a configuration option.
const (
	TierFastCheap    Tier = "fast_cheap"
	TierBalanced     Tier = "balanced"
	TierDeep         Tier = "deep"
	TierUltraFast    Tier = "ultra_fast"
	TierUltraCheap   Tier = "ultra_cheap"
	TierUltraQuality Tier = "ultra_quality"
)

// TierProfile describes the concrete settings a Tier resolves to.
type TierProfile struct {
	ModelName   string
	Temperature float64
	MaxTokens   int
	CostPer1K   float64
}

// ErrRateLimited signals that a provider rejected a request due to rate
// limiting; ratelimit.AdaptiveRateLimiter backs off when it sees this error.
var ErrRateLimited = errors.New("model: rate limited by provider")

// ErrMalformedResponse signals that a provider returned output that could
// not be parsed as the structured schema the caller requested.
var ErrMalformedResponse = errors.New("model: malformed structured response")

// Message is one turn of a completion request. Role is "system", "user", or
// "assistant"; Content is plain text. The tier gateway only needs text
// in/text-or-JSON out, so Message carries no multi-part/tool-call payloads.
type Message struct {
	Role    string
	Content string
}

// Request is a provider-agnostic completion request.
type Request struct {
	Tier Tier
	// Messages is the conversation, oldest first.
	Messages []Message
	// JSONSchema, when non-empty, is the JSON Schema the response content
	// must validate against. Provider adapters may use it to ask for JSON
	// output; none of them validates the response against it, so callers
	// validate the content themselves.
	JSONSchema []byte
	// MaxTokens overrides the tier profile's MaxTokens when positive.
	MaxTokens int
}

// Response is a provider-agnostic completion result.
type Response struct {
	Content      string
	InputTokens  int
	OutputTokens int
	Model        string
}

// Client is implemented by each concrete provider adapter.
type Client interface {
	Complete(ctx context.Context, profile TierProfile, req Request) (Response, error)
}

// DefaultTierTable is the fixed tier -> profile mapping. Activities resolve
// a tier to a profile through TierRouter rather than reading this map
// directly, since TierRouter also applies budget constraints.
var DefaultTierTable = map[Tier]TierProfile{
	TierUltraFast:    {ModelName: "claude-haiku-4", Temperature: 0.0, MaxTokens: 1024, CostPer1K: 0.0008},
	TierUltraCheap:   {ModelName: "claude-haiku-4", Temperature: 0.2, MaxTokens: 2048, CostPer1K: 0.001},
	TierFastCheap:    {ModelName: "claude-sonnet-4", Temperature: 0.2, MaxTokens: 4096, CostPer1K: 0.003},
	TierBalanced:     {ModelName: "claude-sonnet-4", Temperature: 0.4, MaxTokens: 8192, CostPer1K: 0.006},
	TierDeep:         {ModelName: "claude-opus-4", Temperature: 0.3, MaxTokens: 16384, CostPer1K: 0.015},
	TierUltraQuality: {ModelName: "claude-opus-4", Temperature: 0.2, MaxTokens: 32768, CostPer1K: 0.03},
}

// TaskDefaultTier maps an activity name to the tier it uses absent an
// explicit override or budget downgrade.
var TaskDefaultTier = map[string]Tier{
	"research_domain":            TierBalanced,
	"analyze_research":           TierDeep,
	"generate_example_questions": TierFastCheap,
	"assess_document_relevance":  TierFastCheap,
}
