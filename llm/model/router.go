package model

import "fmt"

// TierRouter resolves a Tier to a concrete Client and TierProfile, enforcing
// a per-call budget by downgrading to the best tier that fits.
type TierRouter struct {
	table     map[Tier]TierProfile
	providers map[Tier]Client
}

// NewTierRouter builds a router over the default tier table. Each tier must
// have a registered provider before Resolve is called for it.
func NewTierRouter() *TierRouter {
	table := make(map[Tier]TierProfile, len(DefaultTierTable))
	for k, v := range DefaultTierTable {
		table[k] = v
	}
	return &TierRouter{table: table, providers: make(map[Tier]Client)}
}

// Register binds a Client to serve requests for the given tier.
func (r *TierRouter) Register(tier Tier, client Client) {
	r.providers[tier] = client
}

// estimatedTokens is a conservative heuristic used only for budget checks;
// actual usage is reported by the provider response.
func estimatedTokens(req Request) int {
	chars := 0
	for _, m := range req.Messages {
		chars += len(m.Content)
	}
	tokens := chars/3 + 256
	if req.MaxTokens > 0 {
		tokens += req.MaxTokens
	}
	return tokens
}

// orderedTiers from cheapest to most expensive, used when downgrading for
// budget reasons.
var orderedTiers = []Tier{TierUltraFast, TierUltraCheap, TierFastCheap, TierBalanced, TierDeep, TierUltraQuality}

// ResolveWithBudget picks the highest-quality tier at or below want whose
// estimated cost fits budgetUSD, starting the search at want and falling
// back toward cheaper tiers. A zero or negative budgetUSD disables the
// budget check entirely.
func (r *TierRouter) ResolveWithBudget(want Tier, req Request, budgetUSD float64) (Client, TierProfile, Tier, error) {
	if budgetUSD <= 0 {
		return r.Resolve(want, req)
	}
	wantIdx := tierIndex(want)
	if wantIdx < 0 {
		return nil, TierProfile{}, "", fmt.Errorf("model: unknown tier %q", want)
	}
	for idx := wantIdx; idx >= 0; idx-- {
		tier := orderedTiers[idx]
		profile, ok := r.table[tier]
		if !ok {
			continue
		}
		cost := profile.CostPer1K * float64(estimatedTokens(req)) / 1000.0
		if cost <= budgetUSD {
			client, ok := r.providers[tier]
			if !ok {
				continue
			}
			return client, profile, tier, nil
		}
	}
	return nil, TierProfile{}, "", fmt.Errorf("model: no tier at or below %q fits budget %.4f", want, budgetUSD)
}

// Resolve returns the provider and profile for tier without applying a
// budget constraint.
func (r *TierRouter) Resolve(tier Tier, _ Request) (Client, TierProfile, Tier, error) {
	profile, ok := r.table[tier]
	if !ok {
		return nil, TierProfile{}, "", fmt.Errorf("model: unknown tier %q", tier)
	}
	client, ok := r.providers[tier]
	if !ok {
		return nil, TierProfile{}, "", fmt.Errorf("model: no provider registered for tier %q", tier)
	}
	return client, profile, tier, nil
}

func tierIndex(t Tier) int {
	for i, candidate := range orderedTiers {
		if candidate == t {
			return i
		}
	}
	return -1
}
