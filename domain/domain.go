// Package domain defines the Domain and Document entities mutated by the
// platform's two workflows, plus the pure merge logic applied to owner
// feedback and document analysis.
package domain

import "time"

// Status is a Domain's lifecycle state, advanced only by its bootstrap
// workflow until it reaches Active.
type Status string

const (
	StatusProposed      Status = "proposed"
	StatusResearching   Status = "researching"
	StatusAnalyzing     Status = "analyzing"
	StatusAwaitingOwner Status = "awaiting_owner"
	StatusActive        Status = "active"
	StatusRejected      Status = "rejected"
	StatusFailed        Status = "failed"
)

// QualityCriteria controls the bar a contributed document must clear to be
// accepted into a domain, and the depth of research the bootstrap workflow
// requests.
type QualityCriteria struct {
	MinLength         int      `json:"min_length,omitempty"`
	QualityThreshold  float64  `json:"quality_threshold,omitempty"` // in [0,10]
	RequiredSections  []string `json:"required_sections,omitempty"`
	IncludeHistorical bool     `json:"include_historical,omitempty"`
	IncludeTechnical  bool     `json:"include_technical,omitempty"`
	IncludePractical  bool     `json:"include_practical,omitempty"`
}

// Domain is a knowledge domain proposed by an owner and, once active, a
// target for document contributions.
type Domain struct {
	ID               string         `json:"id"`
	OwnerID          string         `json:"owner_id"`
	Title            string         `json:"title"`
	Description      string         `json:"description"`
	Slug             string         `json:"slug"`
	Status           Status         `json:"status"`
	Topics           []string       `json:"topics"`
	QualityCriteria  QualityCriteria `json:"quality_criteria"`
	TargetAudience   []string       `json:"target_audience"`
	SearchAttributes map[string]any `json:"search_attributes,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// QuestionRanking records an owner's ranking of one of the example
// questions generated during research.
type QuestionRanking struct {
	Question string `json:"question"`
	Rank     int    `json:"rank"`
}

// OwnerFeedback is the payload of the submit_owner_feedback signal. The
// bootstrap workflow's approve() and reject(reason) signals are encoded as
// this same payload shape (Approved=true with no other fields set, or
// Approved=false with Reason set) so the workflow only ever waits on one
// signal channel.
type OwnerFeedback struct {
	Approved            bool              `json:"approved"`
	Reason              string            `json:"reason,omitempty"`
	AdditionalTopics    []string          `json:"additional_topics,omitempty"`
	RemoveTopics        []string          `json:"remove_topics,omitempty"`
	QualityRequirements QualityCriteria   `json:"quality_requirements,omitempty"`
	QuestionRankings    []QuestionRanking `json:"question_rankings,omitempty"`
}

// ApplyOwnerFeedback returns a copy of d with fb merged in: additional
// topics are appended (deduped, preserving order), removed topics are
// dropped, and any non-zero field of fb.QualityRequirements overrides the
// corresponding field of d.QualityCriteria. fb.Approved and
// fb.QuestionRankings carry no merge semantics of their own; the caller
// (the bootstrap workflow) decides the resulting Status.
func ApplyOwnerFeedback(d Domain, fb OwnerFeedback) Domain {
	out := d
	out.Topics = mergeTopics(d.Topics, fb.AdditionalTopics, fb.RemoveTopics)
	out.QualityCriteria = mergeQualityCriteria(d.QualityCriteria, fb.QualityRequirements)
	return out
}

func mergeTopics(base, add, remove []string) []string {
	removed := make(map[string]struct{}, len(remove))
	for _, t := range remove {
		removed[t] = struct{}{}
	}
	seen := make(map[string]struct{}, len(base)+len(add))
	var out []string
	for _, t := range base {
		if _, gone := removed[t]; gone {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	for _, t := range add {
		if _, gone := removed[t]; gone {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func mergeQualityCriteria(base, override QualityCriteria) QualityCriteria {
	out := base
	if override.MinLength != 0 {
		out.MinLength = override.MinLength
	}
	if override.QualityThreshold != 0 {
		out.QualityThreshold = override.QualityThreshold
	}
	if len(override.RequiredSections) > 0 {
		out.RequiredSections = override.RequiredSections
	}
	if override.IncludeHistorical {
		out.IncludeHistorical = true
	}
	if override.IncludeTechnical {
		out.IncludeTechnical = true
	}
	if override.IncludePractical {
		out.IncludePractical = true
	}
	return out
}
