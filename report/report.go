// Package report generates the trust report released after payment.
// The heuristics are a pure function over the submission and can be
// swapped without touching the payment gating.
package report

import (
	"strings"

	"github.com/wipecheck/wipecheck/types"
)

// Generator produces a report from a stored submission.
type Generator interface {
	Generate(sub types.Submission) *types.Report
}

const (
	baseScore = 80

	minBioLength = 10

	missingHandlePenalty   = 10
	shortBioPenalty        = 10
	externalContactPenalty = 15
)

// HeuristicGenerator is the default scoring implementation.
type HeuristicGenerator struct{}

var _ Generator = HeuristicGenerator{}

func NewHeuristicGenerator() HeuristicGenerator {
	return HeuristicGenerator{}
}

func (HeuristicGenerator) Generate(sub types.Submission) *types.Report {
	score := baseScore
	reasons := []string{}

	if sub.Handle == "" {
		score -= missingHandlePenalty
		reasons = append(reasons, "No public handle provided.")
	}

	if len(sub.Bio) < minBioLength {
		score -= shortBioPenalty
		reasons = append(reasons, "Bio is too short or missing.")
	}

	if sub.Bio != "" && strings.Contains(strings.ToLower(sub.Bio), "telegram") {
		score -= externalContactPenalty
		reasons = append(reasons, "External contact in bio (Telegram).")
	}

	return &types.Report{
		Score:   score,
		Risk:    riskFor(score),
		Reasons: reasons,
		Profile: types.Profile{
			Name:     sub.Name,
			Handle:   sub.Handle,
			Platform: sub.Platform,
		},
	}
}

// riskFor buckets a score. A score of exactly 60 is Medium.
func riskFor(score int) types.RiskLevel {
	switch {
	case score < 40:
		return types.RiskHigh
	case score <= 60:
		return types.RiskMedium
	default:
		return types.RiskLow
	}
}
