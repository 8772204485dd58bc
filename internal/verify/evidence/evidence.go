// Package evidence implements the Proof-of-Work Collector (C6): it scores
// recorded artifacts for presence, distinctness, and recognized typing.
package evidence

import (
	"fmt"

	"github.com/ares-io/ares-core/internal/model"
)

// Result is the output of Score (spec §4.6).
type Result struct {
	Score   float64
	Reasons []string
}

// Score computes the task's evidence_score as the mean per-artifact quality
// (mean of presence, distinctness, typing), or 0 with no artifacts.
func Score(criteria model.AcceptanceCriteria, artifacts []model.Artifact) Result {
	if len(artifacts) == 0 {
		return Result{Score: 0}
	}

	recognized := criteria.RecognizedKinds()
	seenHashes := make(map[string]struct{}, len(artifacts))
	var reasons []string
	total := 0.0

	for _, a := range artifacts {
		presence := 1.0
		if a.Empty() {
			presence = 0
			reasons = append(reasons, fmt.Sprintf("empty_payload:%s", a.ID))
		}

		distinctness := 1.0
		if a.Hash != "" {
			if _, dup := seenHashes[a.Hash]; dup {
				distinctness = 0
				reasons = append(reasons, fmt.Sprintf("duplicate_hash:%s", a.ID))
			}
			seenHashes[a.Hash] = struct{}{}
		}

		typing := 0.0
		if _, ok := recognized[a.Kind]; ok {
			typing = 1
		} else {
			reasons = append(reasons, fmt.Sprintf("unknown_kind:%s", a.ID))
		}

		total += (presence + distinctness + typing) / 3.0
	}

	return Result{Score: total / float64(len(artifacts)), Reasons: reasons}
}
