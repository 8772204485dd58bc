// Package completion implements the Completion Verifier (C4): it matches a
// task's submitted artifacts against its declared acceptance criteria.
package completion

import (
	"fmt"

	"github.com/ares-io/ares-core/internal/model"
)

// Result is the output of Verify: a score in [0,1] and the stable reason
// tags explaining it (spec §4.4).
type Result struct {
	Score   float64
	Reasons []string
}

// Verify scores artifacts against criteria. For each required artifact kind
// it credits the earliest-submitted artifact whose predicate (if any)
// passes; unmet requirements and satisfied optional kinds are both recorded
// as reasons.
func Verify(criteria model.AcceptanceCriteria, artifacts []model.Artifact) Result {
	required := 0
	credited := 0
	var reasons []string

	for _, req := range criteria.Artifacts {
		if !req.Required {
			if ok, kind := firstSatisfying(req, artifacts); ok {
				reasons = append(reasons, fmt.Sprintf("bonus:%s", kind))
			}
			continue
		}
		required++
		ok, _ := firstSatisfying(req, artifacts)
		if !ok {
			if anyOfKind(artifacts, req.Kind) {
				reasons = append(reasons, fmt.Sprintf("predicate_failed:%s", req.Kind))
			} else {
				reasons = append(reasons, fmt.Sprintf("missing_artifact:%s", req.Kind))
			}
			continue
		}
		credited++
	}

	if required == 0 {
		return Result{Score: 1.0, Reasons: append([]string{"no_requirements"}, reasons...)}
	}

	score := float64(credited) / float64(required)
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return Result{Score: score, Reasons: reasons}
}

// firstSatisfying returns the earliest-submitted artifact of req.Kind that
// satisfies req.Predicate (or any artifact of that kind when no predicate is
// set), honoring the tie-break policy (spec §4.4: "the earlier-submitted one
// is credited").
func firstSatisfying(req model.ArtifactRequirement, artifacts []model.Artifact) (bool, string) {
	for _, a := range artifacts {
		if a.Kind != req.Kind {
			continue
		}
		if req.Predicate == nil || req.Predicate(a) {
			return true, a.Kind
		}
	}
	return false, ""
}

func anyOfKind(artifacts []model.Artifact, kind string) bool {
	for _, a := range artifacts {
		if a.Kind == kind {
			return true
		}
	}
	return false
}
