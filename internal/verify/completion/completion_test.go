package completion

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ares-io/ares-core/internal/model"
)

func TestVerifyNoRequirementsScoresOne(t *testing.T) {
	result := Verify(model.AcceptanceCriteria{}, nil)
	require.Equal(t, 1.0, result.Score)
	require.Contains(t, result.Reasons, "no_requirements")
}

func TestVerifyAllRequiredPresentScoresOne(t *testing.T) {
	criteria := model.AcceptanceCriteria{
		Artifacts: []model.ArtifactRequirement{
			{Kind: "code", Required: true},
			{Kind: "test_report", Required: true},
		},
	}
	artifacts := []model.Artifact{
		{Kind: "code"},
		{Kind: "test_report"},
	}
	result := Verify(criteria, artifacts)
	require.Equal(t, 1.0, result.Score)
	require.Empty(t, result.Reasons)
}

func TestVerifyMissingRequiredArtifact(t *testing.T) {
	criteria := model.AcceptanceCriteria{
		Artifacts: []model.ArtifactRequirement{
			{Kind: "code", Required: true},
			{Kind: "test_report", Required: true},
		},
	}
	artifacts := []model.Artifact{{Kind: "code"}}

	result := Verify(criteria, artifacts)
	require.Equal(t, 0.5, result.Score)
	require.Contains(t, result.Reasons, "missing_artifact:test_report")
}

func TestVerifyPredicateFailure(t *testing.T) {
	criteria := model.AcceptanceCriteria{
		Artifacts: []model.ArtifactRequirement{
			{Kind: "code", Required: true, Predicate: func(a model.Artifact) bool { return !a.Empty() }},
		},
	}
	artifacts := []model.Artifact{{Kind: "code", Payload: nil}}

	result := Verify(criteria, artifacts)
	require.Equal(t, 0.0, result.Score)
	require.Contains(t, result.Reasons, "predicate_failed:code")
}

func TestVerifyTieBreakCreditsEarliestSubmitted(t *testing.T) {
	criteria := model.AcceptanceCriteria{
		Artifacts: []model.ArtifactRequirement{
			{Kind: "code", Required: true, Predicate: func(a model.Artifact) bool { return len(a.Payload) > 0 }},
		},
	}
	artifacts := []model.Artifact{
		{Kind: "code", Payload: []byte("first")},
		{Kind: "code", Payload: []byte("second")},
	}

	result := Verify(criteria, artifacts)
	require.Equal(t, 1.0, result.Score)
}

func TestVerifyOptionalKindNeverLowersScore(t *testing.T) {
	criteria := model.AcceptanceCriteria{
		Artifacts: []model.ArtifactRequirement{
			{Kind: "code", Required: true},
			{Kind: "screenshot", Required: false},
		},
	}
	artifacts := []model.Artifact{{Kind: "code"}, {Kind: "screenshot"}}

	result := Verify(criteria, artifacts)
	require.Equal(t, 1.0, result.Score)
	require.Contains(t, result.Reasons, "bonus:screenshot")
}
