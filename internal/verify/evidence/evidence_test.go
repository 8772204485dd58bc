package evidence

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ares-io/ares-core/internal/model"
)

func TestScoreNoArtifactsIsZero(t *testing.T) {
	result := Score(model.AcceptanceCriteria{}, nil)
	require.Equal(t, 0.0, result.Score)
}

func TestScorePresentDistinctRecognizedIsOne(t *testing.T) {
	criteria := model.AcceptanceCriteria{Artifacts: []model.ArtifactRequirement{{Kind: "code", Required: true}}}
	artifacts := []model.Artifact{{ID: "a1", Kind: "code", Payload: []byte("x"), Hash: "h1"}}

	result := Score(criteria, artifacts)
	require.Equal(t, 1.0, result.Score)
	require.Empty(t, result.Reasons)
}

func TestScoreDuplicateHashPenalized(t *testing.T) {
	criteria := model.AcceptanceCriteria{Artifacts: []model.ArtifactRequirement{{Kind: "code", Required: true}}}
	artifacts := []model.Artifact{
		{ID: "a1", Kind: "code", Payload: []byte("x"), Hash: "h1"},
		{ID: "a2", Kind: "code", Payload: []byte("y"), Hash: "h1"},
	}

	result := Score(criteria, artifacts)
	require.Less(t, result.Score, 1.0)
	require.Contains(t, result.Reasons, "duplicate_hash:a2")
}

func TestScoreEmptyPayloadPenalized(t *testing.T) {
	criteria := model.AcceptanceCriteria{Artifacts: []model.ArtifactRequirement{{Kind: "code", Required: true}}}
	artifacts := []model.Artifact{{ID: "a1", Kind: "code", Hash: "h1"}}

	result := Score(criteria, artifacts)
	require.Contains(t, result.Reasons, "empty_payload:a1")
}

func TestScoreUnknownKindPenalized(t *testing.T) {
	artifacts := []model.Artifact{{ID: "a1", Kind: "mystery", Payload: []byte("x"), Hash: "h1"}}

	result := Score(model.AcceptanceCriteria{}, artifacts)
	require.Contains(t, result.Reasons, "unknown_kind:a1")
}
