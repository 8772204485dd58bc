// Package reliability implements the Reliability Scorer (C10): a per-agent
// EWMA updated from verdicts, with tier computation as the single source of
// truth the Enforcement Engine consults (spec §4.10).
package reliability

import (
	"sync"
	"time"

	"github.com/ares-io/ares-core/internal/ids"
	"github.com/ares-io/ares-core/internal/model"
)

// DefaultRingBufferCapacity is used when Config.RingBufferSize is
// non-positive.
const DefaultRingBufferCapacity = 50

type (
	// Scorer owns every agent's ReliabilityState, mutated under the
	// per-agent lock (spec §5).
	Scorer struct {
		alpha              float64
		goodScoreMin       float64
		watchScoreMin      float64
		probationScoreMin  float64
		quarantineRecovery float64
		quarantineStreak   int
		ringBufferSize     int

		mu     sync.Mutex
		states map[ids.AgentId]*model.ReliabilityState
		locks  map[ids.AgentId]*sync.Mutex
	}

	// Config carries the fixed constants from spec §4.10, sourced from
	// immutable startup configuration.
	Config struct {
		Alpha              float64
		InitialScore       float64
		GoodScoreMin       float64
		WatchScoreMin      float64
		ProbationScoreMin  float64
		QuarantineRecovery float64
		QuarantineStreak   int
		// RingBufferSize caps ReliabilityState.Recent; non-positive falls
		// back to DefaultRingBufferCapacity.
		RingBufferSize int
	}

	// Transition describes a tier change produced by RecordVerdict.
	Transition struct {
		AgentID  ids.AgentId
		Occurred bool
		From     model.Tier
		To       model.Tier
		State    model.ReliabilityState
	}
)

// NewScorer constructs a Scorer from cfg.
func NewScorer(cfg Config) *Scorer {
	ringBufferSize := cfg.RingBufferSize
	if ringBufferSize <= 0 {
		ringBufferSize = DefaultRingBufferCapacity
	}
	return &Scorer{
		alpha:              cfg.Alpha,
		goodScoreMin:       cfg.GoodScoreMin,
		watchScoreMin:      cfg.WatchScoreMin,
		probationScoreMin:  cfg.ProbationScoreMin,
		quarantineRecovery: cfg.QuarantineRecovery,
		quarantineStreak:   cfg.QuarantineStreak,
		ringBufferSize:     ringBufferSize,
		states:             make(map[ids.AgentId]*model.ReliabilityState),
		locks:              make(map[ids.AgentId]*sync.Mutex),
	}
}

// InitialState returns the initial ReliabilityState for a freshly registered
// agent.
func InitialState(initialScore float64) model.ReliabilityState {
	return model.ReliabilityState{Score: initialScore, Tier: model.Good}
}

func (s *Scorer) lockFor(agentID ids.AgentId) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[agentID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[agentID] = l
	}
	return l
}

// Register initializes agentID's reliability state if it does not already
// exist.
func (s *Scorer) Register(agentID ids.AgentId, initialScore float64) {
	l := s.lockFor(agentID)
	l.Lock()
	defer l.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.states[agentID]; !ok {
		state := InitialState(initialScore)
		s.states[agentID] = &state
	}
}

// Get returns a copy of agentID's current reliability state.
func (s *Scorer) Get(agentID ids.AgentId) (model.ReliabilityState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.states[agentID]
	if !ok {
		return model.ReliabilityState{}, false
	}
	return *state, true
}

// RecordVerdict updates agentID's EWMA score, ring buffer, and consecutive
// failure count from outcome, then re-evaluates its tier, reporting whether
// a transition actually occurred (spec §4.10: "emit AgentStatusChanged only
// on actual transitions").
func (s *Scorer) RecordVerdict(agentID ids.AgentId, outcome model.Outcome, at time.Time) Transition {
	l := s.lockFor(agentID)
	l.Lock()
	defer l.Unlock()

	s.mu.Lock()
	state, ok := s.states[agentID]
	if !ok {
		newState := InitialState(1.0)
		state = &newState
		s.states[agentID] = state
	}
	s.mu.Unlock()

	fromTier := state.Tier

	passValue := 0.0
	if outcome == model.Pass {
		passValue = 1.0
	}
	state.Score = s.alpha*passValue + (1-s.alpha)*state.Score
	state.PushRecent(model.VerdictRecord{Outcome: outcome, Timestamp: at}, s.ringBufferSize)

	if outcome == model.Pass {
		state.ConsecutiveFailures = 0
	} else {
		state.ConsecutiveFailures++
	}

	state.Tier = s.computeTier(fromTier, *state)

	return Transition{
		AgentID:  agentID,
		Occurred: state.Tier != fromTier,
		From:     fromTier,
		To:       state.Tier,
		State:    *state,
	}
}

// computeTier applies the tier table from spec §4.10. The previous tier
// participates in the evaluation because several bands ("Leave when") are
// defined relative to the tier the agent is currently in, not purely from
// score/CF in isolation.
func (s *Scorer) computeTier(current model.Tier, state model.ReliabilityState) model.Tier {
	score := state.Score
	cf := state.ConsecutiveFailures

	switch current {
	case model.Quarantine:
		if score >= s.quarantineRecovery && cf == 0 && state.RecentSuccessStreak() >= s.quarantineStreak {
			return model.Good
		}
		return model.Quarantine
	default:
		switch {
		case score < s.probationScoreMin || cf >= 5:
			return model.Quarantine
		case score < s.watchScoreMin || (cf >= 3 && cf <= 4):
			return model.Probation
		case score < s.goodScoreMin || cf == 2:
			return model.Watch
		default:
			return model.Good
		}
	}
}
