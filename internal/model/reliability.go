package model

import "time"

// Tier is the coarse-grained reliability bucket derived from
// ReliabilityState (spec §4.10). Tier computation is the single source of
// truth consulted by the Enforcement Engine.
type Tier string

const (
	Good       Tier = "good"
	Watch      Tier = "watch"
	Probation  Tier = "probation"
	Quarantine Tier = "quarantine"
)

// VerdictRecord is one entry in ReliabilityState's recent ring buffer.
type VerdictRecord struct {
	Outcome   Outcome
	Timestamp time.Time
}

// ReliabilityState is the per-agent EWMA reliability record (spec §3/§4.10).
// It is mutated only by the Reliability Scorer, under the per-agent lock.
type ReliabilityState struct {
	Score               float64
	Recent              []VerdictRecord // ring buffer, oldest first, capped at N
	ConsecutiveFailures int
	Tier                Tier
}

// PushRecent appends a verdict record to the ring buffer, dropping the
// oldest entry once capacity is reached.
func (r *ReliabilityState) PushRecent(rec VerdictRecord, capacity int) {
	r.Recent = append(r.Recent, rec)
	if over := len(r.Recent) - capacity; over > 0 {
		r.Recent = r.Recent[over:]
	}
}

// RecentSuccessStreak counts consecutive Pass outcomes from the most recent
// entry in Recent backwards; used by the Quarantine→* recovery rule (spec
// §4.10: "score ≥ 0.6 ∧ CF=0 over ≥ 5 recent successes").
func (r ReliabilityState) RecentSuccessStreak() int {
	streak := 0
	for i := len(r.Recent) - 1; i >= 0; i-- {
		if r.Recent[i].Outcome != Pass {
			break
		}
		streak++
	}
	return streak
}
