// Package behavior implements the Behavior Monitor (C7): a per-agent
// sliding-window view over recent tasks, flagging anomalies by fixed,
// deterministic rules (spec §4.7 — no learned models).
package behavior

import (
	"math"
	"sync"
	"time"

	"github.com/ares-io/ares-core/internal/ids"
)

const (
	// DefaultWindowSize and DefaultMinSampleCount are used when NewMonitor
	// is called with non-positive sizes.
	DefaultWindowSize     = 100
	DefaultMinSampleCount = 10

	durationStdDevMul = 3.0
	retryMultiplier   = 2.0
	errorRateMargin   = 0.2
	perFlagPenalty    = 0.25
)

type (
	// Sample is one historical task observation folded into an agent's
	// sliding window.
	Sample struct {
		Duration  time.Duration
		Retries   int
		ErrorRate float64
	}

	// Result is the output of Observe (spec §4.7).
	Result struct {
		Score   float64
		Reasons []string
	}

	// Monitor tracks a sliding window of samples per agent.
	Monitor struct {
		windowSize     int
		minSampleCount int

		mu      sync.Mutex
		history map[ids.AgentId][]Sample
	}
)

// NewMonitor constructs an empty Behavior Monitor. Non-positive windowSize or
// minSampleCount fall back to DefaultWindowSize/DefaultMinSampleCount.
func NewMonitor(windowSize, minSampleCount int) *Monitor {
	if windowSize <= 0 {
		windowSize = DefaultWindowSize
	}
	if minSampleCount <= 0 {
		minSampleCount = DefaultMinSampleCount
	}
	return &Monitor{
		windowSize:     windowSize,
		minSampleCount: minSampleCount,
		history:        make(map[ids.AgentId][]Sample),
	}
}

// Observe evaluates the current task's sample against the agent's history,
// computes behavior_score, and folds the sample into the window for future
// evaluations.
func (m *Monitor) Observe(agentID ids.AgentId, current Sample) Result {
	m.mu.Lock()
	defer m.mu.Unlock()

	history := m.history[agentID]
	result := evaluate(history, current, m.minSampleCount)

	history = append(history, current)
	if over := len(history) - m.windowSize; over > 0 {
		history = history[over:]
	}
	m.history[agentID] = history

	return result
}

func evaluate(history []Sample, current Sample, minSampleCount int) Result {
	if len(history) < minSampleCount {
		return Result{Score: 1, Reasons: []string{"behavior:insufficient_history"}}
	}

	meanDuration, stddevDuration := durationStats(history)
	meanRetries := meanRetryCount(history)
	meanErrorRate := meanErrorRateOf(history)

	flags := 0
	var reasons []string

	if float64(current.Duration) > meanDuration+durationStdDevMul*stddevDuration {
		flags++
		reasons = append(reasons, "over_duration")
	}
	if meanRetries >= 1 && float64(current.Retries) > retryMultiplier*meanRetries {
		flags++
		reasons = append(reasons, "excessive_retries")
	}
	if current.ErrorRate > meanErrorRate+errorRateMargin {
		flags++
		reasons = append(reasons, "elevated_error_rate")
	}

	score := 1 - perFlagPenalty*float64(flags)
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return Result{Score: score, Reasons: reasons}
}

func durationStats(history []Sample) (mean, stddev float64) {
	sum := 0.0
	for _, s := range history {
		sum += float64(s.Duration)
	}
	mean = sum / float64(len(history))

	variance := 0.0
	for _, s := range history {
		d := float64(s.Duration) - mean
		variance += d * d
	}
	variance /= float64(len(history))
	return mean, math.Sqrt(variance)
}

func meanRetryCount(history []Sample) float64 {
	sum := 0
	for _, s := range history {
		sum += s.Retries
	}
	return float64(sum) / float64(len(history))
}

func meanErrorRateOf(history []Sample) float64 {
	sum := 0.0
	for _, s := range history {
		sum += s.ErrorRate
	}
	return sum / float64(len(history))
}
