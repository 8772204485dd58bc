// Package config loads the immutable startup configuration for ARES.
// Scoring weights, thresholds, the EWMA smoothing factor, tier boundaries,
// queue capacities, and deadlines are fixed by spec §9 ("if product requires
// tuning, expose them as immutable startup configuration rather than runtime
// mutable state"); nothing here is mutated after Load returns.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the fully validated, immutable startup configuration for a Core
// instance.
type Config struct {
	// Verification holds the Verification Coordinator's (C8) weights,
	// thresholds, and soft deadline.
	Verification VerificationConfig `yaml:"verification" validate:"required"`
	// Reliability holds the Reliability Scorer's (C10) EWMA and tier
	// parameters.
	Reliability ReliabilityConfig `yaml:"reliability" validate:"required"`
	// Enforcement holds the Enforcement Engine's (C11) action durations.
	Enforcement EnforcementConfig `yaml:"enforcement" validate:"required"`
	// EventBus holds the Event Fabric's (C1) default per-subscriber queue
	// capacity.
	EventBus EventBusConfig `yaml:"event_bus" validate:"required"`
	// Behavior holds the Behavior Monitor's (C7) sliding-window size.
	Behavior BehaviorConfig `yaml:"behavior" validate:"required"`
	// RestoreDeadline bounds how long a RestoreHandler may run before the
	// Rollback Coordinator (C9) treats it as failed.
	RestoreDeadline time.Duration `yaml:"restore_deadline" validate:"required,gt=0"`
}

// VerificationConfig fixes the weights and thresholds from spec §4.8.
type VerificationConfig struct {
	CompletionWeight float64       `yaml:"completion_weight" validate:"gte=0,lte=1"`
	ToolUsageWeight  float64       `yaml:"tool_usage_weight" validate:"gte=0,lte=1"`
	EvidenceWeight   float64       `yaml:"evidence_weight" validate:"gte=0,lte=1"`
	BehaviorWeight   float64       `yaml:"behavior_weight" validate:"gte=0,lte=1"`
	PassOverall      float64       `yaml:"pass_overall" validate:"gte=0,lte=1"`
	PassCompletion   float64       `yaml:"pass_completion" validate:"gte=0,lte=1"`
	SoftDeadline     time.Duration `yaml:"soft_deadline" validate:"required,gt=0"`
}

// ReliabilityConfig fixes the EWMA smoothing factor, ring buffer size, and
// tier boundaries from spec §4.10.
type ReliabilityConfig struct {
	Alpha          float64 `yaml:"alpha" validate:"gt=0,lte=1"`
	RingBufferSize int     `yaml:"ring_buffer_size" validate:"required,gt=0"`
	InitialScore   float64 `yaml:"initial_score" validate:"gte=0,lte=1"`

	GoodScoreMin       float64 `yaml:"good_score_min" validate:"gte=0,lte=1"`
	WatchScoreMin      float64 `yaml:"watch_score_min" validate:"gte=0,lte=1"`
	ProbationScoreMin  float64 `yaml:"probation_score_min" validate:"gte=0,lte=1"`
	QuarantineRecovery float64 `yaml:"quarantine_recovery_score" validate:"gte=0,lte=1"`
	QuarantineStreak   int     `yaml:"quarantine_recovery_streak" validate:"required,gt=0"`
}

// EnforcementConfig fixes the action durations from spec §4.11.
type EnforcementConfig struct {
	ThrottleRate     float64       `yaml:"throttle_rate" validate:"gt=0,lte=1"`
	ThrottleDuration time.Duration `yaml:"throttle_duration" validate:"required,gt=0"`
	SuspendDuration  time.Duration `yaml:"suspend_duration" validate:"required,gt=0"`
}

// EventBusConfig fixes the Event Fabric's default per-subscriber queue
// capacity (spec §4.1).
type EventBusConfig struct {
	DefaultQueueCapacity int `yaml:"default_queue_capacity" validate:"required,gt=0"`
}

// BehaviorConfig fixes the Behavior Monitor's sliding-window size (spec
// §4.7, W=100) and the minimum sample count required before flags apply.
type BehaviorConfig struct {
	WindowSize     int `yaml:"window_size" validate:"required,gt=0"`
	MinSampleCount int `yaml:"min_sample_count" validate:"required,gt=0"`
}

// Default returns the configuration with the literal constants spec.md fixes
// for weights (0.4/0.3/0.2/0.1), thresholds (0.75/0.8), α=0.1, and tier
// boundaries.
func Default() Config {
	return Config{
		Verification: VerificationConfig{
			CompletionWeight: 0.4,
			ToolUsageWeight:  0.3,
			EvidenceWeight:   0.2,
			BehaviorWeight:   0.1,
			PassOverall:      0.75,
			PassCompletion:   0.8,
			SoftDeadline:     30 * time.Second,
		},
		Reliability: ReliabilityConfig{
			Alpha:              0.1,
			RingBufferSize:     50,
			InitialScore:       1.0,
			GoodScoreMin:       0.9,
			WatchScoreMin:      0.75,
			ProbationScoreMin:  0.5,
			QuarantineRecovery: 0.6,
			QuarantineStreak:   5,
		},
		Enforcement: EnforcementConfig{
			ThrottleRate:     0.5,
			ThrottleDuration: time.Hour,
			SuspendDuration:  24 * time.Hour,
		},
		EventBus: EventBusConfig{
			DefaultQueueCapacity: 256,
		},
		Behavior: BehaviorConfig{
			WindowSize:     100,
			MinSampleCount: 10,
		},
		RestoreDeadline: 60 * time.Second,
	}
}

// Load decodes and validates a Config from YAML bytes, falling back to
// Default() for the document's zero values is the caller's responsibility —
// Load does not merge with defaults, it validates what it is given.
func Load(yamlBytes []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(yamlBytes, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	if err := validate.Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("config: validate: %w", err)
	}
	return cfg, nil
}

var validate = validator.New()
