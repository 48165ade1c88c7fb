package backupcodes

import "time"

// RiskScorer assigns an advisory risk score in [0,100] to a verification
// attempt. The score never gates consumption; it is recorded on audit
// events and returned to the caller for its own policy decisions.
type RiskScorer interface {
	Score(attempt AttemptContext) int
}

// HeuristicScorer defines a public type used by backupcodes APIs.
//
// HeuristicScorer instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
//
// OriginScorer and DeviceScorer are optional extension points. When set,
// their results are added to the base heuristic before clamping.
type HeuristicScorer struct {
	cfg RiskConfig

	OriginScorer func(origin string) int
	DeviceScorer func(device string) int
}

// NewHeuristicScorer describes the new heuristic scorer operation and its observable behavior.
//
// NewHeuristicScorer does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewHeuristicScorer(cfg RiskConfig) *HeuristicScorer {
	return &HeuristicScorer{cfg: cfg}
}

// Score describes the score operation and its observable behavior.
//
// Score does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *HeuristicScorer) Score(attempt AttemptContext) int {
	at := attempt.At
	if at.IsZero() {
		at = time.Now()
	}

	score := 0
	hour := at.Local().Hour()
	if hour < s.cfg.DayStartHour || hour >= s.cfg.DayEndHour {
		score += s.cfg.OffHoursScore
	}
	if attempt.Origin == "" {
		score += s.cfg.MissingOriginScore
	}
	if attempt.Device == "" {
		score += s.cfg.MissingDeviceScore
	}

	if s.OriginScorer != nil && attempt.Origin != "" {
		score += s.OriginScorer(attempt.Origin)
	}
	if s.DeviceScorer != nil && attempt.Device != "" {
		score += s.DeviceScorer(attempt.Device)
	}

	return clampScore(score)
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
