package result

import (
	"time"

	"github.com/signalnine/kernelmatrix/internal/runner"
)

type Failure struct {
	Command []string      `json:"command"`
	Status  int           `json:"status"`
	Reason  runner.Reason `json:"reason"`
}

// Tally accumulates the outcomes of one driver run. It is owned by a single
// run and becomes read-only once Finalize is called.
type Tally struct {
	Total     int
	Failures  []Failure
	Durations []time.Duration
	Elapsed   time.Duration
	final     bool
}

func NewTally() *Tally {
	return &Tally{}
}

// Record folds one trial outcome into the tally. Any non-zero status is a
// failure, sentinel statuses included.
func (t *Tally) Record(o *runner.Outcome) {
	if t.final {
		panic("result: Record on finalized tally")
	}
	t.Total++
	t.Durations = append(t.Durations, o.Duration)
	if o.Status != 0 {
		t.Failures = append(t.Failures, Failure{
			Command: o.Command,
			Status:  o.Status,
			Reason:  o.Reason,
		})
	}
}

func (t *Tally) Finalize(elapsed time.Duration) {
	t.Elapsed = elapsed
	t.final = true
}

func (t *Tally) Finalized() bool { return t.final }

func (t *Tally) FailureCount() int { return len(t.Failures) }

// ExitStatus is 0 iff no trial failed.
func (t *Tally) ExitStatus() int {
	if len(t.Failures) > 0 {
		return 1
	}
	return 0
}

// Summary is the serialized form of a finalized run.
type Summary struct {
	RunID         string    `json:"run_id"`
	Kernel        string    `json:"kernel"`
	Mode          string    `json:"mode"`
	StartedAt     time.Time `json:"started_at"`
	Trials        int       `json:"trials"`
	FailureCount  int       `json:"failure_count"`
	ElapsedS      float64   `json:"elapsed_s"`
	MeanTrialS    float64   `json:"mean_trial_s"`
	StdDevTrialS  float64   `json:"stddev_trial_s"`
	MaxTrialS     float64   `json:"max_trial_s"`
	Failures      []Failure `json:"failures,omitempty"`
	MissingTarget bool      `json:"missing_target,omitempty"`
	ExitStatus    int       `json:"exit_status"`
}
