package report

import (
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/signalnine/kernelmatrix/internal/result"
)

// Summarize converts a finalized tally into its serializable summary.
func Summarize(t *result.Tally, runID, kernel, mode string, started time.Time) *result.Summary {
	s := &result.Summary{
		RunID:        runID,
		Kernel:       kernel,
		Mode:         mode,
		StartedAt:    started.UTC(),
		Trials:       t.Total,
		FailureCount: t.FailureCount(),
		ElapsedS:     t.Elapsed.Seconds(),
		Failures:     t.Failures,
		ExitStatus:   t.ExitStatus(),
	}
	if len(t.Durations) > 0 {
		secs := make([]float64, len(t.Durations))
		for i, d := range t.Durations {
			secs[i] = d.Seconds()
		}
		s.MeanTrialS = stat.Mean(secs, nil)
		if len(secs) > 1 {
			s.StdDevTrialS = stat.StdDev(secs, nil)
		}
		s.MaxTrialS = floats.Max(secs)
	}
	return s
}
