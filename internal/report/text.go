package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/signalnine/kernelmatrix/internal/result"
	"github.com/signalnine/kernelmatrix/internal/runner"
)

// WriteText renders the end-of-run report: failing commands first, then
// the counts and timings.
func WriteText(w io.Writer, s *result.Summary) error {
	if s.MissingTarget {
		_, err := fmt.Fprintf(w, "Error: executable %s not present!\n", s.Kernel)
		return err
	}
	if len(s.Failures) > 0 {
		fmt.Fprintln(w, "Failure cases:")
		for _, f := range s.Failures {
			fmt.Fprintln(w, FailureLine(f))
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "%d failures out of %d tests.\n", s.FailureCount, s.Trials)
	fmt.Fprintf(w, "\nElapsed time (s): %.3f\n", s.ElapsedS)
	_, err := fmt.Fprintf(w, "Trial time (s): mean %.3f, stddev %.3f, max %.3f\n",
		s.MeanTrialS, s.StdDevTrialS, s.MaxTrialS)
	return err
}

// FailureLine formats one failing trial as its command line followed by
// the status code, plus the reason when it was not a plain kernel failure.
func FailureLine(f result.Failure) string {
	cmd := strings.Join(f.Command, " ")
	if f.Reason == runner.ReasonFailed || f.Reason == "" {
		return fmt.Sprintf("%s\t(code %d)", cmd, f.Status)
	}
	return fmt.Sprintf("%s\t(code %d, %s)", cmd, f.Status, f.Reason)
}
