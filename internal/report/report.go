package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/signalnine/kernelmatrix/internal/result"
)

// Generate reads every stored summary under runDir and renders them in the
// requested format.
func Generate(runDir, format string, w io.Writer) error {
	summaries, err := collectSummaries(runDir)
	if err != nil {
		return err
	}
	return Write(summaries, format, w)
}

// Write renders summaries as table (default), markdown or json.
func Write(summaries []*result.Summary, format string, w io.Writer) error {
	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].Kernel < summaries[j].Kernel
	})
	switch format {
	case "markdown":
		return writeMarkdown(summaries, w)
	case "json":
		return writeJSON(summaries, w)
	default:
		return writeTable(summaries, w)
	}
}

func collectSummaries(runDir string) ([]*result.Summary, error) {
	var summaries []*result.Summary
	err := filepath.Walk(runDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}
		s, err := result.ReadSummary(path)
		if err != nil {
			return nil
		}
		summaries = append(summaries, s)
		return nil
	})
	return summaries, err
}

func passRate(s *result.Summary) float64 {
	if s.Trials == 0 {
		return 0
	}
	return float64(s.Trials-s.FailureCount) / float64(s.Trials)
}

func status(s *result.Summary) string {
	switch {
	case s.MissingTarget:
		return "MISSING"
	case s.ExitStatus == 0:
		return "PASS"
	default:
		return "FAIL"
	}
}

func writeTable(summaries []*result.Summary, w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KERNEL\tMODE\tTRIALS\tFAILURES\tPASS RATE\tELAPSED\tMEAN TRIAL\tSTATUS")
	fmt.Fprintln(tw, strings.Repeat("-", 80))
	for _, s := range summaries {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%.0f%%\t%.1fs\t%.3fs\t%s\n",
			s.Kernel, s.Mode, s.Trials, s.FailureCount, passRate(s)*100, s.ElapsedS, s.MeanTrialS, status(s))
	}
	return tw.Flush()
}

func writeMarkdown(summaries []*result.Summary, w io.Writer) error {
	fmt.Fprintln(w, "| Kernel | Mode | Trials | Failures | Pass Rate | Elapsed | Mean Trial | Status |")
	fmt.Fprintln(w, "|---|---|---|---|---|---|---|---|")
	for _, s := range summaries {
		fmt.Fprintf(w, "| %s | %s | %d | %d | %.0f%% | %.1fs | %.3fs | %s |\n",
			s.Kernel, s.Mode, s.Trials, s.FailureCount, passRate(s)*100, s.ElapsedS, s.MeanTrialS, status(s))
	}
	return nil
}

func writeJSON(summaries []*result.Summary, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(summaries)
}
