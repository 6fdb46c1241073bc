//go:build unix

package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalnine/kernelmatrix/internal/config"
	"github.com/signalnine/kernelmatrix/internal/result"
)

const fakeLauncher = "#!/bin/sh\nshift 2\nexec \"$@\"\n"

// failOnX4 exits 1 for any trial run with -x4.
const failOnX4 = `#!/bin/sh
for a in "$@"; do
  if [ "$a" = "-x4" ]; then exit 1; fi
done
exit 0
`

func writeFile(t *testing.T, path, body string, mode os.FileMode) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), mode))
}

func setupRun(t *testing.T, kernel string) (dir, cfgPath string) {
	t.Helper()
	dir = t.TempDir()
	launcher := filepath.Join(dir, "mpiexec")
	writeFile(t, launcher, fakeLauncher, 0o755)
	writeFile(t, filepath.Join(dir, "kern"), kernel, 0o755)
	cfgPath = filepath.Join(dir, "kernels.yaml")
	writeFile(t, cfgPath, fmt.Sprintf(`launcher: %s
timeout: 10s
kernels:
  - name: kern
    axes:
      - name: P
        full: [1, 2]
        short: [3]
      - name: x
        full: [2, 4]
        short: [2]
      - name: y
        full: [2, 4]
        short: [2]
    args: ["-x{x}", "-y{y}", "-q"]
`, launcher), 0o644)
	return dir, cfgPath
}

func TestRunAllPass(t *testing.T) {
	dir, cfgPath := setupRun(t, "#!/bin/sh\nexit 0\n")
	resultsDir := filepath.Join(dir, "results")

	code, stdout, stderr := execute(t, "run", "--config", cfgPath, "--dir", dir, "--results-dir", resultsDir, "--format", "markdown")
	require.Equal(t, ExitSuccess, code, stderr)
	assert.Contains(t, stdout, "Running 8 tests.")
	assert.Contains(t, stdout, "0 failures out of 8 tests.")
	assert.Contains(t, stdout, "| kern | full | 8 | 0 | 100% |")

	s, err := result.ReadSummary(filepath.Join(resultsDir, "latest", "kern.json"))
	require.NoError(t, err)
	assert.Equal(t, 8, s.Trials)
	assert.Equal(t, 0, s.ExitStatus)
}

func TestRunFailures(t *testing.T) {
	dir, cfgPath := setupRun(t, failOnX4)

	code, stdout, stderr := execute(t, "run", "--config", cfgPath, "--dir", dir)
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, stdout, "4 failures out of 8 tests.")
	assert.Contains(t, stdout, "./kern -x4 -y2 -q\t(code 1)")
	assert.Contains(t, stderr, "1 of 1 kernels failed")

	data, err := os.ReadFile(filepath.Join(dir, "testkern.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "### ")
}

func TestRunShort(t *testing.T) {
	dir, cfgPath := setupRun(t, failOnX4)

	code, stdout, _ := execute(t, "run", "-s", "--config", cfgPath, "--dir", dir)
	assert.Equal(t, ExitSuccess, code)
	assert.Contains(t, stdout, "Short run.")
	assert.Contains(t, stdout, "0 failures out of 1 tests.")
}

func TestRunMissingExecutable(t *testing.T) {
	dir, cfgPath := setupRun(t, "#!/bin/sh\nexit 0\n")
	require.NoError(t, os.Remove(filepath.Join(dir, "kern")))

	code, stdout, stderr := execute(t, "run", "--config", cfgPath, "--dir", dir, "--parallel", "2")
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, stderr, "1 of 1 kernels failed")
	assert.NotContains(t, stderr, "executable not present")
	assert.Contains(t, stdout, "Error: executable kern not present!")
	assert.Contains(t, stdout, "MISSING")
}

func TestRunUnknownKernel(t *testing.T) {
	_, cfgPath := setupRun(t, "#!/bin/sh\nexit 0\n")
	code, _, stderr := execute(t, "run", "--config", cfgPath, "--kernel", "nope")
	assert.Equal(t, ExitUsage, code)
	assert.Contains(t, stderr, "unknown kernel")
}

func TestRunBadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	writeFile(t, path, "kernels: []\n", 0o644)
	code, _, _ := execute(t, "run", "--config", path)
	assert.Equal(t, ExitUsage, code)
}

func TestSelectKernels(t *testing.T) {
	cfg := config.Default()
	all, err := selectKernels(cfg, nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	some, err := selectKernels(cfg, []string{"fft2", "conv2"})
	require.NoError(t, err)
	require.Len(t, some, 2)
	assert.Equal(t, "fft2", some[0].Name)

	_, err = selectKernels(cfg, []string{"conv9"})
	assert.Error(t, err)
}

func TestList(t *testing.T) {
	code, stdout, _ := execute(t, "list")
	assert.Equal(t, ExitSuccess, code)
	assert.Contains(t, stdout, "Launcher: mpiexec -n <N>")
	assert.Contains(t, stdout, "fft2 (./fft2, log testfft2.log): 360 full / 36 short trials")
	assert.Contains(t, stdout, "full=[1,2,3,4,rand(6,10)] short=[1,2]")
}

func TestReport(t *testing.T) {
	dir, cfgPath := setupRun(t, "#!/bin/sh\nexit 0\n")
	resultsDir := filepath.Join(dir, "results")
	code, _, _ := execute(t, "run", "--config", cfgPath, "--dir", dir, "--results-dir", resultsDir)
	require.Equal(t, ExitSuccess, code)

	code, stdout, _ := execute(t, "report", filepath.Join(resultsDir, "latest"), "--format", "json")
	assert.Equal(t, ExitSuccess, code)
	assert.Contains(t, stdout, `"kernel": "kern"`)
}
