package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/signalnine/kernelmatrix/internal/driver"
)

//go:embed kernels.yaml
var defaultKernels []byte

const (
	DefaultLauncher    = "mpiexec"
	DefaultProcessFlag = "-n"
	ExecutorLocal      = "local"
	ExecutorDocker     = "docker"
)

type Config struct {
	Launcher     string        `yaml:"launcher"`
	ProcessFlag  string        `yaml:"process_flag"`
	Timeout      time.Duration `yaml:"timeout"`
	ShortTimeout time.Duration `yaml:"short_timeout"`
	Executor     Executor      `yaml:"executor"`
	Kernels      []Kernel      `yaml:"kernels"`
}

type Executor struct {
	Kind     string  `yaml:"kind"`
	Image    string  `yaml:"image"`
	CPULimit float64 `yaml:"cpu_limit"`
	MemoryMB int64   `yaml:"memory_mb"`
}

type Kernel struct {
	Name       string   `yaml:"name"`
	Executable string   `yaml:"executable"`
	Log        string   `yaml:"log"`
	Processes  string   `yaml:"processes"`
	Axes       []Axis   `yaml:"axes"`
	Args       []string `yaml:"args"`
}

type Axis struct {
	Name  string  `yaml:"name"`
	Full  []Value `yaml:"full"`
	Short []Value `yaml:"short"`
}

// Load reads and validates a kernel configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Default returns the built-in configuration for the conv2, cconv3 and fft2
// kernels.
func Default() *Config {
	cfg, err := Parse(defaultKernels)
	if err != nil {
		panic(fmt.Sprintf("config: embedded kernels.yaml: %v", err))
	}
	return cfg
}

// LoadOrDefault loads path, or returns Default when path is empty.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}

func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing: %w", err)
	}
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid: %w", err)
	}
	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.Launcher == "" {
		cfg.Launcher = DefaultLauncher
	}
	if cfg.ProcessFlag == "" {
		cfg.ProcessFlag = DefaultProcessFlag
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = driver.DefaultTimeout
	}
	if cfg.Timeout < 0 || cfg.ShortTimeout < 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	if cfg.ShortTimeout == 0 {
		cfg.ShortTimeout = cfg.Timeout
	}
	switch cfg.Executor.Kind {
	case "":
		cfg.Executor.Kind = ExecutorLocal
	case ExecutorLocal:
	case ExecutorDocker:
		if cfg.Executor.Image == "" {
			return fmt.Errorf("executor: image is required for docker")
		}
	default:
		return fmt.Errorf("executor: unknown kind %q", cfg.Executor.Kind)
	}
	if len(cfg.Kernels) == 0 {
		return fmt.Errorf("no kernels defined")
	}
	names := make(map[string]bool, len(cfg.Kernels))
	logs := make(map[string]string, len(cfg.Kernels))
	for i := range cfg.Kernels {
		k := &cfg.Kernels[i]
		if k.Name == "" {
			return fmt.Errorf("kernel %d: name is required", i)
		}
		if names[k.Name] {
			return fmt.Errorf("kernel %q: defined twice", k.Name)
		}
		names[k.Name] = true
		if k.Executable == "" {
			k.Executable = "./" + k.Name
		}
		if k.Log == "" {
			k.Log = "test" + k.Name + ".log"
		}
		logPath := filepath.Clean(k.Log)
		if other, ok := logs[logPath]; ok {
			return fmt.Errorf("kernel %q: log %s is also used by kernel %q", k.Name, k.Log, other)
		}
		logs[logPath] = k.Name
		if k.Processes == "" {
			k.Processes = "P"
		}
		if err := k.validate(); err != nil {
			return fmt.Errorf("kernel %q: %w", k.Name, err)
		}
	}
	return nil
}

// Kernel returns the kernel called name.
func (c *Config) Kernel(name string) (*Kernel, error) {
	for i := range c.Kernels {
		if c.Kernels[i].Name == name {
			return &c.Kernels[i], nil
		}
	}
	return nil, fmt.Errorf("unknown kernel %q", name)
}
