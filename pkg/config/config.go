// Package config loads ember's optional YAML tuning file: a small,
// declarative file that overrides the VM's fixed constants — GC
// thresholds, stack sizes, and debug tracing — without touching global
// mutable state. The zero Config is exactly the built-in defaults.
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// GC tunes the garbage collector's trigger thresholds.
type GC struct {
	// InitialThresholdBytes is nextGC's starting point. Zero means
	// the default of 1 MiB.
	InitialThresholdBytes int64 `yaml:"initialThresholdBytes"`
	// GrowthFactor multiplies nextGC after each cycle. Zero means the
	// default of 2.0.
	GrowthFactor float64 `yaml:"growthFactor"`
	// StressMode collects before every allocation that would grow
	// memory, rather than only once bytesAllocated crosses nextGC.
	StressMode bool `yaml:"stressMode"`
}

// Stack sizes the VM's fixed-capacity stacks.
type Stack struct {
	// MaxValues is STACK_MAX. Zero means the default of 64 * 256.
	MaxValues int `yaml:"maxValues"`
	// MaxFrames is the call-frame stack depth. Zero means the default
	// of 64.
	MaxFrames int `yaml:"maxFrames"`
}

// Trace controls debug-only output that never affects program
// semantics.
type Trace struct {
	ExecutionTrace bool `yaml:"executionTrace"`
	PrintBytecode  bool `yaml:"printBytecode"`
}

// Config is ember's full set of tunables. The zero value is exactly
// the built-in fixed defaults, so a Config need never be loaded at all.
type Config struct {
	GC    GC    `yaml:"gc"`
	Stack Stack `yaml:"stack"`
	Trace Trace `yaml:"trace"`
}

// Default returns the built-in defaults with every field filled in
// explicitly; vm.New gives the zero Config the same values.
func Default() Config {
	return Config{
		GC: GC{
			InitialThresholdBytes: 1 << 20,
			GrowthFactor:          2.0,
		},
		Stack: Stack{
			MaxValues: 64 * 256,
			MaxFrames: 64,
		},
	}
}

// Load reads and parses a YAML config file at path, layering its
// fields over Default(). Fields the file omits keep the default value
// — a config file only needs to mention what it changes.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var overrides struct {
		GC    map[string]any `yaml:"gc"`
		Stack map[string]any `yaml:"stack"`
		Trace map[string]any `yaml:"trace"`
	}
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return Config{}, err
	}

	if v, ok := overrides.GC["initialThresholdBytes"]; ok {
		cfg.GC.InitialThresholdBytes = toInt64(v)
	}
	if v, ok := overrides.GC["growthFactor"]; ok {
		cfg.GC.GrowthFactor = toFloat64(v)
	}
	if v, ok := overrides.GC["stressMode"]; ok {
		cfg.GC.StressMode, _ = v.(bool)
	}
	if v, ok := overrides.Stack["maxValues"]; ok {
		cfg.Stack.MaxValues = int(toInt64(v))
	}
	if v, ok := overrides.Stack["maxFrames"]; ok {
		cfg.Stack.MaxFrames = int(toInt64(v))
	}
	if v, ok := overrides.Trace["executionTrace"]; ok {
		cfg.Trace.ExecutionTrace, _ = v.(bool)
	}
	if v, ok := overrides.Trace["printBytecode"]; ok {
		cfg.Trace.PrintBytecode, _ = v.(bool)
	}

	return cfg, nil
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int64:
		return n
	case float64:
		return int64(n)
	default:
		return 0
	}
}

func toFloat64(v any) float64 {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case float64:
		return n
	default:
		return 0
	}
}
