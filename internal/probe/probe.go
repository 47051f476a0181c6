// Package probe detects host environment values by running external
// commands.
package probe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

var (
	ErrEmptyOutput    = errors.New("probe: command printed nothing")
	ErrNoMajorVersion = errors.New("probe: no leading version number")
)

// Probe is implemented by every host value detector.
type Probe interface {
	// Name returns the probe's short identifier (e.g. "kernel").
	Name() string

	// Detect runs the probe and returns the detected value.
	Detect(ctx context.Context) (string, error)
}

// Runner runs an external command and returns its standard output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run executes name with args, searching PATH. Stderr is folded into the
// error when the command fails.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, fmt.Errorf("%s not found on PATH: %w", name, err)
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

// DetectAll runs probes in order and returns their values keyed by probe
// name. The first failure stops the run.
func DetectAll(ctx context.Context, probes ...Probe) (map[string]string, error) {
	values := make(map[string]string, len(probes))
	for _, p := range probes {
		v, err := p.Detect(ctx)
		if err != nil {
			return nil, err
		}
		values[p.Name()] = v
	}
	return values, nil
}

func run(ctx context.Context, r Runner, probe string, argv []string) (string, error) {
	if len(argv) == 0 {
		return "", fmt.Errorf("%s probe: empty command", probe)
	}
	if r == nil {
		r = ExecRunner{}
	}
	out, err := r.Run(ctx, argv[0], argv[1:]...)
	if err != nil {
		return "", fmt.Errorf("%s probe: %w", probe, err)
	}
	s := strings.TrimSpace(string(out))
	if s == "" {
		return "", fmt.Errorf("%s probe: %s: %w", probe, strings.Join(argv, " "), ErrEmptyOutput)
	}
	return s, nil
}
