package probe

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	version "github.com/hashicorp/go-version"
)

// DefaultCompilerCommand prints the C compiler version.
var DefaultCompilerCommand = []string{"gcc", "-dumpversion"}

// Compiler reports the major version of the host C compiler.
type Compiler struct {
	Runner  Runner
	Command []string // defaults to DefaultCompilerCommand
}

func (c *Compiler) Name() string { return "compiler" }

func (c *Compiler) Detect(ctx context.Context) (string, error) {
	argv := c.Command
	if len(argv) == 0 {
		argv = DefaultCompilerCommand
	}
	out, err := run(ctx, c.Runner, c.Name(), argv)
	if err != nil {
		return "", err
	}
	major, err := MajorVersion(out)
	if err != nil {
		return "", fmt.Errorf("%s probe: %w", c.Name(), err)
	}
	return major, nil
}

// leadingVersion matches the dotted numeric prefix of a version string.
var leadingVersion = regexp.MustCompile(`^\d+(\.\d+)*`)

// MajorVersion returns the leading numeral of a self-reported version
// string as written: "13.2.0" -> "13", "13 (experimental)" -> "13",
// "8.x" -> "8", "007" -> "007". Only the first line of raw is considered.
func MajorVersion(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	if s == "" {
		return "", ErrEmptyOutput
	}
	prefix := leadingVersion.FindString(s)
	if prefix == "" {
		return "", fmt.Errorf("%w in %q", ErrNoMajorVersion, s)
	}
	v, err := version.NewVersion(prefix)
	if err != nil {
		return "", fmt.Errorf("%w in %q: %v", ErrNoMajorVersion, s, err)
	}
	major, _, _ := strings.Cut(v.Original(), ".")
	return major, nil
}
