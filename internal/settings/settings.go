// Package settings loads vscenv configuration from .vscenv/settings.yaml.
//
// Every field is optional. A missing file means defaults: patch
// .vscode/c_cpp_properties.json, detect the kernel with "uname -r" and the
// compiler with "gcc -dumpversion", and indent with four spaces.
package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/renameio/v2"
	"gopkg.in/yaml.v3"
)

const (
	DefaultTarget      = ".vscode/c_cpp_properties.json"
	DefaultKernelKey   = "kernelRelease"
	DefaultCompilerKey = "compilerMajorVersion"
	DefaultIndent      = 4
)

// Settings holds vscenv configuration.
type Settings struct {
	// Target is the JSON file to patch, relative to the project root unless
	// absolute.
	Target   string   `yaml:"target,omitempty"`
	Keys     Keys     `yaml:"keys,omitempty"`
	Commands Commands `yaml:"commands,omitempty"`
	// Indent is the width of one indent level for keys added to an empty
	// "env" object whose layout gives no hint. Existing layout wins.
	Indent       int           `yaml:"indent,omitempty"`
	Lenient      bool          `yaml:"lenient,omitempty"`
	ProbeTimeout time.Duration `yaml:"probe_timeout,omitempty"`
}

// Keys names the "env" entries that receive the detected values.
type Keys struct {
	Kernel   string `yaml:"kernel,omitempty"`
	Compiler string `yaml:"compiler,omitempty"`
}

// Commands overrides the commands used to detect each value.
type Commands struct {
	Kernel   []string `yaml:"kernel,omitempty,flow"`
	Compiler []string `yaml:"compiler,omitempty,flow"`
}

// Default returns the settings used when no file exists.
func Default() *Settings {
	s := &Settings{}
	s.fill()
	return s
}

// Path returns the settings file location under root.
func Path(root string) string {
	return filepath.Join(root, ".vscenv", "settings.yaml")
}

// Load reads .vscenv/settings.yaml relative to root and fills unset fields
// with defaults. A missing file is not an error.
func Load(root string) (*Settings, error) {
	path := Path(root)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", path, err)
	}
	s.fill()
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &s, nil
}

// Save writes s to .vscenv/settings.yaml under root, replacing any
// existing file atomically.
func Save(root string, s *Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	path := Path(root)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func (s *Settings) fill() {
	if s.Target == "" {
		s.Target = DefaultTarget
	}
	if s.Keys.Kernel == "" {
		s.Keys.Kernel = DefaultKernelKey
	}
	if s.Keys.Compiler == "" {
		s.Keys.Compiler = DefaultCompilerKey
	}
	if s.Indent == 0 {
		s.Indent = DefaultIndent
	}
}

// Validate reports settings that cannot produce a usable patch.
func (s *Settings) Validate() error {
	if s.Keys.Kernel == s.Keys.Compiler {
		return fmt.Errorf("keys.kernel and keys.compiler are both %q", s.Keys.Kernel)
	}
	if s.Indent < 1 || s.Indent > 8 {
		return fmt.Errorf("indent %d out of range 1-8", s.Indent)
	}
	if s.ProbeTimeout < 0 {
		return errors.New("probe_timeout must not be negative")
	}
	return nil
}

// TargetPath resolves Target against root.
func (s *Settings) TargetPath(root string) string {
	if filepath.IsAbs(s.Target) {
		return s.Target
	}
	return filepath.Join(root, filepath.FromSlash(s.Target))
}

// IndentString returns the indentation unit for the JSON writer.
func (s *Settings) IndentString() string {
	return strings.Repeat(" ", s.Indent)
}

// Question describes a single prompt asked by "vscenv init".
type Question struct {
	Key     string
	Prompt  string
	Default string
}

// Questions returns the init prompts, pre-filled from s.
func (s *Settings) Questions() []Question {
	return []Question{
		{Key: "target", Prompt: "File to patch", Default: s.Target},
		{Key: "keys.kernel", Prompt: "env key for the kernel release", Default: s.Keys.Kernel},
		{Key: "keys.compiler", Prompt: "env key for the compiler major version", Default: s.Keys.Compiler},
		{Key: "indent", Prompt: "Indent width", Default: strconv.Itoa(s.Indent)},
	}
}

// Apply stores prompt answers. Blank answers keep the current value.
func (s *Settings) Apply(answers map[string]string) error {
	for key, raw := range answers {
		v := strings.TrimSpace(raw)
		if v == "" {
			continue
		}
		switch key {
		case "target":
			s.Target = v
		case "keys.kernel":
			s.Keys.Kernel = v
		case "keys.compiler":
			s.Keys.Compiler = v
		case "indent":
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("indent: %w", err)
			}
			s.Indent = n
		default:
			return fmt.Errorf("unknown setting %q", key)
		}
	}
	return s.Validate()
}
