package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	vlog "vscenv/internal/log"
	"vscenv/internal/patcher"
	"vscenv/internal/probe"
	"vscenv/internal/settings"
)

// command describes a CLI subcommand.
type command struct {
	name  string
	short string
	usage string
	long  string
	run   func(ctx context.Context, args []string) error
}

var commands = []command{
	{
		name:  "patch",
		short: "Write kernel and compiler versions into the editor config",
		usage: "vscenv patch [file]",
		long: `Detect the running kernel release and the C compiler major version and
store them in the "env" object of the editor configuration file.

Without [file], patches the target from .vscenv/settings.yaml
(default .vscode/c_cpp_properties.json) under the current directory.
Running vscenv with no arguments is the same as "vscenv patch".

Fails without writing anything if the file is missing, is not valid JSON,
has no "env" object, or a detection command is unavailable.
`,
		run: runPatch,
	},
	{
		name:  "show",
		short: "Print the detected values without changing any file",
		usage: "vscenv show",
		long: `Run the kernel and compiler probes and print the values that
"vscenv patch" would write, together with the env keys they go to.
`,
		run: runShow,
	},
	{
		name:  "diff",
		short: "Print the patched document without writing it",
		usage: "vscenv diff [file]",
		long: `Patch the document in memory and print the result to stdout.
The file on disk is not modified.
`,
		run: runDiff,
	},
	{
		name:  "init",
		short: "Create .vscenv/settings.yaml interactively",
		usage: "vscenv init",
		long: `Prompt for the target file, env key names and indent width, and write
.vscenv/settings.yaml under the current directory.

Errors if the settings file already exists.
`,
		run: runInit,
	},
}

// runner executes probe commands. Tests replace it.
var runner probe.Runner = probe.ExecRunner{}

// stdout receives user-facing output. Tests replace it.
var stdout io.Writer = os.Stdout

func printUsage(w io.Writer) {
	fmt.Fprintf(w, "vscenv — keep editor env variables in sync with the host toolchain\n\n")
	fmt.Fprintf(w, "Usage:\n  vscenv [-v] [command] [arguments]\n\n")
	fmt.Fprintf(w, "Commands:\n")
	for _, cmd := range commands {
		fmt.Fprintf(w, "  %-10s %s\n", cmd.name, cmd.short)
	}
	fmt.Fprintf(w, "\nWith no command, vscenv runs 'patch'.\n")
	fmt.Fprintf(w, "Run 'vscenv help <command>' for details on a specific command.\n")
}

func printCommandHelp(w io.Writer, name string) {
	for _, cmd := range commands {
		if cmd.name == name {
			fmt.Fprintf(w, "Usage: %s\n\n%s", cmd.usage, cmd.long)
			return
		}
	}
	fmt.Fprintf(w, "vscenv: unknown command %q\n\nRun 'vscenv help' for usage.\n", name)
}

// stripVerbose removes -v/--verbose from anywhere in args.
func stripVerbose(args []string) ([]string, bool) {
	rest := make([]string, 0, len(args))
	verbose := false
	for _, a := range args {
		if a == "-v" || a == "--verbose" {
			verbose = true
			continue
		}
		rest = append(rest, a)
	}
	return rest, verbose
}

func dispatch(ctx context.Context, args []string) error {
	args, verbose := stripVerbose(args)
	if verbose {
		vlog.Configure(vlog.Config{Level: "debug", Console: true})
	}
	if len(args) == 0 {
		return runPatch(ctx, nil)
	}
	if args[0] == "--help" || args[0] == "-h" {
		printUsage(stdout)
		return nil
	}
	if args[0] == "help" {
		if len(args) >= 2 {
			printCommandHelp(stdout, args[1])
		} else {
			printUsage(stdout)
		}
		return nil
	}
	for _, cmd := range commands {
		if cmd.name == args[0] {
			return cmd.run(ctx, args[1:])
		}
	}
	return fmt.Errorf("unknown command %q\n\nRun 'vscenv help' for usage.", args[0])
}

// loadProject returns the project root (the working directory) and its
// settings.
func loadProject() (string, *settings.Settings, error) {
	root, err := os.Getwd()
	if err != nil {
		return "", nil, fmt.Errorf("working directory: %w", err)
	}
	s, err := settings.Load(root)
	if err != nil {
		return "", nil, err
	}
	return root, s, nil
}

// patchOptions builds patcher options from settings, with an optional
// explicit file overriding the configured target.
func patchOptions(args []string, usage string) (patcher.Options, *settings.Settings, error) {
	if len(args) > 1 {
		return patcher.Options{}, nil, fmt.Errorf("usage: %s", usage)
	}
	if len(args) == 1 && strings.HasPrefix(args[0], "-") {
		return patcher.Options{}, nil, fmt.Errorf("unknown flag %q\n\nusage: %s", args[0], usage)
	}
	root, s, err := loadProject()
	if err != nil {
		return patcher.Options{}, nil, err
	}
	opts := patcher.FromSettings(root, s, runner)
	if len(args) == 1 {
		opts.Path = args[0]
	}
	return opts, s, nil
}

func withProbeTimeout(ctx context.Context, s *settings.Settings) (context.Context, context.CancelFunc) {
	if s.ProbeTimeout > 0 {
		return context.WithTimeout(ctx, s.ProbeTimeout)
	}
	return context.WithCancel(ctx)
}

// ---------------------------------------------------------------------------
// patch
// ---------------------------------------------------------------------------

func runPatch(ctx context.Context, args []string) error {
	opts, s, err := patchOptions(args, "vscenv patch [file]")
	if err != nil {
		return err
	}
	ctx, cancel := withProbeTimeout(ctx, s)
	defer cancel()

	res, err := patcher.Patch(ctx, opts)
	if err != nil {
		return err
	}
	if res.Written {
		fmt.Fprintf(stdout, "updated %s (kernel %s, compiler %s)\n", res.Path, res.KernelRelease, res.CompilerMajor)
	} else {
		fmt.Fprintf(stdout, "%s already up to date (kernel %s, compiler %s)\n", res.Path, res.KernelRelease, res.CompilerMajor)
	}
	return nil
}

// ---------------------------------------------------------------------------
// show
// ---------------------------------------------------------------------------

func runShow(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("usage: vscenv show")
	}
	root, s, err := loadProject()
	if err != nil {
		return err
	}
	ctx, cancel := withProbeTimeout(ctx, s)
	defer cancel()

	opts := patcher.FromSettings(root, s, runner)
	values, err := probe.DetectAll(ctx, opts.Kernel, opts.Compiler)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%s=%s\n", s.Keys.Kernel, values[opts.Kernel.Name()])
	fmt.Fprintf(stdout, "%s=%s\n", s.Keys.Compiler, values[opts.Compiler.Name()])
	return nil
}

// ---------------------------------------------------------------------------
// diff
// ---------------------------------------------------------------------------

func runDiff(ctx context.Context, args []string) error {
	opts, s, err := patchOptions(args, "vscenv diff [file]")
	if err != nil {
		return err
	}
	ctx, cancel := withProbeTimeout(ctx, s)
	defer cancel()

	opts.DryRun = true
	res, err := patcher.Patch(ctx, opts)
	if err != nil {
		return err
	}
	_, err = stdout.Write(res.Output)
	return err
}

// ---------------------------------------------------------------------------
// init
// ---------------------------------------------------------------------------

func runInit(_ context.Context, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("usage: vscenv init")
	}
	root, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("working directory: %w", err)
	}
	path := settings.Path(root)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("settings already exist at %s", path)
	}

	s := settings.Default()
	answers, err := promptQuestions(s)
	if err != nil {
		return fmt.Errorf("prompt: %w", err)
	}
	if err := s.Apply(answers); err != nil {
		return err
	}
	if err := settings.Save(root, s); err != nil {
		return err
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}
	fmt.Fprintf(stdout, "wrote %s\n", rel)
	return nil
}

// ---------------------------------------------------------------------------
// TUI prompt helpers
// ---------------------------------------------------------------------------

// promptModel is a bubbletea model that asks one question at a time.
// Each answer is applied to draft as it is entered; an answer that makes
// the settings invalid keeps the prompt on the same question.
type promptModel struct {
	questions []settings.Question
	idx       int
	inputs    []textinput.Model
	draft     settings.Settings
	err       error
	done      bool
}

func newPromptModel(draft *settings.Settings, questions []settings.Question) promptModel {
	inputs := make([]textinput.Model, len(questions))
	for i, q := range questions {
		ti := textinput.New()
		ti.Placeholder = q.Default
		ti.CharLimit = 512
		inputs[i] = ti
	}
	m := promptModel{
		questions: questions,
		inputs:    inputs,
		draft:     *draft,
	}
	if len(inputs) > 0 {
		m.inputs[0].Focus()
	}
	return m
}

func (m promptModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m promptModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			q := m.questions[m.idx]
			next := m.draft
			if err := next.Apply(map[string]string{q.Key: m.inputs[m.idx].Value()}); err != nil {
				m.err = err
				return m, nil
			}
			m.draft, m.err = next, nil
			if m.idx < len(m.inputs)-1 {
				m.inputs[m.idx].Blur()
				m.idx++
				m.inputs[m.idx].Focus()
				return m, textinput.Blink
			}
			m.done = true
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.inputs[m.idx], cmd = m.inputs[m.idx].Update(msg)
	return m, cmd
}

func (m promptModel) View() string {
	if m.done || len(m.questions) == 0 {
		return ""
	}
	q := m.questions[m.idx]
	view := fmt.Sprintf("%s [%s]: %s\n", q.Prompt, q.Default, m.inputs[m.idx].View())
	if m.err != nil {
		view += fmt.Sprintf("  invalid: %v\n", m.err)
	}
	return view
}

// answers returns the typed values keyed by Question.Key. Blank inputs
// map to "" so settings.Apply keeps the default.
func (m promptModel) answers() map[string]string {
	answers := make(map[string]string, len(m.questions))
	for i, q := range m.questions {
		answers[q.Key] = m.inputs[i].Value()
	}
	return answers
}

// promptQuestions runs the TUI and returns answers keyed by Question.Key.
func promptQuestions(s *settings.Settings) (map[string]string, error) {
	questions := s.Questions()
	if len(questions) == 0 {
		return map[string]string{}, nil
	}
	p := tea.NewProgram(newPromptModel(s, questions))
	result, err := p.Run()
	if err != nil {
		return nil, err
	}
	final, ok := result.(promptModel)
	if !ok || !final.done {
		return nil, errors.New("prompt cancelled")
	}
	return final.answers(), nil
}

func main() {
	vlog.Configure(vlog.Config{Console: true})
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := dispatch(ctx, os.Args[1:])
	stop()
	if err != nil {
		logger := vlog.Base()
		logger.Error().Err(err).Msg("vscenv failed")
		os.Exit(1)
	}
}
