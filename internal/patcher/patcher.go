// Package patcher writes host-detected values into the "env" object of an
// editor configuration file.
package patcher

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/google/renameio/v2"

	"vscenv/internal/jsondoc"
	vlog "vscenv/internal/log"
	"vscenv/internal/probe"
	"vscenv/internal/settings"
)

// Options configures a single patch run.
type Options struct {
	Path        string
	KernelKey   string // defaults to settings.DefaultKernelKey
	CompilerKey string // defaults to settings.DefaultCompilerKey
	Indent      string // indent unit for keys added to an empty "env"; defaults to four spaces
	Lenient     bool   // accept comments and trailing commas
	DryRun      bool   // compute the result without writing

	Kernel   probe.Probe // defaults to &probe.Kernel{}
	Compiler probe.Probe // defaults to &probe.Compiler{}
}

// Result describes the outcome of a patch.
type Result struct {
	Path          string
	KernelRelease string
	CompilerMajor string
	Changed       bool   // the new content differs from the file on disk
	Written       bool   // the file was replaced
	Output        []byte // the patched document
}

func (o *Options) fill() {
	if o.KernelKey == "" {
		o.KernelKey = settings.DefaultKernelKey
	}
	if o.CompilerKey == "" {
		o.CompilerKey = settings.DefaultCompilerKey
	}
	if o.Indent == "" {
		o.Indent = "    "
	}
	if o.Kernel == nil {
		o.Kernel = &probe.Kernel{}
	}
	if o.Compiler == nil {
		o.Compiler = &probe.Compiler{}
	}
}

// FromSettings builds Options for the target file of s under root, with
// probes that run s's commands through r.
func FromSettings(root string, s *settings.Settings, r probe.Runner) Options {
	return Options{
		Path:        s.TargetPath(root),
		KernelKey:   s.Keys.Kernel,
		CompilerKey: s.Keys.Compiler,
		Indent:      s.IndentString(),
		Lenient:     s.Lenient,
		Kernel:      &probe.Kernel{Runner: r, Command: s.Commands.Kernel},
		Compiler:    &probe.Compiler{Runner: r, Command: s.Commands.Compiler},
	}
}

// Patch reads the JSON document at opts.Path, stores the detected kernel
// release and compiler major version in its "env" object and rewrites the
// file. The file is left untouched on any error and when the content would
// not change.
func Patch(ctx context.Context, opts Options) (*Result, error) {
	opts.fill()
	logger := vlog.WithComponent("patcher")

	data, err := os.ReadFile(opts.Path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", opts.Path, err)
	}
	doc, err := jsondoc.Parse(data, jsondoc.Lenient(opts.Lenient), jsondoc.IndentUnit(opts.Indent))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opts.Path, err)
	}
	env, err := doc.Env()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opts.Path, err)
	}

	values, err := probe.DetectAll(ctx, opts.Kernel, opts.Compiler)
	if err != nil {
		return nil, err
	}
	res := &Result{
		Path:          opts.Path,
		KernelRelease: values[opts.Kernel.Name()],
		CompilerMajor: values[opts.Compiler.Name()],
	}
	logger.Debug().
		Str("kernel", res.KernelRelease).
		Str("compiler", res.CompilerMajor).
		Msg("detected host values")

	env.Set(opts.KernelKey, res.KernelRelease)
	env.Set(opts.CompilerKey, res.CompilerMajor)

	out := doc.Bytes()
	res.Output = out
	res.Changed = !bytes.Equal(out, data)

	if !res.Changed {
		logger.Debug().Str("path", opts.Path).Msg("already up to date")
		return res, nil
	}
	if opts.DryRun {
		return res, nil
	}
	if err := replaceFile(opts.Path, out); err != nil {
		return nil, err
	}
	res.Written = true
	logger.Debug().Str("path", opts.Path).Int("bytes", len(out)).Msg("rewrote file")
	return res, nil
}

// replaceFile atomically replaces path with data, keeping the existing
// file mode.
func replaceFile(path string, data []byte) error {
	pendingFile, err := renameio.NewPendingFile(path,
		renameio.WithPermissions(0o644),
		renameio.WithExistingPermissions(),
	)
	if err != nil {
		return fmt.Errorf("create pending file for %s: %w", path, err)
	}
	defer pendingFile.Cleanup()

	if _, err := pendingFile.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := pendingFile.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
