package probe

import "context"

// DefaultKernelCommand prints the running kernel release.
var DefaultKernelCommand = []string{"uname", "-r"}

// Kernel reports the running kernel release string.
type Kernel struct {
	Runner  Runner
	Command []string // defaults to DefaultKernelCommand
}

func (k *Kernel) Name() string { return "kernel" }

func (k *Kernel) Detect(ctx context.Context) (string, error) {
	argv := k.Command
	if len(argv) == 0 {
		argv = DefaultKernelCommand
	}
	return run(ctx, k.Runner, k.Name(), argv)
}
