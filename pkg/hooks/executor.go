package hooks

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/vanderheijden86/sage/pkg/debug"
)

// maxOutput caps captured stdout and stderr per hook.
const maxOutput = 4096

// Result records one hook run.
type Result struct {
	Hook     Hook
	Phase    Phase
	Success  bool
	Stdout   string
	Stderr   string
	Duration time.Duration
	Err      error
}

// Executor runs the hooks of one export.
type Executor struct {
	config  *Config
	export  ExportContext
	results []Result
}

// NewExecutor prepares hooks from cfg for the export described by ec.
func NewExecutor(cfg *Config, ec ExportContext) *Executor {
	if cfg == nil {
		cfg = &Config{}
	}
	return &Executor{config: cfg, export: ec}
}

// Results returns every hook run so far, in order.
func (e *Executor) Results() []Result {
	return append([]Result(nil), e.results...)
}

// RunPreExport runs pre-export hooks. The first failing hook with
// on_error=fail stops the run and its error is returned.
func (e *Executor) RunPreExport(ctx context.Context) error {
	return e.run(ctx, PreExport)
}

// RunPostExport runs post-export hooks.
func (e *Executor) RunPostExport(ctx context.Context) error {
	return e.run(ctx, PostExport)
}

// Around runs pre-export hooks, then fn, then post-export hooks. fn is not
// called when a pre-export hook fails.
func (e *Executor) Around(ctx context.Context, fn func() error) error {
	if err := e.RunPreExport(ctx); err != nil {
		return err
	}
	if err := fn(); err != nil {
		return err
	}
	return e.RunPostExport(ctx)
}

func (e *Executor) run(ctx context.Context, phase Phase) error {
	for _, h := range e.config.For(phase) {
		res := e.runOne(ctx, h, phase)
		e.results = append(e.results, res)
		if !res.Success {
			debug.Log("hook %s (%s) failed: %v", h.Name, phase, res.Err)
			if h.OnError == OnErrorFail {
				return fmt.Errorf("%s hook %q: %w", phase, h.Name, res.Err)
			}
		}
	}
	return nil
}

func (e *Executor) runOne(ctx context.Context, h Hook, phase Phase) Result {
	ctx, cancel := context.WithTimeout(ctx, h.Timeout)
	defer cancel()

	cmd := shellCommand(ctx, h.Command)
	cmd.Env = append(os.Environ(), e.export.Env()...)
	for k, v := range h.Env {
		cmd.Env = append(cmd.Env, k+"="+os.ExpandEnv(v))
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	start := time.Now()
	err := cmd.Run()
	res := Result{
		Hook:     h,
		Phase:    phase,
		Stdout:   truncate(strings.TrimSpace(stdout.String()), maxOutput),
		Stderr:   truncate(strings.TrimSpace(stderr.String()), maxOutput),
		Duration: time.Since(start),
	}
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		res.Err = fmt.Errorf("timed out after %s", h.Timeout)
	case err != nil:
		res.Err = err
		if res.Stderr != "" {
			res.Err = fmt.Errorf("%w: %s", err, res.Stderr)
		}
	default:
		res.Success = true
	}
	return res
}

func shellCommand(ctx context.Context, command string) *exec.Cmd {
	if runtime.GOOS == "windows" {
		return exec.CommandContext(ctx, "cmd", "/C", command)
	}
	return exec.CommandContext(ctx, "sh", "-c", command)
}

// Summary is a one-line report, e.g. "hooks: 2 ok, 1 failed (publish)".
func (e *Executor) Summary() string {
	if len(e.results) == 0 {
		return ""
	}
	ok := 0
	var failed []string
	for _, r := range e.results {
		if r.Success {
			ok++
		} else {
			failed = append(failed, r.Hook.Name)
		}
	}
	if len(failed) == 0 {
		return fmt.Sprintf("hooks: %d ok", ok)
	}
	return fmt.Sprintf("hooks: %d ok, %d failed (%s)", ok, len(failed), strings.Join(failed, ", "))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
