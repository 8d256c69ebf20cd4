package llm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"syscall"
	"time"
)

// killGracePeriod is how long a timed-out process gets between the kill
// signal and the invocation being abandoned outright.
const killGracePeriod = 5 * time.Second

// GeminiCLI invokes the gemini binary once per prompt in its non-interactive
// mode. The prompt travels as a single argv element; no shell is involved, so
// the prompt text cannot be reinterpreted as command syntax.
type GeminiCLI struct {
	command string
	model   string
}

// NewGeminiCLI creates a provider around the given binary name or path.
func NewGeminiCLI(command, model string) *GeminiCLI {
	if strings.TrimSpace(command) == "" {
		command = "gemini"
	}
	return &GeminiCLI{command: command, model: model}
}

// Name returns provider name
func (g *GeminiCLI) Name() string { return "gemini-cli" }

func (g *GeminiCLI) args(prompt string) []string {
	args := make([]string, 0, 4)
	if g.model != "" {
		args = append(args, "-m", g.model)
	}
	return append(args, "-p", prompt)
}

// Generate runs one invocation bounded by ctx. The whole process group is
// killed on timeout so child processes spawned by the CLI die with it.
func (g *GeminiCLI) Generate(ctx context.Context, prompt string) (string, error) {
	cmd := exec.CommandContext(ctx, g.command, g.args(prompt)...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	cmd.WaitDelay = killGracePeriod

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctx.Err() != nil {
		return "", fmt.Errorf("%s did not answer in time: %w", g.command, ErrTimeout)
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("%s exited with status %d: %s",
				g.command, exitErr.ExitCode(), stderrExcerpt(&stderr))
		}
		return "", fmt.Errorf("failed to run %s: %w", g.command, err)
	}

	out := strings.TrimSpace(stdout.String())
	if out == "" {
		return "", fmt.Errorf("%s: %w", g.command, ErrEmptyOutput)
	}
	return out, nil
}

// stderrExcerpt keeps the diagnostic short enough for one log line.
func stderrExcerpt(buf *bytes.Buffer) string {
	s := strings.TrimSpace(buf.String())
	if s == "" {
		return "(no diagnostic output)"
	}
	if len(s) > 300 {
		s = s[:300] + "..."
	}
	return strings.ReplaceAll(s, "\n", " | ")
}
