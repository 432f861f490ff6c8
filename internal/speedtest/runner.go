package speedtest

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/talkincode/speedlog/pkg/errs"
)

const waitDelay = time.Second

// Runner abstracts command execution so the recorder can be tested without
// the real speedtest-cli binary.
type Runner interface {
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

// OSRunner executes commands on the host via os/exec.
type OSRunner struct {
	// Timeout bounds one invocation; zero means no bound.
	Timeout time.Duration
}

func NewOSRunner(timeout time.Duration) *OSRunner {
	return &OSRunner{Timeout: timeout}
}

// Output runs the command and returns its stdout. On failure stderr is folded
// into the error message.
func (r *OSRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}
	cmd := exec.CommandContext(ctx, name, args...)
	// a killed child can leave grandchildren holding the pipes open
	cmd.WaitDelay = waitDelay
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			err = fmt.Errorf("%s: %s", err.Error(), msg)
		}
		return nil, errs.Wrapf(errs.KindSubprocess, "run speedtest", err, "%s", name)
	}
	return stdout.Bytes(), nil
}
