package speedtest

import (
	"context"

	"github.com/talkincode/speedlog/internal/domain"
)

// Measurer invokes the speedtest binary and turns its report into a result row.
type Measurer struct {
	runner Runner
	binary string
	args   []string
}

func NewMeasurer(runner Runner, binary string, args []string) *Measurer {
	if len(args) == 0 {
		args = []string{"--json"}
	}
	return &Measurer{runner: runner, binary: binary, args: args}
}

// Measure runs one test. Every failure is a Subprocess or Parse error.
func (m *Measurer) Measure(ctx context.Context) (*domain.SpeedtestResult, error) {
	out, err := m.runner.Output(ctx, m.binary, m.args...)
	if err != nil {
		return nil, err
	}
	report, err := ParseReport(out)
	if err != nil {
		return nil, err
	}
	return report.Result()
}
