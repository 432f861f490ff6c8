package app

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/talkincode/speedlog/pkg/errs"
	"go.uber.org/zap"
)

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// cronLogger routes cron's own messages to zap.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}

// StartJobs schedules the measurement and archive jobs. A job still running
// when its next tick fires is skipped, so measurements never overlap.
func (a *Application) StartJobs(ctx context.Context) error {
	loc, err := time.LoadLocation(a.appConfig.System.Location)
	if err != nil {
		loc = time.Local
	}
	clog := cronLogger{s: zap.S().With("namespace", "cron")}
	a.sched = cron.New(
		cron.WithLocation(loc),
		cron.WithParser(cronParser),
		cron.WithLogger(clog),
		cron.WithChain(cron.Recover(clog), cron.SkipIfStillRunning(clog)),
	)

	_, err = a.sched.AddFunc(a.appConfig.Schedule.Measure, func() {
		a.SchedMeasureTask(ctx)
	})
	if err != nil {
		return errs.Wrapf(errs.KindConfig, "schedule measure", err, "spec %q", a.appConfig.Schedule.Measure)
	}

	_, err = a.sched.AddFunc(a.appConfig.Schedule.Archive, func() {
		a.SchedArchiveTask(ctx)
	})
	if err != nil {
		return errs.Wrapf(errs.KindConfig, "schedule archive", err, "spec %q", a.appConfig.Schedule.Archive)
	}

	a.sched.Start()
	zap.S().Infof("scheduler started, measure %q, archive %q",
		a.appConfig.Schedule.Measure, a.appConfig.Schedule.Archive)
	return nil
}

// SchedMeasureTask records one measurement. Failures were already logged by
// Record and never stop the scheduler.
func (a *Application) SchedMeasureTask(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	logHostLoad()
	_, _ = a.Record(ctx)
}

// SchedArchiveTask runs the Go-side archival.
func (a *Application) SchedArchiveTask(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := a.Archive(ctx, false); err != nil {
		zap.L().Error("archive old entries failed", zap.String("namespace", "archive"), zap.Error(err))
	}
}

// logHostLoad notes CPU and memory use next to each scheduled measurement.
func logHostLoad() {
	fields := []zap.Field{zap.String("namespace", "recorder")}
	if cpuUse, err := cpu.Percent(0, false); err == nil && len(cpuUse) > 0 {
		fields = append(fields, zap.Float64("cpu_percent", cpuUse[0]))
	}
	if memInfo, err := mem.VirtualMemory(); err == nil {
		fields = append(fields, zap.Uint64("mem_used_mb", memInfo.Used/1024/1024))
	}
	zap.L().Debug("host load", fields...)
}
