package app

import (
	"context"

	"github.com/talkincode/speedlog/internal/domain"
	"github.com/talkincode/speedlog/internal/repository"
	"github.com/talkincode/speedlog/internal/speedtest"
	"github.com/talkincode/speedlog/pkg/errs"
	"go.uber.org/zap"
)

// Record runs speedtest-cli once and inserts the result. A failed
// measurement inserts nothing; both that and a failed insert are logged and
// returned as recoverable errors.
func (a *Application) Record(ctx context.Context) (*domain.SpeedtestResult, error) {
	binary, err := a.resolveBinary()
	if err != nil {
		err = errs.Wrap(errs.KindSubprocess, "resolve speedtest binary", err)
		zap.L().Error("no measurement data", zap.String("namespace", "recorder"), zap.Error(err))
		return nil, err
	}

	measurer := speedtest.NewMeasurer(a.runner, binary, a.appConfig.SpeedtestArgs())
	result, err := measurer.Measure(ctx)
	if err != nil {
		zap.L().Error("no measurement data",
			zap.String("namespace", "recorder"),
			zap.String("binary", binary),
			zap.Error(err))
		return nil, err
	}

	if err := repository.NewGormResultRepository(a.gormDB).Create(ctx, result); err != nil {
		zap.L().Error("insert speedtest result failed",
			zap.String("namespace", "recorder"),
			zap.Error(err))
		return nil, err
	}

	zap.L().Info("speedtest result recorded",
		zap.String("namespace", "recorder"),
		zap.Float64("download", result.Download),
		zap.Float64("upload", result.Upload),
		zap.Float64("ping", result.Ping),
		zap.String("server", result.ServerName),
		zap.String("timestamp", result.TimestampText()))
	return result, nil
}
