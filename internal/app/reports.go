package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/talkincode/speedlog/internal/domain"
	"github.com/talkincode/speedlog/internal/repository"
	"github.com/talkincode/speedlog/internal/schema"
	"github.com/talkincode/speedlog/pkg/errs"
)

// Archive moves aged rows in one Go-side transaction, or through the
// ArchiveOldEntries procedure when procedure is set.
func (a *Application) Archive(ctx context.Context, procedure bool) (int64, error) {
	if !procedure {
		return repository.NewGormResultRepository(a.gormDB).Archive(ctx, time.Now())
	}
	r, err := a.routine(schema.RoutineArchive)
	if err != nil {
		return 0, err
	}
	return repository.CallProcedure(ctx, a.gormDB, r.Call)
}

func (a *Application) Stats(ctx context.Context, procedure bool) (*repository.Stats, error) {
	if !procedure {
		return repository.ComputeStats(ctx, a.gormDB)
	}
	r, err := a.routine(schema.RoutineStats)
	if err != nil {
		return nil, err
	}
	return repository.CallStats(ctx, a.gormDB, r.Call)
}

func (a *Application) DatabaseSize(ctx context.Context, procedure bool) ([]repository.DatabaseSize, error) {
	query := a.dialect.SizeQuery()
	if procedure {
		r, err := a.routine(schema.RoutineDatabaseSize)
		if err != nil {
			return nil, err
		}
		query = r.Call
	}
	return repository.QueryDatabaseSize(ctx, a.gormDB, query)
}

func (a *Application) Export(ctx context.Context, table string, w io.Writer) (int, error) {
	return repository.ExportCSV(ctx, repository.NewGormResultRepository(a.gormDB), table, w)
}

func (a *Application) Status(ctx context.Context) ([]domain.Status, error) {
	return repository.NewGormStatusRepository(a.gormDB).List(ctx)
}

func (a *Application) routine(name string) (schema.Routine, error) {
	r, ok := schema.FindRoutine(a.dialect, name)
	if !ok {
		return r, errs.New(errs.KindConfig, "find routine",
			fmt.Sprintf("%s has no stored routine %s", a.dialect.Name(), name))
	}
	return r, nil
}
