package repository

import (
	"context"
	"io"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/talkincode/speedlog/internal/domain"
	"github.com/talkincode/speedlog/pkg/errs"
)

// Export table names accepted by ExportCSV.
const (
	ExportResults = "results"
	ExportArchive = "archive"
)

// ExportRecord is the flat CSV row of a result table. The timestamp is
// written in the stored DATETIME text form.
type ExportRecord struct {
	domain.SpeedtestResult
	TimestampText string `csv:"timestamp"`
}

func newExportRecord(r domain.SpeedtestResult) *ExportRecord {
	return &ExportRecord{SpeedtestResult: r, TimestampText: r.TimestampText()}
}

// ExportCSV writes the rows of the live or archive table as CSV with a
// header line and returns the number of rows written.
func ExportCSV(ctx context.Context, repo ResultRepository, table string, w io.Writer) (int, error) {
	var records []*ExportRecord
	switch table {
	case ExportResults, "":
		rows, err := repo.List(ctx)
		if err != nil {
			return 0, err
		}
		for _, r := range rows {
			records = append(records, newExportRecord(r))
		}
	case ExportArchive:
		rows, err := repo.ListArchive(ctx)
		if err != nil {
			return 0, err
		}
		for _, r := range rows {
			records = append(records, newExportRecord(domain.SpeedtestResult(r)))
		}
	default:
		return 0, errs.New(errs.KindConfig, "export", "unknown table "+table)
	}

	if len(records) == 0 {
		// gocsv writes nothing for an empty slice; keep the header
		header, err := gocsv.MarshalString([]*ExportRecord{{}})
		if err != nil {
			return 0, errs.Wrap(errs.KindDatabase, "export", err)
		}
		_, err = io.WriteString(w, firstLine(header))
		return 0, errs.Wrap(errs.KindDatabase, "export", err)
	}
	if err := gocsv.Marshal(records, w); err != nil {
		return 0, errs.Wrap(errs.KindDatabase, "export", err)
	}
	return len(records), nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i+1]
	}
	return s
}
