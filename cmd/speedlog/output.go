package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/talkincode/speedlog/internal/domain"
	"github.com/talkincode/speedlog/internal/repository"
	"github.com/talkincode/speedlog/pkg/errs"
	"gopkg.in/yaml.v3"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// render writes v in the requested format. Table output knows the report
// types of this command; json and yaml accept anything.
func render(w io.Writer, format string, v interface{}) error {
	switch format {
	case formatJSON:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return errs.Wrap(errs.KindParse, "render json", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return errs.Wrap(errs.KindParse, "render json", err)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return errs.Wrap(errs.KindParse, "render yaml", err)
		}
		return errs.Wrap(errs.KindParse, "render yaml", enc.Close())
	case formatTable, "":
		return errs.Wrap(errs.KindParse, "render table", renderTable(w, v))
	default:
		return errs.New(errs.KindConfig, "render", fmt.Sprintf("unknown output format %q", format))
	}
}

func renderTable(w io.Writer, v interface{}) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	switch data := v.(type) {
	case *repository.Stats:
		fmt.Fprintln(tw, "Count\tStart Date\tEnd Date\tAvg Download MB/s\tAvg Upload MB/s\tMedian Download\tP95 Download\tAvg Ping ms")
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\n",
			data.Count, dateText(data.StartDate), dateText(data.EndDate),
			data.AvgDownloadMbps, data.AvgUploadMbps,
			data.MedianDownloadMbps, data.P95DownloadMbps, data.AvgPingMs)
	case []repository.DatabaseSize:
		fmt.Fprintln(tw, "Database\tSize in MB")
		for _, s := range data {
			fmt.Fprintf(tw, "%s\t%.4f\n", s.Database, s.SizeMB)
		}
	case []domain.Status:
		fmt.Fprintln(tw, "ID\tCreated At\tEnabled")
		for _, s := range data {
			fmt.Fprintf(tw, "%d\t%s\t%t\n", s.ID, dateText(s.CreatedAt), s.Enabled)
		}
	default:
		fmt.Fprintf(tw, "%v\n", v)
	}
	return tw.Flush()
}

func dateText(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(domain.TimestampLayout)
}
