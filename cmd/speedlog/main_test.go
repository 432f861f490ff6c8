package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/talkincode/speedlog/internal/domain"
	"github.com/talkincode/speedlog/internal/repository"
	"github.com/talkincode/speedlog/pkg/errs"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"success", nil, exitOK},
		{"config", errs.New(errs.KindConfig, "read config", "missing key database.password"), exitFatal},
		{"schema", errs.Wrap(errs.KindSchema, "connect database server", errors.New("connection refused")), exitFatal},
		{"database", errs.New(errs.KindDatabase, "archive old entries", "deadlock"), exitFatal},
		{"usage", errors.New(`unknown flag: --frobnicate`), exitUsage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

func TestRenderStats(t *testing.T) {
	stats := &repository.Stats{
		Count:           2,
		StartDate:       time.Date(2024, 1, 20, 23, 0, 0, 0, time.UTC),
		EndDate:         time.Date(2024, 1, 21, 0, 0, 0, 0, time.UTC),
		AvgDownloadMbps: 47.68,
		AvgUploadMbps:   9.54,
	}

	var buf bytes.Buffer
	require.NoError(t, render(&buf, formatTable, stats))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "Count"))
	assert.Contains(t, lines[1], "2024-01-20 23:00:00")
	assert.Contains(t, lines[1], "47.68")

	buf.Reset()
	require.NoError(t, render(&buf, formatJSON, stats))
	assert.Contains(t, buf.String(), `"avg_download_mbps": 47.68`)

	buf.Reset()
	require.NoError(t, render(&buf, formatYAML, stats))
	assert.Contains(t, buf.String(), "count: 2")
}

func TestRenderStatusAndSizes(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, render(&buf, formatTable, []domain.Status{{ID: 1, Enabled: true}}))
	assert.Contains(t, buf.String(), "true")
	assert.Contains(t, buf.String(), "-")

	buf.Reset()
	require.NoError(t, render(&buf, formatTable, []repository.DatabaseSize{{Database: "testhost_speedtest", SizeMB: 0.0625}}))
	assert.Contains(t, buf.String(), "testhost_speedtest")
	assert.Contains(t, buf.String(), "0.0625")

	err := render(&buf, "xml", nil)
	assert.True(t, errs.Is(err, errs.KindConfig))
}
