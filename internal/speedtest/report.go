package speedtest

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"
	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cast"
	"github.com/talkincode/speedlog/internal/domain"
	"github.com/talkincode/speedlog/pkg/errs"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Report is the document printed by `speedtest-cli --json`. Several fields are
// numbers in some releases and strings in others, so they are decoded loosely.
type Report struct {
	Download      float64 `json:"download"`
	Upload        float64 `json:"upload"`
	Ping          float64 `json:"ping"`
	Timestamp     string  `json:"timestamp"`
	BytesSent     int64   `json:"bytes_sent"`
	BytesReceived int64   `json:"bytes_received"`
	Share         *string `json:"share"`
	Server        *Server `json:"server"`
	Client        *Client `json:"client"`
}

type Server struct {
	URL     string      `json:"url"`
	Lat     interface{} `json:"lat"`
	Lon     interface{} `json:"lon"`
	Name    string      `json:"name"`
	Country string      `json:"country"`
	CC      string      `json:"cc"`
	Sponsor string      `json:"sponsor"`
	ID      interface{} `json:"id"`
	Host    string      `json:"host"`
	D       interface{} `json:"d"`
	Latency interface{} `json:"latency"`
}

type Client struct {
	IP        string      `json:"ip"`
	Lat       interface{} `json:"lat"`
	Lon       interface{} `json:"lon"`
	ISP       string      `json:"isp"`
	ISPRating interface{} `json:"isprating"`
	Rating    interface{} `json:"rating"`
	ISPDlAvg  interface{} `json:"ispdlavg"`
	ISPUlAvg  interface{} `json:"ispulavg"`
	LoggedIn  interface{} `json:"loggedin"`
	Country   string      `json:"country"`
}

// ParseReport decodes the CLI output. server, client and timestamp are
// required.
func ParseReport(data []byte) (*Report, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, errs.New(errs.KindParse, "parse speedtest output", "empty output")
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, errs.Wrap(errs.KindParse, "parse speedtest output", err)
	}
	switch {
	case r.Server == nil:
		return nil, errs.New(errs.KindParse, "parse speedtest output", "missing server object")
	case r.Client == nil:
		return nil, errs.New(errs.KindParse, "parse speedtest output", "missing client object")
	case r.Timestamp == "":
		return nil, errs.New(errs.KindParse, "parse speedtest output", "missing timestamp")
	}
	return &r, nil
}

// ParseTimestamp converts an ISO-8601 value such as 2024-01-20T23:00:00.123Z
// into a wall-clock time. The trailing Z is dropped and no zone conversion is
// applied; sub-second precision is truncated.
func ParseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSuffix(strings.TrimSpace(value), "Z")
	t, err := dateparse.ParseIn(value, time.UTC)
	if err != nil {
		return time.Time{}, errs.Wrapf(errs.KindParse, "parse timestamp", err, "timestamp %q", value)
	}
	return t.Truncate(time.Second), nil
}

// FormatTimestamp converts an ISO-8601 value into DATETIME text.
func FormatTimestamp(value string) (string, error) {
	t, err := ParseTimestamp(value)
	if err != nil {
		return "", err
	}
	return t.Format(domain.TimestampLayout), nil
}

// Result maps the report onto a row of speedtest_results.
func (r *Report) Result() (*domain.SpeedtestResult, error) {
	ts, err := ParseTimestamp(r.Timestamp)
	if err != nil {
		return nil, err
	}
	return &domain.SpeedtestResult{
		Download:        r.Download,
		Upload:          r.Upload,
		Ping:            r.Ping,
		ServerURL:       r.Server.URL,
		ServerLat:       cast.ToString(r.Server.Lat),
		ServerLon:       cast.ToString(r.Server.Lon),
		ServerName:      r.Server.Name,
		ServerCountry:   r.Server.Country,
		ServerCC:        r.Server.CC,
		ServerSponsor:   r.Server.Sponsor,
		ServerID:        cast.ToString(r.Server.ID),
		ServerHost:      r.Server.Host,
		ServerD:         cast.ToFloat64(r.Server.D),
		ServerLatency:   cast.ToFloat64(r.Server.Latency),
		Timestamp:       domain.NewTimestamp(ts),
		BytesSent:       r.BytesSent,
		BytesReceived:   r.BytesReceived,
		ClientIP:        r.Client.IP,
		ClientLat:       cast.ToString(r.Client.Lat),
		ClientLon:       cast.ToString(r.Client.Lon),
		ClientISP:       r.Client.ISP,
		ClientISPRating: cast.ToString(r.Client.ISPRating),
		ClientRating:    cast.ToString(r.Client.Rating),
		ClientISPDlAvg:  cast.ToString(r.Client.ISPDlAvg),
		ClientISPUlAvg:  cast.ToString(r.Client.ISPUlAvg),
		ClientLoggedIn:  cast.ToString(r.Client.LoggedIn),
		ClientCountry:   r.Client.Country,
	}, nil
}
