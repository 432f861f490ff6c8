package domain

import "time"

// TimestampLayout is the DATETIME text form stored for a measurement.
const TimestampLayout = "2006-01-02 15:04:05"

// ArchiveRetention is how long a measurement stays in speedtest_results.
const ArchiveRetention = 48 * time.Hour

// SpeedtestResult one speedtest-cli measurement. Rows are never updated; aged
// rows move to SpeedtestResultArchive.
type SpeedtestResult struct {
	ID               int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id" csv:"id"`
	Download         float64   `gorm:"column:download" json:"download" csv:"download"` // bits/s
	Upload           float64   `gorm:"column:upload" json:"upload" csv:"upload"`       // bits/s
	Ping             float64   `gorm:"column:ping" json:"ping" csv:"ping"`             // ms
	ServerURL        string    `gorm:"column:server_url;size:255" json:"server_url" csv:"server_url"`
	ServerLat        string    `gorm:"column:server_lat;size:20" json:"server_lat" csv:"server_lat"`
	ServerLon        string    `gorm:"column:server_lon;size:20" json:"server_lon" csv:"server_lon"`
	ServerName       string    `gorm:"column:server_name;size:255" json:"server_name" csv:"server_name"`
	ServerCountry    string    `gorm:"column:server_country;size:255" json:"server_country" csv:"server_country"`
	ServerCC         string    `gorm:"column:server_cc;size:10" json:"server_cc" csv:"server_cc"`
	ServerSponsor    string    `gorm:"column:server_sponsor;size:255" json:"server_sponsor" csv:"server_sponsor"`
	ServerID         string    `gorm:"column:server_id;size:20" json:"server_id" csv:"server_id"`
	ServerHost       string    `gorm:"column:server_host;size:255" json:"server_host" csv:"server_host"`
	ServerD          float64   `gorm:"column:server_d" json:"server_d" csv:"server_d"` // km
	ServerLatency    float64   `gorm:"column:server_latency" json:"server_latency" csv:"server_latency"`
	Timestamp        Timestamp `gorm:"column:timestamp;index" json:"timestamp" csv:"-"`
	BytesSent        int64     `gorm:"column:bytes_sent" json:"bytes_sent" csv:"bytes_sent"`
	BytesReceived    int64     `gorm:"column:bytes_received" json:"bytes_received" csv:"bytes_received"`
	ClientIP         string    `gorm:"column:client_ip;size:20" json:"client_ip" csv:"client_ip"`
	ClientLat        string    `gorm:"column:client_lat;size:20" json:"client_lat" csv:"client_lat"`
	ClientLon        string    `gorm:"column:client_lon;size:20" json:"client_lon" csv:"client_lon"`
	ClientISP        string    `gorm:"column:client_isp;size:255" json:"client_isp" csv:"client_isp"`
	ClientISPRating  string    `gorm:"column:client_isprating;size:20" json:"client_isprating" csv:"client_isprating"`
	ClientRating     string    `gorm:"column:client_rating;size:20" json:"client_rating" csv:"client_rating"`
	ClientISPDlAvg   string    `gorm:"column:client_ispdlavg;size:20" json:"client_ispdlavg" csv:"client_ispdlavg"`
	ClientISPUlAvg   string    `gorm:"column:client_ispulavg;size:20" json:"client_ispulavg" csv:"client_ispulavg"`
	ClientLoggedIn   string    `gorm:"column:client_loggedin;size:20" json:"client_loggedin" csv:"client_loggedin"`
	ClientCountry    string    `gorm:"column:client_country;size:20" json:"client_country" csv:"client_country"`
}

// TableName Specify table name
func (SpeedtestResult) TableName() string {
	return "speedtest_results"
}

// TimestampText is the stored DATETIME value as text.
func (r SpeedtestResult) TimestampText() string {
	return r.Timestamp.Text()
}

// SpeedtestResultArchive has the same layout as SpeedtestResult, including the
// copied id.
type SpeedtestResultArchive SpeedtestResult

// TableName Specify table name
func (SpeedtestResultArchive) TableName() string {
	return "speedtest_results_archive"
}

// ResultColumns lists every column of both result tables in DDL order. The
// archive copy statements name them explicitly.
var ResultColumns = []string{
	"id", "download", "upload", "ping",
	"server_url", "server_lat", "server_lon", "server_name", "server_country",
	"server_cc", "server_sponsor", "server_id", "server_host", "server_d", "server_latency",
	"timestamp", "bytes_sent", "bytes_received",
	"client_ip", "client_lat", "client_lon", "client_isp", "client_isprating",
	"client_rating", "client_ispdlavg", "client_ispulavg", "client_loggedin", "client_country",
}
