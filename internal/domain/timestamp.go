package domain

import (
	"context"
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/araddon/dateparse"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Timestamp is a UTC wall-clock DATETIME truncated to the second. Engines
// with a native date type receive a time.Time; sqlite stores the text form
// TimestampLayout so that comparisons and MIN/MAX work on plain text.
type Timestamp struct {
	time.Time
}

func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t.UTC().Truncate(time.Second)}
}

func (Timestamp) GormDataType() string {
	return "time"
}

func (t Timestamp) GormValue(_ context.Context, db *gorm.DB) clause.Expr {
	if db.Dialector.Name() == "sqlite" {
		return clause.Expr{SQL: "?", Vars: []interface{}{t.Text()}}
	}
	return clause.Expr{SQL: "?", Vars: []interface{}{t.Time}}
}

func (t Timestamp) Value() (driver.Value, error) {
	return t.Time, nil
}

func (t *Timestamp) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		t.Time = time.Time{}
		return nil
	case time.Time:
		*t = NewTimestamp(v)
		return nil
	case []byte:
		return t.parse(string(v))
	case string:
		return t.parse(v)
	default:
		return fmt.Errorf("cannot scan %T into Timestamp", value)
	}
}

func (t *Timestamp) parse(s string) error {
	parsed, err := time.ParseInLocation(TimestampLayout, s, time.UTC)
	if err != nil {
		// rows written before the text form was used carry a zone suffix
		if parsed, err = dateparse.ParseIn(s, time.UTC); err != nil {
			return err
		}
	}
	*t = NewTimestamp(parsed)
	return nil
}

// Text is the stored DATETIME value as text.
func (t Timestamp) Text() string {
	return t.Format(TimestampLayout)
}
