package domain

import "time"

// Status manual on/off flag for this host's reporting. The recorder does not
// read it.
type Status struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id" yaml:"id" csv:"id"`
	CreatedAt time.Time `gorm:"column:created_at;default:CURRENT_TIMESTAMP" json:"created_at" yaml:"created_at" csv:"created_at"`
	Enabled   bool      `gorm:"column:enabled" json:"enabled" yaml:"enabled" csv:"enabled"`
}

// TableName Specify table name
func (Status) TableName() string {
	return "status"
}
