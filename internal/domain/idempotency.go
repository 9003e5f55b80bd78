package domain

import "time"

// Idempotency maps an Idempotency-Key sent on a refresh request to the
// RefreshRun it produced. Records stop matching once ExpiresAt has passed.
type Idempotency struct {
	ID        string    `gorm:"type:char(36);primaryKey"`
	Key       string    `gorm:"type:varchar(255);not null;uniqueIndex:ux_idempotency_key"`
	RunID     string    `gorm:"type:char(36);not null"`
	Status    int       `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime"`
	ExpiresAt time.Time `gorm:"not null;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }
