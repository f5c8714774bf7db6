package domain

import "time"

// InboundMessage records that an inbound webhook delivery has been accepted
// for processing. The key is the channel's message identifier (or its
// redelivery token); the unique index makes the first claim win so that a
// redelivered webhook never spawns a second reply.
type InboundMessage struct {
	ID        string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	Key       string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_inbound_key"`
	Sender    string    `gorm:"type:TEXT NOT NULL;default:''"`
	CreatedAt time.Time `gorm:"type:DATETIME NOT NULL;autoCreateTime"`
	ExpiresAt time.Time `gorm:"type:DATETIME NOT NULL;index"`
}

// TableName implements the GORM tabler interface.
func (InboundMessage) TableName() string { return "inbound_messages" }
