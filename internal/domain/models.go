// Package domain defines the persistence models for consumers, service
// tickets, and generated replies. These types are mapped with GORM and form
// the core data layer of the PowerPulse backend.
package domain

import (
	"time"
)

// Ticket status values.
const (
	StatusOpen       = "open"
	StatusInProgress = "in_progress"
	StatusResolved   = "resolved"
)

// Ticket urgency values.
const (
	UrgencyLow  = "low"
	UrgencyHigh = "high"
)

// Ticket category values. They mirror flow.Category and are duplicated here so
// the schema constraints do not depend on the routing package.
const (
	CategoryEmergency      = "emergency"
	CategoryTechnicalFault = "technical_fault"
	CategoryEnergyAdvice   = "energy_advice"
)

// ValidStatus reports whether s is one of the known ticket statuses.
func ValidStatus(s string) bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusResolved:
		return true
	}
	return false
}

// Consumer is an energy customer reachable over a messaging channel. Consumers
// are resolved by their normalized phone number; a number maps to exactly one
// row (unique index), so repeated messages never create duplicates.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - PhoneNumber: normalized number without channel prefix (unique).
//   - LinkedUserID: optional identity in an external account system.
//   - MeterNumber: optional utility meter number (unique when set).
//   - Address: optional free-form service address.
//   - AverageConsumption: average monthly consumption in kWh.
type Consumer struct {
	ID                 string    `json:"id"                  gorm:"type:char(36);primaryKey"`
	PhoneNumber        string    `json:"phone_number"        gorm:"type:varchar(20);not null;uniqueIndex:ux_consumer_phone"`
	LinkedUserID       *string   `json:"linked_user_id,omitempty" gorm:"type:varchar(64);uniqueIndex:ux_consumer_user"`
	MeterNumber        *string   `json:"meter_number,omitempty"   gorm:"type:varchar(50);uniqueIndex:ux_consumer_meter"`
	Address            *string   `json:"address,omitempty"   gorm:"type:text"`
	AverageConsumption float64   `json:"average_consumption" gorm:"not null;default:0"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// TableName returns the database table name for Consumer.
func (Consumer) TableName() string { return "consumers" }

// Ticket is the durable record of one handled inbound request. The ticket id
// is the short reference shown to the consumer (e.g. "TIC-3FA9C1") and is the
// primary key, so a colliding id is rejected by the database.
type Ticket struct {
	TicketID         string    `json:"ticket_id"         gorm:"type:varchar(20);primaryKey"`
	ConsumerID       string    `json:"consumer_id"       gorm:"type:char(36);not null;index:idx_consumer_tickets,priority:1"`
	IssueDescription string    `json:"issue_description" gorm:"type:text;not null"`
	Category         string    `json:"category"          gorm:"type:varchar(30);not null;default:'energy_advice';index;check:category IN ('emergency','technical_fault','energy_advice')"`
	Urgency          string    `json:"urgency"           gorm:"type:varchar(20);not null;default:'low';check:urgency IN ('low','high')"`
	Status           string    `json:"status"            gorm:"type:varchar(20);not null;default:'open';index;check:status IN ('open','in_progress','resolved')"`
	CreatedAt        time.Time `json:"created_at"        gorm:"index:idx_consumer_tickets,priority:2"`
	UpdatedAt        time.Time `json:"updated_at"`

	// Consumer owns the ticket. Tickets are removed with their consumer.
	Consumer Consumer `json:"-" gorm:"foreignKey:ConsumerID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`

	// Contents outlive the ticket: deleting it nulls their reference.
	Contents []GeneratedContent `json:"-" gorm:"foreignKey:TicketID;references:TicketID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL"`
}

// TableName returns the database table name for Ticket.
func (Ticket) TableName() string { return "tickets" }

// GeneratedContent stores what was produced and sent for a ticket. The ticket
// reference is nullable and set to NULL when the ticket is deleted, so the
// generated history survives ticket cleanup.
type GeneratedContent struct {
	ID             string    `json:"id"                        gorm:"type:char(36);primaryKey"`
	TicketID       *string   `json:"ticket_id,omitempty"       gorm:"type:varchar(20);index"`
	PromptUsed     string    `json:"prompt_used"               gorm:"type:text;not null"`
	GeneratedText  string    `json:"generated_text"            gorm:"type:text"`
	MediaReference *string   `json:"media_reference,omitempty" gorm:"type:varchar(1000)"`
	DeliveryID     *string   `json:"delivery_id,omitempty"     gorm:"type:varchar(100)"`
	CreatedAt      time.Time `json:"created_at"`
}

// TableName returns the database table name for GeneratedContent.
func (GeneratedContent) TableName() string { return "generated_contents" }
