package models

import "time"

// EventType names a change to the report collection
type EventType string

const (
	EventReportCreated       EventType = "report.created"
	EventReportStatusChanged EventType = "report.status_changed"
)

// ReportEvent is published to the message broker after a change is applied
type ReportEvent struct {
	Type       EventType    `json:"type"`
	Report     ReportRecord `json:"report"`
	Simulated  bool         `json:"simulated,omitempty"`
	OccurredAt time.Time    `json:"occurred_at"`
}
