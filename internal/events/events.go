package events

import (
	"context"
	"time"
)

const MessageRecorded = "message.recorded"

type Meta struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
}

type Envelope struct {
	Meta Meta `json:"meta"`
	Data any  `json:"data"`
}

type MessageRecordedData struct {
	MessageID    uint   `json:"message_id"`
	Source       string `json:"source"`
	SenderNumber string `json:"sender_number"`
	CompanyID    *uint  `json:"company_id,omitempty"`
	HasFile      bool   `json:"has_file"`
	FileType     string `json:"file_type,omitempty"`
	DriveFileID  string `json:"drive_file_id,omitempty"`
}

type Publisher interface {
	Publish(ctx context.Context, key string, msg Envelope) error
	Close() error
}

// Nop drops every event. It is used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, string, Envelope) error { return nil }

func (Nop) Close() error { return nil }
