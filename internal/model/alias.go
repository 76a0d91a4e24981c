package model

import (
	"strings"
	"time"
)

type Status string

const (
	Queued    Status = "QUEUED"
	Sent      Status = "SENT"
	Failed    Status = "FAILED"
	Delivered Status = "DELIVERED"
)

// AliasEntry maps a user-defined short code to a phone number and a message
// template. NormalizedAlias is the lookup key; uniqueness is enforced on it,
// not on the raw Alias.
type AliasEntry struct {
	ID                string
	Alias             string
	NormalizedAlias   string
	PhoneNumber       string
	PredefinedMessage string
	DefaultPrefix     *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Validate checks the required fields for a save. The phone number is not
// validated for format, only for presence.
func (e *AliasEntry) Validate() error {
	if strings.TrimSpace(e.Alias) == "" {
		return &ValidationError{Field: "alias"}
	}
	if strings.TrimSpace(e.PhoneNumber) == "" {
		return &ValidationError{Field: "phoneNumber"}
	}
	if strings.TrimSpace(e.PredefinedMessage) == "" {
		return &ValidationError{Field: "predefinedMessage"}
	}
	return nil
}

// SmsLogEntry is the masked record of one send attempt. It never carries the
// raw phone number or the full message body, and it keeps no reference to the
// alias record, so it survives alias deletion and rename.
type SmsLogEntry struct {
	ID             string
	Timestamp      time.Time
	Alias          string
	MaskedPhone    string
	MessagePreview string
	Status         Status
	FailureReason  *string
}
