package leads

import (
	"strings"
	"time"
)

// Status is the CRM lead lifecycle state.
type Status string

const (
	StatusNew        Status = "new"
	StatusInProgress Status = "in_progress"
	StatusContacted  Status = "contacted"
	StatusQualified  Status = "qualified"
	StatusConverted  Status = "converted"
	StatusRejected   Status = "rejected"
	StatusLost       Status = "lost"
)

// transitions describes the legal forward edges of the lead lifecycle.
// "converted" is deliberately absent from every target set: only the
// conversion pipeline may set it, through the repository's conditional
// MarkConverted write.
var transitions = map[Status]map[Status]bool{
	StatusNew:        {StatusInProgress: true, StatusContacted: true, StatusQualified: true, StatusRejected: true, StatusLost: true},
	StatusInProgress: {StatusContacted: true, StatusQualified: true, StatusRejected: true, StatusLost: true},
	StatusContacted:  {StatusInProgress: true, StatusQualified: true, StatusRejected: true, StatusLost: true},
	StatusQualified:  {StatusInProgress: true, StatusContacted: true, StatusRejected: true, StatusLost: true},
	StatusConverted:  {},
	StatusRejected:   {},
	StatusLost:       {},
}

// ValidStatus reports whether s is a known lead status.
func ValidStatus(s Status) bool {
	_, ok := transitions[s]
	return ok
}

// CanTransition reports whether a generic status edit from one state to
// another is legal.
func CanTransition(from, to Status) bool {
	next, ok := transitions[from]
	if !ok {
		return false
	}
	return next[to]
}

// convertible is the set of states a lead may be converted from.
var convertible = map[Status]bool{
	StatusNew:        true,
	StatusInProgress: true,
	StatusContacted:  true,
	StatusQualified:  true,
}

// Lead is an unqualified inbound CRM inquiry.
type Lead struct {
	ID                  string    `json:"id" dynamodbav:"id"`
	Name                string    `json:"name" dynamodbav:"name"`
	Phone               string    `json:"phone" dynamodbav:"phone"`
	Email               string    `json:"email" dynamodbav:"email"`
	SourceID            string    `json:"source_id,omitempty" dynamodbav:"source_id,omitempty"`
	Notes               string    `json:"notes,omitempty" dynamodbav:"notes,omitempty"`
	Status              Status    `json:"status" dynamodbav:"status"`
	ConvertedToClientID string    `json:"converted_to_client_id,omitempty" dynamodbav:"converted_to_client_id,omitempty"`
	CreatedAt           time.Time `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt           time.Time `json:"updated_at" dynamodbav:"updated_at"`
}

// CanConvertToClient reports whether the one-way conversion guard is still
// open: convertible status and no client back-reference yet.
func (l *Lead) CanConvertToClient() bool {
	return convertible[l.Status] && l.ConvertedToClientID == ""
}

// Validate checks the fields required before persisting a new lead.
func (l *Lead) Validate() error {
	if strings.TrimSpace(l.Name) == "" {
		return ErrInvalidName
	}
	if l.Email == "" && l.Phone == "" {
		return ErrMissingContact
	}
	return nil
}
