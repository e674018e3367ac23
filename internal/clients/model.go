package clients

import (
	"strings"
	"time"
)

// Client is the CRM-side contact. The revenue fields are a derived view:
// the reconciler overwrites them wholesale from the won-deal set and no code
// path increments them in place.
type Client struct {
	ID           string     `json:"id" dynamodbav:"id"`
	Name         string     `json:"name" dynamodbav:"name"`
	Phone        string     `json:"phone" dynamodbav:"phone"`
	Email        string     `json:"email" dynamodbav:"email"`
	SourceLeadID string     `json:"source_lead_id,omitempty" dynamodbav:"source_lead_id,omitempty"`
	HMSPatientID string     `json:"hms_patient_id,omitempty" dynamodbav:"hms_patient_id,omitempty"`
	IsHMSPatient bool       `json:"is_hms_patient" dynamodbav:"is_hms_patient"`
	TotalRevenue float64    `json:"total_revenue" dynamodbav:"total_revenue"`
	TotalDeals   int        `json:"total_deals" dynamodbav:"total_deals"`
	LastDealDate *time.Time `json:"last_deal_date,omitempty" dynamodbav:"last_deal_date,omitempty"`
	CreatedAt    time.Time  `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" dynamodbav:"updated_at"`
}

// RevenueSummary is the recomputed aggregate written back onto a client.
type RevenueSummary struct {
	TotalRevenue float64
	TotalDeals   int
	LastDealDate *time.Time
}

// Validate checks the fields required before persisting a new client.
func (c *Client) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrInvalidName
	}
	return nil
}
