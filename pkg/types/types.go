package types

import "time"

// FitbitIntegration holds the upstream credential for a linked Fitbit
// account. The authorization-code flow that populates it lives outside
// this service; we only read, refresh and rotate the tokens.
type FitbitIntegration struct {
	Enabled      bool
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	Scope        string
	LastUsedAt   time.Time
}

type Integrations struct {
	Fitbit *FitbitIntegration
}

// UserRecord is the durable user document.
type UserRecord struct {
	UserID       string
	Email        string
	DisplayName  string
	Locale       string
	Integrations *Integrations
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PubSubMessage is the envelope Pub/Sub push delivers inside a CloudEvent.
type PubSubMessage struct {
	Message struct {
		Data       []byte            `json:"data"`
		Attributes map[string]string `json:"attributes"`
		MessageID  string            `json:"messageId"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}
