// Package approval persists two-person approval requests and decides, per
// staged action, whether it may proceed, is waiting, or needs a new request.
package approval

import (
	"encoding/json"
	"fmt"
	"time"

	"runtimeops/internal/staging"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusConsumed Status = "consumed"
	StatusExpired  Status = "expired"
)

type Request struct {
	ID             string             `json:"id"`
	ActionType     staging.ActionType `json:"action_type"`
	PayloadHash    string             `json:"payload_hash"`
	Payload        json.RawMessage    `json:"payload"`
	RequiredPhrase string             `json:"required_phrase"`
	Reason         string             `json:"reason"`
	RequestedBy    string             `json:"requested_by"`
	Status         Status             `json:"status"`
	ResolvedBy     string             `json:"resolved_by,omitempty"`
	ResolutionNote string             `json:"resolution_note,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
	ResolvedAt     *time.Time         `json:"resolved_at,omitempty"`
	ExpiresAt      time.Time          `json:"expires_at"`
}

func (r *Request) Key() Key {
	return Key{ActionType: r.ActionType, PayloadHash: r.PayloadHash, Phrase: r.RequiredPhrase}
}

// Key identifies the action an approval covers. Two actions with the same
// type and canonical payload share approvals; the phrase is fixed per type.
type Key struct {
	ActionType  staging.ActionType
	PayloadHash string
	Phrase      string
}

func (k Key) String() string {
	return fmt.Sprintf("%s:%s:%s", k.ActionType, k.PayloadHash, k.Phrase)
}

func KeyFor(action staging.StagedAction) (Key, error) {
	hash, err := staging.PayloadHash(action.Payload)
	if err != nil {
		return Key{}, err
	}
	return Key{ActionType: action.Type(), PayloadHash: hash, Phrase: staging.RequiredPhrase(action.Type())}, nil
}
