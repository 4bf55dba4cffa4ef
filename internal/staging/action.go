package staging

import (
	"encoding/json"
	"errors"
	"fmt"
)

// StagedAction is a single proposed change awaiting batch submission.
type StagedAction struct {
	ID             string
	Payload        Payload
	DiffSummary    string
	RiskLevel      RiskLevel
	RequiredPhrase string
}

func (a StagedAction) Type() ActionType {
	if a.Payload == nil {
		return ""
	}
	return a.Payload.ActionType()
}

func (a StagedAction) Phase() Phase {
	return a.Type().Phase()
}

func (a StagedAction) Validate() error {
	if a.ID == "" {
		return errors.New("action id is required")
	}
	if a.Payload == nil {
		return fmt.Errorf("action %s has no payload", a.ID)
	}
	if err := a.Payload.Validate(); err != nil {
		return fmt.Errorf("action %s: %w", a.ID, err)
	}
	return nil
}

type stagedActionJSON struct {
	ID             string          `json:"id"`
	Type           ActionType      `json:"type"`
	Payload        json.RawMessage `json:"payload,omitempty"`
	DiffSummary    string          `json:"diff_summary"`
	RiskLevel      RiskLevel       `json:"risk_level"`
	RequiredPhrase string          `json:"required_phrase"`
}

func (a StagedAction) MarshalJSON() ([]byte, error) {
	payload := json.RawMessage("{}")
	if a.Payload != nil {
		data, err := json.Marshal(a.Payload)
		if err != nil {
			return nil, err
		}
		payload = data
	}
	return json.Marshal(stagedActionJSON{
		ID:             a.ID,
		Type:           a.Type(),
		Payload:        payload,
		DiffSummary:    a.DiffSummary,
		RiskLevel:      a.RiskLevel,
		RequiredPhrase: a.RequiredPhrase,
	})
}

// UnmarshalJSON decodes the tagged form. required_phrase always comes from the
// action type; a client-sent value is ignored.
func (a *StagedAction) UnmarshalJSON(data []byte) error {
	var wire stagedActionJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	payload, err := DecodePayload(wire.Type, wire.Payload)
	if err != nil {
		return err
	}

	a.ID = wire.ID
	a.Payload = payload
	a.DiffSummary = wire.DiffSummary
	a.RiskLevel = wire.RiskLevel
	a.RequiredPhrase = RequiredPhrase(wire.Type)
	return nil
}
