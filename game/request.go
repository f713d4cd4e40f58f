package game

import (
	"encoding/json"
	"fmt"
	"time"
)

// DecisionType names the input a request asks an agent for.
type DecisionType string

const (
	SelectDealerCardDecision  DecisionType = "SELECT_DEALER_CARD"
	DealDecision              DecisionType = "DEAL"
	DiscardDecision           DecisionType = "DISCARD"
	CutDeckDecision           DecisionType = "CUT_DECK"
	PlayCardDecision          DecisionType = "PLAY_CARD"
	ReadyForNextRoundDecision DecisionType = "READY_FOR_NEXT_ROUND"
)

// RequestData is the decision specific payload of a DecisionRequest.
type RequestData interface {
	Decision() DecisionType
}

type SelectDealerCardData struct {
	MaxIndex int `json:"maxIndex"`
}

type DealData struct {
	Round int `json:"round"`
}

type DiscardData struct {
	Hand  []Card `json:"hand"`
	Count int    `json:"count"`
}

type CutDeckData struct {
	MaxIndex int `json:"maxIndex"`
}

type PlayCardData struct {
	PeggingHand  []Card `json:"peggingHand"`
	PeggingStack []Card `json:"peggingStack"`
	PeggingTotal int    `json:"peggingTotal"`
}

type AcknowledgeData struct {
	Round int `json:"round"`
}

func (SelectDealerCardData) Decision() DecisionType { return SelectDealerCardDecision }
func (DealData) Decision() DecisionType             { return DealDecision }
func (DiscardData) Decision() DecisionType          { return DiscardDecision }
func (CutDeckData) Decision() DecisionType          { return CutDeckDecision }
func (PlayCardData) Decision() DecisionType         { return PlayCardDecision }
func (AcknowledgeData) Decision() DecisionType      { return ReadyForNextRoundDecision }

// DecisionRequest asks one player for input the sequencer cannot derive.
// ExpiresAt is carried for clients but never enforced.
type DecisionRequest struct {
	RequestID    string       `json:"requestId"`
	PlayerID     string       `json:"playerId"`
	DecisionType DecisionType `json:"decisionType"`
	Data         RequestData  `json:"requestData"`
	Required     bool         `json:"required"`
	Timestamp    time.Time    `json:"timestamp"`
	ExpiresAt    *time.Time   `json:"expiresAt,omitempty"`
}

type decisionRequestJSON struct {
	RequestID    string          `json:"requestId"`
	PlayerID     string          `json:"playerId"`
	DecisionType DecisionType    `json:"decisionType"`
	Data         json.RawMessage `json:"requestData,omitempty"`
	Required     bool            `json:"required"`
	Timestamp    time.Time       `json:"timestamp"`
	ExpiresAt    *time.Time      `json:"expiresAt,omitempty"`
}

func (r *DecisionRequest) UnmarshalJSON(data []byte) error {
	var raw decisionRequestJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*r = DecisionRequest{
		RequestID:    raw.RequestID,
		PlayerID:     raw.PlayerID,
		DecisionType: raw.DecisionType,
		Required:     raw.Required,
		Timestamp:    raw.Timestamp,
		ExpiresAt:    raw.ExpiresAt,
	}
	if len(raw.Data) == 0 || string(raw.Data) == "null" {
		return nil
	}

	var payload RequestData
	switch raw.DecisionType {
	case SelectDealerCardDecision:
		payload = &SelectDealerCardData{}
	case DealDecision:
		payload = &DealData{}
	case DiscardDecision:
		payload = &DiscardData{}
	case CutDeckDecision:
		payload = &CutDeckData{}
	case PlayCardDecision:
		payload = &PlayCardData{}
	case ReadyForNextRoundDecision:
		payload = &AcknowledgeData{}
	default:
		return fmt.Errorf("unknown decision type %q", raw.DecisionType)
	}
	if err := json.Unmarshal(raw.Data, payload); err != nil {
		return fmt.Errorf("decode %s request data: %w", raw.DecisionType, err)
	}
	r.Data = derefData(payload)
	return nil
}

// derefData stores request data by value so type switches match the variants
// the sequencer creates.
func derefData(d RequestData) RequestData {
	switch v := d.(type) {
	case *SelectDealerCardData:
		return *v
	case *DealData:
		return *v
	case *DiscardData:
		return *v
	case *CutDeckData:
		return *v
	case *PlayCardData:
		return *v
	case *AcknowledgeData:
		return *v
	}
	return d
}

// DecisionResponse answers a DecisionRequest. Only the field matching the
// decision type is read; a nil Card on a PLAY_CARD response is a Go.
type DecisionResponse struct {
	RequestID    string       `json:"requestId"`
	PlayerID     string       `json:"playerId"`
	DecisionType DecisionType `json:"decisionType"`
	Card         *Card        `json:"card,omitempty"`
	Cards        []Card       `json:"cards,omitempty"`
	Index        int          `json:"index,omitempty"`
}

// Matches checks a response against the request it claims to answer.
func (r DecisionResponse) Matches(req DecisionRequest) error {
	if r.RequestID != req.RequestID {
		return fmt.Errorf("%w: request id %q, want %q", ErrResponseMismatch, r.RequestID, req.RequestID)
	}
	if r.PlayerID != req.PlayerID {
		return fmt.Errorf("%w: player %q, want %q", ErrResponseMismatch, r.PlayerID, req.PlayerID)
	}
	if r.DecisionType != "" && r.DecisionType != req.DecisionType {
		return fmt.Errorf("%w: decision %s, want %s", ErrResponseMismatch, r.DecisionType, req.DecisionType)
	}
	return nil
}
