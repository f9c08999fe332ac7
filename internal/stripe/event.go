package stripe

import (
	"encoding/json"
	"fmt"
)

const EventPaymentIntentSucceeded = "payment_intent.succeeded"

type Event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

type PaymentIntent struct {
	ID             string            `json:"id"`
	Amount         int64             `json:"amount"`          // minor units
	AmountReceived int64             `json:"amount_received"` // minor units
	Currency       string            `json:"currency"`
	Metadata       map[string]string `json:"metadata"`
}

// SettledAmount prefers amount_received over amount; partial captures
// report the former while some event payloads only carry the latter.
func (pi PaymentIntent) SettledAmount() int64 {
	if pi.AmountReceived > 0 {
		return pi.AmountReceived
	}
	return pi.Amount
}

func ParseEvent(payload []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	return &ev, nil
}

func (e *Event) PaymentIntent() (*PaymentIntent, error) {
	var pi PaymentIntent
	if err := json.Unmarshal(e.Data.Object, &pi); err != nil {
		return nil, fmt.Errorf("decode payment intent: %w", err)
	}
	return &pi, nil
}
