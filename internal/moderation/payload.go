package moderation

import (
	"bytes"
	"encoding/json"
	"fmt"

	"suggestbot/internal/domain"
	"suggestbot/pkg/tgui"
)

// Payload is the callback data carried by the accept/decline buttons.
type Payload struct {
	Question int64         `json:"question"`
	Action   domain.Action `json:"action"`
}

// EncodePayload renders {"question":<id>,"action":"accept"|"decline"}.
func EncodePayload(id int64, action domain.Action) (string, error) {
	if id <= 0 || !action.Valid() {
		return "", fmt.Errorf("%w: question=%d action=%q", domain.ErrInvalidPayload, id, action)
	}
	b, err := json.Marshal(Payload{Question: id, Action: action})
	if err != nil {
		return "", err
	}
	if len(b) > tgui.MaxCallbackDataLen {
		return "", fmt.Errorf("%w: %d bytes exceeds callback limit", domain.ErrInvalidPayload, len(b))
	}
	return string(b), nil
}

// DecodePayload parses callback data strictly.
func DecodePayload(data string) (Payload, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(data)))
	dec.DisallowUnknownFields()
	var p Payload
	if err := dec.Decode(&p); err != nil {
		return Payload{}, fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
	}
	if p.Question <= 0 || !p.Action.Valid() {
		return Payload{}, fmt.Errorf("%w: question=%d action=%q", domain.ErrInvalidPayload, p.Question, p.Action)
	}
	return p, nil
}
