package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// JSONRendererName is the name the core registers JSONRenderer under.
const JSONRendererName = "json"

// JSONRenderer serializes the message payload. It supports FormatJSON only.
type JSONRenderer struct{}

func (JSONRenderer) CanRender(f Format) bool {
	return f == FormatJSON
}

func (r JSONRenderer) Render(_ context.Context, msg Message, f Format, _ string) (string, error) {
	if !r.CanRender(f) {
		return "", fmt.Errorf("%w: json renderer cannot produce %q", ErrRender, f)
	}
	payload := msg.Payload
	if payload == nil {
		payload = Payload{}
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return "", errors.Join(ErrRender, err)
	}
	return string(b), nil
}

func (JSONRenderer) TemplatePath(Format) (string, bool) {
	return "", false
}
