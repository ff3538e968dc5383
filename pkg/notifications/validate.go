package notifications

import (
	"encoding/json"
	"errors"
	"regexp"

	"github.com/dmitrymomot/notifycore/pkg/validator"
)

// MaxTypeNameLength is the longest accepted notification type name.
const MaxTypeNameLength = 255

var typeNameRe = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// ValidateTypeName checks a notification type name. Failures wrap
// ErrInvalidTypeName and validator.ValidationErrors.
func ValidateTypeName(name string) error {
	if err := validator.Apply(
		validator.Required("name", name),
		validator.MaxLen("name", name, MaxTypeNameLength),
		validator.Matches("name", name, typeNameRe, "[A-Za-z0-9._-]+"),
	); err != nil {
		return errors.Join(ErrInvalidTypeName, err)
	}
	return nil
}

// ValidateMessage checks that msg references a type registered in types,
// that every payload is JSON-serializable and that ExpiresAt is not before
// Created. It performs no I/O. An unregistered type also matches ErrUnknownType.
func ValidateMessage(msg Message, types *TypeRegistry) error {
	name := msg.Type.Name
	registered := false
	if types != nil && name != "" {
		_, registered = types.Lookup(name)
	}

	rules := []validator.Rule{
		validator.Required("msg_type", name),
		validator.Check("msg_type", name == "" || registered, "notification type is not registered"),
		validator.Check("payload", jsonSafe(msg.Payload), "must be JSON-serializable"),
		validator.Check("click_link_params", jsonSafe(msg.ClickLinkParams), "must be JSON-serializable"),
	}
	for channel, p := range msg.ChannelPayloads {
		rules = append(rules, validator.Check("channel_payloads."+channel, jsonSafe(p), "must be JSON-serializable"))
	}
	if msg.ExpiresAt != nil && !msg.Created.IsZero() {
		rules = append(rules, validator.Check("expires_at", !msg.ExpiresAt.Before(msg.Created), "must not be before created"))
	}

	if err := validator.Apply(rules...); err != nil {
		if name != "" && !registered {
			return errors.Join(ErrInvalidMessage, ErrUnknownType, err)
		}
		return errors.Join(ErrInvalidMessage, err)
	}
	return nil
}

func jsonSafe[M ~map[string]any](m M) bool {
	if m == nil {
		return true
	}
	_, err := json.Marshal(m)
	return err == nil
}
