package notifications

import (
	"maps"
	"reflect"
	"time"
)

// Payload is the JSON-safe body of a message: strings, numbers, booleans,
// nil, slices and nested maps.
type Payload map[string]any

// Clone returns a deep copy of the payload. Mutating nested maps or slices of
// the copy never affects the original.
func (p Payload) Clone() Payload {
	if p == nil {
		return nil
	}
	out := make(Payload, len(p))
	for k, v := range p {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case nil, string, bool, int, int32, int64, float64, uint, uint64:
		return t
	case Payload:
		return t.Clone()
	case map[string]any:
		return map[string]any(Payload(t).Clone())
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = cloneValue(t[i])
		}
		return out
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		if rv.IsNil() {
			return v
		}
		out := reflect.MakeMapWithSize(rv.Type(), rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), cloneReflect(iter.Value()))
		}
		return out.Interface()
	case reflect.Slice:
		if rv.IsNil() {
			return v
		}
		out := reflect.MakeSlice(rv.Type(), rv.Len(), rv.Len())
		for i := range rv.Len() {
			out.Index(i).Set(cloneReflect(rv.Index(i)))
		}
		return out.Interface()
	default:
		return v
	}
}

func cloneReflect(v reflect.Value) reflect.Value {
	if !v.IsValid() || (v.Kind() == reflect.Interface && v.IsNil()) {
		return v
	}
	c := cloneValue(v.Interface())
	if c == nil {
		return reflect.Zero(v.Type())
	}
	return reflect.ValueOf(c).Convert(v.Type())
}

// NotificationType describes a kind of notification and the renderer bound to it.
// Types are registered once at startup and never mutated.
type NotificationType struct {
	Name            string         `json:"name"`
	Renderer        string         `json:"renderer"`
	RendererContext map[string]any `json:"renderer_context,omitempty"`
}

// Message is a single notification as published. It is treated as an
// immutable value: every helper returns a new Message and leaves the
// receiver untouched.
type Message struct {
	ID        int64            `json:"id,omitempty"`
	Type      NotificationType `json:"msg_type"`
	Namespace string           `json:"namespace,omitempty"`

	// Payload is the default payload; ChannelPayloads override it per channel name.
	Payload         Payload            `json:"payload"`
	ChannelPayloads map[string]Payload `json:"channel_payloads,omitempty"`

	DeliverNoEarlierThan *time.Time `json:"deliver_no_earlier_than,omitempty"`
	ExpiresAt            *time.Time `json:"expires_at,omitempty"`
	Created              time.Time  `json:"created"`

	ClickLink       string         `json:"click_link,omitempty"`
	ClickLinkParams map[string]any `json:"click_link_params,omitempty"`
}

// Clone returns a deep copy of the message.
func (m Message) Clone() Message {
	out := m
	out.Type.RendererContext = Payload(m.Type.RendererContext).Clone()
	out.Payload = m.Payload.Clone()
	if m.ChannelPayloads != nil {
		out.ChannelPayloads = make(map[string]Payload, len(m.ChannelPayloads))
		for name, p := range m.ChannelPayloads {
			out.ChannelPayloads[name] = p.Clone()
		}
	}
	out.ClickLinkParams = Payload(m.ClickLinkParams).Clone()
	out.DeliverNoEarlierThan = cloneTime(m.DeliverNoEarlierThan)
	out.ExpiresAt = cloneTime(m.ExpiresAt)
	return out
}

// PayloadFor returns a copy of the payload registered for channel, or of the
// default payload when the channel has none.
func (m Message) PayloadFor(channel string) Payload {
	if p, ok := m.ChannelPayloads[channel]; ok {
		return p.Clone()
	}
	return m.Payload.Clone()
}

// ForChannel returns a clone whose default payload is the one registered for channel.
func (m Message) ForChannel(channel string) Message {
	out := m.Clone()
	if p, ok := m.ChannelPayloads[channel]; ok {
		out.Payload = p.Clone()
	}
	return out
}

// WithChannelPayload returns a clone carrying p as the payload for channel.
func (m Message) WithChannelPayload(channel string, p Payload) Message {
	out := m.Clone()
	if out.ChannelPayloads == nil {
		out.ChannelPayloads = make(map[string]Payload, 1)
	}
	out.ChannelPayloads[channel] = p.Clone()
	return out
}

// WithClickLink returns a clone with the click-through link and the params
// merged into it when links are resolved.
func (m Message) WithClickLink(link string, params map[string]any) Message {
	out := m.Clone()
	out.ClickLink = link
	if len(params) > 0 {
		if out.ClickLinkParams == nil {
			out.ClickLinkParams = make(map[string]any, len(params))
		}
		maps.Copy(out.ClickLinkParams, Payload(params).Clone())
	}
	return out
}

// IsExpired reports whether the message expired at now.
func (m Message) IsExpired(now time.Time) bool {
	return m.ExpiresAt != nil && now.After(*m.ExpiresAt)
}

// UserNotification links a recipient to a persisted message and carries the
// read state. Msg is filled by stores on reads and may be nil on writes.
type UserNotification struct {
	ID      int64      `json:"id,omitempty"`
	UserID  int64      `json:"user_id"`
	MsgID   int64      `json:"msg_id"`
	Msg     *Message   `json:"msg,omitempty"`
	ReadAt  *time.Time `json:"read_at,omitempty"`
	Created time.Time  `json:"created"`
}

// IsRead reports whether ReadAt is set.
func (u UserNotification) IsRead() bool {
	return u.ReadAt != nil
}

// IDSet is a set of user ids, used for exclusions and deduplication.
type IDSet map[int64]struct{}

// NewIDSet builds a set from ids.
func NewIDSet(ids ...int64) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports whether id is in the set. A nil set contains nothing.
func (s IDSet) Has(id int64) bool {
	_, ok := s[id]
	return ok
}

// Add inserts id.
func (s IDSet) Add(id int64) {
	s[id] = struct{}{}
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
