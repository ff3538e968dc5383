package notifications

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
)

// Channel delivers messages to users.
//
// DispatchToUser may return a nil UserNotification when the channel does not
// persist per-user rows. BulkDispatch consumes the stream lazily, skips ids
// in exclude and returns the number of deliveries it made.
type Channel interface {
	Name() string
	DispatchToUser(ctx context.Context, userID int64, msg Message, channelContext map[string]any) (*UserNotification, error)
	BulkDispatch(ctx context.Context, userIDs UserIDStream, msg Message, exclude IDSet, channelContext map[string]any) (int, error)
}

type userOverride struct {
	typeName string
	userID   int64
}

type routingState struct {
	channels       map[string]Channel
	defaultChannel string
	typeChannels   map[string]string
	userOverrides  map[userOverride]string
}

func (s *routingState) clone() *routingState {
	return &routingState{
		channels:       maps.Clone(s.channels),
		defaultChannel: s.defaultChannel,
		typeChannels:   maps.Clone(s.typeChannels),
		userOverrides:  maps.Clone(s.userOverrides),
	}
}

// ChannelRegistry holds channel providers and the routing tables that pick
// one for a (type, user) pair. Routing reads are lock-free.
type ChannelRegistry struct {
	mu    sync.Mutex
	state atomic.Pointer[routingState]
}

// NewChannelRegistry returns an empty registry.
func NewChannelRegistry() *ChannelRegistry {
	r := &ChannelRegistry{}
	r.state.Store(&routingState{
		channels:      map[string]Channel{},
		typeChannels:  map[string]string{},
		userOverrides: map[userOverride]string{},
	})
	return r
}

func (r *ChannelRegistry) update(fn func(s *routingState) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := r.state.Load().clone()
	if err := fn(next); err != nil {
		return err
	}
	r.state.Store(next)
	return nil
}

// Register adds a channel provider under its name.
func (r *ChannelRegistry) Register(ch Channel) error {
	if ch == nil || ch.Name() == "" {
		return fmt.Errorf("%w: nil channel or empty name", ErrNoChannel)
	}
	return r.update(func(s *routingState) error {
		if _, ok := s.channels[ch.Name()]; ok {
			return fmt.Errorf("%w: %q", ErrChannelExists, ch.Name())
		}
		s.channels[ch.Name()] = ch
		return nil
	})
}

// SetDefault sets the channel used when no type or user route matches.
func (r *ChannelRegistry) SetDefault(name string) {
	_ = r.update(func(s *routingState) error {
		s.defaultChannel = name
		return nil
	})
}

// MapType routes types matching pattern to a channel. An empty channel
// removes the mapping.
func (r *ChannelRegistry) MapType(pattern, channel string) {
	_ = r.update(func(s *routingState) error {
		if channel == "" {
			delete(s.typeChannels, pattern)
		} else {
			s.typeChannels[pattern] = channel
		}
		return nil
	})
}

// SetUserOverride routes typeName to channel for a single user.
func (r *ChannelRegistry) SetUserOverride(typeName string, userID int64, channel string) {
	_ = r.update(func(s *routingState) error {
		s.userOverrides[userOverride{typeName: typeName, userID: userID}] = channel
		return nil
	})
}

// ClearUserOverride removes a per-user route.
func (r *ChannelRegistry) ClearUserOverride(typeName string, userID int64) {
	_ = r.update(func(s *routingState) error {
		delete(s.userOverrides, userOverride{typeName: typeName, userID: userID})
		return nil
	})
}

// Get returns a registered channel by name.
func (r *ChannelRegistry) Get(name string) (Channel, bool) {
	ch, ok := r.state.Load().channels[name]
	return ch, ok
}

// Names returns the registered channel names, sorted.
func (r *ChannelRegistry) Names() []string {
	return slices.Sorted(maps.Keys(r.state.Load().channels))
}

// Route picks the channel for a user: a per-user override first, then the
// type mapping, then the default channel. It fails with ErrNoChannel when the
// chosen name is empty or not registered.
func (r *ChannelRegistry) Route(typeName string, userID int64) (Channel, error) {
	s := r.state.Load()
	if name, ok := s.userOverrides[userOverride{typeName: typeName, userID: userID}]; ok {
		return s.channel(name, typeName)
	}
	return s.routeType(typeName)
}

// RouteType picks the channel for a type without user overrides. Bulk
// dispatch uses it since a single channel serves the whole audience.
func (r *ChannelRegistry) RouteType(typeName string) (Channel, error) {
	return r.state.Load().routeType(typeName)
}

func (s *routingState) routeType(typeName string) (Channel, error) {
	if name, ok := lookupPattern(s.typeChannels, typeName); ok {
		return s.channel(name, typeName)
	}
	return s.channel(s.defaultChannel, typeName)
}

func (s *routingState) channel(name, typeName string) (Channel, error) {
	ch, ok := s.channels[name]
	if !ok {
		return nil, fmt.Errorf("%w: type %q routed to %q", ErrNoChannel, typeName, name)
	}
	return ch, nil
}
