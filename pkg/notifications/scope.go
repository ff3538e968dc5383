package notifications

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"reflect"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/dmitrymomot/notifycore/pkg/logger"
)

// UserScope is the scope name handled by SingleUserScopeResolver.
const UserScope = "user"

// ScopeResolver expands a symbolic audience into user ids.
//
// Resolve returns nil for "no opinion", or any value accepted by
// ToUserIDStream: slices of ints, iter.Seq / iter.Seq2 sequences, channels
// or a Cursor. instanceContext is the value given at registration.
type ScopeResolver interface {
	Resolve(ctx context.Context, scopeName string, scopeContext, instanceContext map[string]any) (any, error)
}

// ScopeResolverFunc adapts a function to ScopeResolver.
type ScopeResolverFunc func(ctx context.Context, scopeName string, scopeContext, instanceContext map[string]any) (any, error)

func (f ScopeResolverFunc) Resolve(ctx context.Context, scopeName string, scopeContext, instanceContext map[string]any) (any, error) {
	return f(ctx, scopeName, scopeContext, instanceContext)
}

type scopeEntry struct {
	resolver        ScopeResolver
	instanceContext map[string]any
}

// ScopeRegistry holds resolvers per scope name in registration order.
type ScopeRegistry struct {
	mu      sync.Mutex
	entries atomic.Pointer[map[string][]scopeEntry]
	logger  *slog.Logger
}

// NewScopeRegistry returns an empty registry.
func NewScopeRegistry(log *slog.Logger) *ScopeRegistry {
	if log == nil {
		log = slog.Default()
	}
	r := &ScopeRegistry{logger: log}
	r.Clear()
	return r
}

// Register appends a resolver for scopeName.
func (r *ScopeRegistry) Register(scopeName string, resolver ScopeResolver, instanceContext map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := maps.Clone(*r.entries.Load())
	entries := slices.Clone(next[scopeName])
	next[scopeName] = append(entries, scopeEntry{
		resolver:        resolver,
		instanceContext: Payload(instanceContext).Clone(),
	})
	r.entries.Store(&next)
}

// Clear drops every registered resolver.
func (r *ScopeRegistry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	empty := map[string][]scopeEntry{}
	r.entries.Store(&empty)
}

// Has reports whether scopeName has at least one resolver.
func (r *ScopeRegistry) Has(scopeName string) bool {
	return len((*r.entries.Load())[scopeName]) > 0
}

// Resolve calls every resolver registered for scopeName in order and
// concatenates their streams. It returns (nil, nil) when no resolver is
// registered or all of them return nil or an empty slice. The result is not
// deduplicated. Cursors are closed only once the stream is iterated; callers
// that may not iterate should use Open.
func (r *ScopeRegistry) Resolve(ctx context.Context, scopeName string, scopeContext map[string]any) (UserIDStream, error) {
	s, _, err := r.Open(ctx, scopeName, scopeContext)
	return s, err
}

// Open is Resolve plus a close function that releases every cursor the
// resolvers returned. The close function is never nil. When a resolver fails
// the cursors already opened are closed before Open returns.
func (r *ScopeRegistry) Open(ctx context.Context, scopeName string, scopeContext map[string]any) (UserIDStream, func() error, error) {
	entries := (*r.entries.Load())[scopeName]

	var (
		streams []UserIDStream
		closers []func() error
	)
	closeAll := func() error {
		var errs []error
		for _, c := range closers {
			errs = append(errs, c())
		}
		return errors.Join(errs...)
	}
	fail := func(err error) (UserIDStream, func() error, error) {
		if cerr := closeAll(); cerr != nil {
			r.logger.LogAttrs(ctx, slog.LevelWarn, "closing scope cursors failed",
				logger.Scope(scopeName),
				logger.Error(cerr),
			)
		}
		return nil, noopClose, fmt.Errorf("resolve scope %q: %w", scopeName, err)
	}

	for _, e := range entries {
		v, err := e.resolver.Resolve(ctx, scopeName, scopeContext, e.instanceContext)
		if err != nil {
			return fail(err)
		}
		if isEmptySlice(v) {
			continue
		}
		s, closeFn, err := OpenUserIDStream(ctx, v, r.logger)
		if err != nil {
			return fail(err)
		}
		if s != nil {
			streams = append(streams, s)
			closers = append(closers, closeFn)
		}
	}

	switch len(streams) {
	case 0:
		return nil, noopClose, nil
	case 1:
		return streams[0], closeAll, nil
	default:
		return Concat(streams...), closeAll, nil
	}
}

func isEmptySlice(v any) bool {
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Slice && rv.Len() == 0
}

// SingleUserScopeResolver resolves the "user" scope with a context of
// {"user_id": N} to that single user.
type SingleUserScopeResolver struct{}

func (SingleUserScopeResolver) Resolve(_ context.Context, scopeName string, scopeContext, _ map[string]any) (any, error) {
	if scopeName != UserScope {
		return nil, nil
	}
	raw, ok := scopeContext["user_id"]
	if !ok {
		return nil, nil
	}
	id, ok := asUserID(raw)
	if !ok {
		if f, isFloat := raw.(float64); isFloat && f == float64(int64(f)) {
			return []int64{int64(f)}, nil
		}
		return nil, nil
	}
	return []int64{id}, nil
}
