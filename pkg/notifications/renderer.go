package notifications

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
)

// Format is an output format a renderer may produce.
type Format string

const (
	FormatHTML        Format = "html"
	FormatJSON        Format = "json"
	FormatTemplateURL Format = "template_url"
)

// Renderer turns a message into a string for one or more formats.
// Implementations must be safe for concurrent use and must not mutate the message.
type Renderer interface {
	CanRender(f Format) bool
	Render(ctx context.Context, msg Message, f Format, lang string) (string, error)
	// TemplatePath returns the client-side template asset for f, if any.
	TemplatePath(f Format) (string, bool)
}

// RendererRegistry maps renderer names, as referenced by
// NotificationType.Renderer, to instances.
type RendererRegistry struct {
	mu        sync.Mutex
	renderers atomic.Pointer[map[string]Renderer]
}

// NewRendererRegistry returns an empty registry.
func NewRendererRegistry() *RendererRegistry {
	r := &RendererRegistry{}
	empty := map[string]Renderer{}
	r.renderers.Store(&empty)
	return r
}

// Register adds a renderer under name. Names are unique.
func (r *RendererRegistry) Register(name string, renderer Renderer) error {
	if name == "" || renderer == nil {
		return fmt.Errorf("%w: empty name or nil renderer", ErrUnknownRenderer)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current := *r.renderers.Load()
	if _, ok := current[name]; ok {
		return fmt.Errorf("%w: %q", ErrRendererExists, name)
	}
	next := maps.Clone(current)
	next[name] = renderer
	r.renderers.Store(&next)
	return nil
}

// Get returns the renderer registered under name or ErrUnknownRenderer.
func (r *RendererRegistry) Get(name string) (Renderer, error) {
	renderer, ok := (*r.renderers.Load())[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRenderer, name)
	}
	return renderer, nil
}

// Has reports whether a renderer is registered under name.
func (r *RendererRegistry) Has(name string) bool {
	_, ok := (*r.renderers.Load())[name]
	return ok
}

// Names returns the registered renderer names, sorted.
func (r *RendererRegistry) Names() []string {
	return slices.Sorted(maps.Keys(*r.renderers.Load()))
}

// renderWith checks format support before delegating, so every renderer
// reports unsupported formats the same way.
func renderWith(ctx context.Context, renderer Renderer, msg Message, f Format, lang string) (string, error) {
	if !renderer.CanRender(f) {
		return "", fmt.Errorf("%w: format %q not supported for type %q", ErrRender, f, msg.Type.Name)
	}
	out, err := renderer.Render(ctx, msg, f, lang)
	if err != nil {
		return "", err
	}
	return out, nil
}
