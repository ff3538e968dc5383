package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"net/url"
	"regexp"
	"strings"

	"github.com/dmitrymomot/notifycore/pkg/logger"
)

var placeholderRe = regexp.MustCompile(`\{([A-Za-z0-9_.-]+)\}`)

// LinkResolver fills Message.ClickLink from per-type URL templates such as
// "/courses/{course_id}/thread/{thread_id}". Placeholders are filled from
// ClickLinkParams first, then from the payload, and are path-escaped.
// Template keys accept the same patterns as channel routing.
type LinkResolver struct {
	templates map[string]string
	logger    *slog.Logger
}

// LinkResolverOption configures a LinkResolver.
type LinkResolverOption func(*LinkResolver)

// WithLinkLogger sets the logger used to report unresolved placeholders.
func WithLinkLogger(l *slog.Logger) LinkResolverOption {
	return func(r *LinkResolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewLinkResolver returns a resolver over a copy of templates.
func NewLinkResolver(templates map[string]string, opts ...LinkResolverOption) *LinkResolver {
	r := &LinkResolver{
		templates: maps.Clone(templates),
		logger:    slog.Default(),
	}
	if r.templates == nil {
		r.templates = map[string]string{}
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Template returns the template that applies to a type name.
func (r *LinkResolver) Template(typeName string) (string, bool) {
	return lookupPattern(r.templates, typeName)
}

// Build renders the click link for msg. ok is false when no template applies.
// A missing placeholder fails with ErrLinkResolution.
func (r *LinkResolver) Build(msg Message) (link string, ok bool, err error) {
	tmpl, ok := r.Template(msg.Type.Name)
	if !ok {
		return "", false, nil
	}

	var missing []string
	link = placeholderRe.ReplaceAllStringFunc(tmpl, func(m string) string {
		key := m[1 : len(m)-1]
		if v, found := msg.ClickLinkParams[key]; found {
			return url.PathEscape(fmt.Sprint(v))
		}
		if v, found := msg.Payload[key]; found {
			return url.PathEscape(fmt.Sprint(v))
		}
		missing = append(missing, key)
		return m
	})
	if len(missing) > 0 {
		return "", true, fmt.Errorf("%w: type %q needs %s", ErrLinkResolution, msg.Type.Name, strings.Join(missing, ", "))
	}
	return link, true, nil
}

// Resolve returns a clone of msg with ClickLink set from its type template.
// Without a template the clone keeps the original link. Resolution errors are
// logged and produce an empty link.
func (r *LinkResolver) Resolve(ctx context.Context, msg Message) Message {
	out := msg.Clone()
	link, ok, err := r.Build(msg)
	switch {
	case err != nil:
		r.logger.LogAttrs(ctx, slog.LevelWarn, "click link not resolved",
			logger.NotificationType(msg.Type.Name),
			logger.MessageID(msg.ID),
			logger.Error(err),
		)
		out.ClickLink = ""
	case ok:
		out.ClickLink = link
	}
	return out
}
