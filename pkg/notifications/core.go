package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"maps"

	"github.com/google/uuid"

	"github.com/dmitrymomot/notifycore/pkg/logger"
)

// Core owns every registry and exposes the publishing API. Build one per
// process at startup, register types, renderers, scope resolvers and
// channels, then publish. Registration concurrent with publishing is not
// supported.
type Core struct {
	store     Store
	types     *TypeRegistry
	renderers *RendererRegistry
	scopes    *ScopeRegistry
	channels  *ChannelRegistry
	links     *LinkResolver
	durable   *DurableChannel

	clock          Clock
	logger         *slog.Logger
	metrics        *Metrics
	chunkSize      int
	defaultChannel string
	typeChannels   map[string]string
	userOverrides  []UserChannelOverride
	linkTemplates  map[string]string
}

// Option configures a Core.
type Option func(*Core)

// WithLogger sets the logger shared by the core and its durable channel.
func WithLogger(l *slog.Logger) Option {
	return func(c *Core) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithClock sets the clock used for expiry checks and row timestamps.
func WithClock(clock Clock) Option {
	return func(c *Core) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithMetrics enables Prometheus metrics.
func WithMetrics(m *Metrics) Option {
	return func(c *Core) {
		c.metrics = m
	}
}

// WithBulkChunkSize sets the durable channel insert size.
func WithBulkChunkSize(n int) Option {
	return func(c *Core) {
		if n > 0 {
			c.chunkSize = n
		}
	}
}

// WithDefaultChannel sets the channel used when no route matches.
func WithDefaultChannel(name string) Option {
	return func(c *Core) {
		c.defaultChannel = name
	}
}

// WithTypeChannel routes types matching pattern to channel.
func WithTypeChannel(pattern, channel string) Option {
	return func(c *Core) {
		c.typeChannels[pattern] = channel
	}
}

// WithUserChannelOverride routes typeName to channel for one user.
func WithUserChannelOverride(typeName string, userID int64, channel string) Option {
	return func(c *Core) {
		c.userOverrides = append(c.userOverrides, UserChannelOverride{Type: typeName, UserID: userID, Channel: channel})
	}
}

// WithLinkTemplates adds click link templates keyed by type pattern.
func WithLinkTemplates(templates map[string]string) Option {
	return func(c *Core) {
		maps.Copy(c.linkTemplates, templates)
	}
}

// WithConfig applies every setting of cfg.
func WithConfig(cfg Config) Option {
	return func(c *Core) {
		WithBulkChunkSize(cfg.BulkChunkSize)(c)
		if cfg.DefaultChannel != "" {
			c.defaultChannel = cfg.DefaultChannel
		}
		maps.Copy(c.typeChannels, cfg.TypeChannelMap)
		c.userOverrides = append(c.userOverrides, cfg.UserChannelOverrides...)
		maps.Copy(c.linkTemplates, cfg.LinkTemplates)
	}
}

// New builds a core over store. It registers the durable channel as the
// default channel, the JSON renderer and the single user scope resolver.
func New(store Store, opts ...Option) *Core {
	c := &Core{
		store:          store,
		types:          NewTypeRegistry(),
		renderers:      NewRendererRegistry(),
		channels:       NewChannelRegistry(),
		clock:          systemClock{},
		logger:         slog.Default(),
		chunkSize:      DefaultBulkChunkSize,
		defaultChannel: DurableChannelName,
		typeChannels:   map[string]string{},
		linkTemplates:  map[string]string{},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(logger.Component("notifications"))

	c.scopes = NewScopeRegistry(c.logger)
	c.links = NewLinkResolver(c.linkTemplates, WithLinkLogger(c.logger))
	c.durable = NewDurableChannel(store,
		WithChunkSize(c.chunkSize),
		WithDurableLogger(c.logger),
		WithDurableClock(c.clock),
		WithLinkResolver(c.links),
		WithDurableMetrics(c.metrics),
	)

	_ = c.renderers.Register(JSONRendererName, JSONRenderer{})
	_ = c.channels.Register(c.durable)
	c.scopes.Register(UserScope, SingleUserScopeResolver{}, nil)

	c.channels.SetDefault(c.defaultChannel)
	for pattern, ch := range c.typeChannels {
		c.channels.MapType(pattern, ch)
	}
	for _, o := range c.userOverrides {
		c.channels.SetUserOverride(o.Type, o.UserID, o.Channel)
	}
	return c
}

// Store returns the store the durable channel writes to.
func (c *Core) Store() Store { return c.store }

// Durable returns the built-in durable channel.
func (c *Core) Durable() *DurableChannel { return c.durable }

// Router returns the channel registry; routing tables may change at runtime.
func (c *Core) Router() *ChannelRegistry { return c.channels }

// Logger returns the core logger.
func (c *Core) Logger() *slog.Logger { return c.logger }

// RegisterNotificationType registers t. Its renderer must already be registered.
func (c *Core) RegisterNotificationType(t NotificationType) error {
	if !c.renderers.Has(t.Renderer) {
		return fmt.Errorf("%w: %q for type %q", ErrUnknownRenderer, t.Renderer, t.Name)
	}
	added, err := c.types.Register(t)
	if err != nil {
		return err
	}
	if added {
		c.logger.Debug("notification type registered",
			logger.NotificationType(t.Name),
			slog.String("renderer", t.Renderer),
		)
	}
	return nil
}

// NotificationType returns a registered type or ErrUnknownType.
func (c *Core) NotificationType(name string) (NotificationType, error) {
	return c.types.Get(name)
}

// NotificationTypes returns every registered type ordered by name.
func (c *Core) NotificationTypes() []NotificationType {
	return c.types.All()
}

// RegisterRenderer makes r available to types under name.
func (c *Core) RegisterRenderer(name string, r Renderer) error {
	return c.renderers.Register(name, r)
}

// RegisterScopeResolver appends a resolver for scopeName.
func (c *Core) RegisterScopeResolver(scopeName string, r ScopeResolver, instanceContext map[string]any) {
	c.scopes.Register(scopeName, r, instanceContext)
}

// HasScopeResolver reports whether any resolver is registered for scopeName.
func (c *Core) HasScopeResolver(scopeName string) bool {
	return c.scopes.Has(scopeName)
}

// ClearScopeResolvers drops every scope resolver, including the built-in one.
func (c *Core) ClearScopeResolvers() {
	c.scopes.Clear()
}

// RegisterChannel adds a channel provider.
func (c *Core) RegisterChannel(ch Channel) error {
	return c.channels.Register(ch)
}

// ValidateMessage checks msg against the type registry.
func (c *Core) ValidateMessage(msg Message) error {
	return ValidateMessage(msg, c.types)
}

// ResolveLinks returns a clone of msg with its click link filled in.
func (c *Core) ResolveLinks(ctx context.Context, msg Message) Message {
	return c.links.Resolve(ctx, msg)
}

// ResolveUserScope expands a scope to a user id stream, or nil when no
// resolver produced ids. The stream is not deduplicated.
func (c *Core) ResolveUserScope(ctx context.Context, scopeName string, scopeContext map[string]any) (UserIDStream, error) {
	return c.scopes.Resolve(ctx, scopeName, scopeContext)
}

// Render formats msg with the renderer bound to its type.
func (c *Core) Render(ctx context.Context, msg Message, f Format, lang string) (string, error) {
	renderer, err := c.rendererFor(msg.Type.Name)
	if err != nil {
		return "", err
	}
	return renderWith(ctx, renderer, msg, f, lang)
}

// TemplatePath returns the client-side template asset of a type for f.
func (c *Core) TemplatePath(typeName string, f Format) (string, bool) {
	renderer, err := c.rendererFor(typeName)
	if err != nil {
		return "", false
	}
	return renderer.TemplatePath(f)
}

func (c *Core) rendererFor(typeName string) (Renderer, error) {
	t, err := c.types.Get(typeName)
	if err != nil {
		return nil, err
	}
	return c.renderers.Get(t.Renderer)
}

// PublishToUser validates msg, registers its type if needed and dispatches
// it to the channel routed for userID. The durable channel returns the
// stored row; other channels may return nil.
func (c *Core) PublishToUser(ctx context.Context, userID int64, msg Message, channelContext map[string]any) (*UserNotification, error) {
	if msg.Type.Name == "" {
		return nil, c.ValidateMessage(msg)
	}
	if err := c.RegisterNotificationType(msg.Type); err != nil {
		return nil, err
	}
	if err := c.ValidateMessage(msg); err != nil {
		return nil, err
	}

	ch, err := c.channels.Route(msg.Type.Name, userID)
	if err != nil {
		return nil, err
	}

	un, err := ch.DispatchToUser(ctx, userID, msg, channelContext)
	c.metrics.published(ch.Name(), "single", err)
	if err != nil {
		c.logger.LogAttrs(ctx, slog.LevelError, "publish to user failed",
			logger.Channel(ch.Name()),
			logger.NotificationType(msg.Type.Name),
			logger.UserID(userID),
			logger.Error(err),
		)
		return nil, err
	}
	return un, nil
}

// BulkPublishToUsers dispatches msg to every distinct id in userIDs not in
// exclude, through the channel routed for the message type. It returns the
// number of deliveries.
func (c *Core) BulkPublishToUsers(ctx context.Context, userIDs UserIDStream, msg Message, exclude IDSet, channelContext map[string]any) (int, error) {
	if err := c.ValidateMessage(msg); err != nil {
		return 0, err
	}
	ch, err := c.channels.RouteType(msg.Type.Name)
	if err != nil {
		return 0, err
	}
	return c.bulkDispatch(ctx, ch, userIDs, msg, exclude, channelContext, slog.String("source", "users"))
}

// BulkPublishToScope resolves a scope and dispatches msg to the resulting
// audience. It fails with ErrNoScopeResolver when the scope yields nothing.
func (c *Core) BulkPublishToScope(ctx context.Context, scopeName string, scopeContext map[string]any, msg Message, exclude IDSet, channelContext map[string]any) (int, error) {
	if err := c.ValidateMessage(msg); err != nil {
		return 0, err
	}

	userIDs, closeScope, err := c.scopes.Open(ctx, scopeName, scopeContext)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err := closeScope(); err != nil {
			c.logger.LogAttrs(ctx, slog.LevelWarn, "closing scope stream failed",
				logger.Scope(scopeName),
				logger.Error(err),
			)
		}
	}()
	if userIDs == nil {
		return 0, fmt.Errorf("%w: %q", ErrNoScopeResolver, scopeName)
	}

	ch, err := c.channels.RouteType(msg.Type.Name)
	if err != nil {
		return 0, err
	}
	return c.bulkDispatch(ctx, ch, userIDs, msg, exclude, channelContext, logger.Scope(scopeName))
}

func (c *Core) bulkDispatch(ctx context.Context, ch Channel, userIDs UserIDStream, msg Message, exclude IDSet, channelContext map[string]any, source slog.Attr) (int, error) {
	bulkID := uuid.NewString()
	log := c.logger.With(
		logger.BulkID(bulkID),
		logger.Channel(ch.Name()),
		logger.NotificationType(msg.Type.Name),
		source,
	)

	start := c.clock.Now()
	n, err := ch.BulkDispatch(ctx, Dedup(userIDs), msg, exclude, channelContext)
	c.metrics.published(ch.Name(), "bulk", err)
	if err != nil {
		log.LogAttrs(ctx, slog.LevelError, "bulk publish aborted",
			logger.Count(n),
			logger.Error(err),
		)
		return n, err
	}

	log.LogAttrs(ctx, slog.LevelInfo, "bulk publish completed",
		logger.Count(n),
		logger.Duration(c.clock.Now().Sub(start)),
	)
	return n, nil
}
