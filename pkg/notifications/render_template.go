package notifications

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"maps"
	"sync"

	"golang.org/x/text/language"
)

// DisplayCreatedKey is the payload key the client template renderer adds
// with the formatted creation time.
const DisplayCreatedKey = "display_created"

const displayCreatedLayout = "January 02, 2006 at 03:04PM"

// AssetSource resolves template asset names to their contents.
type AssetSource interface {
	ReadAsset(ctx context.Context, name string) ([]byte, error)
}

// FSAssetSource reads assets from a file system, e.g. an embed.FS.
type FSAssetSource struct {
	FS fs.FS
}

func (s FSAssetSource) ReadAsset(_ context.Context, name string) ([]byte, error) {
	return fs.ReadFile(s.FS, name)
}

// ClientTemplateRenderer renders FormatHTML from an html/template asset.
// Assets are loaded and compiled on first use and cached per instance;
// failed loads are not cached.
type ClientTemplateRenderer struct {
	source  AssetSource
	asset   string
	funcs   template.FuncMap
	matcher language.Matcher
	assets  []string // indexed like the matcher tags; 0 is the default asset

	mu       sync.Mutex
	compiled map[string]*template.Template
}

// ClientTemplateOption configures a ClientTemplateRenderer.
type ClientTemplateOption func(*clientTemplateConfig)

type clientTemplateConfig struct {
	tags   []language.Tag
	assets []string
	funcs  template.FuncMap
}

// WithLanguageVariant uses asset for requests whose language best matches tag.
// Invalid tags are ignored.
func WithLanguageVariant(tag, asset string) ClientTemplateOption {
	return func(c *clientTemplateConfig) {
		t, err := language.Parse(tag)
		if err != nil {
			return
		}
		c.tags = append(c.tags, t)
		c.assets = append(c.assets, asset)
	}
}

// WithTemplateFuncs adds functions available to the template.
func WithTemplateFuncs(funcs template.FuncMap) ClientTemplateOption {
	return func(c *clientTemplateConfig) {
		if c.funcs == nil {
			c.funcs = template.FuncMap{}
		}
		maps.Copy(c.funcs, funcs)
	}
}

// NewClientTemplateRenderer returns a renderer for the template asset.
func NewClientTemplateRenderer(source AssetSource, asset string, opts ...ClientTemplateOption) *ClientTemplateRenderer {
	cfg := &clientTemplateConfig{
		tags:   []language.Tag{language.Und},
		assets: []string{asset},
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return &ClientTemplateRenderer{
		source:   source,
		asset:    asset,
		funcs:    cfg.funcs,
		matcher:  language.NewMatcher(cfg.tags),
		assets:   cfg.assets,
		compiled: make(map[string]*template.Template),
	}
}

func (r *ClientTemplateRenderer) CanRender(f Format) bool {
	return f == FormatHTML
}

func (r *ClientTemplateRenderer) TemplatePath(f Format) (string, bool) {
	if !r.CanRender(f) {
		return "", false
	}
	return r.asset, true
}

// Render executes the template against a shallow copy of the payload with
// DisplayCreatedKey added. lang selects a language variant when one matches.
func (r *ClientTemplateRenderer) Render(ctx context.Context, msg Message, f Format, lang string) (string, error) {
	if !r.CanRender(f) {
		return "", fmt.Errorf("%w: client template renderer cannot produce %q", ErrRender, f)
	}

	tmpl, err := r.template(ctx, r.assetFor(lang))
	if err != nil {
		return "", err
	}

	data := make(map[string]any, len(msg.Payload)+1)
	maps.Copy(data, msg.Payload)
	data[DisplayCreatedKey] = DisplayCreated(msg)

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", errors.Join(ErrRender, err)
	}
	return buf.String(), nil
}

// DisplayCreated formats the creation time as "January 02, 2006 at 03:04PM GMT".
// It returns an empty string for messages that were never saved.
func DisplayCreated(msg Message) string {
	if msg.Created.IsZero() {
		return ""
	}
	return msg.Created.UTC().Format(displayCreatedLayout) + " GMT"
}

func (r *ClientTemplateRenderer) assetFor(lang string) string {
	if lang == "" || len(r.assets) == 1 {
		return r.asset
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return r.asset
	}
	_, idx, conf := r.matcher.Match(tag)
	if conf == language.No || idx <= 0 || idx >= len(r.assets) {
		return r.asset
	}
	return r.assets[idx]
}

func (r *ClientTemplateRenderer) template(ctx context.Context, asset string) (*template.Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if tmpl, ok := r.compiled[asset]; ok {
		return tmpl, nil
	}
	if r.source == nil {
		return nil, fmt.Errorf("%w: no asset source for %q", ErrRender, asset)
	}

	src, err := r.source.ReadAsset(ctx, asset)
	if err != nil {
		return nil, errors.Join(ErrRender, fmt.Errorf("read asset %q: %w", asset, err))
	}
	tmpl, err := template.New(asset).Funcs(r.funcs).Parse(string(src))
	if err != nil {
		return nil, errors.Join(ErrRender, fmt.Errorf("compile asset %q: %w", asset, err))
	}
	r.compiled[asset] = tmpl
	return tmpl, nil
}
