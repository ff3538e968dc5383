package notifications

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dmitrymomot/notifycore/pkg/logger"
)

// ChannelPreferencePrefix marks preferences that pick a user's channel for a
// notification type. The rest of the name is the type name.
const ChannelPreferencePrefix = "channel:"

// Preference is a named setting users may change.
type Preference struct {
	Name               string `json:"name"`
	DisplayName        string `json:"display_name"`
	DisplayDescription string `json:"display_description,omitempty"`
	DefaultValue       string `json:"default_value,omitempty"`
}

// UserPreference is one user's value for a Preference.
type UserPreference struct {
	UserID int64  `json:"user_id"`
	Name   string `json:"name"`
	Value  string `json:"value"`
}

// PreferenceStore persists preference definitions and per-user values.
// Listings return rows in insertion order.
type PreferenceStore interface {
	// SavePreference inserts p or updates the preference with the same name.
	SavePreference(ctx context.Context, p Preference) (Preference, error)
	// GetPreference returns ErrNotFound for unknown names.
	GetPreference(ctx context.Context, name string) (Preference, error)
	GetAllPreferences(ctx context.Context) ([]Preference, error)

	// SetUserPreference upserts a value. It returns ErrNotFound when the
	// preference is not defined.
	SetUserPreference(ctx context.Context, up UserPreference) (UserPreference, error)
	// GetUserPreference returns ErrNotFound when the user has no value.
	GetUserPreference(ctx context.Context, userID int64, name string) (UserPreference, error)
	GetUserPreferences(ctx context.Context, userID int64) ([]UserPreference, error)
	// GetUserPreferencesWithName pages through the values of one preference.
	// An empty value matches every value. Limits above the store maximum
	// fail with ErrLimitTooLarge.
	GetUserPreferencesWithName(ctx context.Context, name, value string, opts ListOptions) ([]UserPreference, error)
}

// ChannelPreferenceName returns the preference holding a user's channel for typeName.
func ChannelPreferenceName(typeName string) string {
	return ChannelPreferencePrefix + typeName
}

func (c *Core) preferenceStore() (PreferenceStore, error) {
	ps, ok := c.store.(PreferenceStore)
	if !ok {
		return nil, fmt.Errorf("%w: preferences", ErrStoreUnsupported)
	}
	return ps, nil
}

// SetChannelPreference stores the channel userID wants for typeName and
// applies it to routing. An empty channel removes the override.
func (c *Core) SetChannelPreference(ctx context.Context, userID int64, typeName, channel string) error {
	ps, err := c.preferenceStore()
	if err != nil {
		return err
	}
	if channel != "" {
		if _, ok := c.channels.Get(channel); !ok {
			return fmt.Errorf("%w: %q", ErrNoChannel, channel)
		}
	}

	name := ChannelPreferenceName(typeName)
	_, err = ps.GetPreference(ctx, name)
	switch {
	case errors.Is(err, ErrNotFound):
		if _, err := ps.SavePreference(ctx, Preference{
			Name:        name,
			DisplayName: "Delivery channel for " + typeName,
		}); err != nil {
			return storeErr(err)
		}
	case err != nil:
		return storeErr(err)
	}

	if _, err := ps.SetUserPreference(ctx, UserPreference{UserID: userID, Name: name, Value: channel}); err != nil {
		return storeErr(err)
	}

	if channel == "" {
		c.channels.ClearUserOverride(typeName, userID)
	} else {
		c.channels.SetUserOverride(typeName, userID, channel)
	}
	c.logger.LogAttrs(ctx, slog.LevelDebug, "channel preference set",
		logger.UserID(userID),
		logger.NotificationType(typeName),
		logger.Channel(channel),
	)
	return nil
}

// LoadChannelPreferences applies every stored channel preference as a
// per-user routing override and returns how many were applied. Values
// naming unregistered channels are skipped.
func (c *Core) LoadChannelPreferences(ctx context.Context) (int, error) {
	ps, err := c.preferenceStore()
	if err != nil {
		return 0, err
	}
	prefs, err := ps.GetAllPreferences(ctx)
	if err != nil {
		return 0, storeErr(err)
	}

	applied := 0
	for _, p := range prefs {
		typeName, ok := strings.CutPrefix(p.Name, ChannelPreferencePrefix)
		if !ok {
			continue
		}
		for offset := 0; ; {
			page, err := ps.GetUserPreferencesWithName(ctx, p.Name, "", ListOptions{Offset: offset})
			if err != nil {
				return applied, storeErr(err)
			}
			if len(page) == 0 {
				break
			}
			offset += len(page)

			for _, up := range page {
				if up.Value == "" {
					continue
				}
				if _, ok := c.channels.Get(up.Value); !ok {
					c.logger.LogAttrs(ctx, slog.LevelWarn, "channel preference names unknown channel",
						logger.UserID(up.UserID),
						logger.NotificationType(typeName),
						logger.Channel(up.Value),
					)
					continue
				}
				c.channels.SetUserOverride(typeName, up.UserID, up.Value)
				applied++
			}
		}
	}

	c.logger.LogAttrs(ctx, slog.LevelInfo, "channel preferences loaded", logger.Count(applied))
	return applied, nil
}
