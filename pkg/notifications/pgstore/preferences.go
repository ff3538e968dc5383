package pgstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/notifycore/pkg/notifications"
)

var _ notifications.PreferenceStore = (*Store)(nil)

const preferenceColumns = `name, display_name, display_description, default_value`

func (s *Store) SavePreference(ctx context.Context, p notifications.Preference) (notifications.Preference, error) {
	if p.Name == "" {
		return notifications.Preference{}, fmt.Errorf("%w: preference", notifications.ErrNameRequired)
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO notification_preferences (`+preferenceColumns+`)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (name) DO UPDATE SET display_name = EXCLUDED.display_name,
			display_description = EXCLUDED.display_description, default_value = EXCLUDED.default_value`,
		p.Name, p.DisplayName, p.DisplayDescription, p.DefaultValue)
	if err != nil {
		return notifications.Preference{}, errors.Join(notifications.ErrStore, err)
	}
	return p, nil
}

func (s *Store) GetPreference(ctx context.Context, name string) (notifications.Preference, error) {
	var p notifications.Preference
	err := s.db.QueryRow(ctx, `SELECT `+preferenceColumns+` FROM notification_preferences WHERE name = $1`, name).
		Scan(&p.Name, &p.DisplayName, &p.DisplayDescription, &p.DefaultValue)
	if err != nil {
		return notifications.Preference{}, classifyName(err, "preference", name)
	}
	return p, nil
}

func (s *Store) GetAllPreferences(ctx context.Context) ([]notifications.Preference, error) {
	rows, err := s.db.Query(ctx, `SELECT `+preferenceColumns+` FROM notification_preferences ORDER BY id`)
	if err != nil {
		return nil, errors.Join(notifications.ErrStore, err)
	}
	prefs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (notifications.Preference, error) {
		var p notifications.Preference
		err := row.Scan(&p.Name, &p.DisplayName, &p.DisplayDescription, &p.DefaultValue)
		return p, err
	})
	if err != nil {
		return nil, errors.Join(notifications.ErrStore, err)
	}
	return prefs, nil
}

// SetUserPreference upserts a value. Undefined preferences yield
// notifications.ErrNotFound.
func (s *Store) SetUserPreference(ctx context.Context, up notifications.UserPreference) (notifications.UserPreference, error) {
	var id int64
	err := s.db.QueryRow(ctx, `
		INSERT INTO user_notification_preferences (user_id, name, value)
		SELECT $1, p.name, $3 FROM notification_preferences p WHERE p.name = $2
		ON CONFLICT (user_id, name) DO UPDATE SET value = EXCLUDED.value, modified = now()
		RETURNING id`, up.UserID, up.Name, up.Value).Scan(&id)
	if err != nil {
		return notifications.UserPreference{}, classifyName(err, "preference", up.Name)
	}
	return up, nil
}

func (s *Store) GetUserPreference(ctx context.Context, userID int64, name string) (notifications.UserPreference, error) {
	up := notifications.UserPreference{UserID: userID, Name: name}
	err := s.db.QueryRow(ctx, `
		SELECT value FROM user_notification_preferences WHERE user_id = $1 AND name = $2`, userID, name).Scan(&up.Value)
	if err != nil {
		return notifications.UserPreference{}, classifyName(err, "user preference", name)
	}
	return up, nil
}

func (s *Store) GetUserPreferences(ctx context.Context, userID int64) ([]notifications.UserPreference, error) {
	return s.queryUserPreferences(ctx, `
		SELECT user_id, name, value FROM user_notification_preferences
		WHERE user_id = $1 ORDER BY id`, userID)
}

// GetUserPreferencesWithName pages through one preference in insertion
// order. An empty value matches every value.
func (s *Store) GetUserPreferencesWithName(ctx context.Context, name, value string, opts notifications.ListOptions) ([]notifications.UserPreference, error) {
	limit, err := notifications.PageLimit(opts.Limit, s.maxListSize)
	if err != nil {
		return nil, err
	}
	return s.queryUserPreferences(ctx, `
		SELECT user_id, name, value FROM user_notification_preferences
		WHERE name = $1 AND ($2 = '' OR value = $2)
		ORDER BY id
		LIMIT $3 OFFSET $4`, name, value, limit, max(opts.Offset, 0))
}

func (s *Store) queryUserPreferences(ctx context.Context, sql string, args ...any) ([]notifications.UserPreference, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, errors.Join(notifications.ErrStore, err)
	}
	prefs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (notifications.UserPreference, error) {
		var up notifications.UserPreference
		err := row.Scan(&up.UserID, &up.Name, &up.Value)
		return up, err
	})
	if err != nil {
		return nil, errors.Join(notifications.ErrStore, err)
	}
	return prefs, nil
}
