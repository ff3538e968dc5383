package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/notifycore/pkg/notifications"
	"github.com/dmitrymomot/notifycore/pkg/pg"
)

var _ notifications.TimerStore = (*Store)(nil)

const timerColumns = `name, callback_at, callback, context, is_active, periodicity_min, executed_at, results, err_msg`

// SaveTimer upserts t by name.
func (s *Store) SaveTimer(ctx context.Context, t notifications.Timer) (notifications.Timer, error) {
	if t.Name == "" {
		return notifications.Timer{}, fmt.Errorf("%w: timer", notifications.ErrNameRequired)
	}
	timerCtx, err := encodeMap(t.Context)
	if err != nil {
		return notifications.Timer{}, err
	}
	results, err := encodeMap(t.Results)
	if err != nil {
		return notifications.Timer{}, err
	}

	row := s.db.QueryRow(ctx, `
		INSERT INTO notification_timers (`+timerColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (name) DO UPDATE SET
			callback_at = EXCLUDED.callback_at, callback = EXCLUDED.callback, context = EXCLUDED.context,
			is_active = EXCLUDED.is_active, periodicity_min = EXCLUDED.periodicity_min,
			executed_at = EXCLUDED.executed_at, results = EXCLUDED.results, err_msg = EXCLUDED.err_msg,
			modified = now()
		RETURNING `+timerColumns,
		t.Name, t.CallbackAt, t.Callback, timerCtx, t.IsActive, t.PeriodicityMin, t.ExecutedAt, results, t.Err,
	)
	saved, err := scanTimer(row)
	if err != nil {
		return notifications.Timer{}, errors.Join(notifications.ErrStore, err)
	}
	return saved, nil
}

// GetTimer returns notifications.ErrNotFound for unknown names.
func (s *Store) GetTimer(ctx context.Context, name string) (notifications.Timer, error) {
	t, err := scanTimer(s.db.QueryRow(ctx, `SELECT `+timerColumns+` FROM notification_timers WHERE name = $1`, name))
	if err != nil {
		return notifications.Timer{}, classifyName(err, "timer", name)
	}
	return t, nil
}

func (s *Store) GetActiveTimers(ctx context.Context, until time.Time, includeExecuted bool) ([]notifications.Timer, error) {
	var bound *time.Time
	if !until.IsZero() {
		bound = &until
	}
	rows, err := s.db.Query(ctx, `
		SELECT `+timerColumns+` FROM notification_timers
		WHERE is_active
			AND ($1::timestamptz IS NULL OR callback_at <= $1)
			AND ($2 OR executed_at IS NULL)
		ORDER BY callback_at, name`, bound, includeExecuted)
	if err != nil {
		return nil, errors.Join(notifications.ErrStore, err)
	}
	defer rows.Close()

	out := []notifications.Timer{}
	for rows.Next() {
		t, err := scanTimer(rows)
		if err != nil {
			return nil, errors.Join(notifications.ErrStore, err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Join(notifications.ErrStore, err)
	}
	return out, nil
}

func scanTimer(row pgx.Row) (notifications.Timer, error) {
	var (
		t                 notifications.Timer
		timerCtx, results []byte
	)
	if err := row.Scan(&t.Name, &t.CallbackAt, &t.Callback, &timerCtx, &t.IsActive,
		&t.PeriodicityMin, &t.ExecutedAt, &results, &t.Err); err != nil {
		return notifications.Timer{}, err
	}
	if err := errors.Join(unmarshalJSON(timerCtx, &t.Context), unmarshalJSON(results, &t.Results)); err != nil {
		return notifications.Timer{}, err
	}
	return t, nil
}

func encodeMap(m map[string]any) ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, errors.Join(notifications.ErrStore, err)
	}
	return b, nil
}

// classifyName is classify for rows keyed by name.
func classifyName(err error, what, name string) error {
	switch {
	case pg.IsNotFoundError(err), pg.IsForeignKeyViolationError(err):
		return errors.Join(notifications.ErrStore, fmt.Errorf("%w: %s %q", notifications.ErrNotFound, what, name))
	default:
		return errors.Join(notifications.ErrStore, err)
	}
}
