package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrymomot/notifycore/pkg/notifications"
	"github.com/dmitrymomot/notifycore/pkg/pg"
)

// DefaultMaxBulkSize caps a single BulkCreateUserNotifications batch.
const DefaultMaxBulkSize = 1000

// DB is the subset of *pgxpool.Pool the store uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is a notifications.QueryStore, TimerStore and PreferenceStore
// backed by PostgreSQL. Apply Migrations before use.
type Store struct {
	db          DB
	maxBulkSize int
	maxListSize int
	archive     bool
	now         func() time.Time
}

var _ notifications.QueryStore = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithMaxBulkSize sets the largest accepted bulk insert. Zero disables the limit.
func WithMaxBulkSize(n int) Option {
	return func(s *Store) {
		if n >= 0 {
			s.maxBulkSize = n
		}
	}
}

// WithMaxListSize sets the largest page GetNotificationsForUser returns.
func WithMaxListSize(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxListSize = n
		}
	}
}

// WithArchive copies purged rows into user_notifications_archive.
func WithArchive(enabled bool) Option {
	return func(s *Store) {
		s.archive = enabled
	}
}

// New returns a store over db, usually a *pgxpool.Pool.
func New(db DB, opts ...Option) *Store {
	s := &Store{
		db:          db,
		maxBulkSize: DefaultMaxBulkSize,
		maxListSize: notifications.DefaultMaxListSize,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

const messageColumns = `m.id, m.type_name, m.renderer, m.renderer_context, m.namespace, m.payload,
	m.channel_payloads, m.deliver_no_earlier_than, m.expires_at, m.click_link, m.click_link_params, m.created`

const userNotificationColumns = `un.id, un.user_id, un.msg_id, un.read_at, un.created`

func (s *Store) SaveNotificationMessage(ctx context.Context, msg notifications.Message) (notifications.Message, error) {
	args, err := messageArgs(msg)
	if err != nil {
		return notifications.Message{}, err
	}

	if msg.ID == 0 {
		err = s.db.QueryRow(ctx, `
			INSERT INTO notification_messages (type_name, renderer, renderer_context, namespace, payload,
				channel_payloads, deliver_no_earlier_than, expires_at, click_link, click_link_params)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING id, created`, args...,
		).Scan(&msg.ID, &msg.Created)
	} else {
		err = s.db.QueryRow(ctx, `
			UPDATE notification_messages SET type_name = $1, renderer = $2, renderer_context = $3,
				namespace = $4, payload = $5, channel_payloads = $6, deliver_no_earlier_than = $7,
				expires_at = $8, click_link = $9, click_link_params = $10
			WHERE id = $11
			RETURNING created`, append(args, msg.ID)...,
		).Scan(&msg.Created)
	}
	if err != nil {
		return notifications.Message{}, classify(err, "message", msg.ID)
	}
	return msg.Clone(), nil
}

func (s *Store) SaveUserNotification(ctx context.Context, un notifications.UserNotification) (notifications.UserNotification, error) {
	created := un.Created
	if created.IsZero() {
		created = s.now()
	}

	err := s.db.QueryRow(ctx, `
		INSERT INTO user_notifications (user_id, msg_id, created)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, msg_id) DO NOTHING
		RETURNING id`, un.UserID, un.MsgID, created,
	).Scan(&un.ID)
	switch {
	case pg.IsNotFoundError(err):
		// the pair already exists
		return s.getByPair(ctx, un.UserID, un.MsgID)
	case err != nil:
		return notifications.UserNotification{}, classify(err, "message", un.MsgID)
	}
	return s.GetUserNotification(ctx, un.ID)
}

// BulkCreateUserNotifications inserts the batch in one statement. Existing
// (user, message) pairs are skipped and not counted.
func (s *Store) BulkCreateUserNotifications(ctx context.Context, batch []notifications.UserNotification) (int, error) {
	if len(batch) == 0 {
		return 0, nil
	}
	if s.maxBulkSize > 0 && len(batch) > s.maxBulkSize {
		return 0, fmt.Errorf("%w: %d rows, max %d", notifications.ErrBulkOperationTooLarge, len(batch), s.maxBulkSize)
	}

	userIDs := make([]int64, len(batch))
	msgIDs := make([]int64, len(batch))
	created := make([]time.Time, len(batch))
	now := s.now()
	for i, un := range batch {
		userIDs[i] = un.UserID
		msgIDs[i] = un.MsgID
		created[i] = un.Created
		if created[i].IsZero() {
			created[i] = now
		}
	}

	tag, err := s.db.Exec(ctx, `
		INSERT INTO user_notifications (user_id, msg_id, created)
		SELECT b.user_id, b.msg_id, b.created
		FROM unnest($1::bigint[], $2::bigint[], $3::timestamptz[]) WITH ORDINALITY AS b(user_id, msg_id, created, ord)
		ORDER BY b.ord
		ON CONFLICT (user_id, msg_id) DO NOTHING`, userIDs, msgIDs, created)
	if err != nil {
		return 0, classify(err, "message", batch[0].MsgID)
	}
	return int(tag.RowsAffected()), nil
}

func (s *Store) GetNotificationMessage(ctx context.Context, id int64) (notifications.Message, error) {
	row := s.db.QueryRow(ctx, `SELECT `+messageColumns+` FROM notification_messages m WHERE m.id = $1`, id)
	msg, err := scanMessage(row)
	if err != nil {
		return notifications.Message{}, classify(err, "message", id)
	}
	return msg, nil
}

func (s *Store) GetUserNotification(ctx context.Context, id int64) (notifications.UserNotification, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+userNotificationColumns+`, `+messageColumns+`
		FROM user_notifications un JOIN notification_messages m ON m.id = un.msg_id
		WHERE un.id = $1`, id)
	un, err := scanUserNotification(row)
	if err != nil {
		return notifications.UserNotification{}, classify(err, "user notification", id)
	}
	return un, nil
}

func (s *Store) getByPair(ctx context.Context, userID, msgID int64) (notifications.UserNotification, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+userNotificationColumns+`, `+messageColumns+`
		FROM user_notifications un JOIN notification_messages m ON m.id = un.msg_id
		WHERE un.user_id = $1 AND un.msg_id = $2`, userID, msgID)
	un, err := scanUserNotification(row)
	if err != nil {
		return notifications.UserNotification{}, classify(err, "message", msgID)
	}
	return un, nil
}

func (s *Store) MarkUserNotificationRead(ctx context.Context, id int64, readAt time.Time) (notifications.UserNotification, error) {
	tag, err := s.db.Exec(ctx, `UPDATE user_notifications SET read_at = $2 WHERE id = $1`, id, readAt)
	if err != nil {
		return notifications.UserNotification{}, classify(err, "user notification", id)
	}
	if tag.RowsAffected() == 0 {
		return notifications.UserNotification{}, fmt.Errorf("%w: user notification %d", notifications.ErrNotFound, id)
	}
	return s.GetUserNotification(ctx, id)
}

func (s *Store) GetNotificationsForUser(ctx context.Context, userID int64, f notifications.Filters, opts notifications.ListOptions) ([]notifications.UserNotification, error) {
	limit, err := notifications.PageLimit(opts.Limit, s.maxListSize)
	if err != nil {
		return nil, err
	}

	where, args := filterClause(userID, f)
	args = append(args, limit, max(opts.Offset, 0))
	rows, err := s.db.Query(ctx, fmt.Sprintf(`
		SELECT %s, %s
		FROM user_notifications un JOIN notification_messages m ON m.id = un.msg_id
		WHERE %s
		ORDER BY un.created DESC, un.id DESC
		LIMIT $%d OFFSET $%d`, userNotificationColumns, messageColumns, where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, errors.Join(notifications.ErrStore, err)
	}
	defer rows.Close()

	out := []notifications.UserNotification{}
	for rows.Next() {
		un, err := scanUserNotification(rows)
		if err != nil {
			return nil, errors.Join(notifications.ErrStore, err)
		}
		out = append(out, un)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Join(notifications.ErrStore, err)
	}
	return out, nil
}

func (s *Store) CountNotificationsForUser(ctx context.Context, userID int64, f notifications.Filters) (int, error) {
	where, args := filterClause(userID, f)
	var n int
	err := s.db.QueryRow(ctx, `
		SELECT count(*) FROM user_notifications un JOIN notification_messages m ON m.id = un.msg_id
		WHERE `+where, args...).Scan(&n)
	if err != nil {
		return 0, errors.Join(notifications.ErrStore, err)
	}
	return n, nil
}

func (s *Store) MarkUserNotificationsRead(ctx context.Context, userID int64, f notifications.Filters) (int, error) {
	f.Read = notifications.UnreadOnly
	where, args := filterClause(userID, f)
	args = append(args, s.now())
	tag, err := s.db.Exec(ctx, fmt.Sprintf(`
		UPDATE user_notifications un SET read_at = $%d
		FROM notification_messages m
		WHERE m.id = un.msg_id AND %s`, len(args), where), args...)
	if err != nil {
		return 0, errors.Join(notifications.ErrStore, err)
	}
	return int(tag.RowsAffected()), nil
}

// PurgeExpiredNotifications deletes rows created before the cut-offs. With
// archiving enabled the deleted rows are copied in the same statement.
func (s *Store) PurgeExpiredNotifications(ctx context.Context, opts notifications.PurgeOptions) (int, error) {
	now := s.now()
	readCutoff := cutoff(now, opts.ReadOlderThan)
	unreadCutoff := cutoff(now, opts.UnreadOlderThan)
	if readCutoff == nil && unreadCutoff == nil {
		return 0, nil
	}

	if !s.archive {
		tag, err := s.db.Exec(ctx, purgeQuery(false), readCutoff, unreadCutoff)
		if err != nil {
			return 0, errors.Join(notifications.ErrStore, err)
		}
		return int(tag.RowsAffected()), nil
	}

	// rows already present in the archive are skipped, but still counted as purged
	var n int
	if err := s.db.QueryRow(ctx, purgeQuery(true), readCutoff, unreadCutoff).Scan(&n); err != nil {
		return 0, errors.Join(notifications.ErrStore, err)
	}
	return n, nil
}

func purgeQuery(archive bool) string {
	const predicate = `(read_at IS NOT NULL AND $1::timestamptz IS NOT NULL AND created < $1)
		OR (read_at IS NULL AND $2::timestamptz IS NOT NULL AND created < $2)`

	if !archive {
		return `DELETE FROM user_notifications WHERE ` + predicate
	}
	return `
		WITH deleted AS (
			DELETE FROM user_notifications WHERE ` + predicate + `
			RETURNING id, user_id, msg_id, read_at, created
		), archived AS (
			INSERT INTO user_notifications_archive (id, user_id, msg_id, read_at, created)
			SELECT id, user_id, msg_id, read_at, created FROM deleted
			ON CONFLICT (id) DO NOTHING
		)
		SELECT count(*) FROM deleted`
}

func (s *Store) GetAllNamespaces(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, `SELECT DISTINCT namespace FROM notification_messages WHERE namespace <> '' ORDER BY namespace`)
	if err != nil {
		return nil, errors.Join(notifications.ErrStore, err)
	}
	namespaces, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, errors.Join(notifications.ErrStore, err)
	}
	return namespaces, nil
}

func cutoff(now time.Time, olderThan time.Duration) *time.Time {
	if olderThan <= 0 {
		return nil
	}
	t := now.Add(-olderThan)
	return &t
}

// filterClause renders the WHERE clause for a user's rows. Table aliases are
// un (user_notifications) and m (notification_messages).
func filterClause(userID int64, f notifications.Filters) (string, []any) {
	conds := []string{"un.user_id = $1"}
	args := []any{userID}

	if f.Namespace != "" {
		args = append(args, f.Namespace)
		conds = append(conds, fmt.Sprintf("m.namespace = $%d", len(args)))
	}
	if f.TypeName != "" {
		args = append(args, f.TypeName)
		conds = append(conds, fmt.Sprintf("m.type_name = $%d", len(args)))
	}
	switch f.Read {
	case notifications.ReadOnly:
		conds = append(conds, "un.read_at IS NOT NULL")
	case notifications.UnreadOnly:
		conds = append(conds, "un.read_at IS NULL")
	}
	return strings.Join(conds, " AND "), args
}

// classify maps pgx errors to the notifications error taxonomy.
func classify(err error, what string, id int64) error {
	switch {
	case pg.IsNotFoundError(err), pg.IsForeignKeyViolationError(err):
		return errors.Join(notifications.ErrStore, fmt.Errorf("%w: %s %d", notifications.ErrNotFound, what, id))
	default:
		return errors.Join(notifications.ErrStore, err)
	}
}

func messageArgs(msg notifications.Message) ([]any, error) {
	rendererCtx, err := marshalJSON(msg.Type.RendererContext)
	if err != nil {
		return nil, err
	}
	payload, err := marshalJSON(msg.Payload)
	if err != nil {
		return nil, err
	}
	if payload == nil {
		payload = []byte("{}")
	}
	channelPayloads, err := marshalJSON(msg.ChannelPayloads)
	if err != nil {
		return nil, err
	}
	params, err := marshalJSON(msg.ClickLinkParams)
	if err != nil {
		return nil, err
	}
	return []any{
		msg.Type.Name, msg.Type.Renderer, rendererCtx, msg.Namespace, payload,
		channelPayloads, msg.DeliverNoEarlierThan, msg.ExpiresAt, msg.ClickLink, params,
	}, nil
}

func marshalJSON[M ~map[string]V, V any](m M) ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, errors.Join(notifications.ErrInvalidMessage, err)
	}
	return b, nil
}

func unmarshalJSON(b []byte, v any) error {
	if len(b) == 0 {
		return nil
	}
	return json.Unmarshal(b, v)
}

type messageJSON struct {
	rendererCtx, payload, channelPayloads, params []byte
}

func (j messageJSON) decode(msg *notifications.Message) error {
	return errors.Join(
		unmarshalJSON(j.rendererCtx, &msg.Type.RendererContext),
		unmarshalJSON(j.payload, &msg.Payload),
		unmarshalJSON(j.channelPayloads, &msg.ChannelPayloads),
		unmarshalJSON(j.params, &msg.ClickLinkParams),
	)
}

func messageDest(msg *notifications.Message, j *messageJSON) []any {
	return []any{
		&msg.ID, &msg.Type.Name, &msg.Type.Renderer, &j.rendererCtx, &msg.Namespace, &j.payload,
		&j.channelPayloads, &msg.DeliverNoEarlierThan, &msg.ExpiresAt, &msg.ClickLink, &j.params, &msg.Created,
	}
}

func scanMessage(row pgx.Row) (notifications.Message, error) {
	var (
		msg notifications.Message
		j   messageJSON
	)
	if err := row.Scan(messageDest(&msg, &j)...); err != nil {
		return notifications.Message{}, err
	}
	if err := j.decode(&msg); err != nil {
		return notifications.Message{}, err
	}
	return msg, nil
}

func scanUserNotification(row pgx.Row) (notifications.UserNotification, error) {
	var (
		un  notifications.UserNotification
		msg notifications.Message
		j   messageJSON
	)
	dest := append([]any{&un.ID, &un.UserID, &un.MsgID, &un.ReadAt, &un.Created}, messageDest(&msg, &j)...)
	if err := row.Scan(dest...); err != nil {
		return notifications.UserNotification{}, err
	}
	if err := j.decode(&msg); err != nil {
		return notifications.UserNotification{}, err
	}
	un.Msg = &msg
	return un, nil
}
