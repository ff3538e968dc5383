package notifications

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"
)

// MemoryStore is an in-memory QueryStore, TimerStore and PreferenceStore
// for development and tests. It enforces (user, message) uniqueness by
// silently skipping duplicates.
type MemoryStore struct {
	mu sync.RWMutex

	clock       Clock
	maxBulkSize int
	maxListSize int
	archive     bool

	nextMsgID   int64
	nextRowID   int64
	lastCreated time.Time

	messages map[int64]Message
	rows     map[int64]UserNotification
	byPair   map[userMessage]int64
	archived []UserNotification

	timers      map[string]Timer
	prefs       []Preference
	prefIndex   map[string]int
	userPrefs   []UserPreference
	userPrefIdx map[userPreferenceKey]int
}

type userMessage struct {
	userID int64
	msgID  int64
}

// MemoryStoreOption configures a MemoryStore.
type MemoryStoreOption func(*MemoryStore)

// WithMemoryClock sets the clock used to stamp created times.
func WithMemoryClock(clock Clock) MemoryStoreOption {
	return func(s *MemoryStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithMaxBulkSize rejects larger batches with ErrBulkOperationTooLarge.
// Zero means unlimited.
func WithMaxBulkSize(n int) MemoryStoreOption {
	return func(s *MemoryStore) {
		s.maxBulkSize = n
	}
}

// WithMaxListSize sets the largest page GetNotificationsForUser and
// GetUserPreferencesWithName return.
func WithMaxListSize(n int) MemoryStoreOption {
	return func(s *MemoryStore) {
		if n > 0 {
			s.maxListSize = n
		}
	}
}

// WithArchive keeps purged rows, available through Archived.
func WithArchive(enabled bool) MemoryStoreOption {
	return func(s *MemoryStore) {
		s.archive = enabled
	}
}

// NewMemoryStore returns an empty store.
func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	s := &MemoryStore{
		clock:       systemClock{},
		maxListSize: DefaultMaxListSize,
		messages:    make(map[int64]Message),
		rows:        make(map[int64]UserNotification),
		byPair:      make(map[userMessage]int64),
		timers:      make(map[string]Timer),
		prefIndex:   make(map[string]int),
		userPrefIdx: make(map[userPreferenceKey]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// now returns a time never earlier than the last one handed out.
func (s *MemoryStore) now() time.Time {
	t := s.clock.Now()
	if t.Before(s.lastCreated) {
		t = s.lastCreated
	}
	s.lastCreated = t
	return t
}

func (s *MemoryStore) SaveNotificationMessage(ctx context.Context, msg Message) (Message, error) {
	if err := ctx.Err(); err != nil {
		return Message{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	msg = msg.Clone()
	if msg.ID == 0 {
		s.nextMsgID++
		msg.ID = s.nextMsgID
		msg.Created = s.now()
	} else {
		existing, ok := s.messages[msg.ID]
		if !ok {
			return Message{}, fmt.Errorf("%w: message %d", ErrNotFound, msg.ID)
		}
		msg.Created = existing.Created
	}
	s.messages[msg.ID] = msg
	return msg.Clone(), nil
}

func (s *MemoryStore) SaveUserNotification(ctx context.Context, un UserNotification) (UserNotification, error) {
	if err := ctx.Err(); err != nil {
		return UserNotification{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.messages[un.MsgID]; !ok {
		return UserNotification{}, fmt.Errorf("%w: message %d", ErrNotFound, un.MsgID)
	}
	if id, ok := s.byPair[userMessage{un.UserID, un.MsgID}]; ok {
		return s.withMessage(s.rows[id]), nil
	}
	return s.withMessage(s.insert(un)), nil
}

func (s *MemoryStore) BulkCreateUserNotifications(ctx context.Context, batch []UserNotification) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s.maxBulkSize > 0 && len(batch) > s.maxBulkSize {
		return 0, fmt.Errorf("%w: %d rows, max %d", ErrBulkOperationTooLarge, len(batch), s.maxBulkSize)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, un := range batch {
		if _, ok := s.messages[un.MsgID]; !ok {
			return 0, fmt.Errorf("%w: message %d", ErrNotFound, un.MsgID)
		}
	}

	written := 0
	for _, un := range batch {
		if _, ok := s.byPair[userMessage{un.UserID, un.MsgID}]; ok {
			continue
		}
		s.insert(un)
		written++
	}
	return written, nil
}

func (s *MemoryStore) insert(un UserNotification) UserNotification {
	s.nextRowID++
	un.ID = s.nextRowID
	un.Msg = nil
	if un.Created.IsZero() {
		un.Created = s.clock.Now()
	}
	s.rows[un.ID] = un
	s.byPair[userMessage{un.UserID, un.MsgID}] = un.ID
	return un
}

func (s *MemoryStore) withMessage(un UserNotification) UserNotification {
	if msg, ok := s.messages[un.MsgID]; ok {
		m := msg.Clone()
		un.Msg = &m
	}
	un.ReadAt = cloneTime(un.ReadAt)
	return un
}

func (s *MemoryStore) GetNotificationMessage(ctx context.Context, id int64) (Message, error) {
	if err := ctx.Err(); err != nil {
		return Message{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	msg, ok := s.messages[id]
	if !ok {
		return Message{}, fmt.Errorf("%w: message %d", ErrNotFound, id)
	}
	return msg.Clone(), nil
}

func (s *MemoryStore) GetUserNotification(ctx context.Context, id int64) (UserNotification, error) {
	if err := ctx.Err(); err != nil {
		return UserNotification{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	un, ok := s.rows[id]
	if !ok {
		return UserNotification{}, fmt.Errorf("%w: user notification %d", ErrNotFound, id)
	}
	return s.withMessage(un), nil
}

func (s *MemoryStore) MarkUserNotificationRead(ctx context.Context, id int64, readAt time.Time) (UserNotification, error) {
	if err := ctx.Err(); err != nil {
		return UserNotification{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	un, ok := s.rows[id]
	if !ok {
		return UserNotification{}, fmt.Errorf("%w: user notification %d", ErrNotFound, id)
	}
	un.ReadAt = &readAt
	s.rows[id] = un
	return s.withMessage(un), nil
}

func (s *MemoryStore) GetNotificationsForUser(ctx context.Context, userID int64, f Filters, opts ListOptions) ([]UserNotification, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	limit, err := PageLimit(opts.Limit, s.maxListSize)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := s.match(userID, f)
	slices.SortFunc(matched, func(a, b UserNotification) int {
		if c := b.Created.Compare(a.Created); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})

	if opts.Offset >= len(matched) {
		return []UserNotification{}, nil
	}
	matched = matched[max(opts.Offset, 0):]
	if len(matched) > limit {
		matched = matched[:limit]
	}

	out := make([]UserNotification, 0, len(matched))
	for _, un := range matched {
		out = append(out, s.withMessage(un))
	}
	return out, nil
}

func (s *MemoryStore) CountNotificationsForUser(ctx context.Context, userID int64, f Filters) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.match(userID, f)), nil
}

func (s *MemoryStore) MarkUserNotificationsRead(ctx context.Context, userID int64, f Filters) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f.Read = UnreadOnly
	now := s.clock.Now()
	changed := 0
	for _, un := range s.match(userID, f) {
		un.ReadAt = &now
		s.rows[un.ID] = un
		changed++
	}
	return changed, nil
}

func (s *MemoryStore) PurgeExpiredNotifications(ctx context.Context, opts PurgeOptions) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	purged := 0
	for id, un := range s.rows {
		if !purgeable(un, now, opts) {
			continue
		}
		if s.archive {
			s.archived = append(s.archived, un)
		}
		delete(s.rows, id)
		delete(s.byPair, userMessage{un.UserID, un.MsgID})
		purged++
	}
	return purged, nil
}

func (s *MemoryStore) GetAllNamespaces(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, msg := range s.messages {
		if msg.Namespace != "" {
			seen[msg.Namespace] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for ns := range seen {
		out = append(out, ns)
	}
	slices.Sort(out)
	return out, nil
}

// Archived returns the rows removed by purges when archiving is enabled.
func (s *MemoryStore) Archived() []UserNotification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.archived)
}

func (s *MemoryStore) match(userID int64, f Filters) []UserNotification {
	var out []UserNotification
	for _, un := range s.rows {
		if un.UserID != userID {
			continue
		}
		msg := s.messages[un.MsgID]
		if f.Namespace != "" && msg.Namespace != f.Namespace {
			continue
		}
		if f.TypeName != "" && msg.Type.Name != f.TypeName {
			continue
		}
		if (f.Read == ReadOnly && un.ReadAt == nil) || (f.Read == UnreadOnly && un.ReadAt != nil) {
			continue
		}
		out = append(out, un)
	}
	return out
}

// PageLimit applies the default and maximum page size to a requested limit.
func PageLimit(limit, maxSize int) (int, error) {
	switch {
	case limit <= 0:
		return maxSize, nil
	case limit > maxSize:
		return 0, fmt.Errorf("%w: %d > %d", ErrLimitTooLarge, limit, maxSize)
	default:
		return limit, nil
	}
}

func purgeable(un UserNotification, now time.Time, opts PurgeOptions) bool {
	if un.ReadAt != nil {
		return opts.ReadOlderThan > 0 && un.Created.Before(now.Add(-opts.ReadOlderThan))
	}
	return opts.UnreadOlderThan > 0 && un.Created.Before(now.Add(-opts.UnreadOlderThan))
}
