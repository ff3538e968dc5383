package notifications

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"
)

var (
	_ QueryStore      = (*MemoryStore)(nil)
	_ TimerStore      = (*MemoryStore)(nil)
	_ PreferenceStore = (*MemoryStore)(nil)
)

type userPreferenceKey struct {
	userID int64
	name   string
}

func (s *MemoryStore) SaveTimer(ctx context.Context, t Timer) (Timer, error) {
	if err := ctx.Err(); err != nil {
		return Timer{}, err
	}
	if t.Name == "" {
		return Timer{}, fmt.Errorf("%w: timer", ErrNameRequired)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.timers[t.Name] = t.Clone()
	return t.Clone(), nil
}

func (s *MemoryStore) GetTimer(ctx context.Context, name string) (Timer, error) {
	if err := ctx.Err(); err != nil {
		return Timer{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.timers[name]
	if !ok {
		return Timer{}, fmt.Errorf("%w: timer %q", ErrNotFound, name)
	}
	return t.Clone(), nil
}

func (s *MemoryStore) GetActiveTimers(ctx context.Context, until time.Time, includeExecuted bool) ([]Timer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []Timer{}
	for _, t := range s.timers {
		if !t.IsActive || (!includeExecuted && t.ExecutedAt != nil) {
			continue
		}
		if !until.IsZero() && t.CallbackAt.After(until) {
			continue
		}
		out = append(out, t.Clone())
	}
	slices.SortFunc(out, func(a, b Timer) int {
		if c := a.CallbackAt.Compare(b.CallbackAt); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return out, nil
}

func (s *MemoryStore) SavePreference(ctx context.Context, p Preference) (Preference, error) {
	if err := ctx.Err(); err != nil {
		return Preference{}, err
	}
	if p.Name == "" {
		return Preference{}, fmt.Errorf("%w: preference", ErrNameRequired)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if i, ok := s.prefIndex[p.Name]; ok {
		s.prefs[i] = p
		return p, nil
	}
	s.prefIndex[p.Name] = len(s.prefs)
	s.prefs = append(s.prefs, p)
	return p, nil
}

func (s *MemoryStore) GetPreference(ctx context.Context, name string) (Preference, error) {
	if err := ctx.Err(); err != nil {
		return Preference{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.prefIndex[name]
	if !ok {
		return Preference{}, fmt.Errorf("%w: preference %q", ErrNotFound, name)
	}
	return s.prefs[i], nil
}

func (s *MemoryStore) GetAllPreferences(ctx context.Context) ([]Preference, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]Preference{}, s.prefs...), nil
}

func (s *MemoryStore) SetUserPreference(ctx context.Context, up UserPreference) (UserPreference, error) {
	if err := ctx.Err(); err != nil {
		return UserPreference{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.prefIndex[up.Name]; !ok {
		return UserPreference{}, fmt.Errorf("%w: preference %q", ErrNotFound, up.Name)
	}
	key := userPreferenceKey{up.UserID, up.Name}
	if i, ok := s.userPrefIdx[key]; ok {
		s.userPrefs[i] = up
		return up, nil
	}
	s.userPrefIdx[key] = len(s.userPrefs)
	s.userPrefs = append(s.userPrefs, up)
	return up, nil
}

func (s *MemoryStore) GetUserPreference(ctx context.Context, userID int64, name string) (UserPreference, error) {
	if err := ctx.Err(); err != nil {
		return UserPreference{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.userPrefIdx[userPreferenceKey{userID, name}]
	if !ok {
		return UserPreference{}, fmt.Errorf("%w: preference %q for user %d", ErrNotFound, name, userID)
	}
	return s.userPrefs[i], nil
}

func (s *MemoryStore) GetUserPreferences(ctx context.Context, userID int64) ([]UserPreference, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []UserPreference{}
	for _, up := range s.userPrefs {
		if up.UserID == userID {
			out = append(out, up)
		}
	}
	return out, nil
}

func (s *MemoryStore) GetUserPreferencesWithName(ctx context.Context, name, value string, opts ListOptions) ([]UserPreference, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	limit, err := PageLimit(opts.Limit, s.maxListSize)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []UserPreference
	for _, up := range s.userPrefs {
		if up.Name == name && (value == "" || up.Value == value) {
			matched = append(matched, up)
		}
	}
	if opts.Offset >= len(matched) {
		return []UserPreference{}, nil
	}
	matched = matched[max(opts.Offset, 0):]
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return append([]UserPreference{}, matched...), nil
}
