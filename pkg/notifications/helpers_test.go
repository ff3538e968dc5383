package notifications

import (
	"context"
	"errors"
	"sync"
	"time"
)

var errBoom = errors.New("boom")

// recordingStore wraps a MemoryStore and records bulk insert calls.
type recordingStore struct {
	*MemoryStore

	mu         sync.Mutex
	bulkSizes  []int
	failBulkAt int // 1-based call number that fails; 0 disables
	failSave   bool
}

func newRecordingStore(opts ...MemoryStoreOption) *recordingStore {
	return &recordingStore{MemoryStore: NewMemoryStore(opts...)}
}

func (s *recordingStore) SaveNotificationMessage(ctx context.Context, msg Message) (Message, error) {
	if s.failSave {
		return Message{}, errBoom
	}
	return s.MemoryStore.SaveNotificationMessage(ctx, msg)
}

func (s *recordingStore) BulkCreateUserNotifications(ctx context.Context, batch []UserNotification) (int, error) {
	s.mu.Lock()
	s.bulkSizes = append(s.bulkSizes, len(batch))
	call := len(s.bulkSizes)
	s.mu.Unlock()

	if s.failBulkAt == call {
		return 0, errBoom
	}
	return s.MemoryStore.BulkCreateUserNotifications(ctx, batch)
}

func (s *recordingStore) calls() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.bulkSizes...)
}

func fixedClock(t time.Time) Clock {
	return ClockFunc(func() time.Time { return t })
}

var testType = NotificationType{Name: "open-edx.lms.test", Renderer: JSONRendererName}

func testMessage(payload Payload) Message {
	return Message{Type: testType, Namespace: "course-1", Payload: payload}
}

func usersOf(t interface{ Helper() }, s *MemoryStore, msgID int64) []int64 {
	t.Helper()
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []int64
	for _, un := range s.rows {
		if un.MsgID == msgID {
			ids = append(ids, un.UserID)
		}
	}
	return ids
}
