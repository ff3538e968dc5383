package notifications

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"math"
	"sync"
)

// UserIDStream yields user ids lazily. A non-nil error ends the stream:
// consumers must stop at the first error.
type UserIDStream = iter.Seq2[int64, error]

// Cursor is a lazily evaluated result set, such as rows from a database.
// Streams built from a cursor close it when iteration ends.
type Cursor interface {
	Next(ctx context.Context) bool
	Value() any
	Err() error
	Close() error
}

// UserIDs returns a stream over ids.
func UserIDs(ids ...int64) UserIDStream {
	return func(yield func(int64, error) bool) {
		for _, id := range ids {
			if !yield(id, nil) {
				return
			}
		}
	}
}

// Collect drains a stream into a slice.
func Collect(s UserIDStream) ([]int64, error) {
	var ids []int64
	for id, err := range s {
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Dedup drops ids already yielded by the stream. Memory grows with the
// number of distinct ids.
func Dedup(s UserIDStream) UserIDStream {
	return func(yield func(int64, error) bool) {
		seen := make(IDSet)
		for id, err := range s {
			if err != nil {
				yield(0, err)
				return
			}
			if seen.Has(id) {
				continue
			}
			seen.Add(id)
			if !yield(id, nil) {
				return
			}
		}
	}
}

// Concat yields every stream in order.
func Concat(streams ...UserIDStream) UserIDStream {
	return func(yield func(int64, error) bool) {
		for _, s := range streams {
			for id, err := range s {
				if !yield(id, err) || err != nil {
					return
				}
			}
		}
	}
}

// ToUserIDStream adapts a scope resolver result to a stream. It returns
// (nil, nil) for a nil result and ErrScopeResolverType for values that
// cannot produce user ids. Items that are not integers are skipped with a
// warning. A Cursor is closed when iteration ends; use OpenUserIDStream when
// the stream may never be iterated.
func ToUserIDStream(ctx context.Context, v any, log *slog.Logger) (UserIDStream, error) {
	s, _, err := OpenUserIDStream(ctx, v, log)
	return s, err
}

// OpenUserIDStream is ToUserIDStream plus a close function releasing the
// underlying cursor. Closing is idempotent and safe after iteration; for
// values without a cursor it is a no-op.
func OpenUserIDStream(ctx context.Context, v any, log *slog.Logger) (UserIDStream, func() error, error) {
	if log == nil {
		log = slog.Default()
	}
	skip := func(item any) {
		log.LogAttrs(ctx, slog.LevelWarn, "skipping non-integer user id",
			slog.String("type", fmt.Sprintf("%T", item)),
			slog.Any("value", item),
		)
	}

	if c, ok := v.(Cursor); ok {
		oc := &onceCursor{Cursor: c}
		return cursorStream(ctx, oc, skip), oc.Close, nil
	}
	s, err := toStream(v, skip)
	return s, noopClose, err
}

func noopClose() error { return nil }

// onceCursor closes the wrapped cursor at most once.
type onceCursor struct {
	Cursor
	once sync.Once
	err  error
}

func (c *onceCursor) Close() error {
	c.once.Do(func() { c.err = c.Cursor.Close() })
	return c.err
}

func toStream(v any, skip func(any)) (UserIDStream, error) {
	switch src := v.(type) {
	case nil:
		return nil, nil
	case iter.Seq2[int64, error]:
		return src, nil
	case func(func(int64, error) bool):
		return src, nil
	case []int64:
		return UserIDs(src...), nil
	case []int:
		return sliceStream(src), nil
	case []int32:
		return sliceStream(src), nil
	case []any:
		return anyStream(func(yield func(any) bool) {
			for _, item := range src {
				if !yield(item) {
					return
				}
			}
		}, skip), nil
	case iter.Seq[int64]:
		return seqStream[int64](src), nil
	case func(func(int64) bool):
		return seqStream[int64](src), nil
	case iter.Seq[int]:
		return seqStream[int](src), nil
	case iter.Seq[any]:
		return anyStream(src, skip), nil
	case <-chan int64:
		return chanStream(src), nil
	case chan int64:
		return chanStream(src), nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrScopeResolverType, v)
	}
}

type integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 | ~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64
}

func sliceStream[T integer](ids []T) UserIDStream {
	return func(yield func(int64, error) bool) {
		for _, id := range ids {
			if !yield(int64(id), nil) {
				return
			}
		}
	}
}

func seqStream[T integer](seq func(func(T) bool)) UserIDStream {
	return func(yield func(int64, error) bool) {
		for id := range seq {
			if !yield(int64(id), nil) {
				return
			}
		}
	}
}

func chanStream(ch <-chan int64) UserIDStream {
	return func(yield func(int64, error) bool) {
		for id := range ch {
			if !yield(id, nil) {
				return
			}
		}
	}
}

func anyStream(seq iter.Seq[any], skip func(any)) UserIDStream {
	return func(yield func(int64, error) bool) {
		for item := range seq {
			id, ok := asUserID(item)
			if !ok {
				skip(item)
				continue
			}
			if !yield(id, nil) {
				return
			}
		}
	}
}

func cursorStream(ctx context.Context, c Cursor, skip func(any)) UserIDStream {
	return func(yield func(int64, error) bool) {
		defer c.Close()
		for c.Next(ctx) {
			id, ok := asUserID(c.Value())
			if !ok {
				skip(c.Value())
				continue
			}
			if !yield(id, nil) {
				return
			}
		}
		if err := c.Err(); err != nil {
			yield(0, err)
		}
	}
}

func asUserID(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int16:
		return int64(n), true
	case int8:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint:
		if uint64(n) > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	default:
		return 0, false
	}
}
