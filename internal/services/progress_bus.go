package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yungbote/courseforge/internal/platform/logger"
)

const (
	EventProgress = "progress"
	EventChapter  = "chapter"
	EventDone     = "done"
	EventFailed   = "failed"
	EventCanceled = "canceled"
)

// ProgressEvent is one observation of a generation run.
type ProgressEvent struct {
	RunID    string    `json:"run_id"`
	CourseID string    `json:"course_id,omitempty"`
	Event    string    `json:"event"`
	Phase    string    `json:"phase,omitempty"`
	Current  int       `json:"current"`
	Total    int       `json:"total"`
	Chapter  int       `json:"chapter,omitempty"`
	Error    string    `json:"error,omitempty"`
	At       time.Time `json:"at"`
}

// Terminal reports whether no further events follow for the run.
func (e ProgressEvent) Terminal() bool {
	switch e.Event {
	case EventDone, EventFailed, EventCanceled:
		return true
	}
	return false
}

type ProgressBus interface {
	Publish(ctx context.Context, ev ProgressEvent) error
	// Subscribe delivers events for one run until ctx is done or the
	// returned cancel func is called.
	Subscribe(ctx context.Context, runID string) (<-chan ProgressEvent, func(), error)
	Close() error
}

const subscriberBuffer = 32

type redisProgressBus struct {
	log    *logger.Logger
	rdb    redis.UniversalClient
	prefix string
}

func NewRedisProgressBus(rdb redis.UniversalClient, prefix string, log *logger.Logger) ProgressBus {
	if log == nil {
		log = logger.Nop()
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "courseforge:progress"
	}
	return &redisProgressBus{log: log.With("service", "RedisProgressBus"), rdb: rdb, prefix: prefix}
}

func (b *redisProgressBus) channel(runID string) string { return b.prefix + ":" + runID }

func (b *redisProgressBus) Publish(ctx context.Context, ev ProgressEvent) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel(ev.RunID), raw).Err()
}

func (b *redisProgressBus) Subscribe(ctx context.Context, runID string) (<-chan ProgressEvent, func(), error) {
	sub := b.rdb.Subscribe(ctx, b.channel(runID))

	// ensures subscription actually started
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, fmt.Errorf("redis subscribe: %w", err)
	}

	out := make(chan ProgressEvent, subscriberBuffer)
	stop := make(chan struct{})
	var once sync.Once
	cancel := func() { once.Do(func() { close(stop) }) }

	go func() {
		defer close(out)
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case <-stop:
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					return
				}
				var ev ProgressEvent
				if err := json.Unmarshal([]byte(m.Payload), &ev); err != nil {
					b.log.Warn("bad redis progress payload", "error", err)
					continue
				}
				select {
				case out <- ev:
				default:
					b.log.Warn("dropping progress event; subscriber buffer full", "run_id", runID)
				}
			}
		}
	}()
	return out, cancel, nil
}

// Close is a no-op: the redis client is shared and owned by the caller.
func (b *redisProgressBus) Close() error { return nil }

// memoryProgressBus fans events out inside one process. Used when no redis
// address is configured.
type memoryProgressBus struct {
	mu     sync.RWMutex
	log    *logger.Logger
	subs   map[string]map[chan ProgressEvent]struct{}
	closed bool
}

func NewMemoryProgressBus(log *logger.Logger) ProgressBus {
	if log == nil {
		log = logger.Nop()
	}
	return &memoryProgressBus{log: log.With("service", "MemoryProgressBus"), subs: map[string]map[chan ProgressEvent]struct{}{}}
}

func (b *memoryProgressBus) Publish(_ context.Context, ev ProgressEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs[ev.RunID] {
		select {
		case ch <- ev:
		default:
			b.log.Warn("dropping progress event; subscriber buffer full", "run_id", ev.RunID)
		}
	}
	return nil
}

func (b *memoryProgressBus) Subscribe(ctx context.Context, runID string) (<-chan ProgressEvent, func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, nil, fmt.Errorf("progress bus closed")
	}
	ch := make(chan ProgressEvent, subscriberBuffer)
	if b.subs[runID] == nil {
		b.subs[runID] = map[chan ProgressEvent]struct{}{}
	}
	b.subs[runID][ch] = struct{}{}

	var once sync.Once
	stopped := make(chan struct{})
	cancel := func() {
		once.Do(func() {
			close(stopped)
			b.mu.Lock()
			defer b.mu.Unlock()
			if set, ok := b.subs[runID]; ok {
				if _, ok := set[ch]; ok {
					delete(set, ch)
					close(ch)
				}
				if len(set) == 0 {
					delete(b.subs, runID)
				}
			}
		})
	}
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-stopped:
		}
	}()
	return ch, cancel, nil
}

func (b *memoryProgressBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for runID, set := range b.subs {
		for ch := range set {
			close(ch)
		}
		delete(b.subs, runID)
	}
	b.closed = true
	return nil
}
