package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"crypto_dash/internal/action"
	"crypto_dash/internal/domain"
)

// ErrStopped is returned by Dispatch once the store loop has exited.
var ErrStopped = errors.New("store stopped")

const persistTimeout = 5 * time.Second

// PreferenceStore persists the favorite sets.
type PreferenceStore interface {
	SavePreferences(ctx context.Context, prefs domain.FavoriteSet) error
}

// StateDumper writes a post-mortem copy of the state.
type StateDumper interface {
	Dump(seq uint64, state any, reason string) error
}

// Listener is called with the previous and next state after every change.
// Listeners run on the store goroutine: they must not block and must use Post, never Dispatch.
type Listener func(prev, next *State)

type envelope struct {
	action action.Action
	reply  chan *State
}

type subscription struct {
	id uint64
	fn Listener
}

// Store is the single writer of application state.
// Actions are applied one at a time by Run; readers take immutable snapshots with GetState.
type Store struct {
	inbox  chan envelope
	state  atomic.Pointer[State]
	done   chan struct{}
	prefs  PreferenceStore
	dumper StateDumper
	reduce func(*State, action.Action) *State

	mu        sync.Mutex
	listeners []subscription
	nextID    uint64

	// Posts that found the inbox full wait here in order; one drainer at a time.
	postMu   sync.Mutex
	overflow []envelope
	draining bool
}

// NewStore creates a store holding InitialState. prefs and dumper may be nil.
func NewStore(inboxSize int, prefs PreferenceStore, dumper StateDumper) *Store {
	if inboxSize <= 0 {
		inboxSize = 256
	}
	s := &Store{
		inbox:  make(chan envelope, inboxSize),
		done:   make(chan struct{}),
		prefs:  prefs,
		dumper: dumper,
		reduce: Reduce,
	}
	s.state.Store(InitialState())
	return s
}

// GetState returns the current snapshot. Callers must treat it as read-only.
func (s *Store) GetState() *State {
	return s.state.Load()
}

// Run applies actions until ctx is cancelled. It must be called exactly once.
func (s *Store) Run(ctx context.Context) {
	slog.Info("Store started")
	defer close(s.done)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Store stopping...")
			return
		case env := <-s.inbox:
			next := s.apply(ctx, env.action)
			if env.reply != nil {
				env.reply <- next
			}
		}
	}
}

// Dispatch enqueues a and waits until it has been applied, returning the resulting state.
func (s *Store) Dispatch(ctx context.Context, a action.Action) (*State, error) {
	env := envelope{action: a, reply: make(chan *State, 1)}
	select {
	case s.inbox <- env:
	case <-s.done:
		return nil, ErrStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case st := <-env.reply:
		return st, nil
	case <-s.done:
		// The loop may have applied it just before exiting.
		select {
		case st := <-env.reply:
			return st, nil
		default:
			return nil, ErrStopped
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Post enqueues a without waiting. Safe to call from listeners.
// Posted actions are applied in the order they were posted, even when the
// inbox is full.
func (s *Store) Post(a action.Action) {
	env := envelope{action: a}

	s.postMu.Lock()
	defer s.postMu.Unlock()
	if !s.draining {
		select {
		case s.inbox <- env:
			return
		default:
		}
	}
	s.overflow = append(s.overflow, env)
	if !s.draining {
		s.draining = true
		go s.drainOverflow()
	}
}

// OverflowLen reports how many posted actions are waiting for inbox space.
func (s *Store) OverflowLen() int {
	s.postMu.Lock()
	defer s.postMu.Unlock()
	return len(s.overflow)
}

// drainOverflow moves overflowed posts into the inbox, head first. The head
// stays queued until it is sent so that new posts cannot overtake it.
func (s *Store) drainOverflow() {
	for {
		s.postMu.Lock()
		if len(s.overflow) == 0 {
			s.draining = false
			s.postMu.Unlock()
			return
		}
		head := s.overflow[0]
		s.postMu.Unlock()

		select {
		case s.inbox <- head:
		case <-s.done:
			s.postMu.Lock()
			s.overflow = nil
			s.draining = false
			s.postMu.Unlock()
			return
		}

		s.postMu.Lock()
		s.overflow[0] = envelope{}
		s.overflow = s.overflow[1:]
		s.postMu.Unlock()
	}
}

// Subscribe registers fn and returns a function that removes it.
// The returned function is idempotent.
func (s *Store) Subscribe(fn Listener) func() {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.listeners = append(s.listeners, subscription{id: id, fn: fn})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, l := range s.listeners {
				if l.id == id {
					s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

func (s *Store) apply(ctx context.Context, a action.Action) *State {
	prev := s.state.Load()
	next := s.safeReduce(prev, a)
	if next == prev {
		return prev
	}

	if s.prefs != nil && !next.Preferences.Equal(prev.Preferences) {
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
		if err := s.prefs.SavePreferences(pctx, next.Preferences); err != nil {
			slog.Error("Failed to persist preferences", slog.Any("error", err))
		}
		cancel()
	}

	s.state.Store(next)
	s.notify(prev, next)
	return next
}

// safeReduce turns a panicking reducer into a skipped action.
func (s *Store) safeReduce(prev *State, a action.Action) (next *State) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("CRITICAL_PANIC_DETECTED",
				slog.String("action", a.GetType().String()),
				slog.Any("panic", r))
			if s.dumper != nil {
				if err := s.dumper.Dump(prev.Seq, prev, fmt.Sprintf("panic: %v", r)); err != nil {
					slog.Error("Failed to dump state", slog.Any("error", err))
				}
			}
			next = prev
		}
	}()
	return s.reduce(prev, a)
}

func (s *Store) notify(prev, next *State) {
	s.mu.Lock()
	subs := make([]subscription, len(s.listeners))
	copy(subs, s.listeners)
	s.mu.Unlock()

	for _, l := range subs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					slog.Error("Listener panicked", slog.Uint64("listener", l.id), slog.Any("panic", r))
				}
			}()
			l.fn(prev, next)
		}()
	}
}
