package game

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aristath/questloop/internal/scheduler"
)

// Session caches the latest game snapshot and exposes it to task predicates,
// the run loop and the outfitter. Predicates read the cache; Refresh is
// called by the run loop once per tick and after every state-changing helper
// here that later steps of the same attempt depend on.
type Session struct {
	client      *Client
	logger      *slog.Logger
	meatCeiling int64

	mu     sync.RWMutex
	snap   Snapshot
	banked int64
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithMeatCeiling sets how much meat may stay on hand during a run; the
// surplus is closeted by Deposit. Zero disables banking.
func WithMeatCeiling(ceiling int64) SessionOption {
	return func(s *Session) { s.meatCeiling = ceiling }
}

// WithSessionLogger sets the session logger.
func WithSessionLogger(l *slog.Logger) SessionOption {
	return func(s *Session) { s.logger = l }
}

// NewSession creates a session. Call Refresh before reading state.
func NewSession(client *Client, opts ...SessionOption) *Session {
	s := &Session{
		client: client,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Client returns the underlying game client.
func (s *Session) Client() *Client {
	return s.client
}

// Refresh re-reads game state.
func (s *Session) Refresh(ctx context.Context) error {
	snap, err := s.client.Status(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()
	return nil
}

// Snapshot returns the cached snapshot.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Remaining returns adventures left.
func (s *Session) Remaining() int { return s.Snapshot().Adventures }

// Used returns turns played.
func (s *Session) Used() int { return s.Snapshot().TurnsPlayed }

// Step returns a quest's step.
func (s *Session) Step(quest string) int { return s.Snapshot().Step(quest) }

// Have reports whether at least one of item is held or worn.
func (s *Session) Have(item string) bool { return s.Snapshot().Count(item) > 0 }

// Count returns how many of item are held or worn.
func (s *Session) Count(item string) int { return s.Snapshot().Count(item) }

// HasSkill reports whether the character knows skill.
func (s *Session) HasSkill(skill string) bool { return s.Snapshot().HasSkill(skill) }

// Property returns a raw game property.
func (s *Session) Property(name string) string { return s.Snapshot().Properties[name] }

// IntProperty returns a numeric game property, 0 if unset.
func (s *Session) IntProperty(name string) int { return s.Snapshot().IntProperty(name) }

// BoolProperty reports whether a game property is "true".
func (s *Session) BoolProperty(name string) bool { return s.Snapshot().BoolProperty(name) }

// TurnsSpent returns the turns spent at location.
func (s *Session) TurnsSpent(location string) int { return s.Snapshot().LocationTurns[location] }

// Now returns the game clock.
func (s *Session) Now() time.Time { return s.Snapshot().Gametime() }

// SlotOf returns the slot kind an item is worn in, "" if it is not equipment.
func (s *Session) SlotOf(item string) string { return s.Snapshot().ItemSlots[item] }

// Wanderers returns the wanderer sources reported by the game.
func (s *Session) Wanderers() []scheduler.EventSource {
	infos := s.Snapshot().Wanderers
	out := make([]scheduler.EventSource, len(infos))
	for i, info := range infos {
		out[i] = wanderer{info: info}
	}
	return out
}

// Adventure spends a turn at location.
func (s *Session) Adventure(ctx context.Context, location string, choices map[int]int) error {
	return s.client.Adventure(ctx, location, choices)
}

// Create crafts one item and refreshes so the result is visible.
func (s *Session) Create(ctx context.Context, item string) error {
	if err := s.client.Create(ctx, item); err != nil {
		return err
	}
	return s.Refresh(ctx)
}

// Use uses n of item and refreshes.
func (s *Session) Use(ctx context.Context, item string, n int) error {
	if err := s.client.Use(ctx, item, n); err != nil {
		return err
	}
	return s.Refresh(ctx)
}

// Visit loads a game page.
func (s *Session) Visit(ctx context.Context, url string) error {
	return s.client.Visit(ctx, url)
}

// CLI runs a raw game CLI line.
func (s *Session) CLI(ctx context.Context, line string) error {
	return s.client.CLI(ctx, line)
}

// Acquire makes sure at least num of item are on hand.
func (s *Session) Acquire(ctx context.Context, item string, num int) error {
	have := s.Count(item)
	if have >= num {
		return nil
	}
	s.logger.Info("acquiring item", "item", item, "have", have, "want", num)
	if err := s.client.Acquire(ctx, item, num-have); err != nil {
		return err
	}
	if err := s.Refresh(ctx); err != nil {
		return err
	}
	if got := s.Count(item); got < num {
		return fmt.Errorf("acquired %s but only have %d of %d", item, got, num)
	}
	return nil
}

// Deposit closets meat above the configured ceiling.
func (s *Session) Deposit(ctx context.Context) error {
	if s.meatCeiling <= 0 {
		return nil
	}
	surplus := s.Snapshot().Meat - s.meatCeiling
	if surplus <= 0 {
		return nil
	}

	s.logger.Info("too much meat on hand; closeting the surplus during the run", "meat", surplus)
	if err := s.client.Closet(ctx, "put", surplus); err != nil {
		return fmt.Errorf("failed to closet meat: %w", err)
	}
	s.mu.Lock()
	s.banked += surplus
	s.mu.Unlock()
	return s.Refresh(ctx)
}

// Withdraw takes back all the meat Deposit closeted.
func (s *Session) Withdraw(ctx context.Context) error {
	s.mu.RLock()
	banked := s.banked
	s.mu.RUnlock()
	if banked <= 0 {
		return nil
	}

	if err := s.client.Closet(ctx, "take", banked); err != nil {
		return fmt.Errorf("failed to take meat from closet: %w", err)
	}
	s.mu.Lock()
	s.banked = 0
	s.mu.Unlock()
	return s.Refresh(ctx)
}
