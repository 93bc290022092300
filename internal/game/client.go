package game

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
)

// Client speaks to the game CLI. Read-only commands are retried with
// backoff; commands that change game state run once, behind the same
// per-command circuit breaker.
type Client struct {
	exec     Executor
	breakers *CircuitBreakerRegistry
	retry    RetryConfig
	logger   *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithRetry overrides the retry policy for read-only commands.
func WithRetry(cfg RetryConfig) ClientOption { return func(c *Client) { c.retry = cfg } }

// WithBreakers overrides the circuit breaker registry.
func WithBreakers(r *CircuitBreakerRegistry) ClientOption { return func(c *Client) { c.breakers = r } }

// WithClientLogger sets the client logger.
func WithClientLogger(l *slog.Logger) ClientOption { return func(c *Client) { c.logger = l } }

// NewClient creates a client over an executor.
func NewClient(ex Executor, opts ...ClientOption) *Client {
	c := &Client{
		exec:   ex,
		retry:  DefaultRetryConfig(),
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.breakers == nil {
		c.breakers = NewCircuitBreakerRegistry(DefaultBreakerConfig(), c.logger)
	}
	return c
}

// Status fetches a fresh snapshot of game state.
func (c *Client) Status(ctx context.Context) (Snapshot, error) {
	out, err := c.query(ctx, "status", "--json")
	if err != nil {
		return Snapshot{}, err
	}
	var snap Snapshot
	if err := json.Unmarshal(out, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("failed to parse game status: %w", err)
	}
	return snap, nil
}

// Adventure spends a turn at location, answering choice adventures from
// choices (choice id -> option).
func (c *Client) Adventure(ctx context.Context, location string, choices map[int]int) error {
	args := []string{"adventure", location}
	ids := make([]int, 0, len(choices))
	for id := range choices {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		args = append(args, "--choice", fmt.Sprintf("%d=%d", id, choices[id]))
	}
	return c.act(ctx, args...)
}

// Create crafts one item.
func (c *Client) Create(ctx context.Context, item string) error {
	return c.act(ctx, "create", "1", item)
}

// Use uses n of item.
func (c *Client) Use(ctx context.Context, item string, n int) error {
	return c.act(ctx, "use", strconv.Itoa(n), item)
}

// Visit loads a game page.
func (c *Client) Visit(ctx context.Context, url string) error {
	return c.act(ctx, "visit", url)
}

// CLI runs a raw game CLI line.
func (c *Client) CLI(ctx context.Context, line string) error {
	return c.act(ctx, "cli", line)
}

// Acquire obtains n of item by whatever means the game client prefers.
func (c *Client) Acquire(ctx context.Context, item string, n int) error {
	return c.act(ctx, "acquire", strconv.Itoa(n), item)
}

// Equip wears item in slot.
func (c *Client) Equip(ctx context.Context, slot, item string) error {
	return c.act(ctx, "equip", slot, item)
}

// Maximize runs the equipment maximizer with expr.
func (c *Client) Maximize(ctx context.Context, expr string) error {
	return c.act(ctx, "maximize", expr)
}

// Familiar switches the active familiar.
func (c *Client) Familiar(ctx context.Context, name string) error {
	return c.act(ctx, "familiar", name)
}

// Closet moves meat into ("put") or out of ("take") the closet.
func (c *Client) Closet(ctx context.Context, action string, meat int64) error {
	return c.act(ctx, "closet", action, strconv.FormatInt(meat, 10), "meat")
}

// query runs a read-only command with retries.
func (c *Client) query(ctx context.Context, args ...string) ([]byte, error) {
	out, err := runWithRetry(ctx, c.exec, args, c.breakers.Get(args[0]), c.retry)
	if err != nil {
		return nil, fmt.Errorf("game %s: %w", args[0], err)
	}
	return out, nil
}

// act runs a state-changing command exactly once.
func (c *Client) act(ctx context.Context, args ...string) error {
	c.logger.Debug("game command", "args", args)
	_, err := c.breakers.Get(args[0]).Execute(func() (interface{}, error) {
		return c.exec.Run(ctx, args...)
	})
	if err != nil {
		return fmt.Errorf("game %s: %w", args[0], err)
	}
	return nil
}
