// Package discovery resolves the user's position and finds shows nearby. It
// does not depend on the live connection.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/Vasu1712/scenyx-live/internal/guard"
	"github.com/Vasu1712/scenyx-live/internal/models"
	"github.com/Vasu1712/scenyx-live/internal/protocol"
)

const (
	DefaultAttemptTimeout = 10 * time.Second
	DefaultMaxAttempts    = 3
	DefaultBackoff        = time.Second
	DefaultMaxCacheAge    = 30 * time.Minute
	DefaultRadiusMeters   = 5000
)

// Locator produces a position fix. Implementations return *Error for
// classified failures; anything else counts as position_unavailable.
type Locator interface {
	Locate(ctx context.Context) (models.Position, error)
}

// LocationCache remembers the last good fix per user.
type LocationCache interface {
	SavePosition(ctx context.Context, userID string, pos models.Position) error
	LastPosition(ctx context.Context, userID string) (models.Position, bool, error)
}

// ShowFinder is the show backend.
type ShowFinder interface {
	Nearby(ctx context.Context, pos models.Position, radiusMeters float64) ([]models.NearbyShow, error)
	Join(ctx context.Context, showID string, pos *models.Position) (protocol.ShowJoined, error)
}

type Options struct {
	AttemptTimeout time.Duration
	MaxAttempts    int
	Backoff        time.Duration
	MaxCacheAge    time.Duration
	Logger         *log.Logger
	Now            func() time.Time
}

// Fix is a resolved position. Approximate is set when it came from the cache.
type Fix struct {
	Position    models.Position `json:"position"`
	Approximate bool            `json:"approximate"`
}

// Result is the outcome of FindNearbyShows.
type Result struct {
	Fix
	RadiusMeters float64             `json:"radiusMeters"`
	Shows        []models.NearbyShow `json:"shows"`
}

type Coordinator struct {
	userID  string
	locator Locator
	cache   LocationCache
	shows   ShowFinder
	opts    Options
	logger  *log.Logger
}

func NewCoordinator(userID string, locator Locator, cache LocationCache, shows ShowFinder, opts Options) *Coordinator {
	if opts.AttemptTimeout <= 0 {
		opts.AttemptTimeout = DefaultAttemptTimeout
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.Backoff <= 0 {
		opts.Backoff = DefaultBackoff
	}
	if opts.MaxCacheAge <= 0 {
		opts.MaxCacheAge = DefaultMaxCacheAge
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Coordinator{userID: userID, locator: locator, cache: cache, shows: shows, opts: opts, logger: logger}
}

// Locate resolves the user's position. Timeouts and missing fixes are retried
// with backoff up to MaxAttempts; a permission denial ends immediately. When
// locating fails, a cached fix younger than MaxCacheAge is returned as
// approximate. Otherwise the last error is returned with Retryable unset.
func (c *Coordinator) Locate(ctx context.Context) (Fix, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.opts.Backoff
	b.MaxInterval = 4 * c.opts.Backoff

	attempt := 0
	pos, err := backoff.Retry(ctx, func() (models.Position, error) {
		attempt++
		pos, err := c.locateOnce(ctx)
		if err == nil {
			return pos, nil
		}
		if de, ok := AsError(err); ok && !de.Retryable {
			return pos, backoff.Permanent(err)
		}
		return pos, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(c.opts.MaxAttempts)),
		backoff.WithNotify(func(err error, next time.Duration) {
			c.logger.Printf("[Discovery] attempt %d failed, retrying in %s: %v", attempt, next.Round(time.Millisecond), err)
		}),
	)
	if err == nil {
		if pos.CapturedAt.IsZero() {
			pos.CapturedAt = c.opts.Now()
		}
		c.remember(ctx, pos)
		return Fix{Position: pos}, nil
	}
	if ctx.Err() != nil {
		return Fix{}, ctx.Err()
	}

	de, ok := AsError(err)
	if !ok {
		de = newError(KindPositionUnavailable, false, err)
	}
	// Timeouts, missing fixes and denials all fall back to a fresh cached fix.
	if cached, ok := c.cached(ctx); ok {
		c.logger.Printf("[Discovery] using cached position from %s after %d attempts (%s)",
			cached.CapturedAt.Format(time.RFC3339), attempt, de.Kind)
		return Fix{Position: cached, Approximate: true}, nil
	}
	final := *de
	final.Retryable = false
	c.logger.Printf("[Discovery] giving up after %d attempts: %v", attempt, de)
	return Fix{}, &final
}

// FindNearbyShows lists shows within radiusMeters of the user. Zero selects
// DefaultRadiusMeters.
func (c *Coordinator) FindNearbyShows(ctx context.Context, radiusMeters float64) (Result, error) {
	if radiusMeters < 0 {
		return Result{}, guard.Validation("radius", "must not be negative")
	}
	if radiusMeters == 0 {
		radiusMeters = DefaultRadiusMeters
	}
	fix, err := c.Locate(ctx)
	if err != nil {
		return Result{}, err
	}
	shows, err := c.shows.Nearby(ctx, fix.Position, radiusMeters)
	if err != nil {
		return Result{}, newError(KindNetwork, true, fmt.Errorf("nearby shows: %w", err))
	}
	if shows == nil {
		shows = []models.NearbyShow{}
	}
	c.logger.Printf("[Discovery] %d shows within %.0fm", len(shows), radiusMeters)
	return Result{Fix: fix, RadiusMeters: radiusMeters, Shows: shows}, nil
}

// JoinWithLocation asks the backend to admit the user to showID, attaching
// the user's position when one can be resolved. The coordinates are
// optional: a location failure joins without them. The returned snapshot has
// the show-joined shape.
func (c *Coordinator) JoinWithLocation(ctx context.Context, showID string) (protocol.ShowJoined, error) {
	if showID == "" {
		return protocol.ShowJoined{}, guard.Validation("showId", "required")
	}
	var pos *models.Position
	fix, err := c.Locate(ctx)
	switch {
	case err == nil:
		pos = &fix.Position
	case ctx.Err() != nil:
		return protocol.ShowJoined{}, ctx.Err()
	default:
		c.logger.Printf("[Discovery] joining %s without a location: %v", showID, err)
	}
	joined, err := c.shows.Join(ctx, showID, pos)
	if err != nil {
		return protocol.ShowJoined{}, newError(KindNetwork, true, fmt.Errorf("join show %s: %w", showID, err))
	}
	return joined, nil
}

func (c *Coordinator) locateOnce(ctx context.Context) (models.Position, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.opts.AttemptTimeout)
	defer cancel()

	pos, err := c.locator.Locate(attemptCtx)
	if err == nil {
		return pos, nil
	}
	if _, ok := AsError(err); ok {
		return pos, err
	}
	if errors.Is(err, context.DeadlineExceeded) || attemptCtx.Err() == context.DeadlineExceeded {
		return pos, newError(KindTimeout, true, err)
	}
	return pos, newError(KindPositionUnavailable, true, err)
}

func (c *Coordinator) remember(ctx context.Context, pos models.Position) {
	if c.cache == nil {
		return
	}
	if err := c.cache.SavePosition(ctx, c.userID, pos); err != nil {
		c.logger.Printf("[Discovery] caching position: %v", err)
	}
}

func (c *Coordinator) cached(ctx context.Context) (models.Position, bool) {
	if c.cache == nil {
		return models.Position{}, false
	}
	pos, ok, err := c.cache.LastPosition(ctx, c.userID)
	if err != nil {
		c.logger.Printf("[Discovery] reading cached position: %v", err)
		return models.Position{}, false
	}
	if !ok || c.opts.Now().Sub(pos.CapturedAt) > c.opts.MaxCacheAge {
		return models.Position{}, false
	}
	return pos, true
}
