package verify

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/m3rciful/cupbot/internal/models"
)

// Options bound a roster check.
type Options struct {
	// Timeout applies to each lookup separately.
	Timeout time.Duration
	// Parallelism caps concurrent lookups; 0 means one per entry.
	Parallelism int
}

// Outcome is the verification result of one roster entry.
type Outcome int

const (
	// OutcomeSubscribed means the player follows the channel.
	OutcomeSubscribed Outcome = iota
	// OutcomeNotSubscribed means the lookup succeeded with a non-member status.
	OutcomeNotSubscribed
	// OutcomeUnresolved means the handle could not be mapped to an identity.
	OutcomeUnresolved
	// OutcomeFailed means a lookup failed or timed out.
	OutcomeFailed
)

// Result describes one roster entry after verification.
type Result struct {
	Player     models.Player
	Membership models.Membership
	Outcome    Outcome
	Err        error
}

// CheckRoster resolves identities and checks channel membership for every
// entry concurrently. Results keep the roster order; a failed lookup only
// marks its own entry.
func CheckRoster(ctx context.Context, v Verifier, channel string, players []models.Player, opts Options) []Result {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	results := make([]Result, len(players))

	var g errgroup.Group
	if opts.Parallelism > 0 {
		g.SetLimit(opts.Parallelism)
	}
	for i, p := range players {
		i, p := i, p
		g.Go(func() error {
			results[i] = checkOne(ctx, v, channel, p, opts.Timeout)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func checkOne(ctx context.Context, v Verifier, channel string, p models.Player, timeout time.Duration) Result {
	res := Result{Player: p, Membership: models.MembershipUnknown}
	if p.Identity == nil {
		if p.Handle == "" {
			res.Outcome = OutcomeUnresolved
			return res
		}
		id, ok, err := within(ctx, timeout, func(ctx context.Context) (int64, bool, error) {
			return v.ResolveIdentity(ctx, p.Handle)
		})
		if err != nil {
			res.Outcome, res.Err = OutcomeFailed, asAdapterError("resolve", err)
			return res
		}
		if !ok {
			res.Outcome = OutcomeUnresolved
			return res
		}
		res.Player.Identity = &id
	}

	m, _, err := within(ctx, timeout, func(ctx context.Context) (models.Membership, bool, error) {
		m, err := v.CheckMembership(ctx, channel, *res.Player.Identity)
		return m, true, err
	})
	if err != nil {
		res.Outcome, res.Err = OutcomeFailed, asAdapterError("membership", err)
		return res
	}
	res.Membership = m
	if m.Subscribed() {
		res.Outcome = OutcomeSubscribed
	} else {
		res.Outcome = OutcomeNotSubscribed
	}
	return res
}

func within[T any](ctx context.Context, timeout time.Duration, fn func(ctx context.Context) (T, bool, error)) (T, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(ctx)
}

func asAdapterError(op string, err error) error {
	if _, ok := err.(*models.AdapterError); ok {
		return err
	}
	return &models.AdapterError{Op: op, Err: err}
}

// Players returns the roster with identities filled in where resolution succeeded.
func Players(results []Result) []models.Player {
	out := make([]models.Player, len(results))
	for i, r := range results {
		out[i] = r.Player
	}
	return out
}
