// Package bruteforce throttles login attempts per identifier. Once a key has
// accumulated Threshold failures inside Window, every further attempt is
// refused until the window elapses, whatever the credentials.
package bruteforce

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/payportal/internal/common"
)

const (
	DefaultThreshold = 5
	DefaultWindow    = 15 * time.Minute
)

// Realm separates counters for the customer and staff login endpoints.
type Realm string

const (
	RealmCustomer Realm = "customer"
	RealmEmployee Realm = "employee"
)

// Store keeps failure counters. Increment must be atomic per key and start
// the window on the first failure only. Failures reports a negative
// remaining for a counter that has no expiry.
type Store interface {
	Failures(ctx context.Context, key string) (count int, remaining time.Duration, err error)
	Increment(ctx context.Context, key string, window time.Duration) (count int, remaining time.Duration, err error)
	Reset(ctx context.Context, key string) error
}

type Guard struct {
	store     Store
	threshold int
	window    time.Duration
}

func NewGuard(store Store, threshold int, window time.Duration) *Guard {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Guard{store: store, threshold: threshold, window: window}
}

// Key builds the counter key for an identifier attempted in realm.
// Identifiers are compared exactly, like the account lookup itself.
func Key(realm Realm, identifier string) string {
	return string(realm) + ":" + strings.TrimSpace(identifier)
}

// AccountKey counts attempts against one account whichever identifier
// (username, email, account number) named it.
func AccountKey(realm Realm, accountID string) string {
	return string(realm) + ":account:" + accountID
}

// Acquire reserves one attempt on key before the password is checked. The
// attempt stays counted as a failure until RecordSuccess clears the key, so
// concurrent requests cannot all slip past a stale read.
func (g *Guard) Acquire(ctx context.Context, key string) error {
	count, remaining, err := g.store.Increment(ctx, key, g.window)
	if err != nil {
		return fmt.Errorf("%w: brute-force store: %v", common.ErrorInternal, err)
	}
	if count > g.threshold {
		return &common.TooManyAttemptsError{RetryAfter: remaining}
	}
	return nil
}

// CheckAllowed returns a *common.TooManyAttemptsError while key is locked.
// A store failure is reported as internal so the caller fails closed.
func (g *Guard) CheckAllowed(ctx context.Context, key string) error {
	count, remaining, err := g.store.Failures(ctx, key)
	if err != nil {
		return fmt.Errorf("%w: brute-force store: %v", common.ErrorInternal, err)
	}
	if count < g.threshold || remaining == 0 {
		return nil
	}
	// A counter without expiry stays locked for a full window.
	if remaining < 0 {
		remaining = g.window
	}
	return &common.TooManyAttemptsError{RetryAfter: remaining}
}

func (g *Guard) RecordFailure(ctx context.Context, key string) error {
	if _, _, err := g.store.Increment(ctx, key, g.window); err != nil {
		return fmt.Errorf("%w: brute-force store: %v", common.ErrorInternal, err)
	}
	return nil
}

func (g *Guard) RecordSuccess(ctx context.Context, key string) error {
	if err := g.store.Reset(ctx, key); err != nil {
		return fmt.Errorf("%w: brute-force store: %v", common.ErrorInternal, err)
	}
	return nil
}

func (g *Guard) Threshold() int        { return g.threshold }
func (g *Guard) Window() time.Duration { return g.window }
