// Package tokenstore persists session tokens in two tiers: an ephemeral tier
// that lives as long as the process and a durable tier that survives
// restarts.
package tokenstore

import (
	"context"

	"github.com/jrsteele09/go-jwt-session/internal/errors"
)

// Tier selects which store a token is written to.
type Tier int

const (
	// Ephemeral tokens are lost when the process exits.
	Ephemeral Tier = iota
	// Durable tokens are kept until explicitly cleared ("remember me").
	Durable
)

func (t Tier) String() string {
	switch t {
	case Ephemeral:
		return "ephemeral"
	case Durable:
		return "durable"
	default:
		return "unknown"
	}
}

// TierFor maps a login's remember-me flag onto a tier.
func TierFor(remember bool) Tier {
	if remember {
		return Durable
	}
	return Ephemeral
}

// Store is a string key/value store. Get returns errors.ErrNotFound for a
// missing key; Delete of a missing key is not an error.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Tiers pairs the two stores. Readers check Durable first and take the first
// non-empty value; values are never merged across tiers.
type Tiers struct {
	Ephemeral Store
	Durable   Store
}

func (t Tiers) store(tier Tier) Store {
	if tier == Durable {
		return t.Durable
	}
	return t.Ephemeral
}

// Read returns the value for key and the tier it came from, or
// errors.ErrNotFound when neither tier holds it.
func (t Tiers) Read(ctx context.Context, key string) (string, Tier, error) {
	var lastErr error
	for _, tier := range []Tier{Durable, Ephemeral} {
		s := t.store(tier)
		if s == nil {
			continue
		}
		value, err := s.Get(ctx, key)
		if err != nil {
			if !errors.Is(err, errors.ErrNotFound) {
				lastErr = errors.Wrapf(err, "Tiers.Read %s %s", tier, key)
			}
			continue
		}
		if value != "" {
			return value, tier, nil
		}
	}
	if lastErr != nil {
		return "", Ephemeral, lastErr
	}
	return "", Ephemeral, errors.ErrNotFound
}

// Write stores value under key in tier only.
func (t Tiers) Write(ctx context.Context, tier Tier, key, value string) error {
	s := t.store(tier)
	if s == nil {
		return errors.Wrapf(errors.ErrInternal, "Tiers.Write: no %s store", tier)
	}
	return errors.Wrapf(s.Set(ctx, key, value), "Tiers.Write %s %s", tier, key)
}

// Remove deletes every key from both tiers, attempting all deletes even when
// some fail.
func (t Tiers) Remove(ctx context.Context, keys ...string) error {
	var errs []error
	for _, tier := range []Tier{Durable, Ephemeral} {
		s := t.store(tier)
		if s == nil {
			continue
		}
		for _, key := range keys {
			if err := s.Delete(ctx, key); err != nil {
				errs = append(errs, errors.Wrapf(err, "Tiers.Remove %s %s", tier, key))
			}
		}
	}
	return errors.Join(errs...)
}
