// Package cache stores computed group balances between writes.
package cache

import (
	"context"
	"math"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"github.com/yuv5120/SplitPay/internal/calculator"
)

// Entry is a cached summary tagged with the fingerprint of the snapshot it
// was computed from.
type Entry struct {
	Version string              `json:"version"`
	Summary *calculator.Summary `json:"summary"`
}

// BalanceCache holds the last computed summary for a group. Entries must be
// invalidated whenever the group's members or expenses change. Readers compare
// Entry.Version with the current snapshot, so an entry written by a reader
// that raced an invalidation is never served.
type BalanceCache interface {
	// Get returns the cached entry. ok is false on a miss.
	Get(ctx context.Context, groupID string) (entry *Entry, ok bool, err error)
	Set(ctx context.Context, groupID string, entry *Entry) error
	Invalidate(ctx context.Context, groupID string) error
}

// BalanceKey is the cache key for a group's balances.
func BalanceKey(groupID string) string {
	return "balances:group:" + groupID
}

// Fingerprint hashes everything a summary depends on: member IDs and names in
// order, and each expense's payer, amount and participants.
func Fingerprint(members []calculator.Member, expenses []calculator.Expense) string {
	d := xxhash.New()
	write := func(s string) {
		_, _ = d.WriteString(s)
		_, _ = d.Write([]byte{0})
	}

	write(strconv.Itoa(len(members)))
	for _, m := range members {
		write(m.ID)
		write(m.Name)
	}
	write(strconv.Itoa(len(expenses)))
	for _, e := range expenses {
		write(e.ID)
		write(e.PaidBy)
		write(strconv.FormatUint(math.Float64bits(e.Amount), 16))
		write(strconv.Itoa(len(e.Participants)))
		for _, p := range e.Participants {
			write(p)
		}
	}
	return strconv.FormatUint(d.Sum64(), 16)
}

// NopCache never stores anything. It is used when Redis is not configured.
type NopCache struct{}

var _ BalanceCache = NopCache{}

func (NopCache) Get(context.Context, string) (*Entry, bool, error) {
	return nil, false, nil
}

func (NopCache) Set(context.Context, string, *Entry) error { return nil }

func (NopCache) Invalidate(context.Context, string) error { return nil }
