// Package quota tracks spending of the remote service's daily unit budget.
//
// The [Gate] keeps no state of its own: usage lives in a per-day ledger keyed by
// the calendar day in America/Los_Angeles, where the YouTube budget resets.
package quota

import (
	"context"
	"fmt"
	"math"
	"time"
	_ "time/tzdata"
)

// Unit costs of the remote calls a sync makes.
const (
	CostCreatePlaylist = 50
	CostAddVideo       = 50
	CostDeletePlaylist = 50
)

// DefaultDailyLimit is the budget of a fresh YouTube Data API project.
const DefaultDailyLimit = 10000

const dayLayout = "2006-01-02"

// Ledger stores units spent per day.
type Ledger interface {
	Add(day string, units int) error
	Used(day string) (int, error)
}

// Gate answers how much of today's budget remains and records what is spent.
type Gate struct {
	ledger Ledger
	limit  int
	loc    *time.Location
	now    func() time.Time
}

// NewGate creates a gate with dailyLimit units per Pacific day.
func NewGate(ledger Ledger, dailyLimit int) *Gate {
	if dailyLimit <= 0 {
		dailyLimit = DefaultDailyLimit
	}

	loc, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		loc = time.FixedZone("PST", -8*60*60)
	}

	return &Gate{ledger: ledger, limit: dailyLimit, loc: loc, now: time.Now}
}

// WithClock replaces the gate's time source.
func (g *Gate) WithClock(now func() time.Time) *Gate {
	g.now = now
	return g
}

// Limit returns the daily budget.
func (g *Gate) Limit() int {
	return g.limit
}

// Day returns the ledger key for t.
func (g *Gate) Day(t time.Time) string {
	return t.In(g.loc).Format(dayLayout)
}

// Used returns the units spent today.
func (g *Gate) Used(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	used, err := g.ledger.Used(g.Day(g.now()))
	if err != nil {
		return 0, fmt.Errorf("failed to read quota ledger: %w", err)
	}
	return used, nil
}

// Remaining returns today's unspent units, never below zero.
func (g *Gate) Remaining(ctx context.Context) (int, error) {
	used, err := g.Used(ctx)
	if err != nil {
		return 0, err
	}
	return max(g.limit-used, 0), nil
}

// Spend records units against today's budget.
func (g *Gate) Spend(ctx context.Context, units int) error {
	if units <= 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := g.ledger.Add(g.Day(g.now()), units); err != nil {
		return fmt.Errorf("failed to record quota spend: %w", err)
	}
	return nil
}

// ResetAt returns the next time the budget replenishes.
func (g *Gate) ResetAt() time.Time {
	now := g.now().In(g.loc)
	return time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, g.loc)
}

// Estimate returns the units a full sync of the given library would spend.
func Estimate(categories, videos, playlists int) int {
	return categories*CostCreatePlaylist + videos*CostAddVideo + playlists*CostDeletePlaylist
}

// EstimateDays returns how many days of budget units needs when each day stops at threshold.
func EstimateDays(units, dailyLimit, threshold int) float64 {
	usable := dailyLimit - threshold
	if usable <= 0 {
		return math.Inf(1)
	}
	return math.Ceil(float64(units)/float64(usable)*10) / 10
}
