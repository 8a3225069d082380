// Package ratelimit counts attempts per key in fixed windows. A key's window
// opens on its first attempt and closes Window later.
package ratelimit

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Rule bounds a key to Max attempts per Window.
type Rule struct {
	Name   string
	Max    int
	Window time.Duration
}

// Decision is the result of one attempt.
type Decision struct {
	Allowed   bool          `json:"allowed"`
	Remaining int           `json:"remaining"`
	ResetIn   time.Duration `json:"resetIn"`
}

// Limiter is implemented by the in-memory and Redis limiters.
type Limiter interface {
	Allow(ctx context.Context, key string, rule Rule) (Decision, error)
	Reset(ctx context.Context, key string) error
}

// APIRule limits read endpoints per caller, keyed with APIKey.
var APIRule = Rule{Name: "api", Max: 60, Window: time.Minute}

// InvestRule limits investment attempts per investor.
func InvestRule(max int, window time.Duration) Rule {
	if max <= 0 {
		max = 10
	}
	if window <= 0 {
		window = time.Minute
	}
	return Rule{Name: "invest", Max: max, Window: window}
}

func APIKey(endpoint, userID string) string { return "api:" + endpoint + ":" + userID }

func InvestKey(investorID string) string { return "invest:" + investorID }

// FormatWait renders a wait for display, rounding up to whole seconds below
// a minute and whole minutes above.
func FormatWait(d time.Duration) string {
	seconds := int(math.Ceil(d.Seconds()))
	if seconds < 0 {
		seconds = 0
	}
	if seconds < 60 {
		return plural(seconds, "second")
	}
	return plural(int(math.Ceil(float64(seconds)/60)), "minute")
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
