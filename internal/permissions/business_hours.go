package permissions

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// HighValueThreshold is the amount above which approvals are limited to business hours.
var HighValueThreshold = decimal.NewFromInt(10_000_000)

// MsgOutsideBusinessHours is the refusal reason for high-value approvals out of hours.
const MsgOutsideBusinessHours = "High-value approvals (>₦10M) are restricted to business hours (Mon-Fri, 6 AM - 10 PM)"

// Decision is an allow/deny answer with an explicit reason on denial.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// BusinessHours is the window in which high-value approvals may happen.
type BusinessHours struct {
	Location  *time.Location
	StartHour int
	EndHour   int
}

// DefaultBusinessHours is Mon-Fri 06:00-22:00 in loc.
func DefaultBusinessHours(loc *time.Location) BusinessHours {
	if loc == nil {
		loc = time.UTC
	}
	return BusinessHours{Location: loc, StartHour: 6, EndHour: 22}
}

// NewBusinessHours builds a window from a tz database name.
func NewBusinessHours(timezone string, startHour, endHour int) (BusinessHours, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return BusinessHours{}, fmt.Errorf("load business hours timezone %q: %w", timezone, err)
	}
	if startHour < 0 || endHour > 24 || startHour >= endHour {
		return BusinessHours{}, fmt.Errorf("invalid business hours %d-%d", startHour, endHour)
	}
	return BusinessHours{Location: loc, StartHour: startHour, EndHour: endHour}, nil
}

// Within reports whether now falls on a weekday inside [StartHour, EndHour).
func (b BusinessHours) Within(now time.Time) bool {
	local := now.In(b.Location)
	switch local.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	h := local.Hour()
	return h >= b.StartHour && h < b.EndHour
}

// CanApproveHighValue gates amounts above HighValueThreshold on business hours.
func (b BusinessHours) CanApproveHighValue(amount decimal.Decimal, now time.Time) Decision {
	if amount.LessThanOrEqual(HighValueThreshold) {
		return Decision{Allowed: true}
	}
	if b.Within(now) {
		return Decision{Allowed: true}
	}
	return Decision{Allowed: false, Reason: MsgOutsideBusinessHours}
}
