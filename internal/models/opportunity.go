// internal/models/opportunity.go
package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// CollectionOpportunities holds investable offers.
const CollectionOpportunities = "opportunities"

// DeadlineLayout is the DD-MM-YYYY layout used for campaign deadlines.
const DeadlineLayout = "02-01-2006"

type OpportunityStatus string

const (
	OpportunityActive    OpportunityStatus = "active"
	OpportunityFunded    OpportunityStatus = "funded"
	OpportunityExpired   OpportunityStatus = "expired"
	OpportunityCancelled OpportunityStatus = "cancelled"
)

// Opportunity is an approved application opened for investor funding.
type Opportunity struct {
	ID                string            `json:"id"`
	ApplicationID     string            `json:"applicationId,omitempty"`
	BusinessName      string            `json:"businessName,omitempty"`
	ContractType      ContractType      `json:"contractType"`
	FundingGoal       decimal.Decimal   `json:"fundingGoal"`
	CurrentFunding    decimal.Decimal   `json:"currentFunding"`
	MinimumInvestment decimal.Decimal   `json:"minimumInvestment"`
	ExpectedReturnMin decimal.Decimal   `json:"expectedReturnMin"`
	ExpectedReturnMax decimal.Decimal   `json:"expectedReturnMax"`
	TermMonths        int               `json:"termMonths"`
	CampaignDeadline  string            `json:"campaignDeadline"`
	InvestorCount     int               `json:"investorCount"`
	Status            OpportunityStatus `json:"status"`
	LastInvestmentID  string            `json:"lastInvestmentId,omitempty"`
	UpdatedAt         time.Time         `json:"updatedAt"`
}

// Remaining is fundingGoal - currentFunding.
func (o Opportunity) Remaining() decimal.Decimal {
	return o.FundingGoal.Sub(o.CurrentFunding)
}

// Deadline parses CampaignDeadline as a date in loc.
func (o Opportunity) Deadline(loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(DeadlineLayout, o.CampaignDeadline, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse campaign deadline %q: %w", o.CampaignDeadline, err)
	}
	return t, nil
}

// Credit adds a funded investment and flips the status to funded once the goal is reached.
func (o *Opportunity) Credit(amount decimal.Decimal, ref string, at time.Time) {
	o.CurrentFunding = o.CurrentFunding.Add(amount)
	o.InvestorCount++
	if o.CurrentFunding.GreaterThanOrEqual(o.FundingGoal) {
		o.Status = OpportunityFunded
	} else {
		o.Status = OpportunityActive
	}
	o.LastInvestmentID = ref
	o.UpdatedAt = at
}
