package reconcileinvestment

// Input names a single investment, or none for a sweep of idle entries.
type Input struct {
	InvestmentID     string `json:"investmentId,omitempty"`
	OlderThanSeconds int    `json:"olderThanSeconds,omitempty" validate:"gte=0"`
}

type Output struct {
	Found        bool           `json:"found"`
	InvestmentID string         `json:"investmentId,omitempty"`
	FromStage    string         `json:"fromStage,omitempty"`
	Stage        string         `json:"stage,omitempty"`
	NeedsReview  bool           `json:"needsReview"`
	Examined     int            `json:"examined,omitempty"`
	Failed       int            `json:"failed,omitempty"`
	Outcomes     map[string]int `json:"outcomes,omitempty"`
}
