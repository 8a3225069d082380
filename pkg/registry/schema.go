package registry

import (
	"fmt"
	"time"
)

// Categories group task types by the process they serve.
const (
	CategoryApplication   = "application"
	CategoryInvestment    = "investment"
	CategoryCommunication = "communication"
)

var knownCategories = map[string]bool{
	CategoryApplication:   true,
	CategoryInvestment:    true,
	CategoryCommunication: true,
}

const (
	StatusPlanned   = "planned"
	StatusCompleted = "completed"
)

// ActivityRegistry is the document stored in configs/activity-registry.json.
type ActivityRegistry struct {
	Version     string     `json:"version"`
	LastUpdated string     `json:"lastUpdated"`
	Activities  []Activity `json:"activities"`
}

// Activity describes one Zeebe task type: its variable contract, the error
// codes it may throw and the job timeout the process model expects.
type Activity struct {
	ID                   string                 `json:"id"`
	DisplayName          string                 `json:"displayName"`
	Description          string                 `json:"description"`
	Category             string                 `json:"category"`
	Version              string                 `json:"version"`
	TaskType             string                 `json:"taskType"`
	ImplementationStatus string                 `json:"implementationStatus"`
	InputSchema          map[string]interface{} `json:"inputSchema"`
	OutputSchema         map[string]interface{} `json:"outputSchema"`
	ErrorCodes           []string               `json:"errorCodes"`
	Timeout              string                 `json:"timeout"`
	Retries              int                    `json:"retries"`
	Workflows            []string               `json:"workflows"`
	Tags                 []string               `json:"tags"`
}

// JobTimeout parses Timeout ("30s", "2m"). An empty value returns zero.
func (a *Activity) JobTimeout() (time.Duration, error) {
	if a.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(a.Timeout)
	if err != nil {
		return 0, fmt.Errorf("activity %s timeout %q: %w", a.ID, a.Timeout, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("activity %s timeout %q must be positive", a.ID, a.Timeout)
	}
	return d, nil
}
