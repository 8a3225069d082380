package validatestatustransition

// Actors
const (
	ActorAdmin    = "admin"
	ActorBusiness = "business"
)

type Input struct {
	CurrentStatus           string `json:"currentStatus" validate:"required"`
	ProposedStatus          string `json:"proposedStatus" validate:"required"`
	Actor                   string `json:"actor,omitempty" validate:"omitempty,oneof=admin business"`
	RejectionAllowsResubmit *bool  `json:"rejectionAllowsResubmit,omitempty"`
	HasRequiredDocuments    *bool  `json:"hasRequiredDocuments,omitempty"`
	DueDiligenceComplete    *bool  `json:"dueDiligenceComplete,omitempty"`
	HasRejectionReason      *bool  `json:"hasRejectionReason,omitempty"`
}

type Output struct {
	Valid                  bool     `json:"valid"`
	Error                  string   `json:"error,omitempty"`
	Warning                string   `json:"warning,omitempty"`
	IsResubmission         bool     `json:"isResubmission"`
	StatusLabel            string   `json:"statusLabel"`
	ValidNextStatuses      []string `json:"validNextStatuses"`
	IsTerminal             bool     `json:"isTerminal"`
	RequiresBusinessAction bool     `json:"requiresBusinessAction"`
}
