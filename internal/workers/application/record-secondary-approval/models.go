package recordsecondaryapproval

type Input struct {
	ApplicationID string `json:"applicationId" validate:"required"`
	AdminID       string `json:"adminId" validate:"required"`
	Approve       bool   `json:"approve"`
	Notes         string `json:"notes,omitempty" validate:"max=2000"`
}

type Output struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	ErrorCode string `json:"errorCode,omitempty"`
	Status    string `json:"status,omitempty"`
	Approved  bool   `json:"approved"`
}
