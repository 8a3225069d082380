package assignment

import (
	"context"
	"time"

	"financing-workers/internal/models"
)

type SLAState string

const (
	SLAOnTime    SLAState = "on_time"
	SLADueSoon   SLAState = "due_soon"
	SLAOverdue   SLAState = "overdue"
	SLACompleted SLAState = "completed"
)

type SLAStatus struct {
	State SLAState `json:"state"`
	// Remaining is negative once overdue.
	Remaining time.Duration `json:"remaining"`
	// Late is set for completed assignments closed after their due date.
	Late bool `json:"late,omitempty"`
}

// CheckSLAStatus classifies an assignment against its due date at now.
func CheckSLAStatus(a models.Assignment, now time.Time) SLAStatus {
	if a.Status == models.AssignmentCompleted && a.CompletedAt != nil {
		return SLAStatus{
			State:     SLACompleted,
			Remaining: a.DueDate.Sub(*a.CompletedAt),
			Late:      a.CompletedAt.After(a.DueDate),
		}
	}
	remaining := a.DueDate.Sub(now)
	switch {
	case remaining < 0:
		return SLAStatus{State: SLAOverdue, Remaining: remaining}
	case remaining < DueSoonWindow:
		return SLAStatus{State: SLADueSoon, Remaining: remaining}
	}
	return SLAStatus{State: SLAOnTime, Remaining: remaining}
}

// SLA loads the application's assignment and classifies it.
func (s *Service) SLA(ctx context.Context, applicationID string) (SLAStatus, error) {
	a, _, err := s.load(ctx, applicationID)
	if err != nil {
		return SLAStatus{}, err
	}
	return CheckSLAStatus(*a, s.now()), nil
}

type Workload struct {
	AdminID     string      `json:"adminId"`
	Name        string      `json:"name"`
	Role        models.Role `json:"role"`
	Current     int         `json:"current"`
	Capacity    int         `json:"capacity"`
	Utilization float64     `json:"utilization"`
	Available   bool        `json:"available"`
}

type WorkloadSummary struct {
	Reviewers     []Workload `json:"reviewers"`
	TotalCurrent  int        `json:"totalCurrent"`
	TotalCapacity int        `json:"totalCapacity"`
	Available     int        `json:"available"`
}

// WorkloadStats reports every eligible reviewer's load, lowest first.
func (s *Service) WorkloadStats(ctx context.Context) (*WorkloadSummary, error) {
	reviewers, err := s.eligible(ctx, "")
	if err != nil {
		return nil, err
	}
	sum := &WorkloadSummary{Reviewers: make([]Workload, 0, len(reviewers))}
	for _, r := range reviewers {
		capacity := r.Capacity()
		w := Workload{
			AdminID:     r.ID,
			Name:        r.Name,
			Role:        r.Role,
			Current:     r.CurrentWorkload,
			Capacity:    capacity,
			Utilization: float64(r.CurrentWorkload) / float64(capacity),
			Available:   r.CurrentWorkload < capacity,
		}
		sum.Reviewers = append(sum.Reviewers, w)
		sum.TotalCurrent += w.Current
		sum.TotalCapacity += capacity
		if w.Available {
			sum.Available++
		}
	}
	return sum, nil
}
