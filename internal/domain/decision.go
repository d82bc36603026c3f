package domain

import (
	"fmt"
	"strings"
)

// Status is the decision outcome of an assessment.
type Status string

const (
	StatusApproved     Status = "Approved"
	StatusManualReview Status = "ManualReview"
	StatusRejected     Status = "Rejected"
)

// Decision thresholds. Scores at or above ApproveThreshold are approved, scores
// at or above ReviewThreshold go to manual review, everything else is rejected.
const (
	ApproveThreshold = 700
	ReviewThreshold  = 500
)

// Decide maps a score to a status. Pure and total: no clamping for negative or
// out-of-range scores.
func Decide(score int) Status {
	switch {
	case score >= ApproveThreshold:
		return StatusApproved
	case score >= ReviewThreshold:
		return StatusManualReview
	default:
		return StatusRejected
	}
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusApproved, StatusManualReview, StatusRejected:
		return true
	}
	return false
}

// Severity orders statuses from least (Rejected) to most favourable (Approved).
// Unknown statuses return -1.
func (s Status) Severity() int {
	switch s {
	case StatusRejected:
		return 0
	case StatusManualReview:
		return 1
	case StatusApproved:
		return 2
	}
	return -1
}

// ParseStatus accepts the canonical spelling case-insensitively, plus the
// snake_case form used by some clients ("manual_review").
func ParseStatus(s string) (Status, error) {
	norm := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "_", ""))
	switch norm {
	case "approved":
		return StatusApproved, nil
	case "manualreview":
		return StatusManualReview, nil
	case "rejected":
		return StatusRejected, nil
	}
	return "", fmt.Errorf("%w: unknown status %q", ErrInvalidArgument, s)
}
