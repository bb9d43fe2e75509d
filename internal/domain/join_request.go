package domain

import "time"

type Action string

const (
	ActionApprove Action = "APPROVE"
	ActionReject  Action = "REJECT"
	ActionDefer   Action = "DEFER"
)

// JoinRequest is a single group-join application delivered by the bot
// gateway. RequestID is the gateway's correlation handle and must be
// carried back unchanged on the approve/reject callback.
type JoinRequest struct {
	RequestID   string    `json:"request_id"`
	GroupID     string    `json:"group_id"`
	ApplicantID string    `json:"applicant_id"`
	Comment     string    `json:"comment"`
	ReceivedOn  time.Time `json:"received_on"`
}

// Decision is the terminal disposition of one join request. A Defer
// triggers no gateway callback; the request is left for manual review.
type Decision struct {
	Action Action `json:"action"`
	Reason string `json:"reason,omitempty"`
}
