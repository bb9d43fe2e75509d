package service

import (
	"context"
	"strings"
	"time"

	"groupgate/internal/config"
	"groupgate/internal/domain"
	"groupgate/internal/logger"
)

// policyEngine evaluates one join request against the configured rules.
// All fields are fixed at construction, so a single engine may serve
// concurrent requests; the only suspension points are the configured
// delay and the verifier's store call, and no lock is held across either.
type policyEngine struct {
	acceptKeywords           []string
	rejectKeywords           []string
	autoAccept               bool
	autoReject               bool
	rejectReason             string
	delay                    time.Duration
	useVerificationCode      bool
	priorityVerificationCode bool
	verifier                 Verifier
}

// NewPolicyEngine builds an engine from a policy config. Keyword lists
// are lowercased and empty entries dropped here; an empty substring
// matches every comment, so letting one through would approve or reject
// everything.
func NewPolicyEngine(cfg config.PolicyConfig, verifier Verifier) PolicyEngine {
	rejectReason := strings.TrimSpace(cfg.RejectReason)
	if rejectReason == "" {
		rejectReason = config.DefaultRejectReason
	}

	delay := time.Duration(cfg.DelaySeconds) * time.Second
	if delay < 0 {
		delay = 0
	}

	return &policyEngine{
		acceptKeywords:           normalizeKeywords(cfg.AcceptKeywords),
		rejectKeywords:           normalizeKeywords(cfg.RejectKeywords),
		autoAccept:               cfg.AutoAccept,
		autoReject:               cfg.AutoReject,
		rejectReason:             rejectReason,
		delay:                    delay,
		useVerificationCode:      cfg.UseVerificationCode,
		priorityVerificationCode: cfg.PriorityVerificationCode,
		verifier:                 verifier,
	}
}

func normalizeKeywords(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		out = append(out, kw)
	}
	return out
}

// Decide runs the rule chain in order; the first rule that fires is
// terminal. Identical inputs against identical store state produce the
// same decision.
func (e *policyEngine) Decide(ctx context.Context, req *domain.JoinRequest) domain.Decision {
	if req == nil || req.RequestID == "" {
		logger.Warn("Join request without correlation handle, deferring",
			"group_id", reqGroup(req), "applicant_id", reqApplicant(req))
		return domain.Decision{Action: domain.ActionDefer, Reason: "missing request id"}
	}

	if e.delay > 0 {
		logger.Info("Delaying decision", "request_id", req.RequestID, "delay", e.delay)
		select {
		case <-time.After(e.delay):
		case <-ctx.Done():
			return domain.Decision{Action: domain.ActionDefer, Reason: "decision canceled"}
		}
	}

	if e.autoAccept {
		return domain.Decision{Action: domain.ActionApprove, Reason: "auto-accept enabled"}
	}
	if e.autoReject {
		return domain.Decision{Action: domain.ActionReject, Reason: e.rejectReason}
	}

	codePath := false
	carriedReason := ""
	if e.useVerificationCode {
		codePath = true
		outcome := e.verifier.Verify(ctx, req.GroupID, req.ApplicantID, req.Comment)
		switch outcome.Status {
		case domain.VerifyApproved:
			return domain.Decision{Action: domain.ActionApprove, Reason: "verification code redeemed"}
		case domain.VerifyUnavailable:
			// Fail closed. An unreachable store must never turn into a
			// silent approval.
			return domain.Decision{Action: domain.ActionReject, Reason: "verification unavailable"}
		case domain.VerifyRejected:
			if e.priorityVerificationCode {
				return domain.Decision{Action: domain.ActionReject, Reason: outcome.Reason}
			}
			carriedReason = outcome.Reason
		}
	}

	comment := strings.ToLower(req.Comment)
	for _, kw := range e.rejectKeywords {
		if strings.Contains(comment, kw) {
			return domain.Decision{Action: domain.ActionReject, Reason: e.rejectReason}
		}
	}
	for _, kw := range e.acceptKeywords {
		if strings.Contains(comment, kw) {
			return domain.Decision{Action: domain.ActionApprove, Reason: "accept keyword matched"}
		}
	}

	if codePath {
		if carriedReason == "" {
			carriedReason = "no valid code provided"
		}
		return domain.Decision{Action: domain.ActionReject, Reason: carriedReason}
	}
	return domain.Decision{Action: domain.ActionDefer, Reason: "no rule matched; awaiting manual review"}
}

func reqGroup(req *domain.JoinRequest) string {
	if req == nil {
		return ""
	}
	return req.GroupID
}

func reqApplicant(req *domain.JoinRequest) string {
	if req == nil {
		return ""
	}
	return req.ApplicantID
}
