package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"groupgate/internal/domain"
	"groupgate/internal/gateway"
	"groupgate/internal/gateway/onebot"
	"groupgate/internal/logger"
	"groupgate/internal/service"
)

// EventHandler receives pushed gateway events and runs the decision
// pipeline. Each join request gets its own goroutine; the gateway's
// push call is acknowledged immediately.
type EventHandler struct {
	engine service.PolicyEngine
	sink   gateway.ApprovalSink
	notify service.NotifyService // nil disables moderator notification
}

func NewEventHandler(engine service.PolicyEngine, sink gateway.ApprovalSink, notify service.NotifyService) *EventHandler {
	return &EventHandler{
		engine: engine,
		sink:   sink,
		notify: notify,
	}
}

// HandleEvent ingests one pushed event. Anything that is not a
// group-join-add request is acknowledged and dropped with no side
// effect.
func (h *EventHandler) HandleEvent(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	req, ok := onebot.ParseJoinRequest(body)
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	var raw map[string]any
	_ = json.Unmarshal(body, &raw)
	sessionID := gateway.ResolveSessionID(raw)

	logger.WithRequest(req.RequestID, sessionID).Info("Received group join request",
		"group_id", req.GroupID, "applicant_id", req.ApplicantID, "comment", req.Comment)

	// The gateway's push connection must not be held open for the
	// decision delay, so the pipeline runs detached.
	go h.Process(context.Background(), req, sessionID)

	w.WriteHeader(http.StatusNoContent)
}

// Process runs one decision pipeline to completion and executes the
// resulting callback. Callback failures are logged and never retried;
// retry is a gateway-side policy choice.
func (h *EventHandler) Process(ctx context.Context, req *domain.JoinRequest, sessionID string) domain.Decision {
	log := logger.WithRequest(req.RequestID, sessionID)

	decision := h.engine.Decide(ctx, req)
	log.Info("Join request decided", "action", decision.Action, "reason", decision.Reason,
		"group_id", req.GroupID, "applicant_id", req.ApplicantID)

	switch decision.Action {
	case domain.ActionApprove:
		if err := h.sink.Respond(ctx, req.RequestID, true, ""); err != nil {
			log.Error("Approve callback failed", "error", err)
		}
	case domain.ActionReject:
		if err := h.sink.Respond(ctx, req.RequestID, false, decision.Reason); err != nil {
			log.Error("Reject callback failed", "error", err)
		}
	case domain.ActionDefer:
		if req.RequestID != "" && h.notify != nil {
			if err := h.notify.NotifyDeferred(ctx, req, decision.Reason); err != nil {
				log.Error("Moderator notification failed", "error", err)
			}
		}
	}
	return decision
}
