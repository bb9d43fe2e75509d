package onebot

import (
	"encoding/json"
	"time"

	"groupgate/internal/domain"
)

// rawEvent covers the OneBot event fields the moderation pipeline needs.
// Identifiers arrive as numbers from most gateways; json.Number keeps
// them lossless either way.
type rawEvent struct {
	PostType    string      `json:"post_type"`
	RequestType string      `json:"request_type"`
	SubType     string      `json:"sub_type"`
	Flag        string      `json:"flag"`
	GroupID     json.Number `json:"group_id"`
	UserID      json.Number `json:"user_id"`
	Comment     string      `json:"comment"`
}

// ParseJoinRequest decodes a pushed gateway event. The second return is
// false for anything that is not a group-join-add request; such events
// carry no side effect.
func ParseJoinRequest(body []byte) (*domain.JoinRequest, bool) {
	var ev rawEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, false
	}
	if ev.PostType != "request" || ev.RequestType != "group" || ev.SubType != "add" {
		return nil, false
	}
	return &domain.JoinRequest{
		RequestID:   ev.Flag,
		GroupID:     ev.GroupID.String(),
		ApplicantID: ev.UserID.String(),
		Comment:     ev.Comment,
		ReceivedOn:  time.Now(),
	}, true
}
