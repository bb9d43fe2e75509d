package service

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"groupgate/internal/domain"
)

type notifyService struct {
	apiKey         string
	fromEmail      string
	fromName       string
	moderatorEmail string
}

func NewNotifyService(apiKey, fromEmail, fromName, moderatorEmail string) NotifyService {
	return &notifyService{
		apiKey:         apiKey,
		fromEmail:      fromEmail,
		fromName:       fromName,
		moderatorEmail: moderatorEmail,
	}
}

// NotifyDeferred emails the moderator about a request the policy left
// for manual review. Best effort: the decision is already made and a
// delivery failure must not change it.
func (s *notifyService) NotifyDeferred(ctx context.Context, req *domain.JoinRequest, reason string) error {
	from := mail.NewEmail(s.fromName, s.fromEmail)
	recipient := mail.NewEmail("", s.moderatorEmail)

	subject := fmt.Sprintf("Join request awaiting review in group %s", req.GroupID)
	body := fmt.Sprintf(
		"Applicant %s asked to join group %s and no automatic rule applied.\n\nComment: %s\nReason: %s\n\nPlease review the request in the group admin panel.",
		req.ApplicantID, req.GroupID, req.Comment, reason)

	message := mail.NewSingleEmail(from, subject, recipient, body, "")

	client := sendgrid.NewSendClient(s.apiKey)
	response, err := client.Send(message)
	if err != nil {
		return fmt.Errorf("failed to send moderator notification: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("sendgrid error: status %d, body: %s", response.StatusCode, response.Body)
	}
	return nil
}
