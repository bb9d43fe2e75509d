package onebot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"groupgate/internal/gateway"
)

type approvalPayload struct {
	Flag    string `json:"flag"`
	SubType string `json:"sub_type"`
	Approve bool   `json:"approve"`
	Reason  string `json:"reason,omitempty"`
}

type apiResponse struct {
	Status  string `json:"status"`
	Retcode int    `json:"retcode"`
}

// Sink calls set_group_add_request on a OneBot-compatible HTTP API.
type Sink struct {
	apiURL      string
	accessToken string
	client      *http.Client
}

func NewSink(apiURL, accessToken string, timeout time.Duration) *Sink {
	return &Sink{
		apiURL:      apiURL,
		accessToken: accessToken,
		client:      &http.Client{Timeout: timeout},
	}
}

func (s *Sink) Respond(ctx context.Context, requestID string, approve bool, reason string) error {
	if requestID == "" {
		return fmt.Errorf("request id is required")
	}

	payload := approvalPayload{
		Flag:    requestID,
		SubType: "add",
		Approve: approve,
	}
	if !approve {
		payload.Reason = reason
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.apiURL+"/set_group_add_request", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.accessToken)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("gateway call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}

	var out apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("malformed gateway response: %w", err)
	}
	if out.Status == "failed" || out.Retcode != 0 {
		return fmt.Errorf("gateway rejected the callback: status=%s retcode=%d", out.Status, out.Retcode)
	}
	return nil
}

// compile-time interface check
var _ gateway.ApprovalSink = (*Sink)(nil)
