package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"groupgate/internal/config"
	"groupgate/internal/domain"
	"groupgate/internal/service"
)

type mockSink struct {
	mock.Mock
}

func (m *mockSink) Respond(ctx context.Context, requestID string, approve bool, reason string) error {
	args := m.Called(ctx, requestID, approve, reason)
	return args.Error(0)
}

type mockNotify struct {
	mock.Mock
}

func (m *mockNotify) NotifyDeferred(ctx context.Context, req *domain.JoinRequest, reason string) error {
	args := m.Called(ctx, req, reason)
	return args.Error(0)
}

func newEngine(cfg config.PolicyConfig) service.PolicyEngine {
	return service.NewPolicyEngine(cfg, nil)
}

func TestEventHandler_HandleEvent_IgnoresNonJoinEvents(t *testing.T) {
	sink := &mockSink{}
	handler := NewEventHandler(newEngine(config.PolicyConfig{AutoAccept: true}), sink, nil)

	bodies := []string{
		`{"post_type":"message","message":"hello"}`,
		`{"post_type":"request","request_type":"friend","flag":"f1"}`,
		`{"post_type":"request","request_type":"group","sub_type":"invite","flag":"f1"}`,
		`not json at all`,
	}
	for _, body := range bodies {
		req := httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(body))
		rec := httptest.NewRecorder()
		handler.HandleEvent(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	}

	// No decision pipeline ran, so no callback fired.
	sink.AssertNotCalled(t, "Respond", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestEventHandler_Process(t *testing.T) {
	ctx := context.Background()
	req := &domain.JoinRequest{
		RequestID:   "flag-1",
		GroupID:     "g1",
		ApplicantID: "u1",
		Comment:     "hello",
		ReceivedOn:  time.Now(),
	}

	t.Run("ApproveCallsSink", func(t *testing.T) {
		sink := &mockSink{}
		sink.On("Respond", mock.Anything, "flag-1", true, "").Return(nil)

		handler := NewEventHandler(newEngine(config.PolicyConfig{AutoAccept: true}), sink, nil)
		d := handler.Process(ctx, req, "g1")
		assert.Equal(t, domain.ActionApprove, d.Action)
		sink.AssertExpectations(t)
	})

	t.Run("RejectCarriesReason", func(t *testing.T) {
		sink := &mockSink{}
		sink.On("Respond", mock.Anything, "flag-1", false, "not today").Return(nil)

		handler := NewEventHandler(newEngine(config.PolicyConfig{
			AutoReject:   true,
			RejectReason: "not today",
		}), sink, nil)
		d := handler.Process(ctx, req, "g1")
		assert.Equal(t, domain.ActionReject, d.Action)
		sink.AssertExpectations(t)
	})

	t.Run("DeferNotifiesModeratorWithoutCallback", func(t *testing.T) {
		sink := &mockSink{}
		notify := &mockNotify{}
		notify.On("NotifyDeferred", mock.Anything, req, mock.Anything).Return(nil)

		handler := NewEventHandler(newEngine(config.PolicyConfig{}), sink, notify)
		d := handler.Process(ctx, req, "g1")
		assert.Equal(t, domain.ActionDefer, d.Action)
		sink.AssertNotCalled(t, "Respond", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		notify.AssertExpectations(t)
	})

	t.Run("SinkFailureIsLoggedNotRetried", func(t *testing.T) {
		sink := &mockSink{}
		sink.On("Respond", mock.Anything, "flag-1", true, "").Return(assert.AnError).Once()

		handler := NewEventHandler(newEngine(config.PolicyConfig{AutoAccept: true}), sink, nil)
		d := handler.Process(ctx, req, "g1")
		assert.Equal(t, domain.ActionApprove, d.Action)
		sink.AssertExpectations(t)
	})

	t.Run("MissingRequestIDDefersSilently", func(t *testing.T) {
		sink := &mockSink{}
		notify := &mockNotify{}

		anon := *req
		anon.RequestID = ""
		handler := NewEventHandler(newEngine(config.PolicyConfig{AutoAccept: true}), sink, notify)
		d := handler.Process(ctx, &anon, "g1")
		assert.Equal(t, domain.ActionDefer, d.Action)
		sink.AssertNotCalled(t, "Respond", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		notify.AssertNotCalled(t, "NotifyDeferred", mock.Anything, mock.Anything, mock.Anything)
	})
}
