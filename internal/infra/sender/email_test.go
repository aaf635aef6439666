package sender

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"adhera-notify/internal/domain/entity"
)

func testRecord(channel entity.Channel) *entity.NotificationRecord {
	return &entity.NotificationRecord{
		ID:       "notif-1",
		Channel:  channel,
		Type:     entity.TypeMedicationReminder,
		Title:    "Time for your medication",
		Body:     "Take 1 tablet of Metformin 500mg.",
		Priority: entity.PriorityMedium,
		Status:   entity.StatusPending,
	}
}

func testRecipient() *entity.Recipient {
	return &entity.Recipient{
		ID:    "user-1",
		Email: "pat@example.com",
		Phone: "+15550100",
	}
}

func newTestEmailSender(serverURL string) *EmailSender {
	return NewEmailSender(EmailConfig{
		Enabled:     true,
		APIKey:      "test-key",
		BaseURL:     serverURL,
		FromAddress: "care@adhera.example",
		FromName:    "Adhera Care",
		Timeout:     5 * time.Second,
	})
}

func TestEmailSender_Send_Accepted(t *testing.T) {
	var gotAuth string
	var gotPayload emailPayload

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotPayload)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id":"em-123"}`))
	}))
	defer server.Close()

	s := newTestEmailSender(server.URL)
	out := s.Send(context.Background(), &DeliveryRequest{
		Record:    testRecord(entity.ChannelEmail),
		Recipient: testRecipient(),
	})

	if out.Status != Accepted {
		t.Fatalf("expected Accepted, got %v (%s)", out.Status, out.Reason)
	}
	if out.ProviderMessageID != "em-123" {
		t.Errorf("expected provider message id em-123, got %q", out.ProviderMessageID)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("expected bearer auth header, got %q", gotAuth)
	}
	if len(gotPayload.To) != 1 || gotPayload.To[0] != "pat@example.com" {
		t.Errorf("unexpected recipients %v", gotPayload.To)
	}
	if gotPayload.Subject != "Time for your medication" {
		t.Errorf("unexpected subject %q", gotPayload.Subject)
	}
}

func TestEmailSender_Send_NoAddress(t *testing.T) {
	s := newTestEmailSender("http://unused.invalid")

	out := s.Send(context.Background(), &DeliveryRequest{
		Record:    testRecord(entity.ChannelEmail),
		Recipient: &entity.Recipient{ID: "user-2"},
	})

	if out.Status != Rejected {
		t.Fatalf("expected Rejected for missing address, got %v", out.Status)
	}
}

func TestEmailSender_Send_ClientErrorRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":"invalid recipient"}`))
	}))
	defer server.Close()

	s := newTestEmailSender(server.URL)
	out := s.Send(context.Background(), &DeliveryRequest{
		Record:    testRecord(entity.ChannelEmail),
		Recipient: testRecipient(),
	})

	if out.Status != Rejected {
		t.Fatalf("expected Rejected on 422, got %v", out.Status)
	}
	if out.Reason == "" {
		t.Error("expected rejection reason from provider body")
	}
}

func TestEmailSender_Send_ServerErrorTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	s := newTestEmailSender(server.URL)
	out := s.Send(context.Background(), &DeliveryRequest{
		Record:    testRecord(entity.ChannelEmail),
		Recipient: testRecipient(),
	})

	if out.Status != TransientFailure {
		t.Fatalf("expected TransientFailure on 502, got %v", out.Status)
	}
}

func TestEmailSender_Send_RateLimitTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "12")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	s := newTestEmailSender(server.URL)
	out := s.Send(context.Background(), &DeliveryRequest{
		Record:    testRecord(entity.ChannelEmail),
		Recipient: testRecipient(),
	})

	if out.Status != TransientFailure {
		t.Fatalf("expected TransientFailure on 429, got %v", out.Status)
	}
}

func TestEmailSender_Send_MissingMessageIDTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	s := newTestEmailSender(server.URL)
	out := s.Send(context.Background(), &DeliveryRequest{
		Record:    testRecord(entity.ChannelEmail),
		Recipient: testRecipient(),
	})

	if out.Status != TransientFailure {
		t.Fatalf("expected TransientFailure when provider omits message id, got %v", out.Status)
	}
}

func TestEmailSender_Enabled(t *testing.T) {
	s := NewEmailSender(EmailConfig{Enabled: true})
	if s.Enabled() {
		t.Error("sender without API key should not be enabled")
	}

	s = NewEmailSender(EmailConfig{Enabled: true, APIKey: "k", FromAddress: "care@adhera.example"})
	if !s.Enabled() {
		t.Error("fully configured sender should be enabled")
	}
}
