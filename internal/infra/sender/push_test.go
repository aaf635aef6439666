package sender

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"adhera-notify/internal/domain/entity"
)

func newTestPushSender() *PushSender {
	return NewPushSender(PushConfig{
		Enabled:   true,
		AuthToken: "push-token",
		TTL:       time.Hour,
		Timeout:   5 * time.Second,
	})
}

func pushRecipient(endpoints ...entity.PushSubscription) *entity.Recipient {
	return &entity.Recipient{
		ID:                "user-1",
		PushSubscriptions: endpoints,
	}
}

func TestPushSender_Send_Accepted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("TTL"); got != "3600" {
			t.Errorf("expected TTL header 3600, got %q", got)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	s := newTestPushSender()
	out := s.Send(context.Background(), &DeliveryRequest{
		Record: testRecord(entity.ChannelPush),
		Recipient: pushRecipient(
			entity.PushSubscription{ID: "sub-1", Endpoint: server.URL, Active: true},
		),
	})

	if out.Status != Accepted {
		t.Fatalf("expected Accepted, got %v (%s)", out.Status, out.Reason)
	}
	if !strings.HasPrefix(out.ProviderMessageID, "push-") {
		t.Errorf("expected synthesized push correlation id, got %q", out.ProviderMessageID)
	}
	if len(out.StaleSubscriptionIDs) != 0 {
		t.Errorf("expected no stale subscriptions, got %v", out.StaleSubscriptionIDs)
	}
}

func TestPushSender_Send_GoneEndpointReportedStale(t *testing.T) {
	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	defer ok.Close()

	gone := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
	}))
	defer gone.Close()

	s := newTestPushSender()
	out := s.Send(context.Background(), &DeliveryRequest{
		Record: testRecord(entity.ChannelPush),
		Recipient: pushRecipient(
			entity.PushSubscription{ID: "sub-ok", Endpoint: ok.URL, Active: true},
			entity.PushSubscription{ID: "sub-gone", Endpoint: gone.URL, Active: true},
		),
	})

	if out.Status != Accepted {
		t.Fatalf("expected Accepted when one endpoint succeeds, got %v", out.Status)
	}
	if len(out.StaleSubscriptionIDs) != 1 || out.StaleSubscriptionIDs[0] != "sub-gone" {
		t.Errorf("expected sub-gone reported stale, got %v", out.StaleSubscriptionIDs)
	}
}

func TestPushSender_Send_AllGoneRejected(t *testing.T) {
	gone := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer gone.Close()

	s := newTestPushSender()
	out := s.Send(context.Background(), &DeliveryRequest{
		Record: testRecord(entity.ChannelPush),
		Recipient: pushRecipient(
			entity.PushSubscription{ID: "sub-1", Endpoint: gone.URL, Active: true},
			entity.PushSubscription{ID: "sub-2", Endpoint: gone.URL, Active: true},
		),
	})

	if out.Status != Rejected {
		t.Fatalf("expected Rejected when every endpoint is gone, got %v", out.Status)
	}
	if len(out.StaleSubscriptionIDs) != 2 {
		t.Errorf("expected both subscriptions reported stale, got %v", out.StaleSubscriptionIDs)
	}
}

func TestPushSender_Send_NoActiveSubscriptions(t *testing.T) {
	s := newTestPushSender()

	out := s.Send(context.Background(), &DeliveryRequest{
		Record: testRecord(entity.ChannelPush),
		Recipient: pushRecipient(
			entity.PushSubscription{ID: "sub-1", Endpoint: "https://push.example/ep", Active: false},
		),
	})

	if out.Status != Rejected {
		t.Fatalf("expected Rejected without active subscriptions, got %v", out.Status)
	}
}

func TestPushSender_Send_ServerErrorTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	s := newTestPushSender()
	out := s.Send(context.Background(), &DeliveryRequest{
		Record: testRecord(entity.ChannelPush),
		Recipient: pushRecipient(
			entity.PushSubscription{ID: "sub-1", Endpoint: server.URL, Active: true},
		),
	})

	if out.Status != TransientFailure {
		t.Fatalf("expected TransientFailure on 500, got %v", out.Status)
	}
}

func TestPushSender_Send_UrgencyHeaderForUrgent(t *testing.T) {
	var gotUrgency string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUrgency = r.Header.Get("Urgency")
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	record := testRecord(entity.ChannelPush)
	record.Priority = entity.PriorityUrgent

	s := newTestPushSender()
	out := s.Send(context.Background(), &DeliveryRequest{
		Record: record,
		Recipient: pushRecipient(
			entity.PushSubscription{ID: "sub-1", Endpoint: server.URL, Active: true},
		),
	})

	if out.Status != Accepted {
		t.Fatalf("expected Accepted, got %v", out.Status)
	}
	if gotUrgency != "high" {
		t.Errorf("expected Urgency header 'high' for urgent priority, got %q", gotUrgency)
	}
}
