package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mmeshcher/smartpark-system/internal/model"
)

func TestZones_OK(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Fatalf("method = %s, want GET", r.Method)
		}
		if r.URL.Path != "/api/zones" {
			t.Fatalf("path = %s, want /api/zones", r.URL.Path)
		}

		resp := zonesResponse{Zones: []Zone{
			{ID: 1, FreeSlots: 7, TotalSlots: 50, Status: "available"},
			{ID: 3, FreeSlots: 0, TotalSlots: 100, Status: "full"},
		}}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}))
	defer ts.Close()

	client := NewClient(ts.URL)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	zones, err := client.Zones(ctx)
	if err != nil {
		t.Fatalf("Zones error: %v", err)
	}
	if len(zones) != 2 {
		t.Fatalf("zones = %d, want 2", len(zones))
	}
	if zones[0].ID != 1 || zones[0].FreeSlots != 7 {
		t.Fatalf("unexpected zone: %+v", zones[0])
	}
	if zones[1].Status != "full" {
		t.Fatalf("unexpected status: %+v", zones[1])
	}
}

func TestZones_ServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	client := NewClient(ts.URL)

	if _, err := client.Zones(context.Background()); err == nil {
		t.Fatalf("expected error for 500 response")
	}
}

func TestZones_MalformedBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{not json"))
	}))
	defer ts.Close()

	client := NewClient(ts.URL)

	if _, err := client.Zones(context.Background()); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestZones_NotConfigured(t *testing.T) {
	var client *Client
	if _, err := client.Zones(context.Background()); err == nil {
		t.Fatalf("nil client must report not configured")
	}

	empty := NewClient("")
	if _, err := empty.Zones(context.Background()); err == nil {
		t.Fatalf("empty address must report not configured")
	}
}

func TestPayments_OK(t *testing.T) {
	stamp := time.Date(2026, time.September, 1, 12, 0, 0, 0, time.UTC)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/payments" {
			t.Fatalf("path = %s, want /api/payments", r.URL.Path)
		}
		payments := []model.Payment{
			{ID: "PAY-1", Zone: "Tech Park Zone A", Amount: 4, User: "user", Timestamp: stamp, Status: "Completed"},
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(payments); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}))
	defer ts.Close()

	client := NewClient(ts.URL)

	payments, err := client.Payments(context.Background())
	if err != nil {
		t.Fatalf("Payments error: %v", err)
	}
	if len(payments) != 1 || payments[0].ID != "PAY-1" {
		t.Fatalf("unexpected payments: %+v", payments)
	}
}

func TestReserve_SendsUserAndZone(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/api/reserve" {
			t.Fatalf("path = %s, want /api/reserve", r.URL.Path)
		}

		var req reservationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if req.User != "user2" || req.ZoneID != 4 {
			t.Fatalf("unexpected body: %+v", req)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	client := NewClient(ts.URL)

	if err := client.Reserve(context.Background(), "user2", 4); err != nil {
		t.Fatalf("Reserve error: %v", err)
	}
}

func TestRelease_ErrorOnBadStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/release" {
			t.Fatalf("path = %s, want /api/release", r.URL.Path)
		}
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	client := NewClient(ts.URL)

	if err := client.Release(context.Background(), "user", 2); err == nil {
		t.Fatalf("expected error for 502 response")
	}
}

func TestSendPayment_PostsRecord(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/payments" {
			t.Fatalf("unexpected call: %s %s", r.Method, r.URL.Path)
		}
		var p model.Payment
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if p.ID != "PAY-42" || p.Amount != 4 {
			t.Fatalf("unexpected payment: %+v", p)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer ts.Close()

	client := NewClient(ts.URL)

	err := client.SendPayment(context.Background(), model.Payment{ID: "PAY-42", Zone: "Tech Park Zone A", Amount: 4})
	if err != nil {
		t.Fatalf("SendPayment error: %v", err)
	}
}
