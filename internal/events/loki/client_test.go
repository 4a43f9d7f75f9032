package loki

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestPushEvent(t *testing.T) {
	var got PushRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/loki/api/v1/push" {
			t.Errorf("path = %s", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("body: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	ts := time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC)
	err := PushEvent(context.Background(), srv.URL, ts, `{"eventType":"scope_violation"}`, map[string]string{
		"tenant_id": "t1",
		"weird":     "a b{c}",
	})
	if err != nil {
		t.Fatalf("PushEvent: %v", err)
	}

	if len(got.Streams) != 1 {
		t.Fatalf("streams = %d, want 1", len(got.Streams))
	}
	stream := got.Streams[0]
	if stream.Stream["job"] != "fdp" {
		t.Errorf("job = %q, want fdp", stream.Stream["job"])
	}
	if stream.Stream["tenant_id"] != "t1" {
		t.Errorf("tenant_id = %q, want t1", stream.Stream["tenant_id"])
	}
	if stream.Stream["weird"] != "a_b_c_" {
		t.Errorf("weird = %q, want sanitized a_b_c_", stream.Stream["weird"])
	}
	if len(stream.Values) != 1 || len(stream.Values[0]) != 2 {
		t.Fatalf("values = %v", stream.Values)
	}
	if stream.Values[0][0] != "1773475200000000000" {
		t.Errorf("timestamp = %s", stream.Values[0][0])
	}
}

func TestPushEvent_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	if err := PushEvent(context.Background(), srv.URL, time.Now(), "line", nil); err == nil {
		t.Error("want error on 500")
	}
}

func TestPushEventJSON_ExtractsLabels(t *testing.T) {
	var got PushRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	raw := []byte(`{"eventType":"scope_violation","tenantId":"t1","createdAt":"2026-03-14T08:00:00Z"}`)
	if err := PushEventJSON(context.Background(), srv.URL, raw); err != nil {
		t.Fatalf("PushEventJSON: %v", err)
	}
	stream := got.Streams[0]
	if stream.Stream["event_type"] != "scope_violation" {
		t.Errorf("event_type = %q", stream.Stream["event_type"])
	}
	if stream.Stream["tenant_id"] != "t1" {
		t.Errorf("tenant_id = %q", stream.Stream["tenant_id"])
	}
	if stream.Values[0][0] != "1773475200000000000" {
		t.Errorf("timestamp = %s, want event createdAt", stream.Values[0][0])
	}
}

func TestPushEventJSON_MalformedFallsBack(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	if err := PushEventJSON(context.Background(), srv.URL, []byte("not json")); err != nil {
		t.Fatalf("PushEventJSON: %v", err)
	}
	if !called {
		t.Error("raw line should still be pushed")
	}
}

func TestPushEvent_EmptyURL(t *testing.T) {
	if err := PushEvent(context.Background(), "", time.Now(), "line", nil); err == nil {
		t.Error("want error for empty base URL")
	}
}
