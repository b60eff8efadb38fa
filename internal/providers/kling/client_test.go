package kling

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt"

	"promoforge/internal/providers/video"
)

func testReq() video.Request {
	return video.Request{
		Prompt:      "promo do produto",
		AspectRatio: video.AspectPortrait,
		Duration:    4,
	}
}

func TestSubmitSignsBearerToken(t *testing.T) {
	var authHeader string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader = r.Header.Get("Authorization")
		var payload submitRequest
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode submit: %v", err)
		}
		if payload.Prompt != "promo do produto" {
			t.Fatalf("prompt not forwarded: %+v", payload)
		}
		if payload.Duration != "5" {
			t.Fatalf("expected 4s request rounded to 5, got %q", payload.Duration)
		}
		if payload.AspectRatio != "9:16" {
			t.Fatalf("aspect not forwarded: %+v", payload)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"code": 0,
			"data": map[string]string{"task_id": "task-77"},
		})
	}))
	defer ts.Close()

	adapter := New(Options{APIKey: "access-1,secret-2", BaseURL: ts.URL})
	submit, err := adapter.Submit(context.Background(), testReq())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if submit.JobID != "task-77" {
		t.Fatalf("unexpected job id: %+v", submit)
	}

	raw := strings.TrimPrefix(authHeader, "Bearer ")
	if raw == authHeader {
		t.Fatalf("missing bearer prefix: %q", authHeader)
	}
	token, err := jwt.Parse(raw, func(tok *jwt.Token) (any, error) {
		return []byte("secret-2"), nil
	})
	if err != nil || !token.Valid {
		t.Fatalf("bearer token does not verify with the secret key: %v", err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || claims["iss"] != "access-1" {
		t.Fatalf("token issuer mismatch: %+v", token.Claims)
	}
}

func TestPollStates(t *testing.T) {
	responses := []map[string]any{
		{"code": 0, "data": map[string]any{"task_id": "t", "task_status": "processing"}},
		{"code": 0, "data": map[string]any{
			"task_id":     "t",
			"task_status": "succeed",
			"task_result": map[string]any{"videos": []map[string]string{{"url": "https://cdn.example.com/k.mp4"}}},
		}},
		{"code": 0, "data": map[string]any{"task_id": "t", "task_status": "failed", "task_status_msg": "content policy"}},
	}
	i := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/t") {
			t.Fatalf("unexpected poll path: %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(responses[i])
		i++
	}))
	defer ts.Close()

	adapter := New(Options{APIKey: "a,s", BaseURL: ts.URL})

	poll, err := adapter.Poll(context.Background(), "t")
	if err != nil || poll.Status != video.PollPending {
		t.Fatalf("expected pending, got %+v err=%v", poll, err)
	}

	poll, err = adapter.Poll(context.Background(), "t")
	if err != nil || poll.Status != video.PollSucceeded || poll.VideoURL != "https://cdn.example.com/k.mp4" {
		t.Fatalf("expected succeeded, got %+v err=%v", poll, err)
	}

	poll, err = adapter.Poll(context.Background(), "t")
	if err != nil || poll.Status != video.PollFailed || poll.Reason != "content policy" {
		t.Fatalf("expected failed with reason, got %+v err=%v", poll, err)
	}
}

func TestConfiguredRequiresBothKeyHalves(t *testing.T) {
	if New(Options{APIKey: "only-access"}).Configured() {
		t.Fatal("single-part key must leave the adapter unconfigured")
	}
	if New(Options{}).Configured() {
		t.Fatal("empty key must leave the adapter unconfigured")
	}
	if _, err := New(Options{}).Submit(context.Background(), testReq()); !video.IsNotConfigured(err) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestSubmitAPICodeError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"code": 1102, "message": "account balance not enough"})
	}))
	defer ts.Close()

	adapter := New(Options{APIKey: "a,s", BaseURL: ts.URL})
	_, err := adapter.Submit(context.Background(), testReq())
	var vendorErr *video.VendorError
	if !errors.As(err, &vendorErr) {
		t.Fatalf("expected VendorError, got %v", err)
	}
	if !strings.Contains(vendorErr.Message, "account balance not enough") {
		t.Fatalf("vendor message lost: %+v", vendorErr)
	}
}
