package whatsapp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"franchise-billing/internal/config"
)

func TestFormatPhoneNumber(t *testing.T) {
	tests := map[string]string{
		"9876543210":      "919876543210",
		"+91 98765 43210": "919876543210",
		"+919876543210":   "919876543210",
		"+14155550123":    "14155550123",
		"":                "",
	}
	for in, want := range tests {
		if got := FormatPhoneNumber(in); got != want {
			t.Errorf("FormatPhoneNumber(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestShareURL(t *testing.T) {
	got := ShareURL("+919876543210", "Bill DIP/2025-26/07-0001\nTotal: 160.00")
	want := "https://wa.me/919876543210?text=Bill%20DIP%2F2025-26%2F07-0001%0ATotal%3A%20160.00"
	if got != want {
		t.Errorf("ShareURL = %q\nwant       %q", got, want)
	}

	if got := ShareURL("", "hi"); got != "https://wa.me/?text=hi" {
		t.Errorf("ShareURL without phone = %q", got)
	}
}

func TestCloudServiceSendText(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/PNID/messages" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer token" {
			t.Errorf("auth = %s", r.Header.Get("Authorization"))
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewCloudService("token", "PNID")
	s.SetBaseURL(srv.URL)
	if err := s.SendText(context.Background(), "+919876543210", "hello"); err != nil {
		t.Fatal(err)
	}
	if got["to"] != "919876543210" || got["type"] != "text" {
		t.Errorf("payload = %v", got)
	}
}

func TestCloudServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"bad token"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	s := NewCloudService("token", "PNID")
	s.SetBaseURL(srv.URL)
	err := s.SendText(context.Background(), "9876543210", "hello")
	if err == nil || !strings.Contains(err.Error(), "401") {
		t.Errorf("err = %v", err)
	}
}

func TestNewProvider(t *testing.T) {
	cfg := &config.Config{}
	if p, err := NewProvider(cfg); p != nil || err != nil {
		t.Errorf("empty provider = %v, %v", p, err)
	}

	cfg.WhatsApp.Provider = "log"
	if p, err := NewProvider(cfg); err != nil || p.Name() != "log" {
		t.Errorf("log provider = %v, %v", p, err)
	}

	cfg.WhatsApp.Provider = "cloud"
	if _, err := NewProvider(cfg); err == nil {
		t.Error("cloud provider without credentials should fail")
	}

	cfg.WhatsApp.Provider = "pigeon"
	if _, err := NewProvider(cfg); err == nil {
		t.Error("unknown provider should fail")
	}
}
