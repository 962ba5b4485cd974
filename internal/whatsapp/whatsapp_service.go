package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"franchise-billing/internal/config"
	"franchise-billing/internal/logger"
)

var ErrNotConfigured = errors.New("whatsapp provider not configured")

// Provider sends a free-text WhatsApp message
type Provider interface {
	SendText(ctx context.Context, phone, message string) error
	Name() string
}

// NewProvider builds the provider named in config; nil when none is set
func NewProvider(cfg *config.Config) (Provider, error) {
	wc := cfg.WhatsApp
	switch strings.ToLower(wc.Provider) {
	case "", "none":
		return nil, nil
	case "cloud", "meta", "generic":
		if wc.APIKey == "" || wc.PhoneNumberID == "" {
			return nil, errors.New("whatsapp cloud provider needs api_key and phone_number_id")
		}
		return NewCloudService(wc.APIKey, wc.PhoneNumberID), nil
	case "log":
		return LogProvider{}, nil
	default:
		return nil, fmt.Errorf("unknown whatsapp provider %q", wc.Provider)
	}
}

// CloudService implements WhatsApp via the Meta Cloud API, which most
// business solution providers proxy
type CloudService struct {
	apiKey        string
	phoneNumberID string
	baseURL       string
	client        *http.Client
}

// NewCloudService creates a Cloud API sender
// apiKey: access token from Meta Business Suite or BSP
// phoneNumberID: WhatsApp Business phone number id
func NewCloudService(apiKey, phoneNumberID string) *CloudService {
	return &CloudService{
		apiKey:        apiKey,
		phoneNumberID: phoneNumberID,
		baseURL:       "https://graph.facebook.com/v18.0",
		client:        &http.Client{Timeout: 30 * time.Second},
	}
}

// SetBaseURL allows overriding the API base URL (for BSP proxies)
func (s *CloudService) SetBaseURL(base string) {
	s.baseURL = strings.TrimRight(base, "/")
}

func (s *CloudService) Name() string {
	return "cloud"
}

// SendText sends a regular text message; Meta only delivers these inside
// the 24h customer service window
func (s *CloudService) SendText(ctx context.Context, phone, message string) error {
	payload := map[string]interface{}{
		"messaging_product": "whatsapp",
		"recipient_type":    "individual",
		"to":                FormatPhoneNumber(phone),
		"type":              "text",
		"text": map[string]interface{}{
			"preview_url": false,
			"body":        message,
		},
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s/messages", s.baseURL, s.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("WhatsApp API error (%d): %s", resp.StatusCode, string(body))
	}
	return nil
}

// LogProvider writes messages to the log instead of sending them
type LogProvider struct{}

func (LogProvider) Name() string { return "log" }

func (LogProvider) SendText(ctx context.Context, phone, message string) error {
	logger.For("whatsapp").WithField("to", FormatPhoneNumber(phone)).Info(message)
	return nil
}

// FormatPhoneNumber reduces a phone to the digits WhatsApp expects,
// adding the Indian country code to bare 10 digit numbers
func FormatPhoneNumber(phone string) string {
	var b strings.Builder
	for _, c := range phone {
		if c >= '0' && c <= '9' {
			b.WriteRune(c)
		}
	}
	cleaned := b.String()

	if len(cleaned) == 10 {
		return "91" + cleaned
	}
	return cleaned
}

// ShareURL builds a wa.me click-to-chat link carrying text
func ShareURL(phone, text string) string {
	u := "https://wa.me/"
	if digits := FormatPhoneNumber(phone); digits != "" {
		u += digits
	}
	return u + "?text=" + queryEscape(text)
}

// queryEscape encodes spaces as %20, which wa.me renders reliably
func queryEscape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
