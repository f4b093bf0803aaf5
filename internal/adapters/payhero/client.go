package payhero

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"PesaVault/internal/core/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Client talks to the PayHero push-payment API: POST /payments to initiate
// an STK push and GET /transaction-status to poll it.
type Client struct {
	baseURL   string
	auth      string // value for the Authorization header
	channelID int
	http      *http.Client
	log       zerolog.Logger
}

var _ ports.PaymentProvider = (*Client)(nil)

// NewClient creates a PayHero API client.
func NewClient(baseURL, auth string, channelID int, baseLogger *zerolog.Logger) *Client {
	return &Client{
		baseURL:   baseURL,
		auth:      auth,
		channelID: channelID,
		http:      &http.Client{Timeout: 10 * time.Second},
		log:       baseLogger.With().Str("component", "payhero").Logger(),
	}
}

type pushRequest struct {
	Amount            float64 `json:"amount"`
	PhoneNumber       string  `json:"phone_number"`
	ChannelID         int     `json:"channel_id"`
	Provider          string  `json:"provider"`
	ExternalReference string  `json:"external_reference"`
	CustomerName      string  `json:"customer_name"`
}

type pushResponse struct {
	Reference string `json:"reference"`
}

// InitiatePush asks the provider to push a payment prompt to the phone.
func (c *Client) InitiatePush(ctx context.Context, amount float64, phone string) (string, error) {
	payload := pushRequest{
		Amount:            amount,
		PhoneNumber:       phone,
		ChannelID:         c.channelID,
		Provider:          "m-pesa",
		ExternalReference: uuid.NewString(),
		CustomerName:      "Customer",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/payments", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.auth)

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Error().Err(err).Msg("Push request failed")
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log.Error().Int("status", resp.StatusCode).Msg("Push request rejected")
		return "", fmt.Errorf("push request: unexpected status %d", resp.StatusCode)
	}

	var out pushResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode push response: %w", err)
	}
	if out.Reference == "" {
		return "", fmt.Errorf("push response missing reference")
	}
	return out.Reference, nil
}

type statusResponse struct {
	Status            string `json:"status"`
	ProviderReference string `json:"provider_reference"`
}

// PollStatus fetches the current state of a push payment by reference.
func (c *Client) PollStatus(ctx context.Context, reference string) (ports.PushResult, error) {
	u := c.baseURL + "/transaction-status?reference=" + url.QueryEscape(reference)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return ports.PushResult{}, err
	}
	req.Header.Set("Authorization", c.auth)

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Error().Err(err).Str("reference", reference).Msg("Status poll failed")
		return ports.PushResult{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return ports.PushResult{}, fmt.Errorf("status poll: unexpected status %d", resp.StatusCode)
	}

	var out statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return ports.PushResult{}, fmt.Errorf("decode status response: %w", err)
	}
	return ports.PushResult{
		Status:            ports.PushStatus(out.Status),
		ProviderReference: out.ProviderReference,
	}, nil
}
