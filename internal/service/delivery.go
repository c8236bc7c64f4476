package service

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/roadsideiq/verify-api/internal/data"
	"github.com/roadsideiq/verify-api/internal/domain/model"
)

const (
	defaultDeliveryTokenSubject = "verify-api"
	defaultDeliveryTokenTTL     = 5 * time.Minute
	defaultDeliveryTimeout      = 30 * time.Second

	maxDeliveryResponseBodyBytes = 4 * 1024 // keep stored delivery errors bounded
)

// DeliveryServiceOptions groups dependencies for DeliveryService.
type DeliveryServiceOptions struct {
	SigningSecret      string            // Required: HS256 secret for delivery tokens
	TokenSubject       string            // Optional: sub claim, defaults to "verify-api"
	TokenTTL           time.Duration     // Optional: token lifetime, defaults to 5m
	FallbackWebhookURL string            // Optional: destination when the payload carries no webhookUrl
	RequestTimeout     time.Duration     // Optional: per-delivery timeout, defaults to 30s
	InsecureSkipVerify bool              // Optional: disable TLS verification (dev only)
	HTTPClient         *http.Client      // Optional: overrides the built client
	Logger             *slog.Logger      // Optional: structured logger
	TimeProvider       data.TimeProvider // Optional: defaults to real time
}

// DeliveryService posts verification results to their webhook destination.
// Each attempt carries a freshly minted short-lived HS256 bearer token;
// tokens are never reused across attempts.
type DeliveryService struct {
	signingSecret []byte
	tokenSubject  string
	tokenTTL      time.Duration
	fallbackURL   string
	http          *http.Client
	logger        *slog.Logger
	timeProvider  data.TimeProvider
}

// NewDeliveryService constructs a new DeliveryService.
func NewDeliveryService(opts DeliveryServiceOptions) (*DeliveryService, error) {
	if opts.SigningSecret == "" {
		return nil, errors.New("webhook signing secret is required")
	}

	subject := opts.TokenSubject
	if subject == "" {
		subject = defaultDeliveryTokenSubject
	}
	ttl := opts.TokenTTL
	if ttl <= 0 {
		ttl = defaultDeliveryTokenTTL
	}

	tp := opts.TimeProvider
	if tp == nil {
		tp = &data.RealTimeProvider{}
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "delivery_service")
	}

	client := opts.HTTPClient
	if client == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = defaultDeliveryTimeout
		}
		client = &http.Client{Timeout: timeout}
		if opts.InsecureSkipVerify {
			client.Transport = &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec // explicit dev flag
			}
			if logger != nil {
				logger.Warn("webhook TLS certificate verification is DISABLED; do not use in production")
			}
		}
	}

	return &DeliveryService{
		signingSecret: []byte(opts.SigningSecret),
		tokenSubject:  subject,
		tokenTTL:      ttl,
		fallbackURL:   opts.FallbackWebhookURL,
		http:          client,
		logger:        logger,
		timeProvider:  tp,
	}, nil
}

// DeliveryResponse captures the downstream response for diagnostics.
type DeliveryResponse struct {
	StatusCode    int
	Body          string
	BodyTruncated bool
}

// Deliver posts the result to its webhook destination with a fresh bearer
// token. Success is any 2xx status; anything else returns an error carrying
// the (truncated) response body so the queue can record it.
func (s *DeliveryService) Deliver(
	ctx context.Context,
	result model.VerificationResult,
) (*DeliveryResponse, error) {
	url := result.WebhookURL()
	if url == "" {
		url = s.fallbackURL
	}
	if url == "" {
		return nil, errors.New("no webhook url in payload and no fallback configured")
	}

	req, err := s.buildRequest(ctx, url, result)
	if err != nil {
		return nil, err
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send webhook to %s: %w", url, err)
	}

	body, truncated, readErr := readDeliveryBody(resp.Body)
	if closeErr := resp.Body.Close(); closeErr != nil && readErr == nil {
		readErr = closeErr
	}

	response := &DeliveryResponse{
		StatusCode:    resp.StatusCode,
		Body:          body,
		BodyTruncated: truncated,
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return response, fmt.Errorf("webhook %s returned status %d: %s", url, resp.StatusCode, body)
	}
	if readErr != nil {
		return response, fmt.Errorf("read webhook response: %w", readErr)
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "webhook delivered",
			"url", url,
			"status", resp.StatusCode,
			"verification_id", result.VerificationID(),
		)
	}

	return response, nil
}

// buildRequest prepares the POST with a per-attempt bearer token.
func (s *DeliveryService) buildRequest(
	ctx context.Context,
	url string,
	result model.VerificationResult,
) (*http.Request, error) {
	body, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("marshal webhook payload: %w", err)
	}

	token, err := s.mintToken()
	if err != nil {
		return nil, fmt.Errorf("mint delivery token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	return req, nil
}

// mintToken signs a fresh short-lived HS256 token identifying this sender.
func (s *DeliveryService) mintToken() (string, error) {
	now := s.timeProvider.Now()
	claims := jwt.RegisteredClaims{
		Subject:   s.tokenSubject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingSecret)
}

func readDeliveryBody(body io.Reader) (string, bool, error) {
	if body == nil {
		return "", false, nil
	}
	limited := io.LimitReader(body, maxDeliveryResponseBodyBytes+1)
	data, readErr := io.ReadAll(limited)
	truncated := len(data) > maxDeliveryResponseBodyBytes
	if truncated {
		data = data[:maxDeliveryResponseBodyBytes]
		if _, drainErr := io.Copy(io.Discard, body); drainErr != nil && readErr == nil {
			readErr = drainErr
		}
	}
	return string(data), truncated, readErr
}
