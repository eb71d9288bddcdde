// Package api implements the farm platform REST client.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"farmlink/config"
	domainerrors "farmlink/internal/domain/errors"
	"farmlink/internal/domain/service"

	"github.com/pkg/errors"
)

// Client talks to the platform backend. All requests share one fixed timeout;
// there is no automatic retry.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

var _ service.FarmBackend = (*Client)(nil)

// NewClient creates the backend client from configuration.
func NewClient(cfg *config.Config, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.API.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.API.Timeout,
		},
		logger: logger,
	}
}

// apiEnvelope is the common {success, data, error} response wrapper.
type apiEnvelope struct {
	Success           bool            `json:"success"`
	Data              json.RawMessage `json:"data"`
	Error             string          `json:"error"`
	Message           string          `json:"message"`
	NeedsRegistration bool            `json:"needsRegistration"`
}

// do issues a JSON request and returns the raw body for 2xx responses.
// Failures are classified with the domain error kinds.
func (c *Client) do(ctx context.Context, method, path, bearer string, body any, query url.Values) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, "marshal request body")
		}
		reqBody = bytes.NewReader(payload)
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domainerrors.Wrap(domainerrors.KindTransient, "read response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return respBody, classifyStatus(resp.StatusCode, respBody)
	}

	return respBody, nil
}

// classifyTransportError maps connection failures to the domain kinds.
func classifyTransportError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return domainerrors.Wrap(domainerrors.KindTimeout, "request timed out", err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domainerrors.Wrap(domainerrors.KindTimeout, "request timed out", err)
	}
	if errors.Is(err, context.Canceled) {
		return errors.WithStack(err)
	}

	return domainerrors.Wrap(domainerrors.KindNetworkOffline, "network unavailable", err)
}

// classifyStatus maps non-2xx responses to the domain kinds, preferring the
// server-provided message when one exists.
func classifyStatus(status int, body []byte) error {
	message := serverMessage(body)

	switch {
	case status == http.StatusUnauthorized:
		return domainerrors.ErrAuthInvalid
	case status == http.StatusNotFound:
		return domainerrors.New(domainerrors.KindNotRegistered, fallback(message, "not found"))
	default:
		return domainerrors.New(domainerrors.KindTransient, fallback(message, http.StatusText(status)))
	}
}

func serverMessage(body []byte) string {
	var envelope apiEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return ""
	}
	if envelope.Error != "" {
		return envelope.Error
	}

	return envelope.Message
}

func fallback(s, def string) string {
	if s == "" {
		return def
	}

	return s
}

// unwrapEnvelope parses a {success, data} response and returns data. A
// success=false body with needsRegistration set maps to KindNotRegistered.
func unwrapEnvelope(body []byte) (json.RawMessage, error) {
	var envelope apiEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, domainerrors.Wrap(domainerrors.KindTransient, "malformed response", err)
	}

	if !envelope.Success {
		if envelope.NeedsRegistration {
			return nil, domainerrors.ErrNotRegistered
		}

		return nil, domainerrors.New(domainerrors.KindTransient, fallback(envelope.Error, "request failed"))
	}

	return envelope.Data, nil
}
