// Package monitor implements the client side of the Service Monitor
// control-plane API: the heartbeat exchange and service-check reporting.
package monitor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/servicemon/agent/internal/domain"
)

const (
	heartbeatPath    = "/api/agents/heartbeat"
	serviceCheckPath = "/api/agents/service-check"
)

// HeartbeatResult is the decoded outcome of a successful heartbeat.
// Services is nil when the response carried no list at all; an empty,
// non-nil slice means the control plane sent an empty worklist.
type HeartbeatResult struct {
	AgentID  string
	Services []domain.ServiceTarget
}

// Client communicates with the Service Monitor API. Every call is a
// single attempt with a bounded timeout; the scheduler decides whether to
// try again on the next cycle.
type Client struct {
	baseURL string
	apiKey  string

	http   *http.Client
	logger *slog.Logger
}

// NewClient creates a control-plane client for the given API key and base
// URL. The timeout bounds each request end to end.
func NewClient(apiKey, baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 0 // one attempt per call, the scheduler owns the cadence
	rc.HTTPClient.Timeout = timeout
	rc.Logger = nil // suppress default logging

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    rc.StandardClient(),
		logger:  logger,
	}
}

// Heartbeat reports host metadata and returns the agent id plus any
// replacement worklist the control plane supplied. A 200 response without
// an agentId is a failure.
func (c *Client) Heartbeat(ctx context.Context, info domain.HostInfo) (*HeartbeatResult, error) {
	req := domain.HeartbeatRequest{APIKey: c.apiKey, ServerInfo: info}

	body, err := c.post(ctx, heartbeatPath, req)
	if err != nil {
		return nil, err
	}

	var resp domain.HeartbeatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal heartbeat response: %w", err)
	}
	if resp.AgentID == "" {
		return nil, fmt.Errorf("heartbeat response missing agentId")
	}

	result := &HeartbeatResult{AgentID: resp.AgentID}
	if resp.Services != nil {
		result.Services = c.decodeServices(resp.Services)
	}
	return result, nil
}

// ReportCheck sends one probe result to the service-check endpoint.
func (c *Client) ReportCheck(ctx context.Context, result domain.CheckResult) error {
	req := domain.CheckReport{APIKey: c.apiKey, CheckResult: result}

	if _, err := c.post(ctx, serviceCheckPath, req); err != nil {
		return fmt.Errorf("report %s:%d: %w", result.Host, result.Port, err)
	}
	return nil
}

// decodeServices parses worklist entries one by one, skipping malformed
// ones so a single bad entry cannot discard the whole list.
func (c *Client) decodeServices(raw []json.RawMessage) []domain.ServiceTarget {
	services := make([]domain.ServiceTarget, 0, len(raw))
	for i, entry := range raw {
		var target domain.ServiceTarget
		if err := json.Unmarshal(entry, &target); err != nil {
			c.logger.Warn("skipping malformed worklist entry", "index", i, "err", err)
			continue
		}
		if !target.Valid() {
			c.logger.Warn("skipping invalid worklist entry",
				"index", i,
				"host", target.Host,
				"port", target.Port,
			)
			continue
		}
		services = append(services, target)
	}
	return services
}

// post marshals payload, POSTs it to baseURL+path, and returns the body
// of a 200 JSON response. Anything else — non-200 status, transport
// error, empty or non-JSON body — is an error.
func (c *Client) post(ctx context.Context, path string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API POST %s returned %d: %s", path, resp.StatusCode, string(respBody))
	}
	if len(bytes.TrimSpace(respBody)) == 0 || !json.Valid(respBody) {
		return nil, fmt.Errorf("API POST %s returned a non-JSON body", path)
	}

	return respBody, nil
}
