// Package sos implements the upstream service port: an HTTP client speaking
// the SOS key-value-pair protocol.
package sos

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pesekon2/sosflow/internal/ports"
)

// Config holds the connection details of one SOS endpoint.
type Config struct {
	// URL is the base service URL.
	URL string `yaml:"url"`
	// Version is the SOS protocol version, 1.0.0 or 2.0.0.
	Version  string        `yaml:"version"`
	Username string        `yaml:"username"`
	Password string        `yaml:"password"`
	Timeout  time.Duration `yaml:"timeout"`
}

// Client fetches capabilities, observations and sensor descriptions. It
// performs no retries: a failed request is fatal for the invocation.
type Client struct {
	cfg  Config
	http *http.Client
	obs  ports.Observability
}

// NewClient validates the endpoint configuration.
func NewClient(cfg Config, obs ports.Observability) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("sos: service URL is required")
	}
	if _, err := url.Parse(cfg.URL); err != nil {
		return nil, fmt.Errorf("sos: invalid service URL: %w", err)
	}
	if cfg.Version == "" {
		cfg.Version = "1.0.0"
	}
	if obs == nil {
		obs = ports.Nop{}
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		obs:  obs,
	}, nil
}

// GetObservation fetches the raw payload for one offering. The caller picks
// the parser by response format.
func (c *Client) GetObservation(ctx context.Context, req ports.GetObservationRequest) ([]byte, error) {
	params := url.Values{}
	params.Set("offering", req.Offering)
	params.Set("observedProperty", strings.Join(req.ObservedProperties, ","))
	if req.Procedure != "" {
		params.Set("procedure", req.Procedure)
	}
	if req.EventTime != "" {
		params.Set("eventTime", req.EventTime)
	}
	if req.ResponseFormat != "" {
		params.Set("responseFormat", req.ResponseFormat)
	}
	return c.get(ctx, "GetObservation", params)
}

// Capabilities fetches and decodes the service description.
func (c *Client) Capabilities(ctx context.Context) (*ports.Capabilities, error) {
	body, err := c.get(ctx, "GetCapabilities", url.Values{})
	if err != nil {
		return nil, err
	}
	return parseCapabilities(body)
}

// DescribeSensor fetches and summarizes one procedure's self-description.
func (c *Client) DescribeSensor(ctx context.Context, procedure string) (*ports.SensorDescription, error) {
	params := url.Values{}
	params.Set("procedure", procedure)
	params.Set("outputFormat", `text/xml;subtype="sensorML/1.0.1"`)
	body, err := c.get(ctx, "DescribeSensor", params)
	if err != nil {
		return nil, err
	}
	return parseSensorML(body)
}

func (c *Client) get(ctx context.Context, operation string, params url.Values) ([]byte, error) {
	params.Set("service", "SOS")
	params.Set("request", operation)
	params.Set("version", c.cfg.Version)

	endpoint := c.cfg.URL
	if strings.Contains(endpoint, "?") {
		endpoint = strings.TrimSuffix(endpoint, "?") + "?" + params.Encode()
	} else {
		endpoint = endpoint + "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("sos: build %s request: %w", operation, err)
	}
	if c.cfg.Username != "" {
		req.SetBasicAuth(c.cfg.Username, c.cfg.Password)
	}

	requestID := uuid.NewString()
	c.obs.LogInfo("sos request",
		ports.Field{Key: "request_id", Value: requestID},
		ports.Field{Key: "operation", Value: operation})
	c.obs.IncCounter("sos_requests_total", 1)

	start := time.Now()
	resp, err := c.http.Do(req)
	c.obs.ObserveLatency("sos_request_seconds", time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("sos: %s request did not succeed: %w", operation, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("sos: read %s response: %w", operation, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sos: %s returned status %s", operation, resp.Status)
	}
	return body, nil
}
