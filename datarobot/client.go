// Package datarobot provides a client for the parts of the DataRobot v2 API needed to chart out of
// sample time series predictions: project metadata, datetime partitioning, training predictions and
// the raw training dataset.
package datarobot

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aouyang1/go-liftchart/dataset"
	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the managed cloud endpoint.
const DefaultBaseURL = "https://app.datarobot.com/api/v2"

// StatusError is returned for any non 2xx response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("datarobot: unexpected status %d: %s", e.StatusCode, e.Body)
}

// Option configures the client.
type Option func(*Client)

// WithBaseURL sets a custom API endpoint.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(url, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithRateLimit caps outgoing requests per second. A limit of 0 disables limiting.
func WithRateLimit(perSecond float64) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// WithPollInterval sets how often a training prediction job is polled.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) {
		c.pollInterval = d
	}
}

// WithMaxWait bounds how long a training prediction job is waited on.
func WithMaxWait(d time.Duration) Option {
	return func(c *Client) {
		c.maxWait = d
	}
}

// Client talks to the DataRobot API with a bearer token.
type Client struct {
	token        string
	baseURL      string
	http         *http.Client
	limiter      *rate.Limiter
	pollInterval time.Duration
	maxWait      time.Duration
}

// NewClient creates a new DataRobot client.
func NewClient(token string, opts ...Option) *Client {
	c := &Client{
		token:   token,
		baseURL: DefaultBaseURL,
		http: &http.Client{
			Timeout: 60 * time.Second,
		},
		pollInterval: 2 * time.Second,
		maxWait:      10 * time.Minute,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) url(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return c.baseURL + path
}

// do sends one request and returns the response with a 2xx status. The caller closes the body.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "datarobot: rate limit wait")
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path), body)
	if err != nil {
		return nil, eris.Wrap(err, "datarobot: create request")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "datarobot: %s %s", method, path)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	return resp, nil
}

func (c *Client) getJSON(ctx context.Context, path string, v any) error {
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return eris.Wrapf(err, "datarobot: unmarshal %s", path)
	}
	return nil
}

type projectResponse struct {
	ID          string `json:"id"`
	ProjectName string `json:"projectName"`
	Target      string `json:"target"`
	CatalogID   string `json:"catalogId"`
}

// Project fetches the project metadata.
func (c *Client) Project(ctx context.Context, projectID string) (dataset.Project, error) {
	var resp projectResponse
	if err := c.getJSON(ctx, fmt.Sprintf("/projects/%s/", projectID), &resp); err != nil {
		return dataset.Project{}, eris.Wrap(err, "datarobot: get project")
	}
	return dataset.Project{
		ID:        resp.ID,
		Name:      resp.ProjectName,
		Target:    resp.Target,
		CatalogID: resp.CatalogID,
	}, nil
}

type partitioningResponse struct {
	DatetimePartitionColumn string   `json:"datetimePartitionColumn"`
	MultiseriesIDColumns    []string `json:"multiseriesIdColumns"`
	NumberOfBacktests       int      `json:"numberOfBacktests"`
	DisableHoldout          bool     `json:"disableHoldout"`
}

// Partitioning fetches the datetime partitioning of a time series project.
func (c *Client) Partitioning(ctx context.Context, projectID string) (dataset.Partitioning, error) {
	var resp partitioningResponse
	if err := c.getJSON(ctx, fmt.Sprintf("/projects/%s/datetimePartitioning/", projectID), &resp); err != nil {
		return dataset.Partitioning{}, eris.Wrap(err, "datarobot: get datetime partitioning")
	}
	if len(resp.MultiseriesIDColumns) == 0 {
		return dataset.Partitioning{}, eris.Wrapf(ErrNotMultiseries, "datarobot: project %s", projectID)
	}
	return dataset.Partitioning{
		DatetimeColumn:    dataset.StripActual(resp.DatetimePartitionColumn),
		SeriesColumn:      dataset.StripActual(resp.MultiseriesIDColumns[0]),
		NumberOfBacktests: resp.NumberOfBacktests,
		DisableHoldout:    resp.DisableHoldout,
	}, nil
}
