package content

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// AnalysisFallback is returned verbatim whenever a research request fails.
// Text generation is fail-soft: the terminal shows this string instead of
// an error.
const AnalysisFallback = "Critical connection error during deep neural research. Please re-initiate link."

var (
	// ErrPollLimit means the job did not finish within the poll budget.
	ErrPollLimit = errors.New("video generation did not complete within the poll budget")
	// ErrKeyRejected means the service rejected the credential and
	// reselection did not recover it.
	ErrKeyRejected = errors.New("content service rejected the API key")
)

// KeySource provides the API credential. Reselect is invoked when the
// service reports the keyed resource missing, so a stale key can be
// swapped without failing the caller.
type KeySource interface {
	Key() string
	Reselect(ctx context.Context) error
}

// StaticKey is a KeySource with no fallback credential.
type StaticKey string

func (k StaticKey) Key() string { return string(k) }

func (k StaticKey) Reselect(ctx context.Context) error { return ErrKeyRejected }

// Client talks to the external generative-content service. Analysis is a
// single round trip; video generation is a job submit followed by a
// bounded, cancellable polling loop.
type Client struct {
	logger       *zap.Logger
	httpClient   *http.Client
	baseURL      string
	keys         KeySource
	pollInterval time.Duration
	maxPolls     int
}

func NewClient(logger *zap.Logger, baseURL string, keys KeySource, pollInterval time.Duration, maxPolls int) *Client {
	return &Client{
		logger:       logger,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		keys:         keys,
		pollInterval: pollInterval,
		maxPolls:     maxPolls,
	}
}

type analysisRequest struct {
	Topic string `json:"topic"`
}

type analysisResponse struct {
	Text string `json:"text"`
}

type strategyRequest struct {
	MarketContext string `json:"market_context"`
}

// StrategyAnalysis is the structured setup the service extracts from a
// market context description.
type StrategyAnalysis struct {
	SetupName  string   `json:"setup_name"`
	Bias       string   `json:"bias"`
	EntryZone  string   `json:"entry_zone"`
	Targets    []string `json:"targets"`
	RiskNote   string   `json:"risk_note,omitempty"`
	Confidence float64  `json:"confidence"`
}

type videoRequest struct {
	Prompt string `json:"prompt"`
}

type videoJob struct {
	JobID string `json:"job_id"`
}

type videoStatus struct {
	Done bool   `json:"done"`
	URI  string `json:"uri"`
}

// RequestAnalysis asks the service for research text on a topic. Any
// failure collapses into the fixed fallback string; this call never
// returns an error.
func (c *Client) RequestAnalysis(ctx context.Context, topic string) string {
	var out analysisResponse
	if err := c.postJSON(ctx, "/v1/research", analysisRequest{Topic: topic}, &out); err != nil {
		c.logger.Warn("Analysis request failed, serving fallback", zap.Error(err))
		return AnalysisFallback
	}
	if out.Text == "" {
		return AnalysisFallback
	}
	return out.Text
}

// AnalyzeStrategy asks the service for a structured setup read of a market
// context. Fail-soft like analysis, but structured: any failure or
// unusable response collapses into nil, never an error, and the terminal
// renders an empty setup panel.
func (c *Client) AnalyzeStrategy(ctx context.Context, marketContext string) *StrategyAnalysis {
	var out StrategyAnalysis
	if err := c.postJSON(ctx, "/v1/strategy", strategyRequest{MarketContext: marketContext}, &out); err != nil {
		c.logger.Warn("Strategy analysis failed, serving empty setup", zap.Error(err))
		return nil
	}
	if out.SetupName == "" || out.Bias == "" {
		return nil
	}
	return &out
}

// RequestVideo submits a generation job and polls it to completion. The
// loop stops on context cancellation or after maxPolls attempts; the
// source behavior of polling forever is deliberately not reproduced.
func (c *Client) RequestVideo(ctx context.Context, prompt string) (string, error) {
	var job videoJob
	if err := c.postJSON(ctx, "/v1/videos", videoRequest{Prompt: prompt}, &job); err != nil {
		return "", fmt.Errorf("submit video job: %w", err)
	}

	for attempt := 0; attempt < c.maxPolls; attempt++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(c.pollInterval):
		}

		var status videoStatus
		if err := c.getJSON(ctx, "/v1/videos/jobs/"+job.JobID, &status); err != nil {
			return "", fmt.Errorf("poll video job %s: %w", job.JobID, err)
		}
		if status.Done {
			return c.signedURL(status.URI), nil
		}
	}

	return "", ErrPollLimit
}

// signedURL appends the API key so the artifact link is directly fetchable.
func (c *Client) signedURL(uri string) string {
	sep := "?"
	if strings.Contains(uri, "?") {
		sep = "&"
	}
	return uri + sep + "key=" + c.keys.Key()
}

func (c *Client) postJSON(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, path, payload, out, true)
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	return c.do(ctx, http.MethodGet, path, nil, out, true)
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte, out interface{}, allowReselect bool) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", c.keys.Key())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound && allowReselect {
		// A missing keyed resource is treated as a stale credential:
		// reselect once and retry before surfacing the failure
		if rerr := c.keys.Reselect(ctx); rerr != nil {
			return fmt.Errorf("%w: %s", ErrKeyRejected, resp.Status)
		}
		return c.do(ctx, method, path, payload, out, false)
	}

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("content service returned %s: %s", resp.Status, raw)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
