package content_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Muhsin-Gun/aurora/cmd/gateway/internal/content"
)

func newClient(t *testing.T, handler http.Handler, maxPolls int) (*content.Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := content.NewClient(zap.NewNop(), srv.URL, content.StaticKey("test-key"), time.Millisecond, maxPolls)
	return c, srv
}

func TestRequestAnalysis_ReturnsServiceText(t *testing.T) {
	c, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/research" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("X-Api-Key") != "test-key" {
			t.Errorf("API key header missing")
		}
		json.NewEncoder(w).Encode(map[string]string{"text": "Gold remains range-bound."})
	}), 3)

	got := c.RequestAnalysis(context.Background(), "XAUUSD outlook")
	if got != "Gold remains range-bound." {
		t.Errorf("Expected service text, got %q", got)
	}
}

func TestRequestAnalysis_FailureServesFallback(t *testing.T) {
	c, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusInternalServerError)
	}), 3)

	got := c.RequestAnalysis(context.Background(), "anything")
	if got != content.AnalysisFallback {
		t.Errorf("Expected fallback text, got %q", got)
	}
}

func TestRequestAnalysis_EmptyTextServesFallback(t *testing.T) {
	c, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"text": ""})
	}), 3)

	if got := c.RequestAnalysis(context.Background(), "anything"); got != content.AnalysisFallback {
		t.Errorf("Expected fallback for empty response, got %q", got)
	}
}

func TestAnalyzeStrategy_ReturnsTypedSetup(t *testing.T) {
	c, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/strategy" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		var req map[string]string
		json.NewDecoder(r.Body).Decode(&req)
		if req["market_context"] == "" {
			t.Errorf("Market context missing from request body")
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"setup_name": "Liquidity sweep reversal",
			"bias":       "bullish",
			"entry_zone": "2638.0-2640.5",
			"targets":    []string{"2645.0", "2652.0"},
			"risk_note":  "invalid below 2635",
			"confidence": 0.72,
		})
	}), 3)

	setup := c.AnalyzeStrategy(context.Background(), "XAUUSD swept Asian lows into 1h demand")
	if setup == nil {
		t.Fatal("Expected a setup, got nil")
	}
	if setup.SetupName != "Liquidity sweep reversal" || setup.Bias != "bullish" {
		t.Errorf("Setup fields not decoded: %+v", setup)
	}
	if len(setup.Targets) != 2 || setup.Confidence != 0.72 {
		t.Errorf("Targets/confidence not decoded: %+v", setup)
	}
}

func TestAnalyzeStrategy_FailureCollapsesToNil(t *testing.T) {
	c, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusInternalServerError)
	}), 3)

	if setup := c.AnalyzeStrategy(context.Background(), "anything"); setup != nil {
		t.Errorf("Expected nil setup on failure, got %+v", setup)
	}
}

func TestAnalyzeStrategy_IncompleteResponseCollapsesToNil(t *testing.T) {
	c, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"setup_name": "orphan", "confidence": 0.9})
	}), 3)

	if setup := c.AnalyzeStrategy(context.Background(), "anything"); setup != nil {
		t.Errorf("Setup without a bias should collapse to nil, got %+v", setup)
	}
}

func TestRequestVideo_PollsToCompletion(t *testing.T) {
	var polls atomic.Int32
	c, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v1/videos":
			json.NewEncoder(w).Encode(map[string]string{"job_id": "job-42"})
		case r.Method == http.MethodGet && r.URL.Path == "/v1/videos/jobs/job-42":
			if polls.Add(1) < 3 {
				json.NewEncoder(w).Encode(map[string]interface{}{"done": false})
				return
			}
			json.NewEncoder(w).Encode(map[string]interface{}{"done": true, "uri": "https://cdn.example.com/v.mp4"})
		default:
			http.NotFound(w, r)
		}
	}), 10)

	url, err := c.RequestVideo(context.Background(), "a rotating gold bar")
	if err != nil {
		t.Fatalf("RequestVideo failed: %v", err)
	}
	if url != "https://cdn.example.com/v.mp4?key=test-key" {
		t.Errorf("Expected signed URL, got %q", url)
	}
	if polls.Load() != 3 {
		t.Errorf("Expected 3 polls, got %d", polls.Load())
	}
}

func TestRequestVideo_SignedURLPreservesQuery(t *testing.T) {
	c, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			json.NewEncoder(w).Encode(map[string]string{"job_id": "j"})
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"done": true, "uri": "https://cdn.example.com/v.mp4?dl=1"})
	}), 3)

	url, err := c.RequestVideo(context.Background(), "p")
	if err != nil {
		t.Fatalf("RequestVideo failed: %v", err)
	}
	if url != "https://cdn.example.com/v.mp4?dl=1&key=test-key" {
		t.Errorf("Existing query should be extended, got %q", url)
	}
}

func TestRequestVideo_PollBudgetExhausted(t *testing.T) {
	c, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			json.NewEncoder(w).Encode(map[string]string{"job_id": "stuck"})
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"done": false})
	}), 2)

	_, err := c.RequestVideo(context.Background(), "never finishes")
	if !errors.Is(err, content.ErrPollLimit) {
		t.Errorf("Expected ErrPollLimit, got %v", err)
	}
}

func TestRequestVideo_CancellationStopsPolling(t *testing.T) {
	c, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			json.NewEncoder(w).Encode(map[string]string{"job_id": "slow"})
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"done": false})
	}), 1000)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := c.RequestVideo(ctx, "will be abandoned")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestStaticKey_NotFoundSurfacesKeyRejection(t *testing.T) {
	var hits atomic.Int32
	c, _ := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.NotFound(w, r)
	}), 3)

	_, err := c.RequestVideo(context.Background(), "p")
	if !errors.Is(err, content.ErrKeyRejected) {
		t.Errorf("Expected ErrKeyRejected through a static key, got %v", err)
	}
	// StaticKey has no fallback, so the request is not retried
	if hits.Load() != 1 {
		t.Errorf("Expected a single attempt, got %d", hits.Load())
	}
}

// rotatingKeys swaps to a second credential when reselected.
type rotatingKeys struct {
	current atomic.Value
}

func (r *rotatingKeys) Key() string { return r.current.Load().(string) }

func (r *rotatingKeys) Reselect(ctx context.Context) error {
	r.current.Store("fresh-key")
	return nil
}

func TestReselect_RecoversFromStaleKey(t *testing.T) {
	keys := &rotatingKeys{}
	keys.current.Store("stale-key")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Api-Key") == "stale-key" {
			http.NotFound(w, r)
			return
		}
		if r.Method == http.MethodPost {
			json.NewEncoder(w).Encode(map[string]string{"job_id": "j"})
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"done": true, "uri": "https://cdn.example.com/v.mp4"})
	}))
	defer srv.Close()

	c := content.NewClient(zap.NewNop(), srv.URL, keys, time.Millisecond, 3)

	url, err := c.RequestVideo(context.Background(), "p")
	if err != nil {
		t.Fatalf("Expected reselect to recover the request: %v", err)
	}
	if url != "https://cdn.example.com/v.mp4?key=fresh-key" {
		t.Errorf("Signed URL should use the reselected key, got %q", url)
	}
}
