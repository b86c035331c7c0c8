package scan

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/netstar-dev/advisor/internal/domain"
	"github.com/netstar-dev/advisor/internal/logger"
	"github.com/netstar-dev/advisor/internal/sources/catalog"
)

// maxResponseBytes bounds how much of the scoring response is read.
const maxResponseBytes = 1 << 20

// Client is the boundary adapter to the external scoring engine. It builds
// domain-oriented requests (bare canonical domain, never a full URL), maps
// the engine's component scores onto the indicator catalog and surfaces
// every failure mode as *domain.ScanFailure. It never retries; retry policy
// belongs to the caller and none is currently required.
type Client struct {
	http    *http.Client
	baseURL string
	catalog *catalog.Catalog
	logger  logger.Logger
	now     func() time.Time
}

// NewClient creates a scan client against baseURL.
func NewClient(baseURL string, timeout time.Duration, cat *catalog.Catalog, log logger.Logger) *Client {
	return &Client{
		http: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
		catalog: cat,
		logger:  log,
		now:     time.Now,
	}
}

// scanRequest is the wire shape sent to the scoring engine.
type scanRequest struct {
	Target  string          `json:"target"`
	Signals json.RawMessage `json:"signals,omitempty"`
}

// Fetch scores one canonical domain. The optional signals blob is a
// short-lived enrichment from the content inspector; it is forwarded
// opaquely and never required for correctness.
func (c *Client) Fetch(ctx context.Context, dom string, signals json.RawMessage) (*domain.Assessment, error) {
	body, err := json.Marshal(scanRequest{Target: dom, Signals: signals})
	if err != nil {
		return nil, &domain.ScanFailure{Domain: dom, Cause: "failed to encode request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/score", bytes.NewReader(body))
	if err != nil {
		return nil, &domain.ScanFailure{Domain: dom, Cause: "failed to build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	start := c.now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &domain.ScanFailure{Domain: dom, Cause: "scoring endpoint unreachable", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &domain.ScanFailure{
			Domain: dom,
			Cause:  fmt.Sprintf("scoring endpoint returned status %d", resp.StatusCode),
		}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &domain.ScanFailure{Domain: dom, Cause: "failed to read response", Err: err}
	}

	assessment, err := c.decode(dom, data)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("scan completed",
		logger.String("domain", dom),
		logger.Float64("score", assessment.SafetyScore),
		logger.Duration("elapsed", c.now().Sub(start)))

	return assessment, nil
}

// decode maps the engine's flat component JSON onto an Assessment. The
// engine emits one numeric field per component key plus "aggregatedScore";
// a "preflight" marker ("dead" or "parked") short-circuits all components
// and is passed through as-is since scores are already flattened to 1.
func (c *Client) decode(dom string, data []byte) (*domain.Assessment, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, &domain.ScanFailure{Domain: dom, Cause: "malformed response body", Err: err}
	}

	aggregate, ok := numberField(fields, "aggregatedScore")
	if !ok {
		return nil, &domain.ScanFailure{Domain: dom, Cause: "response is missing a numeric aggregatedScore"}
	}
	if aggregate < 0 || aggregate > 100 {
		return nil, &domain.ScanFailure{
			Domain: dom,
			Cause:  fmt.Sprintf("aggregatedScore %v is out of range", aggregate),
		}
	}

	indicators := make([]domain.IndicatorResult, 0, c.catalog.Len())
	for _, ind := range c.catalog.Indicators {
		score, ok := numberField(fields, ind.Key)
		if !ok {
			// Components the engine did not evaluate are omitted rather
			// than reported as zero.
			continue
		}
		indicators = append(indicators, domain.IndicatorResult{
			ID:     ind.ID,
			Name:   ind.Name,
			Score:  score,
			Status: domain.StatusForScore(score),
		})
	}

	return &domain.Assessment{
		Domain:      dom,
		SafetyScore: aggregate,
		Indicators:  indicators,
		ComputedAt:  c.now(),
	}, nil
}

func numberField(fields map[string]json.RawMessage, key string) (float64, bool) {
	raw, ok := fields[key]
	if !ok {
		return 0, false
	}
	var val float64
	if err := json.Unmarshal(raw, &val); err != nil {
		return 0, false
	}
	return val, true
}
