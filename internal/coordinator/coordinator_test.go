package coordinator

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/netstar-dev/advisor/internal/assess"
	"github.com/netstar-dev/advisor/internal/bus"
	"github.com/netstar-dev/advisor/internal/domain"
	"github.com/netstar-dev/advisor/internal/gateway"
	"github.com/netstar-dev/advisor/internal/logger"
	redisstore "github.com/netstar-dev/advisor/internal/store/redis"
	"github.com/netstar-dev/advisor/internal/tabs"
)

// fakeStorage backs the assessment cache in memory.
type fakeStorage struct {
	scans   map[string]redisstore.CacheEntry
	signals map[string]redisstore.SignalEntry
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{
		scans:   make(map[string]redisstore.CacheEntry),
		signals: make(map[string]redisstore.SignalEntry),
	}
}

func (f *fakeStorage) GetScan(_ context.Context, dom string) (*redisstore.CacheEntry, error) {
	entry, ok := f.scans[dom]
	if !ok {
		return nil, nil
	}
	return &entry, nil
}

func (f *fakeStorage) SaveScan(_ context.Context, entry redisstore.CacheEntry) error {
	f.scans[entry.Value.Domain] = entry
	return nil
}

func (f *fakeStorage) DeleteScan(_ context.Context, dom string) error {
	delete(f.scans, dom)
	return nil
}

func (f *fakeStorage) GetSignals(_ context.Context, dom string) (*redisstore.SignalEntry, error) {
	entry, ok := f.signals[dom]
	if !ok {
		return nil, nil
	}
	return &entry, nil
}

// fakeFetcher counts upstream scans.
type fakeFetcher struct {
	calls int
	score float64
}

func (f *fakeFetcher) Fetch(_ context.Context, dom string, _ json.RawMessage) (*domain.Assessment, error) {
	f.calls++
	return &domain.Assessment{
		Domain:      dom,
		SafetyScore: f.score,
		Indicators: []domain.IndicatorResult{
			{ID: "cert", Name: "Certificate Health", Score: f.score, Status: domain.StatusForScore(f.score)},
		},
		ComputedAt: time.Now(),
	}, nil
}

// fakeStore implements the coordinator's persistent-store slice.
type fakeStore struct {
	recent  []domain.RecentScan
	signals []redisstore.SignalEntry
}

func (s *fakeStore) PushRecent(_ context.Context, scan domain.RecentScan, capacity int) error {
	next := []domain.RecentScan{scan}
	for _, existing := range s.recent {
		if existing.Domain == scan.Domain {
			continue
		}
		next = append(next, existing)
		if len(next) == capacity {
			break
		}
	}
	s.recent = next
	return nil
}

func (s *fakeStore) Recent(_ context.Context) ([]domain.RecentScan, error) {
	return s.recent, nil
}

func (s *fakeStore) SaveSignals(_ context.Context, entry redisstore.SignalEntry) error {
	s.signals = append(s.signals, entry)
	return nil
}

type fixture struct {
	coord   *Coordinator
	fetcher *fakeFetcher
	store   *fakeStore
	bus     *bus.Bus
	reg     *tabs.Registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := logger.New("error", false)
	b := bus.New()
	storage := newFakeStorage()
	fetcher := &fakeFetcher{score: 82}
	cache := assess.NewCache(storage, fetcher, 5*time.Minute, 5*time.Minute, log, nil)
	store := &fakeStore{}
	sessions := gateway.NewSessionTracker()
	reg := tabs.NewRegistry()

	coord := New(Options{
		Cache:     cache,
		Registry:  reg,
		Store:     store,
		Bus:       b,
		Alerts:    gateway.NewAlertGateway(gateway.NewBusMessenger(b), sessions, 3, time.Millisecond, log),
		Notify:    gateway.NewNotificationGateway(b, &staticPrefs{}, &gateway.HostPermission{}, log),
		Icons:     gateway.NewIconGateway(b, time.Minute, log),
		Sessions:  sessions,
		RecentCap: 3,
		Logger:    log,
	})
	return &fixture{coord: coord, fetcher: fetcher, store: store, bus: b, reg: reg}
}

type staticPrefs struct{ enabled bool }

func (p *staticPrefs) NotificationPref(context.Context) (bool, error) { return p.enabled, nil }
func (p *staticPrefs) SetNotificationPref(_ context.Context, enabled bool) error {
	p.enabled = enabled
	return nil
}

func scanURL(t *testing.T, fx *fixture, url string) ScanResponse {
	t.Helper()
	result, err := fx.coord.HandleCommand(context.Background(), &bus.ScanURLCommand{URL: url})
	if err != nil {
		t.Fatalf("HandleCommand(scanUrl) error = %v", err)
	}
	resp, ok := result.(ScanResponse)
	if !ok {
		t.Fatalf("result type = %T, want ScanResponse", result)
	}
	return resp
}

func TestScanURLRejectsInputWithoutTLD(t *testing.T) {
	fx := newFixture(t)

	resp := scanURL(t, fx, "hello")
	if !resp.Error {
		t.Error("expected an error response")
	}
	if fx.fetcher.calls != 0 {
		t.Errorf("upstream calls = %d, want 0 (pre-flight must short-circuit)", fx.fetcher.calls)
	}
}

func TestScanURLCacheHitReturnsIdenticalTimestamp(t *testing.T) {
	fx := newFixture(t)

	first := scanURL(t, fx, "example.com")
	if first.Error {
		t.Fatalf("unexpected error response: %s", first.Message)
	}
	second := scanURL(t, fx, "example.com")

	if fx.fetcher.calls != 1 {
		t.Errorf("upstream calls = %d, want 1", fx.fetcher.calls)
	}
	if !second.Timestamp.Equal(first.Timestamp) {
		t.Errorf("timestamps differ across a cache hit: %v vs %v", first.Timestamp, second.Timestamp)
	}
}

func TestScanURLVariantsShareCacheKey(t *testing.T) {
	fx := newFixture(t)

	first := scanURL(t, fx, "example.com")
	second := scanURL(t, fx, "https://WWW.Example.com/page")

	if fx.fetcher.calls != 1 {
		t.Errorf("upstream calls = %d, want 1", fx.fetcher.calls)
	}
	if !second.Timestamp.Equal(first.Timestamp) {
		t.Error("url variant missed the cache")
	}
}

func TestScanURLZeroScoreKeepsScoreFields(t *testing.T) {
	fx := newFixture(t)
	fx.fetcher.score = 0 // worst valid result, still a result

	resp := scanURL(t, fx, "worst.example")
	if resp.Error {
		t.Fatalf("unexpected error response: %s", resp.Message)
	}

	body, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"safetyScore", "indicators", "timestamp"} {
		if _, ok := fields[key]; !ok {
			t.Errorf("serialized response is missing %q", key)
		}
	}
	if string(fields["safetyScore"]) != "0" {
		t.Errorf("safetyScore = %s, want 0", fields["safetyScore"])
	}
}

func TestScanURLUpdatesRecentScansWithDedup(t *testing.T) {
	fx := newFixture(t)

	scanURL(t, fx, "a.example.com")
	scanURL(t, fx, "b.example.com")
	scanURL(t, fx, "a.example.com") // moves to front, no duplicate

	if len(fx.store.recent) != 2 {
		t.Fatalf("recent entries = %d, want 2", len(fx.store.recent))
	}
	if fx.store.recent[0].Domain != "a.example.com" {
		t.Errorf("front entry = %q, want %q", fx.store.recent[0].Domain, "a.example.com")
	}
}

func TestGetCurrentTabNoAssessablePage(t *testing.T) {
	fx := newFixture(t)
	fx.reg.Replace([]*tabs.Tab{
		{ID: 1, WindowID: 1, URL: "chrome://settings", Active: true},
	})

	result, err := fx.coord.HandleCommand(context.Background(), &bus.GetCurrentTabCommand{WindowID: 1, RequestID: "req-9"})
	if err != nil {
		t.Fatalf("HandleCommand() error = %v", err)
	}
	body, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(body) != "{}" {
		t.Errorf("result = %s, want empty object (terminal state, not deferred)", body)
	}
}

func TestGetCurrentTabFastPathWithCachedAssessment(t *testing.T) {
	fx := newFixture(t)
	fx.reg.Replace([]*tabs.Tab{
		{ID: 1, WindowID: 1, Index: 0, URL: "https://example.com/page", Title: "Example", Active: true},
	})

	// Warm the cache
	scanURL(t, fx, "example.com")

	result, err := fx.coord.HandleCommand(context.Background(), &bus.GetCurrentTabCommand{
		WindowID:  1,
		RequestID: "req-1",
	})
	if err != nil {
		t.Fatalf("HandleCommand() error = %v", err)
	}

	resp, ok := result.(CurrentTabResponse)
	if !ok {
		t.Fatalf("result type = %T, want CurrentTabResponse (fast path)", result)
	}
	if resp.SecurityData == nil {
		t.Fatal("fast path answer is missing security data")
	}
	if resp.SecurityData.Domain != "example.com" {
		t.Errorf("domain = %q, want %q", resp.SecurityData.Domain, "example.com")
	}
	if fx.fetcher.calls != 1 {
		t.Errorf("upstream calls = %d, want 1 (fast path must not refetch)", fx.fetcher.calls)
	}
}

func TestGetCurrentTabDeferredAnswerArrivesAsCorrelatedMessage(t *testing.T) {
	fx := newFixture(t)
	fx.reg.Replace([]*tabs.Tab{
		{ID: 1, WindowID: 1, Index: 0, URL: "https://fresh.example", Title: "Fresh", Active: true},
	})

	ch, cancel := fx.bus.Subscribe(16)
	defer cancel()

	result, err := fx.coord.HandleCommand(context.Background(), &bus.GetCurrentTabCommand{
		WindowID:  1,
		RequestID: "req-42",
	})
	if err != nil {
		t.Fatalf("HandleCommand() error = %v", err)
	}
	if result != nil {
		t.Fatalf("result = %v, want nil (answer is deferred)", result)
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case env := <-ch:
			if env.Action != bus.ActionCurrentTabResult {
				continue
			}
			if env.RequestID != "req-42" {
				t.Fatalf("requestId = %q, want %q", env.RequestID, "req-42")
			}
			var resp CurrentTabResponse
			if err := json.Unmarshal(env.Payload, &resp); err != nil {
				t.Fatalf("failed to decode payload: %v", err)
			}
			if resp.SecurityData == nil {
				t.Fatal("deferred answer is missing security data")
			}
			if resp.SecurityData.Domain != "fresh.example" {
				t.Errorf("domain = %q, want %q", resp.SecurityData.Domain, "fresh.example")
			}
			return
		case <-deadline:
			t.Fatal("correlated message never arrived")
		}
	}
}

func TestNavigationTriggersPipeline(t *testing.T) {
	fx := newFixture(t)
	fx.fetcher.score = 40 // danger tier

	ch, cancel := fx.bus.Subscribe(16)
	defer cancel()

	_, err := fx.coord.HandleCommand(context.Background(), &bus.NavigationDoneCommand{
		Tab: &tabs.Tab{ID: 7, WindowID: 1, Index: 0, URL: "https://sketchy.example", Active: true},
	})
	if err != nil {
		t.Fatalf("HandleCommand() error = %v", err)
	}

	sawIcon, sawOverlay := false, false
	deadline := time.After(2 * time.Second)
	for !sawIcon || !sawOverlay {
		select {
		case env := <-ch:
			switch env.Action {
			case bus.ActionIconUpdate:
				sawIcon = true
			case bus.ActionOverlayShow:
				sawOverlay = true
			}
		case <-deadline:
			t.Fatalf("pipeline incomplete: icon=%v overlay=%v", sawIcon, sawOverlay)
		}
	}

	// The scan also lands in the recent list
	waitFor(t, func() bool { return len(fx.store.recent) == 1 })
}

func TestInternalPageNavigationIsIgnored(t *testing.T) {
	fx := newFixture(t)

	_, err := fx.coord.HandleCommand(context.Background(), &bus.NavigationDoneCommand{
		Tab: &tabs.Tab{ID: 7, WindowID: 1, URL: "about:blank", Active: true},
	})
	if err != nil {
		t.Fatalf("HandleCommand() error = %v", err)
	}

	time.Sleep(50 * time.Millisecond)
	if fx.fetcher.calls != 0 {
		t.Errorf("upstream calls = %d, want 0", fx.fetcher.calls)
	}
}

func TestLiveSignalsStoredUnderCanonicalDomain(t *testing.T) {
	fx := newFixture(t)

	_, err := fx.coord.HandleCommand(context.Background(), &bus.LiveSignalsCommand{
		URL:     "https://WWW.Example.com/checkout",
		Signals: json.RawMessage(`{"forms":1}`),
	})
	if err != nil {
		t.Fatalf("HandleCommand() error = %v", err)
	}

	if len(fx.store.signals) != 1 {
		t.Fatalf("stored signals = %d, want 1", len(fx.store.signals))
	}
	if fx.store.signals[0].Domain != "example.com" {
		t.Errorf("signal domain = %q, want %q", fx.store.signals[0].Domain, "example.com")
	}
}

func TestTabRemovalDropsSessionState(t *testing.T) {
	fx := newFixture(t)
	fx.reg.Replace([]*tabs.Tab{
		{ID: 3, WindowID: 1, URL: "https://example.com", Active: true},
	})

	if _, err := fx.coord.HandleCommand(context.Background(), &bus.TabRemovedCommand{TabID: 3}); err != nil {
		t.Fatalf("HandleCommand() error = %v", err)
	}
	if _, ok := fx.reg.Get(3); ok {
		t.Error("tab still in registry after removal")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition never became true")
}
