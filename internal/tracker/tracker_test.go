package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/dennisdiepolder/monti/agentdesk/internal/storage"
	"github.com/dennisdiepolder/monti/agentdesk/internal/types"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/rs/zerolog"
)

// fakeClock is a manually advanced clock
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestTracker(t *testing.T, store storage.MetricsStore, clock *fakeClock) *Tracker {
	t.Helper()
	return New(context.Background(), store, zerolog.Nop(),
		WithClock(clock.Now),
		WithLocation(time.UTC),
	)
}

func completeCall(t *testing.T, tr *Tracker, clock *fakeClock, id string, d time.Duration) {
	t.Helper()
	ctx := context.Background()
	tr.StartCall(ctx, types.ContactDescriptor{ContactID: id})
	clock.Advance(d)
	if err := tr.EndCall(ctx, types.ContactDescriptor{ContactID: id}, types.CallStatusCompleted); err != nil {
		t.Fatalf("EndCall failed: %v", err)
	}
}

// failingStore fails every operation
type failingStore struct{}

func (failingStore) Load(context.Context) (*types.Snapshot, error) { return nil, errors.New("load failed") }
func (failingStore) Save(context.Context, types.Snapshot) error    { return errors.New("save failed") }
func (failingStore) Clear(context.Context) error                   { return errors.New("clear failed") }
func (failingStore) Close() error                                  { return nil }

func TestNewStartsWithTodayAndHours(t *testing.T) {
	clock := newFakeClock()
	tr := newTestTracker(t, storage.NewMemoryStore(), clock)

	m := tr.GetMetrics()
	if len(m.DailyStats) != 1 || m.DailyStats[0].Date != "2026-10-14" {
		t.Fatalf("expected one DailyStat for today, got %+v", m.DailyStats)
	}
	if len(m.HourlyData) != 24 {
		t.Fatalf("expected 24 hourly buckets, got %d", len(m.HourlyData))
	}
	if m.HourlyData[0].Hour != "00:00" || m.HourlyData[23].Hour != "23:00" {
		t.Errorf("unexpected bucket labels %s..%s", m.HourlyData[0].Hour, m.HourlyData[23].Hour)
	}
	if len(m.CallHistory) != 0 {
		t.Errorf("expected empty history, got %d", len(m.CallHistory))
	}
}

func TestCallDurationFromTick(t *testing.T) {
	clock := newFakeClock()
	tr := newTestTracker(t, storage.NewMemoryStore(), clock)
	ctx := context.Background()

	tr.StartCall(ctx, types.ContactDescriptor{ContactID: "c1"})
	if got := tr.GetMetrics().Calls.Active; got != 1 {
		t.Fatalf("expected 1 active call, got %d", got)
	}

	clock.Advance(5 * time.Second)
	tr.Tick(clock.Now())
	if got := tr.GetMetrics().CurrentCallDuration; got != 5 {
		t.Errorf("expected ticked duration 5, got %d", got)
	}

	if err := tr.EndCall(ctx, types.ContactDescriptor{ContactID: "c1"}, types.CallStatusCompleted); err != nil {
		t.Fatal(err)
	}

	m := tr.GetMetrics()
	if m.CallHistory[0].Duration != 5 {
		t.Errorf("expected duration 5, got %d", m.CallHistory[0].Duration)
	}
	if m.AgentStats.CallsHandled != 1 || m.AgentStats.AverageHandleTime != 5 {
		t.Errorf("unexpected agent stats %+v", m.AgentStats)
	}
	if m.Calls.Active != 0 || m.CurrentCallStart != nil || m.CurrentCallDuration != 0 {
		t.Errorf("expected idle call state, got active=%d start=%v dur=%d",
			m.Calls.Active, m.CurrentCallStart, m.CurrentCallDuration)
	}
}

func TestCallDurationWithoutTick(t *testing.T) {
	clock := newFakeClock()
	tr := newTestTracker(t, storage.NewMemoryStore(), clock)

	completeCall(t, tr, clock, "c1", 7*time.Second+600*time.Millisecond)

	if got := tr.GetMetrics().CallHistory[0].Duration; got != 7 {
		t.Errorf("expected floored duration 7, got %d", got)
	}
}

func TestEndCallDefaults(t *testing.T) {
	clock := newFakeClock()
	tr := newTestTracker(t, storage.NewMemoryStore(), clock)

	if err := tr.EndCall(context.Background(), types.ContactDescriptor{}, ""); err != nil {
		t.Fatal(err)
	}

	rec := tr.GetMetrics().CallHistory[0]
	want := types.CallRecord{
		ID:            fmt.Sprintf("call_%d", clock.Now().UnixMilli()),
		Type:          types.CallInbound,
		Duration:      0,
		Timestamp:     "2026-10-14T09:30:00.000Z",
		Status:        types.CallStatusCompleted,
		CustomerPhone: "Unknown",
		Queue:         "General",
	}
	if diff := cmp.Diff(want, rec); diff != "" {
		t.Errorf("record mismatch (-want +got):\n%s", diff)
	}
}

func TestEndCallUsesDescriptorFields(t *testing.T) {
	clock := newFakeClock()
	tr := newTestTracker(t, storage.NewMemoryStore(), clock)

	contact := types.ContactDescriptor{
		ContactID:   "c9",
		Type:        types.CallOutbound,
		PhoneNumber: "+4930123456",
		Queue:       &types.Queue{Name: "Support"},
	}
	if err := tr.EndCall(context.Background(), contact, types.CallStatusMissed); err != nil {
		t.Fatal(err)
	}

	rec := tr.GetMetrics().CallHistory[0]
	if rec.ID != "c9" || rec.Type != types.CallOutbound || rec.CustomerPhone != "+4930123456" || rec.Queue != "Support" {
		t.Errorf("unexpected record %+v", rec)
	}
}

func TestEndCallRejectsUnknownStatus(t *testing.T) {
	tr := newTestTracker(t, storage.NewMemoryStore(), newFakeClock())

	err := tr.EndCall(context.Background(), types.ContactDescriptor{}, "Transferred")
	if !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
	if n := len(tr.GetMetrics().CallHistory); n != 0 {
		t.Errorf("expected no record, got %d", n)
	}
}

func TestHistoryCap(t *testing.T) {
	clock := newFakeClock()
	tr := newTestTracker(t, storage.NewMemoryStore(), clock)

	for i := 0; i < 60; i++ {
		prior := len(tr.GetMetrics().CallHistory)
		completeCall(t, tr, clock, fmt.Sprintf("c%d", i), time.Second)

		m := tr.GetMetrics()
		want := prior + 1
		if want > DefaultHistoryLimit {
			want = DefaultHistoryLimit
		}
		if len(m.CallHistory) != want {
			t.Fatalf("call %d: expected history length %d, got %d", i, want, len(m.CallHistory))
		}
		if m.CallHistory[0].ID != fmt.Sprintf("c%d", i) {
			t.Fatalf("call %d: newest record not first: %s", i, m.CallHistory[0].ID)
		}
	}

	m := tr.GetMetrics()
	if last := m.CallHistory[len(m.CallHistory)-1].ID; last != "c10" {
		t.Errorf("expected oldest retained record c10, got %s", last)
	}
	// Windowed over retained history
	if m.Calls.Completed != DefaultHistoryLimit {
		t.Errorf("expected completed=%d, got %d", DefaultHistoryLimit, m.Calls.Completed)
	}
	// Day counter is not windowed
	if m.Calls.TotalToday != 60 {
		t.Errorf("expected totalToday=60, got %d", m.Calls.TotalToday)
	}
}

func TestTotalsAndAverages(t *testing.T) {
	clock := newFakeClock()
	tr := newTestTracker(t, storage.NewMemoryStore(), clock)
	ctx := context.Background()

	completeCall(t, tr, clock, "a", 10*time.Second)
	completeCall(t, tr, clock, "b", 20*time.Second)
	completeCall(t, tr, clock, "c", 25*time.Second)

	m := tr.GetMetrics()
	if m.Calls.TotalToday != 3 {
		t.Errorf("expected totalToday 3, got %d", m.Calls.TotalToday)
	}
	if m.AgentStats.AverageHandleTime != 18 {
		t.Errorf("expected floor(55/3)=18, got %d", m.AgentStats.AverageHandleTime)
	}
	if m.DailyStats[0].AvgHandleTime != 18 {
		t.Errorf("expected daily avg 18, got %d", m.DailyStats[0].AvgHandleTime)
	}
	if m.DailyStats[0].Satisfaction != defaultSatisfaction {
		t.Errorf("expected default satisfaction, got %v", m.DailyStats[0].Satisfaction)
	}
	if m.AgentStats.SatisfactionScore != defaultSatisfaction {
		t.Errorf("expected satisfaction score %v, got %v", float64(defaultSatisfaction), m.AgentStats.SatisfactionScore)
	}

	// A missed call leaves the handle time alone
	if err := tr.EndCall(ctx, types.ContactDescriptor{ContactID: "m"}, types.CallStatusMissed); err != nil {
		t.Fatal(err)
	}
	m = tr.GetMetrics()
	if m.AgentStats.AverageHandleTime != 18 {
		t.Errorf("missed call changed average to %d", m.AgentStats.AverageHandleTime)
	}
	if m.Calls.Missed != 1 || m.DailyStats[0].Missed != 1 {
		t.Errorf("expected one missed call, got calls=%d daily=%d", m.Calls.Missed, m.DailyStats[0].Missed)
	}
	if m.Calls.TotalToday != 4 {
		t.Errorf("expected totalToday 4, got %d", m.Calls.TotalToday)
	}

	if err := tr.EndCall(ctx, types.ContactDescriptor{ContactID: "x"}, types.CallStatusAbandoned); err != nil {
		t.Fatal(err)
	}
	if got := tr.GetMetrics().Calls.Abandoned; got != 1 {
		t.Errorf("expected abandoned 1, got %d", got)
	}
}

func TestTotalWeekUsesLastSevenDays(t *testing.T) {
	clock := newFakeClock()
	store := storage.NewMemoryStore()

	var daily []types.DailyStat
	start := clock.Now().AddDate(0, 0, -9)
	for i := 0; i < 9; i++ {
		daily = append(daily, types.DailyStat{
			Date:  start.AddDate(0, 0, i).Format("2006-01-02"),
			Calls: i + 1,
		})
	}
	if err := store.Save(context.Background(), types.Snapshot{DailyStats: daily}); err != nil {
		t.Fatal(err)
	}

	tr := newTestTracker(t, store, clock)
	m := tr.GetMetrics()

	// days 4..9 from storage plus today's empty stat
	if len(m.DailyStats) != 10 {
		t.Fatalf("expected 10 daily stats, got %d", len(m.DailyStats))
	}
	want := 4 + 5 + 6 + 7 + 8 + 9 + 0
	if m.Calls.TotalWeek != want {
		t.Errorf("expected totalWeek %d, got %d", want, m.Calls.TotalWeek)
	}
	if m.Calls.TotalToday != 0 {
		t.Errorf("expected totalToday 0, got %d", m.Calls.TotalToday)
	}
}

func TestSatisfactionMeanSkipsEmptyDays(t *testing.T) {
	clock := newFakeClock()
	store := storage.NewMemoryStore()
	snap := types.Snapshot{DailyStats: []types.DailyStat{
		{Date: "2026-10-10", Calls: 4, Satisfaction: 90},
		{Date: "2026-10-11", Calls: 0, Satisfaction: 40},
		{Date: "2026-10-12", Calls: 3, Satisfaction: 0},
		{Date: "2026-10-13", Calls: 2, Satisfaction: 70},
	}}
	if err := store.Save(context.Background(), snap); err != nil {
		t.Fatal(err)
	}

	tr := newTestTracker(t, store, clock)
	if got := tr.GetMetrics().AgentStats.SatisfactionScore; got != 80 {
		t.Errorf("expected mean 80, got %v", got)
	}
}

func TestUpdateSatisfactionScore(t *testing.T) {
	tr := newTestTracker(t, storage.NewMemoryStore(), newFakeClock())
	ctx := context.Background()

	if err := tr.UpdateSatisfactionScore(ctx, 100); err != nil {
		t.Fatal(err)
	}
	if err := tr.UpdateSatisfactionScore(ctx, 50); err != nil {
		t.Fatal(err)
	}

	// 0*0.9+100*0.1 = 10; 10*0.9+50*0.1 = 14
	got := tr.GetMetrics().AgentStats.RollingSatisfactionScore
	if !cmp.Equal(got, 14.0, cmpopts.EquateApprox(0, 1e-9)) {
		t.Errorf("expected rolling score 14, got %v", got)
	}
	if s := tr.GetMetrics().AgentStats.SatisfactionScore; s != 0 {
		t.Errorf("daily mean should be independent of the rolling score, got %v", s)
	}

	for _, bad := range []float64{-1, 101, math.NaN(), math.Inf(1), math.Inf(-1)} {
		if err := tr.UpdateSatisfactionScore(ctx, bad); !errors.Is(err, ErrInvalidScore) {
			t.Errorf("score %v: expected ErrInvalidScore, got %v", bad, err)
		}
	}
	if got := tr.GetMetrics().AgentStats.RollingSatisfactionScore; !cmp.Equal(got, 14.0, cmpopts.EquateApprox(0, 1e-9)) {
		t.Errorf("rejected scores changed the rolling score to %v", got)
	}
}

func TestRejectedScoreKeepsPersistenceWorking(t *testing.T) {
	clock := newFakeClock()
	store, err := storage.NewFileStore(t.TempDir(), "metrics", zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	tr := newTestTracker(t, store, clock)
	ctx := context.Background()

	if err := tr.UpdateSatisfactionScore(ctx, math.NaN()); !errors.Is(err, ErrInvalidScore) {
		t.Fatalf("expected ErrInvalidScore for NaN, got %v", err)
	}
	completeCall(t, tr, clock, "a", 3*time.Second)

	if _, err := json.Marshal(tr.GetMetrics()); err != nil {
		t.Fatalf("metrics no longer encode: %v", err)
	}
	reloaded := newTestTracker(t, store, clock).GetMetrics()
	if n := len(reloaded.CallHistory); n != 1 {
		t.Errorf("expected 1 persisted call, got %d", n)
	}
}

func TestHourlyBucketUsesLocation(t *testing.T) {
	clock := newFakeClock() // 09:30 UTC
	loc := time.FixedZone("UTC+2", 2*60*60)
	tr := New(context.Background(), storage.NewMemoryStore(), zerolog.Nop(),
		WithClock(clock.Now), WithLocation(loc))

	if err := tr.EndCall(context.Background(), types.ContactDescriptor{}, types.CallStatusCompleted); err != nil {
		t.Fatal(err)
	}

	for _, h := range tr.GetMetrics().HourlyData {
		want := 0
		if h.Hour == "11:00" {
			want = 1
		}
		if h.Calls != want {
			t.Errorf("bucket %s: expected %d, got %d", h.Hour, want, h.Calls)
		}
	}
}

func TestGetMetricsIsACopy(t *testing.T) {
	clock := newFakeClock()
	tr := newTestTracker(t, storage.NewMemoryStore(), clock)
	completeCall(t, tr, clock, "c1", 3*time.Second)

	a := tr.GetMetrics()
	b := tr.GetMetrics()
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("consecutive reads differ:\n%s", diff)
	}

	a.CallHistory[0].ID = "changed"
	a.HourlyData[0].Calls = 99
	if c := tr.GetMetrics(); c.CallHistory[0].ID != "c1" || c.HourlyData[0].Calls == 99 {
		t.Error("mutating returned metrics changed tracker state")
	}
}

func TestPersistRoundTrip(t *testing.T) {
	clock := newFakeClock()
	store := storage.NewMemoryStore()
	ctx := context.Background()

	tr := newTestTracker(t, store, clock)
	completeCall(t, tr, clock, "a", 12*time.Second)
	if err := tr.EndCall(ctx, types.ContactDescriptor{ContactID: "b"}, types.CallStatusMissed); err != nil {
		t.Fatal(err)
	}
	if err := tr.UpdateSatisfactionScore(ctx, 90); err != nil {
		t.Fatal(err)
	}
	tr.StartCall(ctx, types.ContactDescriptor{ContactID: "live"})
	before := tr.GetMetrics()

	snap, err := store.Load(ctx)
	if err != nil || snap == nil {
		t.Fatalf("expected stored snapshot, got %v, %v", snap, err)
	}
	if snap.Calls.Active != 0 {
		t.Errorf("active calls persisted: %d", snap.Calls.Active)
	}

	reloaded := newTestTracker(t, store, clock).GetMetrics()

	ignore := cmpopts.IgnoreFields(types.Metrics{}, "CurrentCallStart", "CurrentCallDuration", "Seq")
	ignoreActive := cmpopts.IgnoreFields(types.CallCounters{}, "Active")
	if diff := cmp.Diff(before, reloaded, ignore, ignoreActive); diff != "" {
		t.Errorf("reloaded metrics differ (-before +after):\n%s", diff)
	}
	if reloaded.Calls.Active != 0 {
		t.Errorf("expected no active calls after reload, got %d", reloaded.Calls.Active)
	}
}

func TestReset(t *testing.T) {
	clock := newFakeClock()
	store := storage.NewMemoryStore()
	tr := newTestTracker(t, store, clock)
	ctx := context.Background()

	completeCall(t, tr, clock, "a", time.Second)
	if err := tr.EndCall(ctx, types.ContactDescriptor{}, types.CallStatusMissed); err != nil {
		t.Fatal(err)
	}

	notified := 0
	tr.Subscribe(func(types.Metrics) { notified++ })
	tr.Reset(ctx)

	m := tr.GetMetrics()
	if len(m.CallHistory) != 0 || m.Calls.TotalToday != 0 || m.Calls.TotalWeek != 0 ||
		m.Calls.Completed != 0 || m.Calls.Missed != 0 {
		t.Errorf("expected zeroed counters, got %+v", m.Calls)
	}
	if diff := cmp.Diff([]types.DailyStat{{Date: "2026-10-14"}}, m.DailyStats); diff != "" {
		t.Errorf("daily stats mismatch:\n%s", diff)
	}
	if len(m.HourlyData) != 24 {
		t.Fatalf("expected 24 buckets, got %d", len(m.HourlyData))
	}
	for _, h := range m.HourlyData {
		if h.Calls != 0 {
			t.Errorf("bucket %s not zero", h.Hour)
		}
	}
	if notified != 1 {
		t.Errorf("expected one notification, got %d", notified)
	}
	if snap, _ := store.Load(ctx); snap != nil {
		t.Error("expected stored snapshot to be cleared")
	}
}

func TestSubscribeAndUnsubscribe(t *testing.T) {
	clock := newFakeClock()
	tr := newTestTracker(t, storage.NewMemoryStore(), clock)
	ctx := context.Background()

	var got []int
	unsubscribe := tr.Subscribe(func(m types.Metrics) { got = append(got, m.Calls.Active) })

	tr.StartCall(ctx, types.ContactDescriptor{ContactID: "c1"})
	unsubscribe()
	unsubscribe()
	if err := tr.EndCall(ctx, types.ContactDescriptor{ContactID: "c1"}, types.CallStatusCompleted); err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff([]int{1}, got); diff != "" {
		t.Errorf("notifications mismatch:\n%s", diff)
	}
}

func TestPanickingListenerIsIsolated(t *testing.T) {
	tr := newTestTracker(t, storage.NewMemoryStore(), newFakeClock())

	ok := 0
	tr.Subscribe(func(types.Metrics) { panic("boom") })
	tr.Subscribe(func(types.Metrics) { ok++ })

	if err := tr.EndCall(context.Background(), types.ContactDescriptor{}, types.CallStatusCompleted); err != nil {
		t.Fatal(err)
	}
	if ok != 1 {
		t.Errorf("expected second listener to run, ran %d times", ok)
	}
}

func TestTickNotifiesOnlyWhileActive(t *testing.T) {
	clock := newFakeClock()
	tr := newTestTracker(t, storage.NewMemoryStore(), clock)

	count := 0
	tr.Subscribe(func(types.Metrics) { count++ })

	tr.Tick(clock.Now())
	if count != 0 {
		t.Fatalf("tick without active call notified %d times", count)
	}

	tr.StartCall(context.Background(), types.ContactDescriptor{ContactID: "c1"})
	count = 0
	clock.Advance(time.Second)
	tr.Tick(clock.Now())
	if count != 1 {
		t.Errorf("expected one tick notification, got %d", count)
	}
}

func TestOverlappingCallsByContactID(t *testing.T) {
	clock := newFakeClock()
	tr := newTestTracker(t, storage.NewMemoryStore(), clock)
	ctx := context.Background()

	tr.StartCall(ctx, types.ContactDescriptor{ContactID: "a"})
	tr.StartCall(ctx, types.ContactDescriptor{ContactID: "a"})
	if got := tr.GetMetrics().Calls.Active; got != 1 {
		t.Fatalf("duplicate start counted: active=%d", got)
	}

	clock.Advance(10 * time.Second)
	tr.StartCall(ctx, types.ContactDescriptor{ContactID: "b"})
	if got := tr.GetMetrics().Calls.Active; got != 2 {
		t.Fatalf("expected 2 active calls, got %d", got)
	}

	clock.Advance(4 * time.Second)
	if err := tr.EndCall(ctx, types.ContactDescriptor{ContactID: "a"}, types.CallStatusCompleted); err != nil {
		t.Fatal(err)
	}
	m := tr.GetMetrics()
	if m.CallHistory[0].Duration != 14 {
		t.Errorf("expected first call to keep its own start, got %d", m.CallHistory[0].Duration)
	}
	if m.Calls.Active != 1 || m.CurrentCallStart == nil {
		t.Errorf("expected b to stay active, got active=%d", m.Calls.Active)
	}

	// unknown contact does not end b
	if err := tr.EndCall(ctx, types.ContactDescriptor{ContactID: "zzz"}, types.CallStatusMissed); err != nil {
		t.Fatal(err)
	}
	if got := tr.GetMetrics().Calls.Active; got != 1 {
		t.Errorf("unknown contact ended the active call")
	}

	if err := tr.EndCall(ctx, types.ContactDescriptor{}, types.CallStatusCompleted); err != nil {
		t.Fatal(err)
	}
	m = tr.GetMetrics()
	if m.Calls.Active != 0 || m.CallHistory[0].Duration != 4 {
		t.Errorf("expected b ended with duration 4, got active=%d duration=%d", m.Calls.Active, m.CallHistory[0].Duration)
	}
}

func TestStorageFailuresAreSwallowed(t *testing.T) {
	clock := newFakeClock()
	tr := newTestTracker(t, failingStore{}, clock)

	completeCall(t, tr, clock, "a", 2*time.Second)
	tr.Reset(context.Background())
	completeCall(t, tr, clock, "b", 3*time.Second)

	m := tr.GetMetrics()
	if len(m.CallHistory) != 1 || m.CallHistory[0].ID != "b" {
		t.Errorf("in-memory state lost after storage errors: %+v", m.CallHistory)
	}
}

func TestAddACWTime(t *testing.T) {
	tr := newTestTracker(t, storage.NewMemoryStore(), newFakeClock())
	tr.AddACWTime(context.Background(), 30*time.Second)
	tr.AddACWTime(context.Background(), 0)

	if got := tr.GetMetrics().AgentStats.ACWTime; got != 30 {
		t.Errorf("expected 30s ACW, got %d", got)
	}
}

func TestConcurrentUse(t *testing.T) {
	clock := newFakeClock()
	tr := newTestTracker(t, storage.NewMemoryStore(), clock)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("c%d", i)
			tr.StartCall(ctx, types.ContactDescriptor{ContactID: id})
			tr.Tick(clock.Now())
			_ = tr.EndCall(ctx, types.ContactDescriptor{ContactID: id}, types.CallStatusCompleted)
			_ = tr.GetMetrics()
		}(i)
	}
	wg.Wait()

	m := tr.GetMetrics()
	if m.Calls.Active != 0 || m.Calls.TotalToday != 20 {
		t.Errorf("expected 20 ended calls and none active, got %+v", m.Calls)
	}
}

func TestAbandonActiveCalls(t *testing.T) {
	clock := newFakeClock()
	tr := newTestTracker(t, storage.NewMemoryStore(), clock)
	ctx := context.Background()

	if n := tr.AbandonActiveCalls(ctx); n != 0 {
		t.Fatalf("expected nothing to abandon, got %d", n)
	}

	tr.StartCall(ctx, types.ContactDescriptor{ContactID: "a"})
	clock.Advance(5 * time.Second)
	tr.StartCall(ctx, types.ContactDescriptor{ContactID: "b"})
	clock.Advance(3 * time.Second)

	if n := tr.AbandonActiveCalls(ctx); n != 2 {
		t.Fatalf("expected 2 abandoned calls, got %d", n)
	}

	m := tr.GetMetrics()
	if m.Calls.Active != 0 || m.CurrentCallStart != nil || m.CurrentCallDuration != 0 {
		t.Errorf("expected idle tracker, got active=%d start=%v duration=%d",
			m.Calls.Active, m.CurrentCallStart, m.CurrentCallDuration)
	}
	if m.Calls.Abandoned != 2 || m.Calls.TotalToday != 2 || m.AgentStats.CallsHandled != 0 {
		t.Errorf("unexpected counters: %+v handled=%d", m.Calls, m.AgentStats.CallsHandled)
	}
	durations := map[string]int{}
	for _, c := range m.CallHistory {
		if c.Status != types.CallStatusAbandoned {
			t.Errorf("call %s has status %s", c.ID, c.Status)
		}
		durations[c.ID] = c.Duration
	}
	if diff := cmp.Diff(map[string]int{"a": 8, "b": 3}, durations); diff != "" {
		t.Errorf("durations mismatch (-want +got):\n%s", diff)
	}

	count := 0
	tr.Subscribe(func(types.Metrics) { count++ })
	tr.Tick(clock.Now().Add(time.Hour))
	if count != 0 {
		t.Errorf("tick notified %d times after calls were abandoned", count)
	}
}

func TestNotificationsCarryIncreasingSeq(t *testing.T) {
	clock := newFakeClock()
	tr := newTestTracker(t, storage.NewMemoryStore(), clock)
	ctx := context.Background()

	var seqs []uint64
	tr.Subscribe(func(m types.Metrics) { seqs = append(seqs, m.Seq) })

	tr.StartCall(ctx, types.ContactDescriptor{ContactID: "a"})
	clock.Advance(time.Second)
	tr.Tick(clock.Now())
	if err := tr.EndCall(ctx, types.ContactDescriptor{ContactID: "a"}, types.CallStatusCompleted); err != nil {
		t.Fatal(err)
	}
	tr.Reset(ctx)

	if len(seqs) != 4 {
		t.Fatalf("expected 4 notifications, got %d", len(seqs))
	}
	for i := 1; i < len(seqs); i++ {
		if seqs[i] <= seqs[i-1] {
			t.Errorf("seq did not increase: %v", seqs)
		}
	}
	if got := tr.GetMetrics().Seq; got != seqs[len(seqs)-1] {
		t.Errorf("GetMetrics().Seq = %d, want %d", got, seqs[len(seqs)-1])
	}
}
