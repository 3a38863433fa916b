package tracker

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/dennisdiepolder/monti/agentdesk/internal/storage"
	"github.com/dennisdiepolder/monti/agentdesk/internal/types"
	"github.com/rs/zerolog"
)

const (
	DefaultHistoryLimit = 50
	DefaultDailyLimit   = 30

	defaultSatisfaction = 85
	weekDays            = 7
	storeTimeout        = 5 * time.Second
)

var (
	ErrInvalidStatus = errors.New("invalid call status")
	ErrInvalidScore  = errors.New("satisfaction score must be between 0 and 100")
)

// Listener receives a copy of the metrics after every change
type Listener func(types.Metrics)

type listenerEntry struct {
	id int
	fn Listener
}

// activeCall is one connected contact that has not ended yet
type activeCall struct {
	contactID string
	start     time.Time
	duration  int // seconds, advanced by Tick
}

// Tracker aggregates call events into rolling statistics and persists a
// snapshot after every change. It is safe for concurrent use.
type Tracker struct {
	mu     sync.Mutex
	store  storage.MetricsStore
	logger zerolog.Logger

	now          func() time.Time
	loc          *time.Location
	historyLimit int
	dailyLimit   int

	metrics types.Metrics
	active  []*activeCall // start order, last is current

	listeners []listenerEntry
	nextID    int
}

// Option configures a Tracker
type Option func(*Tracker)

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithLocation sets the zone used for hour-of-day buckets
func WithLocation(loc *time.Location) Option {
	return func(t *Tracker) { t.loc = loc }
}

func WithHistoryLimit(n int) Option {
	return func(t *Tracker) {
		if n > 0 {
			t.historyLimit = n
		}
	}
}

func WithDailyLimit(n int) Option {
	return func(t *Tracker) {
		if n > 0 {
			t.dailyLimit = n
		}
	}
}

// New creates a tracker and restores the last snapshot from store.
// A failed load is logged and the tracker starts empty.
func New(ctx context.Context, store storage.MetricsStore, logger zerolog.Logger, opts ...Option) *Tracker {
	if store == nil {
		store = storage.NewNoopStore()
	}
	t := &Tracker{
		store:        store,
		logger:       logger.With().Str("component", "tracker").Logger(),
		now:          time.Now,
		loc:          time.Local,
		historyLimit: DefaultHistoryLimit,
		dailyLimit:   DefaultDailyLimit,
	}
	for _, opt := range opts {
		opt(t)
	}

	t.metrics = emptyMetrics()
	t.load(ctx)
	t.ensureToday()

	t.logger.Info().
		Int("history", len(t.metrics.CallHistory)).
		Int("days", len(t.metrics.DailyStats)).
		Int("totalToday", t.metrics.Calls.TotalToday).
		Msg("metrics tracker ready")

	return t
}

func emptyMetrics() types.Metrics {
	return types.Metrics{
		CallHistory: []types.CallRecord{},
		DailyStats:  []types.DailyStat{},
		HourlyData:  emptyHours(),
	}
}

func emptyHours() []types.HourlyBucket {
	hours := make([]types.HourlyBucket, 24)
	for h := range hours {
		hours[h] = types.HourlyBucket{Hour: hourKey(h)}
	}
	return hours
}

func hourKey(h int) string {
	return fmt.Sprintf("%02d:00", h)
}

func dateKey(now time.Time) string {
	return now.UTC().Format("2006-01-02")
}

func (t *Tracker) load(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	snap, err := t.store.Load(ctx)
	if err != nil {
		t.logger.Error().Err(err).Msg("failed to load metrics, starting fresh")
		return
	}
	if snap == nil {
		return
	}

	if snap.CallHistory != nil {
		t.metrics.CallHistory = snap.CallHistory
	}
	if snap.DailyStats != nil {
		t.metrics.DailyStats = snap.DailyStats
	}
	if len(snap.HourlyData) > 0 {
		t.metrics.HourlyData = snap.HourlyData
	}
	t.metrics.AgentStats = snap.AgentStats
	t.metrics.Calls = snap.Calls
	t.metrics.Calls.Active = 0
}

// ensureToday makes sure the hourly buckets and today's DailyStat exist, then
// recalculates the derived totals. Caller holds mu or owns t exclusively.
func (t *Tracker) ensureToday() {
	if len(t.metrics.HourlyData) == 0 {
		t.metrics.HourlyData = emptyHours()
	}
	t.todayStats(t.now())
	t.recalculate()
}

// todayStats returns today's DailyStat, appending it when missing
func (t *Tracker) todayStats(now time.Time) *types.DailyStat {
	today := dateKey(now)
	for i := range t.metrics.DailyStats {
		if t.metrics.DailyStats[i].Date == today {
			return &t.metrics.DailyStats[i]
		}
	}
	t.metrics.DailyStats = append(t.metrics.DailyStats, types.DailyStat{Date: today})
	if n := len(t.metrics.DailyStats); n > t.dailyLimit {
		t.metrics.DailyStats = t.metrics.DailyStats[n-t.dailyLimit:]
	}
	return &t.metrics.DailyStats[len(t.metrics.DailyStats)-1]
}

// recalculate derives the headline counters and agent stats from history and
// daily stats. RollingSatisfactionScore, ACWTime and IdleTime are left alone.
func (t *Tracker) recalculate() {
	m := &t.metrics
	today := dateKey(t.now())

	m.Calls.TotalToday = 0
	for _, d := range m.DailyStats {
		if d.Date == today {
			m.Calls.TotalToday = d.Calls
			break
		}
	}

	week := m.DailyStats
	if len(week) > weekDays {
		week = week[len(week)-weekDays:]
	}
	m.Calls.TotalWeek = 0
	for _, d := range week {
		m.Calls.TotalWeek += d.Calls
	}

	var completed, missed, abandoned, handle int
	for _, c := range m.CallHistory {
		switch c.Status {
		case types.CallStatusCompleted:
			completed++
			handle += c.Duration
		case types.CallStatusMissed:
			missed++
		case types.CallStatusAbandoned:
			abandoned++
		}
	}
	m.Calls.Completed = completed
	m.Calls.Missed = missed
	m.Calls.Abandoned = abandoned
	m.Calls.Active = len(t.active)

	m.AgentStats.TotalHandleTime = handle
	m.AgentStats.CallsHandled = completed
	m.AgentStats.AverageHandleTime = 0
	if completed > 0 {
		m.AgentStats.AverageHandleTime = handle / completed
	}

	var satSum float64
	var satDays int
	for _, d := range m.DailyStats {
		if d.Calls > 0 && d.Satisfaction > 0 {
			satSum += d.Satisfaction
			satDays++
		}
	}
	m.AgentStats.SatisfactionScore = 0
	if satDays > 0 {
		m.AgentStats.SatisfactionScore = satSum / float64(satDays)
	}

	t.syncCurrent()
}

// syncCurrent mirrors the current active call into the transient fields
func (t *Tracker) syncCurrent() {
	if len(t.active) == 0 {
		t.metrics.CurrentCallStart = nil
		t.metrics.CurrentCallDuration = 0
		return
	}
	cur := t.active[len(t.active)-1]
	start := cur.start.UnixMilli()
	t.metrics.CurrentCallStart = &start
	t.metrics.CurrentCallDuration = cur.duration
}

func (t *Tracker) findActive(contactID string) int {
	for i, c := range t.active {
		if c.contactID == contactID {
			return i
		}
	}
	return -1
}

// StartCall marks a contact as connected. Starting a contact that is already
// active does nothing.
func (t *Tracker) StartCall(ctx context.Context, contact types.ContactDescriptor) {
	t.mu.Lock()
	if contact.ContactID != "" && t.findActive(contact.ContactID) >= 0 {
		t.mu.Unlock()
		t.logger.Debug().Str("contact_id", contact.ContactID).Msg("call already active")
		return
	}

	t.active = append(t.active, &activeCall{
		contactID: contact.ContactID,
		start:     t.now(),
	})
	t.recalculate()
	t.save(ctx)

	t.logger.Info().
		Str("contact_id", contact.ContactID).
		Int("active", t.metrics.Calls.Active).
		Msg("call started")

	t.notifyAndUnlock()
}

// endTarget picks the active call an EndCall refers to: the one with the same
// contact id, else the current call when the id is empty or the current call
// was started without one. Returns -1 when nothing matches.
func (t *Tracker) endTarget(contactID string) int {
	if len(t.active) == 0 {
		return -1
	}
	if contactID != "" {
		if i := t.findActive(contactID); i >= 0 {
			return i
		}
	}
	last := len(t.active) - 1
	if contactID == "" || t.active[last].contactID == "" {
		return last
	}
	return -1
}

// EndCall records the outcome of a contact. An empty status means Completed.
func (t *Tracker) EndCall(ctx context.Context, contact types.ContactDescriptor, status types.CallStatus) error {
	if status == "" {
		status = types.CallStatusCompleted
	}
	if !status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	t.mu.Lock()
	now := t.now()

	duration := 0
	if i := t.endTarget(contact.ContactID); i >= 0 {
		call := t.active[i]
		duration = call.duration
		if duration == 0 {
			duration = int(now.Sub(call.start) / time.Second)
		}
		if duration < 0 {
			duration = 0
		}
		t.active = append(t.active[:i], t.active[i+1:]...)
	}

	record := types.CallRecord{
		ID:            contact.ContactID,
		Type:          contact.Type,
		Duration:      duration,
		Timestamp:     now.UTC().Format("2006-01-02T15:04:05.000Z"),
		Status:        status,
		CustomerPhone: contact.CustomerPhoneOr("Unknown"),
		Queue:         contact.QueueNameOr("General"),
	}
	if record.ID == "" {
		record.ID = fmt.Sprintf("call_%d", now.UnixMilli())
	}
	if record.Type == "" {
		record.Type = types.CallInbound
	}

	t.metrics.CallHistory = append([]types.CallRecord{record}, t.metrics.CallHistory...)
	if len(t.metrics.CallHistory) > t.historyLimit {
		t.metrics.CallHistory = t.metrics.CallHistory[:t.historyLimit]
	}

	hour := hourKey(now.In(t.loc).Hour())
	for i := range t.metrics.HourlyData {
		if t.metrics.HourlyData[i].Hour == hour {
			t.metrics.HourlyData[i].Calls++
			break
		}
	}

	day := t.todayStats(now)
	day.Calls++
	switch status {
	case types.CallStatusCompleted:
		day.Completed++
		day.AvgHandleTime = (day.AvgHandleTime*(day.Completed-1) + duration) / day.Completed
		if day.Satisfaction == 0 {
			day.Satisfaction = defaultSatisfaction
		}
	case types.CallStatusMissed:
		day.Missed++
	}

	t.recalculate()
	t.save(ctx)

	t.logger.Info().
		Str("call_id", record.ID).
		Str("status", string(status)).
		Int("duration", duration).
		Int("totalToday", t.metrics.Calls.TotalToday).
		Msg("call ended")

	t.notifyAndUnlock()
	return nil
}

// UpdateSatisfactionScore folds a survey score into the rolling average
func (t *Tracker) UpdateSatisfactionScore(ctx context.Context, score float64) error {
	if math.IsNaN(score) || math.IsInf(score, 0) || score < 0 || score > 100 {
		return fmt.Errorf("%w: got %v", ErrInvalidScore, score)
	}

	t.mu.Lock()
	stats := &t.metrics.AgentStats
	stats.RollingSatisfactionScore = stats.RollingSatisfactionScore*0.9 + score*0.1
	t.save(ctx)
	t.notifyAndUnlock()
	return nil
}

// AddACWTime adds finished after-contact-work time to the agent stats
func (t *Tracker) AddACWTime(ctx context.Context, d time.Duration) {
	secs := int(d / time.Second)
	if secs <= 0 {
		return
	}
	t.mu.Lock()
	t.metrics.AgentStats.ACWTime += secs
	t.save(ctx)
	t.notifyAndUnlock()
}

// AbandonActiveCalls ends every active call as Abandoned and returns how
// many were ended. Used when the workspace session goes away mid-call and
// no clear or missed event will follow.
func (t *Tracker) AbandonActiveCalls(ctx context.Context) int {
	t.mu.Lock()
	if len(t.active) == 0 {
		t.mu.Unlock()
		return 0
	}
	now := t.now()
	day := t.todayStats(now)
	hour := hourKey(now.In(t.loc).Hour())

	n := len(t.active)
	for _, call := range t.active {
		duration := call.duration
		if duration == 0 {
			duration = int(now.Sub(call.start) / time.Second)
		}
		if duration < 0 {
			duration = 0
		}
		id := call.contactID
		if id == "" {
			id = fmt.Sprintf("call_%d", call.start.UnixMilli())
		}
		t.metrics.CallHistory = append([]types.CallRecord{{
			ID:            id,
			Type:          types.CallInbound,
			Duration:      duration,
			Timestamp:     now.UTC().Format("2006-01-02T15:04:05.000Z"),
			Status:        types.CallStatusAbandoned,
			CustomerPhone: "Unknown",
			Queue:         "General",
		}}, t.metrics.CallHistory...)

		for i := range t.metrics.HourlyData {
			if t.metrics.HourlyData[i].Hour == hour {
				t.metrics.HourlyData[i].Calls++
				break
			}
		}
		day.Calls++
	}
	if len(t.metrics.CallHistory) > t.historyLimit {
		t.metrics.CallHistory = t.metrics.CallHistory[:t.historyLimit]
	}
	t.active = nil

	t.recalculate()
	t.save(ctx)

	t.logger.Warn().Int("abandoned", n).Msg("active calls abandoned")

	t.notifyAndUnlock()
	return n
}

// Tick advances the duration of every active call. Listeners are notified
// only while a call is active.
func (t *Tracker) Tick(now time.Time) {
	t.mu.Lock()
	if len(t.active) == 0 {
		t.mu.Unlock()
		return
	}
	for _, c := range t.active {
		if d := int(now.Sub(c.start) / time.Second); d > 0 {
			c.duration = d
		}
	}
	t.syncCurrent()
	t.notifyAndUnlock()
}

// GetMetrics returns a copy of the current aggregate
func (t *Tracker) GetMetrics() types.Metrics {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.metrics.Clone()
}

// Snapshot returns the persisted form of the current aggregate
func (t *Tracker) Snapshot() types.Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.metrics.Snapshot(t.historyLimit, t.dailyLimit)
}

// Subscribe registers fn for change notifications and returns a function
// that removes it
func (t *Tracker) Subscribe(fn Listener) func() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.nextID++
	id := t.nextID
	t.listeners = append(t.listeners, listenerEntry{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			for i, l := range t.listeners {
				if l.id == id {
					t.listeners = append(t.listeners[:i:i], t.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// Reset clears all statistics and removes the stored snapshot. Active calls
// are dropped too.
func (t *Tracker) Reset(ctx context.Context) {
	t.mu.Lock()
	seq := t.metrics.Seq
	t.metrics = emptyMetrics()
	t.metrics.Seq = seq
	t.active = nil

	cctx, cancel := context.WithTimeout(ctx, storeTimeout)
	if err := t.store.Clear(cctx); err != nil {
		t.logger.Error().Err(err).Msg("failed to clear stored metrics")
	}
	cancel()

	t.ensureToday()
	t.logger.Info().Msg("metrics reset")
	t.notifyAndUnlock()
}

// Close detaches all listeners
func (t *Tracker) Close() {
	t.mu.Lock()
	t.listeners = nil
	t.mu.Unlock()
}

// save writes the snapshot; errors are logged only. Caller holds mu.
func (t *Tracker) save(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	if err := t.store.Save(ctx, t.metrics.Snapshot(t.historyLimit, t.dailyLimit)); err != nil {
		t.logger.Error().Err(err).Msg("failed to save metrics")
	}
}

// notifyAndUnlock stamps the next sequence number, releases mu and then
// calls every listener with its own copy. Listeners may see copies out of
// order; Seq tells which one is newer.
func (t *Tracker) notifyAndUnlock() {
	t.metrics.Seq++
	listeners := append([]listenerEntry(nil), t.listeners...)
	snapshot := t.metrics.Clone()
	t.mu.Unlock()

	for _, l := range listeners {
		t.invoke(l.fn, snapshot.Clone())
	}
}

func (t *Tracker) invoke(fn Listener, m types.Metrics) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error().Interface("panic", r).Msg("metrics listener panicked")
		}
	}()
	fn(m)
}
