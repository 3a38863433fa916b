package types

// Metrics is the full in-memory aggregate owned by the tracker
type Metrics struct {
	Calls       CallCounters   `json:"calls"`
	CallHistory []CallRecord   `json:"callHistory"` // newest first
	DailyStats  []DailyStat    `json:"dailyStats"`  // chronological
	HourlyData  []HourlyBucket `json:"hourlyData"`
	AgentStats  AgentStats     `json:"agentStats"`

	// Transient, never persisted
	CurrentCallStart    *int64 `json:"currentCallStart"` // epoch ms
	CurrentCallDuration int    `json:"currentCallDuration"`

	// Seq increases with every change notification
	Seq uint64 `json:"seq"`
}

// Snapshot is the persisted form of Metrics
type Snapshot struct {
	CallHistory []CallRecord   `json:"callHistory" dynamodbav:"callHistory"`
	DailyStats  []DailyStat    `json:"dailyStats" dynamodbav:"dailyStats"`
	HourlyData  []HourlyBucket `json:"hourlyData" dynamodbav:"hourlyData"`
	AgentStats  AgentStats     `json:"agentStats" dynamodbav:"agentStats"`
	Calls       CallCounters   `json:"calls" dynamodbav:"calls"`
}

// Clone returns a copy of m that shares no slices with it
func (m Metrics) Clone() Metrics {
	out := m
	out.CallHistory = append([]CallRecord{}, m.CallHistory...)
	out.DailyStats = append([]DailyStat{}, m.DailyStats...)
	out.HourlyData = append([]HourlyBucket{}, m.HourlyData...)
	if m.CurrentCallStart != nil {
		start := *m.CurrentCallStart
		out.CurrentCallStart = &start
	}
	return out
}

// Snapshot converts m to its persisted form, keeping at most historyLimit
// calls (newest) and dailyLimit days (latest). Active calls are never persisted.
func (m Metrics) Snapshot(historyLimit, dailyLimit int) Snapshot {
	history := m.CallHistory
	if historyLimit > 0 && len(history) > historyLimit {
		history = history[:historyLimit]
	}
	daily := m.DailyStats
	if dailyLimit > 0 && len(daily) > dailyLimit {
		daily = daily[len(daily)-dailyLimit:]
	}

	calls := m.Calls
	calls.Active = 0

	return Snapshot{
		CallHistory: append([]CallRecord{}, history...),
		DailyStats:  append([]DailyStat{}, daily...),
		HourlyData:  append([]HourlyBucket{}, m.HourlyData...),
		AgentStats:  m.AgentStats,
		Calls:       calls,
	}
}
