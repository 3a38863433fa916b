package types

// CallType is the direction of a call
type CallType string

const (
	CallInbound  CallType = "Inbound"
	CallOutbound CallType = "Outbound"
)

// CallStatus is the final outcome of a call
type CallStatus string

const (
	CallStatusCompleted CallStatus = "Completed"
	CallStatusMissed    CallStatus = "Missed"
	CallStatusAbandoned CallStatus = "Abandoned"
)

// Valid reports whether s is one of the known call outcomes
func (s CallStatus) Valid() bool {
	switch s {
	case CallStatusCompleted, CallStatusMissed, CallStatusAbandoned:
		return true
	}
	return false
}

// CallRecord represents one ended call. Records are immutable once created.
type CallRecord struct {
	ID            string     `json:"id" dynamodbav:"id"`
	Type          CallType   `json:"type" dynamodbav:"type"`
	Duration      int        `json:"duration" dynamodbav:"duration"`   // seconds
	Timestamp     string     `json:"timestamp" dynamodbav:"timestamp"` // ISO-8601, UTC
	Status        CallStatus `json:"status" dynamodbav:"status"`
	CustomerPhone string     `json:"customerPhone" dynamodbav:"customerPhone"`
	Queue         string     `json:"queue" dynamodbav:"queue"`
}

// DailyStat holds the counters for one calendar day (UTC date key)
type DailyStat struct {
	Date          string  `json:"date" dynamodbav:"date"` // YYYY-MM-DD
	Calls         int     `json:"calls" dynamodbav:"calls"`
	AvgHandleTime int     `json:"avgHandleTime" dynamodbav:"avgHandleTime"` // seconds
	Satisfaction  float64 `json:"satisfaction" dynamodbav:"satisfaction"`   // 0-100
	Completed     int     `json:"completed" dynamodbav:"completed"`
	Missed        int     `json:"missed" dynamodbav:"missed"`
}

// HourlyBucket counts today's calls for one hour of the day ("00:00".."23:00")
type HourlyBucket struct {
	Hour  string `json:"hour" dynamodbav:"hour"`
	Calls int    `json:"calls" dynamodbav:"calls"`
}

// AgentStats is the rolling aggregate over completed calls.
//
// SatisfactionScore is the mean over days with recorded satisfaction;
// RollingSatisfactionScore is the exponential moving average fed by explicit
// survey scores. Neither is derived from the other.
type AgentStats struct {
	TotalHandleTime          int     `json:"totalHandleTime" dynamodbav:"totalHandleTime"`     // seconds
	AverageHandleTime        int     `json:"averageHandleTime" dynamodbav:"averageHandleTime"` // seconds
	SatisfactionScore        float64 `json:"satisfactionScore" dynamodbav:"satisfactionScore"`
	RollingSatisfactionScore float64 `json:"rollingSatisfactionScore" dynamodbav:"rollingSatisfactionScore"`
	CallsHandled             int     `json:"callsHandled" dynamodbav:"callsHandled"`
	ACWTime                  int     `json:"acwTime" dynamodbav:"acwTime"`   // seconds
	IdleTime                 int     `json:"idleTime" dynamodbav:"idleTime"` // seconds
}

// CallCounters are the headline call totals
type CallCounters struct {
	Active     int `json:"active" dynamodbav:"active"`
	TotalToday int `json:"totalToday" dynamodbav:"totalToday"`
	TotalWeek  int `json:"totalWeek" dynamodbav:"totalWeek"`
	Completed  int `json:"completed" dynamodbav:"completed"`
	Missed     int `json:"missed" dynamodbav:"missed"`
	Abandoned  int `json:"abandoned" dynamodbav:"abandoned"`
}
