package agentservice

import (
	"context"
	"net/http"
	"time"

	"github.com/dennisdiepolder/monti/agentdesk/internal/types"
)

var (
	// DefaultCurrentMetrics are the real-time metrics requested when none are given
	DefaultCurrentMetrics = []string{
		"AGENTS_AVAILABLE",
		"AGENTS_ON_CALL",
		"AGENTS_ONLINE",
		"AGENTS_AFTER_CONTACT_WORK",
		"AGENTS_NON_PRODUCTIVE",
	}
	DefaultCurrentChannels = []string{"VOICE", "CHAT"}

	// DefaultHistoricalMetrics are the historical metrics requested when none are given
	DefaultHistoricalMetrics = []string{
		"CONTACTS_HANDLED",
		"HANDLE_TIME",
		"AFTER_CONTACT_WORK_TIME",
		"CONTACTS_MISSED",
		"CONTACTS_QUEUED",
		"INTERACTION_TIME",
		"OCCUPANCY",
		"CONTACTS_ABANDONED",
		"CONTACTS_CONSULTED",
		"CONTACTS_TRANSFERRED_IN",
		"CONTACTS_TRANSFERRED_OUT",
	}
	DefaultHistoricalChannels = []string{"VOICE"}
)

const defaultHoursBack = 24

type currentMetricsRequest struct {
	InstanceID string   `json:"instanceId"`
	Metrics    []string `json:"metrics"`
	Channels   []string `json:"channels"`
}

type historicalMetricsRequest struct {
	InstanceID string   `json:"instanceId"`
	StartTime  string   `json:"startTime"`
	EndTime    string   `json:"endTime"`
	Metrics    []string `json:"metrics"`
	Channels   []string `json:"channels"`
}

// GetCurrentAgentMetrics returns real-time agent counts. Only the first
// result group is mapped into Metrics.
func (c *Client) GetCurrentAgentMetrics(ctx context.Context, metrics, channels []string) (types.CurrentMetrics, error) {
	if len(metrics) == 0 {
		metrics = DefaultCurrentMetrics
	}
	if len(channels) == 0 {
		channels = DefaultCurrentChannels
	}

	env, err := c.call(ctx, "current_metrics", http.MethodPost, "/agents/metrics/current", false, currentMetricsRequest{
		InstanceID: c.cfg.InstanceID,
		Metrics:    metrics,
		Channels:   channels,
	})
	if err != nil {
		return types.CurrentMetrics{}, err
	}
	results, err := decodeList[types.MetricResult](env)
	if err != nil {
		return types.CurrentMetrics{}, err
	}

	out := types.CurrentMetrics{
		Metrics:   make(map[string]float64),
		Timestamp: env.DataSnapshotTime,
		Raw:       results,
	}
	if len(results) > 0 {
		for _, col := range results[0].Collections {
			out.Metrics[col.Metric.Name] = col.Value
		}
	}
	return out, nil
}

// GetHistoricalAgentMetrics returns metrics for the last hoursBack hours,
// summed (SUM) or averaged (AVG) across queues
func (c *Client) GetHistoricalAgentMetrics(ctx context.Context, hoursBack int, metrics, channels []string) (types.HistoricalMetrics, error) {
	if hoursBack <= 0 {
		hoursBack = defaultHoursBack
	}
	if len(metrics) == 0 {
		metrics = DefaultHistoricalMetrics
	}
	if len(channels) == 0 {
		channels = DefaultHistoricalChannels
	}

	end := c.now().UTC().Truncate(time.Second)
	start := end.Add(-time.Duration(hoursBack) * time.Hour)
	requested := types.TimeRange{
		StartTime: start.Format(time.RFC3339),
		EndTime:   end.Format(time.RFC3339),
	}

	env, err := c.call(ctx, "historical_metrics", http.MethodPost, "/agents/metrics/historical", false, historicalMetricsRequest{
		InstanceID: c.cfg.InstanceID,
		StartTime:  requested.StartTime,
		EndTime:    requested.EndTime,
		Metrics:    metrics,
		Channels:   channels,
	})
	if err != nil {
		return types.HistoricalMetrics{}, err
	}
	results, err := decodeList[types.MetricResult](env)
	if err != nil {
		return types.HistoricalMetrics{}, err
	}

	out := types.HistoricalMetrics{
		Metrics:        AggregateQueues(results),
		TimeRange:      requested,
		QueuesIncluded: env.QueuesIncluded,
		GroupedBy:      env.GroupedBy,
		Raw:            results,
		HoursBack:      hoursBack,
	}
	if env.TimeRangeUsed != nil {
		out.TimeRange = *env.TimeRangeUsed
	}
	if out.GroupedBy == nil {
		out.GroupedBy = []string{}
	}
	return out, nil
}

// AggregateQueues folds per-queue collections into one value per metric.
// SUM statistics are added up, AVG statistics averaged over the queues that
// report them. Other statistics are ignored.
func AggregateQueues(results []types.MetricResult) map[string]float64 {
	out := make(map[string]float64)
	avgTotal := make(map[string]float64)
	avgCount := make(map[string]int)

	for _, r := range results {
		for _, col := range r.Collections {
			switch col.Metric.Statistic {
			case "SUM":
				out[col.Metric.Name] += col.Value
			case "AVG":
				avgTotal[col.Metric.Name] += col.Value
				avgCount[col.Metric.Name]++
			}
		}
	}
	for name, total := range avgTotal {
		out[name] = total / float64(avgCount[name])
	}
	return out
}
