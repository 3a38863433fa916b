package types

import "encoding/json"

// DirectoryAgent is one user in the contact center directory
type DirectoryAgent struct {
	ID                 string `json:"Id"`
	Username           string `json:"Username"`
	Arn                string `json:"Arn"`
	LastModifiedTime   string `json:"LastModifiedTime,omitempty"`
	LastModifiedRegion string `json:"LastModifiedRegion,omitempty"`
}

// MetricRef names one metric in a metrics collection
type MetricRef struct {
	Name      string `json:"Name"`
	Unit      string `json:"Unit,omitempty"`
	Statistic string `json:"Statistic,omitempty"` // SUM, AVG
}

// MetricCollection is one metric value
type MetricCollection struct {
	Metric MetricRef `json:"Metric"`
	Value  float64   `json:"Value"`
}

// MetricResult is one group (usually a queue) of metric values
type MetricResult struct {
	Collections []MetricCollection `json:"Collections"`
}

// CurrentMetrics are real-time agent counts keyed by metric name
type CurrentMetrics struct {
	Metrics   map[string]float64 `json:"metrics"`
	Timestamp string             `json:"timestamp,omitempty"`
	Raw       []MetricResult     `json:"raw"`
}

// TimeRange is an RFC3339 interval
type TimeRange struct {
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

// HistoricalMetrics are metrics aggregated across queues
type HistoricalMetrics struct {
	Metrics        map[string]float64 `json:"metrics"`
	TimeRange      TimeRange          `json:"timeRange"`
	QueuesIncluded int                `json:"queuesIncluded"`
	GroupedBy      []string           `json:"groupedBy"`
	Raw            []MetricResult     `json:"raw"`
	HoursBack      int                `json:"hoursBack"`
}

// EmailRequest is a message sent through the email gateway
type EmailRequest struct {
	EmailType    string            `json:"emailType"` // simple, template
	Sender       string            `json:"sender"`
	Recipient    string            `json:"recipient"`
	CC           []string          `json:"cc,omitempty"`
	BCC          []string          `json:"bcc,omitempty"`
	Subject      string            `json:"subject"`
	Message      string            `json:"message"`
	IsHTML       bool              `json:"isHtml,omitempty"`
	TemplateName string            `json:"templateName,omitempty"`
	TemplateData map[string]string `json:"templateData,omitempty"`
}

// EmailResult is the gateway's answer
type EmailResult struct {
	MessageID string          `json:"messageId"`
	Data      json.RawMessage `json:"data"`
}

// SMSRequest is a text message to one destination
type SMSRequest struct {
	DestinationNumber string `json:"destination_number"`
	Message           string `json:"message"`
}

// SMSResult is the SMS gateway's answer
type SMSResult struct {
	MessageID string `json:"messageId"`
}
