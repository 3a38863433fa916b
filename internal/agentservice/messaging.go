package agentservice

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/dennisdiepolder/monti/agentdesk/internal/types"
)

var smsNumberPattern = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`)

// emailBody is the gateway's snake_case request
type emailBody struct {
	EmailType    string            `json:"email_type"`
	Sender       string            `json:"sender"`
	Recipient    string            `json:"recipient"`
	Subject      string            `json:"subject"`
	Message      string            `json:"message"`
	CC           []string          `json:"cc,omitempty"`
	BCC          []string          `json:"bcc,omitempty"`
	IsHTML       bool              `json:"is_html,omitempty"`
	TemplateName string            `json:"template_name,omitempty"`
	TemplateData map[string]string `json:"template_data,omitempty"`
}

// SendEmail sends a message through the email gateway
func (c *Client) SendEmail(ctx context.Context, req types.EmailRequest) (result types.EmailResult, err error) {
	defer func() { c.recorder.RecordAgentAPICall("send_email", err) }()

	if c.cfg.EmailURL == "" {
		return result, fmt.Errorf("email API: %w", ErrNotConfigured)
	}
	if req.EmailType == "" {
		req.EmailType = "simple"
	}
	if strings.TrimSpace(req.Sender) == "" {
		return result, invalid("sender is required")
	}
	if strings.TrimSpace(req.Recipient) == "" {
		return result, invalid("recipient is required")
	}
	body := emailBody{
		EmailType: req.EmailType,
		Sender:    req.Sender,
		Recipient: req.Recipient,
		Subject:   req.Subject,
		Message:   req.Message,
		CC:        req.CC,
		BCC:       req.BCC,
		IsHTML:    req.IsHTML,
	}
	switch req.EmailType {
	case "simple":
	case "template":
		if req.TemplateName == "" {
			return result, invalid("templateName is required for template emails")
		}
		body.TemplateName = req.TemplateName
		body.TemplateData = req.TemplateData
	default:
		return result, invalid("unknown email type %q", req.EmailType)
	}

	status, data, err := c.send(ctx, http.MethodPost, c.cfg.EmailURL, body)
	if err != nil {
		return result, fmt.Errorf("send email: %w", err)
	}
	if status >= http.StatusBadRequest {
		return result, &APIError{Status: status, Message: "failed to send email: " + http.StatusText(status)}
	}

	var resp struct {
		MessageID string `json:"MessageId"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return result, fmt.Errorf("send email: invalid response: %w", err)
	}
	c.logger.Info().Str("recipient", req.Recipient).Str("message_id", resp.MessageID).Msg("email sent")
	return types.EmailResult{MessageID: resp.MessageID, Data: json.RawMessage(data)}, nil
}

// ValidateSMS checks the destination and message before anything is sent
func ValidateSMS(req types.SMSRequest) error {
	if req.DestinationNumber == "" || strings.TrimSpace(req.Message) == "" {
		return invalid("destination number and message are required")
	}
	if !smsNumberPattern.MatchString(req.DestinationNumber) {
		return invalid("destination number must include the country code, e.g. +14155551234")
	}
	return nil
}

// SendSMS sends a text message through the SMS gateway
func (c *Client) SendSMS(ctx context.Context, req types.SMSRequest) (result types.SMSResult, err error) {
	defer func() { c.recorder.RecordAgentAPICall("send_sms", err) }()

	if c.cfg.SMSURL == "" {
		return result, fmt.Errorf("SMS API: %w", ErrNotConfigured)
	}
	if err := ValidateSMS(req); err != nil {
		return result, err
	}

	start := time.Now()
	status, data, err := c.send(ctx, http.MethodPost, c.cfg.SMSURL, req)
	if err != nil {
		return result, fmt.Errorf("send sms: %w", err)
	}

	var resp struct {
		MessageID     string `json:"messageId"`
		Error         string `json:"error"`
		StatusMessage string `json:"statusMessage"`
	}
	decodeErr := json.Unmarshal(data, &resp)
	if status >= http.StatusBadRequest {
		msg := "failed to send SMS"
		switch {
		case resp.Error != "":
			msg = resp.Error
		case resp.StatusMessage != "":
			msg = resp.StatusMessage
		}
		return result, &APIError{Status: status, Message: msg}
	}
	if decodeErr != nil {
		return result, fmt.Errorf("send sms: invalid response: %w", decodeErr)
	}

	c.logger.Info().
		Str("message_id", resp.MessageID).
		Dur("duration", time.Since(start)).
		Msg("sms sent")
	return types.SMSResult{MessageID: resp.MessageID}, nil
}
