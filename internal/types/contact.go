package types

// ChannelType is the contact medium
type ChannelType string

const (
	ChannelVoice ChannelType = "VOICE"
	ChannelChat  ChannelType = "CHAT"
	ChannelTask  ChannelType = "TASK"
	ChannelEmail ChannelType = "EMAIL"
)

// Queue identifies a routing queue
type Queue struct {
	Name     string `json:"name"`
	QueueARN string `json:"queueARN,omitempty"`
	QueueID  string `json:"queueId,omitempty"`
}

// ContactDescriptor is the contact payload the workspace attaches to lifecycle
// events. Every field is optional; consumers fall back to defaults.
type ContactDescriptor struct {
	ContactID      string      `json:"contactId,omitempty"`
	Type           CallType    `json:"type,omitempty"`
	Channel        ChannelType `json:"channelType,omitempty"`
	CustomerNumber string      `json:"customerNumber,omitempty"`
	PhoneNumber    string      `json:"phoneNumber,omitempty"`
	Queue          *Queue      `json:"queue,omitempty"`
	QueueName      string      `json:"queueName,omitempty"`
}

// CustomerPhoneOr returns the first known customer number or def
func (c ContactDescriptor) CustomerPhoneOr(def string) string {
	if c.CustomerNumber != "" {
		return c.CustomerNumber
	}
	if c.PhoneNumber != "" {
		return c.PhoneNumber
	}
	return def
}

// QueueNameOr returns the queue name carried by the descriptor or def
func (c ContactDescriptor) QueueNameOr(def string) string {
	if c.Queue != nil && c.Queue.Name != "" {
		return c.Queue.Name
	}
	if c.QueueName != "" {
		return c.QueueName
	}
	return def
}

// EmailData is the email view of an EMAIL channel contact
type EmailData struct {
	ContactID    string `json:"contactId"`
	FromAddress  string `json:"fromAddress"`
	ToAddress    string `json:"toAddress"`
	Subject      string `json:"subject"`
	Body         string `json:"body"`
	Status       string `json:"status"`
	ReceivedTime string `json:"receivedTime"`
	InReplyTo    string `json:"inReplyTo,omitempty"`
	ThreadID     string `json:"threadId,omitempty"`
}

// EmailAddress is a display name + address pair
type EmailAddress struct {
	EmailAddress string `json:"emailAddress"`
	DisplayName  string `json:"displayName,omitempty"`
}

// DraftEmail is the input for creating an outbound email draft contact
type DraftEmail struct {
	To          []EmailAddress `json:"to"`
	CC          []EmailAddress `json:"cc,omitempty"`
	From        *EmailAddress  `json:"from,omitempty"`
	Subject     string         `json:"subject"`
	Body        string         `json:"body"`
	BodyType    string         `json:"bodyType,omitempty"` // text/plain, text/html
	RelatedToID string         `json:"relatedContactId,omitempty"`
	ContactID   string         `json:"contactId,omitempty"`
}

// EmailMessage is one message of an email thread
type EmailMessage struct {
	ID          string   `json:"id"`
	From        string   `json:"from"`
	To          string   `json:"to"`
	Subject     string   `json:"subject"`
	Body        string   `json:"body"`
	Timestamp   string   `json:"timestamp"`
	Attachments []string `json:"attachments"`
}

// AttachedFile describes a file attached to a contact
type AttachedFile struct {
	FileID     string `json:"fileId"`
	FileName   string `json:"fileName"`
	FileSize   int64  `json:"fileSizeInBytes"`
	FileStatus string `json:"fileStatus,omitempty"`
	URL        string `json:"downloadUrl,omitempty"`
}

// FileUpload is the input for starting an attached-file upload
type FileUpload struct {
	ContactID string `json:"associatedResourceArn"`
	FileName  string `json:"fileName"`
	FileSize  int64  `json:"fileSizeInBytes"`
	UseCase   string `json:"fileUseCaseType,omitempty"`
}

// Template is a message template or quick response search hit
type Template struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Content string `json:"content,omitempty"`
	Channel string `json:"channel,omitempty"`
}

// QuickResponse is a canned reply the agent can insert
type QuickResponse struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Content  string   `json:"content"`
	Shortcut string   `json:"shortcutKey,omitempty"`
	Channels []string `json:"channels,omitempty"`
}
