// Package mail lists, reads and sends Outlook messages through Microsoft
// Graph and renders them as text for tool responses.
package mail

// Field selections for message queries.
const (
	SummaryFields = "id,subject,from,toRecipients,receivedDateTime,bodyPreview,isRead,importance,hasAttachments"
	DetailFields  = "id,subject,from,toRecipients,ccRecipients,bccRecipients,receivedDateTime,body,bodyPreview,isRead,importance,hasAttachments"
)

// EmailAddress is a Graph emailAddress resource.
type EmailAddress struct {
	Name    string `json:"name,omitempty"`
	Address string `json:"address,omitempty"`
}

// Recipient wraps an EmailAddress, as Graph does for from/to/cc/bcc.
type Recipient struct {
	EmailAddress EmailAddress `json:"emailAddress"`
}

// Body is a message body.
type Body struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

// MessageSummary is a message as returned with SummaryFields.
type MessageSummary struct {
	ID               string      `json:"id,omitempty"`
	Subject          string      `json:"subject,omitempty"`
	From             *Recipient  `json:"from,omitempty"`
	ToRecipients     []Recipient `json:"toRecipients,omitempty"`
	ReceivedDateTime string      `json:"receivedDateTime,omitempty"`
	BodyPreview      string      `json:"bodyPreview,omitempty"`
	IsRead           *bool       `json:"isRead,omitempty"` // nil when not selected
	Importance       string      `json:"importance,omitempty"`
	HasAttachments   bool        `json:"hasAttachments,omitempty"`
}

// Unread reports whether the message is explicitly marked unread.
func (m MessageSummary) Unread() bool {
	return m.IsRead != nil && !*m.IsRead
}

// SenderName returns the sender display name, or "Unknown".
func (m MessageSummary) SenderName() string {
	if m.From == nil || m.From.EmailAddress.Name == "" {
		return "Unknown"
	}
	return m.From.EmailAddress.Name
}

// SenderAddress returns the sender address, or "unknown".
func (m MessageSummary) SenderAddress() string {
	if m.From == nil || m.From.EmailAddress.Address == "" {
		return "unknown"
	}
	return m.From.EmailAddress.Address
}

// Message is a message as returned with DetailFields.
type Message struct {
	MessageSummary
	CcRecipients  []Recipient `json:"ccRecipients,omitempty"`
	BccRecipients []Recipient `json:"bccRecipients,omitempty"`
	Body          *Body       `json:"body,omitempty"`
}

// MessageList is the Graph collection envelope for messages.
type MessageList struct {
	Value []MessageSummary `json:"value"`
}
