package mail

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/wesm/outlook-mcp/internal/graph"
	"github.com/wesm/outlook-mcp/internal/textutil"
)

// GetMessage fetches a single message with DetailFields.
func GetMessage(ctx context.Context, api graph.API, token, id string) (*Message, error) {
	params := graph.Params{{Key: "$select", Value: DetailFields}}
	var msg Message
	if err := api.Call(ctx, token, graph.MethodGet, "me/messages/"+url.PathEscape(id), nil, params, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func formatRecipients(rs []Recipient) string {
	parts := make([]string, len(rs))
	for i, r := range rs {
		name, addr := r.EmailAddress.Name, r.EmailAddress.Address
		if name == "" {
			name = "Unknown"
		}
		if addr == "" {
			addr = "unknown"
		}
		parts[i] = fmt.Sprintf("%s (%s)", name, addr)
	}
	return strings.Join(parts, ", ")
}

// BodyText returns the message body as plain text.
func (m *Message) BodyText() string {
	if m.Body == nil {
		if m.BodyPreview == "" {
			return "No content"
		}
		return m.BodyPreview
	}
	if strings.EqualFold(m.Body.ContentType, "html") {
		return textutil.StripHTML(m.Body.Content)
	}
	return m.Body.Content
}

// FormatMessage renders headers and body of a message.
func FormatMessage(m *Message) string {
	var b strings.Builder

	fmt.Fprintf(&b, "From: %s (%s)\n", m.SenderName(), m.SenderAddress())
	to := "None"
	if len(m.ToRecipients) > 0 {
		to = formatRecipients(m.ToRecipients)
	}
	fmt.Fprintf(&b, "To: %s\n", to)
	if len(m.CcRecipients) > 0 {
		fmt.Fprintf(&b, "CC: %s\n", formatRecipients(m.CcRecipients))
	}
	if len(m.BccRecipients) > 0 {
		fmt.Fprintf(&b, "BCC: %s\n", formatRecipients(m.BccRecipients))
	}

	subject := m.Subject
	if subject == "" {
		subject = "No subject"
	}
	date := m.ReceivedDateTime
	if date == "" {
		date = "Unknown date"
	}
	importance := m.Importance
	if importance == "" {
		importance = "normal"
	}
	attachments := "No"
	if m.HasAttachments {
		attachments = "Yes"
	}

	fmt.Fprintf(&b, "Subject: %s\n", subject)
	fmt.Fprintf(&b, "Date: %s\n", date)
	fmt.Fprintf(&b, "Importance: %s\n", importance)
	fmt.Fprintf(&b, "Has Attachments: %s\n\n", attachments)
	b.WriteString(m.BodyText())
	return b.String()
}
