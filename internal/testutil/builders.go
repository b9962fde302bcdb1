package testutil

import (
	"time"
)

// DefaultReceived is the receivedDateTime of messages built without one.
var DefaultReceived = time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

// MessageBuilder builds Graph message resources as decoded JSON, ready to
// be served by graph.MockAPI.
type MessageBuilder struct {
	m map[string]any
}

// NewMessage creates a read message with a sender and subject derived
// from id.
func NewMessage(id string) *MessageBuilder {
	return &MessageBuilder{m: map[string]any{
		"id":               id,
		"subject":          "Subject " + id,
		"from":             Address("Sender", "sender@example.com"),
		"receivedDateTime": DefaultReceived.Format(time.RFC3339),
		"bodyPreview":      "",
		"isRead":           true,
		"importance":       "normal",
		"hasAttachments":   false,
	}}
}

// Address builds a Graph recipient.
func Address(name, address string) map[string]any {
	return map[string]any{"emailAddress": map[string]any{"name": name, "address": address}}
}

func (b *MessageBuilder) WithSubject(s string) *MessageBuilder {
	b.m["subject"] = s
	return b
}

func (b *MessageBuilder) WithFrom(name, address string) *MessageBuilder {
	b.m["from"] = Address(name, address)
	return b
}

// WithoutFrom removes the sender, as Graph does for some drafts.
func (b *MessageBuilder) WithoutFrom() *MessageBuilder {
	delete(b.m, "from")
	return b
}

func (b *MessageBuilder) WithTo(recipients ...map[string]any) *MessageBuilder {
	list := make([]any, len(recipients))
	for i, r := range recipients {
		list[i] = r
	}
	b.m["toRecipients"] = list
	return b
}

func (b *MessageBuilder) WithReceived(t time.Time) *MessageBuilder {
	b.m["receivedDateTime"] = t.UTC().Format(time.RFC3339)
	return b
}

func (b *MessageBuilder) WithPreview(s string) *MessageBuilder {
	b.m["bodyPreview"] = s
	return b
}

// WithBody sets the full body; contentType is "text" or "html".
func (b *MessageBuilder) WithBody(contentType, content string) *MessageBuilder {
	b.m["body"] = map[string]any{"contentType": contentType, "content": content}
	return b
}

func (b *MessageBuilder) Unread() *MessageBuilder {
	b.m["isRead"] = false
	return b
}

func (b *MessageBuilder) WithAttachments() *MessageBuilder {
	b.m["hasAttachments"] = true
	return b
}

func (b *MessageBuilder) WithImportance(s string) *MessageBuilder {
	b.m["importance"] = s
	return b
}

// Build returns the message resource.
func (b *MessageBuilder) Build() map[string]any {
	out := make(map[string]any, len(b.m))
	for k, v := range b.m {
		out[k] = v
	}
	return out
}

// Page wraps items in a Graph collection response ({"value": [...]}).
func Page(items ...map[string]any) map[string]any {
	value := make([]any, len(items))
	for i, it := range items {
		value[i] = it
	}
	return map[string]any{"value": value}
}
