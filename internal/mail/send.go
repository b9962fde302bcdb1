package mail

import (
	"context"
	"fmt"
	"strings"

	"github.com/wesm/outlook-mcp/internal/graph"
	"github.com/wesm/outlook-mcp/internal/textutil"
)

// ValidationError is a rejected argument. Its text is shown to the caller
// as is.
type ValidationError string

func (e ValidationError) Error() string { return string(e) }

// Validation errors for outgoing mail.
const (
	ErrNoRecipient = ValidationError("Recipient (to) is required.")
	ErrNoSubject   = ValidationError("Subject is required.")
	ErrNoBody      = ValidationError("Body content is required.")
)

// Draft is an outgoing message as entered by the caller. Address lists
// are comma-separated.
type Draft struct {
	To              string
	CC              string
	BCC             string
	Subject         string
	Body            string
	Importance      string // defaults to "normal"
	SaveToSentItems *bool  // defaults to true
}

// OutgoingMessage is the message resource of a sendMail request.
type OutgoingMessage struct {
	Subject       string      `json:"subject"`
	Body          Body        `json:"body"`
	ToRecipients  []Recipient `json:"toRecipients"`
	CcRecipients  []Recipient `json:"ccRecipients,omitempty"`
	BccRecipients []Recipient `json:"bccRecipients,omitempty"`
	Importance    string      `json:"importance"`
}

// SendRequest is the body of POST me/sendMail.
type SendRequest struct {
	Message         OutgoingMessage `json:"message"`
	SaveToSentItems bool            `json:"saveToSentItems"`
}

func recipients(list string) []Recipient {
	var rs []Recipient
	for _, addr := range textutil.SplitList(list) {
		rs = append(rs, Recipient{EmailAddress: EmailAddress{Address: addr}})
	}
	return rs
}

// BuildSendRequest validates d and converts it to a sendMail body. Bodies
// containing "<html" are sent as HTML.
func BuildSendRequest(d Draft) (*SendRequest, error) {
	switch {
	case strings.TrimSpace(d.To) == "":
		return nil, ErrNoRecipient
	case d.Subject == "":
		return nil, ErrNoSubject
	case d.Body == "":
		return nil, ErrNoBody
	}

	contentType := "text"
	if strings.Contains(d.Body, "<html") {
		contentType = "html"
	}
	importance := d.Importance
	if importance == "" {
		importance = "normal"
	}
	save := true
	if d.SaveToSentItems != nil {
		save = *d.SaveToSentItems
	}

	req := &SendRequest{
		Message: OutgoingMessage{
			Subject:       d.Subject,
			Body:          Body{ContentType: contentType, Content: d.Body},
			ToRecipients:  recipients(d.To),
			CcRecipients:  recipients(d.CC),
			BccRecipients: recipients(d.BCC),
			Importance:    importance,
		},
		SaveToSentItems: save,
	}
	if len(req.Message.ToRecipients) == 0 {
		return nil, ErrNoRecipient
	}
	return req, nil
}

// Send posts req to me/sendMail.
func Send(ctx context.Context, api graph.API, token string, req *SendRequest) error {
	if err := api.Call(ctx, token, graph.MethodPost, "me/sendMail", req, nil, nil); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

// FormatSent renders the confirmation for a sent message.
func FormatSent(req *SendRequest) string {
	count := fmt.Sprintf("%d", len(req.Message.ToRecipients))
	if n := len(req.Message.CcRecipients); n > 0 {
		count += fmt.Sprintf(" + %d CC", n)
	}
	if n := len(req.Message.BccRecipients); n > 0 {
		count += fmt.Sprintf(" + %d BCC", n)
	}
	return fmt.Sprintf("Email sent successfully!\n\nSubject: %s\nRecipients: %s\nMessage Length: %d characters",
		req.Message.Subject, count, len([]rune(req.Message.Body.Content)))
}
