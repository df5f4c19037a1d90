package domain

import "strings"

// EmailType selects the prompt used for an inbound request.
type EmailType string

const (
	EmailTypeReply  EmailType = "reply"
	EmailTypeThread EmailType = "thread"
)

// ParseEmailType normalizes a raw emailType value (trim + lower case).
func ParseEmailType(raw string) EmailType {
	return EmailType(strings.ToLower(strings.TrimSpace(raw)))
}

// Email is the structured message produced by the backend.
// Subject and Sender are nil when absent or blank; Body is never blank.
type Email struct {
	Subject *string `json:"subject" description:"get subject for email"`
	Body    string  `json:"body" description:"email body content"`
	Sender  *string `json:"sender" description:"email sender"`
}

// NewEmail builds an Email, mapping blank optional fields to nil.
func NewEmail(subject, body, sender string) *Email {
	return &Email{
		Subject: optional(subject),
		Body:    body,
		Sender:  optional(sender),
	}
}

// SubjectOrEmpty returns the subject or "" when unset.
func (e *Email) SubjectOrEmpty() string {
	if e == nil || e.Subject == nil {
		return ""
	}
	return *e.Subject
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// EmailRequest is the generate-reply payload.
// Body is left untyped: clients send plain text, thread arrays or objects.
type EmailRequest struct {
	EmailType    string `json:"emailType"`
	Instructions string `json:"instructions"`
	Subject      string `json:"subject"`
	Body         any    `json:"body"`
	Sender       string `json:"sender"`
}

// EmailCompose is the compose payload. Compose starts from instructions only.
type EmailCompose struct {
	EmailType    string `json:"emailType"`
	Instructions string `json:"instructions"`
}

// ReplyResponse wraps the generated email for both operations.
type ReplyResponse struct {
	Reply *Email `json:"reply"`
}
