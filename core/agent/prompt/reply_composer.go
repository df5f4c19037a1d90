package prompt

import (
	"fmt"

	"reply_server/core/domain"
)

// Placeholder names shared by the templates.
const (
	KeyRawInstructions = "raw_instructions"
	KeyInstructions    = "instructions"
	KeySubject         = "subject"
	KeyBody            = "body"
	KeySender          = "sender"
	keyFormat          = "format_instruction"
)

const optimizeText = `
You are an expert in prompt engineering.

Rewrite the human instruction below into a clear, specific and effective prompt for a large language model.

The rewritten prompt should:

- Be specific and leave no room for ambiguity
- State the desired tone, format or role where relevant
- Be complete and well structured
- Improve on the original instruction where it is vague
- Say what kind of output is expected (for example a list, a summary, code or an email)

---

Original instruction:
"{raw_instructions}"

---

Return only the rewritten prompt, with no commentary or explanation.
`

const replyText = `
You are a professional email assistant. Read the whole email below carefully and write a professional, helpful reply to it.

Tone: Professional
Instructions: {instructions}

Original email:

subject: {subject} body: {body} from: {sender}

Write a professional reply to the original email. Return ONLY a valid JSON object in the format described below. The subject value must be the same as the subject of the original email.

{format_instruction}

Do NOT include any explanation or commentary.
Return only the JSON object: no markdown, no headings, no comments.
`

const composeText = `
You are a professional email assistant. Compose a clear, professional email that follows these instructions:

Tone: Professional
Instructions: {instructions}

Write the email. Return ONLY a valid JSON object in the format described below. If the instructions do not state a subject, write one that fits the content.

{format_instruction}

Do NOT include any explanation or commentary.
Return only the JSON object: no markdown, no headings, no comments.
`

const threadText = `
You are a professional email assistant.
Read the whole conversation below and write the next reply according to the user's intent.
The thread is ordered from newest to oldest: the latest message is at the top and the first message is at the bottom. Reply to the latest message, but use every earlier message to understand the flow of the conversation, its tone, open questions, requests, action items and status updates. Keep the reply clear, concise and polite, match the tone of the thread (formal, friendly, urgent or neutral), and include any clarifications, confirmations or next steps that are needed. Avoid unnecessary length while staying complete.

Tone: Professional
Instructions: {instructions}

Email thread:

subject: {subject} body: {body} from: {sender}

Write the reply the user intends to send. Return ONLY a valid JSON object in the format described below. The subject value must be the same as the subject of the thread; if there is no subject, write one that fits the content.

{format_instruction}

Do NOT include any explanation or commentary.
Return only the JSON object: no markdown, no headings, no comments.
`

// Composer owns the four templates. It is built once at startup and is
// safe for concurrent use.
type Composer struct {
	templates          map[TemplateID]*Template
	formatInstructions string
}

// NewComposer renders the Email format instructions once and binds them into
// the reply, compose and thread templates.
func NewComposer() (*Composer, error) {
	format, err := FormatInstructions(domain.Email{})
	if err != nil {
		return nil, err
	}

	partials := map[string]string{keyFormat: format}
	emailInputs := []string{KeyInstructions, KeySubject, KeyBody, KeySender}

	specs := []struct {
		id       TemplateID
		text     string
		inputs   []string
		partials map[string]string
	}{
		{TemplateOptimize, optimizeText, []string{KeyRawInstructions}, nil},
		{TemplateReply, replyText, emailInputs, partials},
		{TemplateCompose, composeText, []string{KeyInstructions}, partials},
		{TemplateThread, threadText, emailInputs, partials},
	}

	c := &Composer{
		templates:          make(map[TemplateID]*Template, len(specs)),
		formatInstructions: format,
	}
	for _, s := range specs {
		t, err := NewTemplate(s.id, s.text, s.inputs, s.partials)
		if err != nil {
			return nil, err
		}
		c.templates[s.id] = t
	}
	return c, nil
}

// Compose renders template id with values.
func (c *Composer) Compose(id TemplateID, values map[string]string) (string, error) {
	t, ok := c.templates[id]
	if !ok {
		return "", fmt.Errorf("unknown prompt template %q", id)
	}
	return t.Render(values)
}

// FormatInstructions returns the pre-rendered Email schema instructions.
func (c *Composer) FormatInstructions() string {
	return c.formatInstructions
}

// ForEmailType picks the reply or thread template.
func ForEmailType(t domain.EmailType) (TemplateID, error) {
	switch t {
	case domain.EmailTypeReply:
		return TemplateReply, nil
	case domain.EmailTypeThread:
		return TemplateThread, nil
	default:
		return "", fmt.Errorf("no reply template for email type %q", t)
	}
}
