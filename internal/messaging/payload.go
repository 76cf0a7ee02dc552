package messaging

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PaulBabatuyi/campus-messaging/internal/data"
)

// MaxTextLen is the longest accepted text message, in characters.
const MaxTextLen = 4000

// Payload is the content of a message: either Text, or URL with FileType.
type Payload struct {
	Text     string        `json:"text,omitempty"`
	URL      string        `json:"url,omitempty"`
	FileType data.FileType `json:"fileType,omitempty"`
}

// TextPayload returns a text payload.
func TextPayload(text string) Payload { return Payload{Text: text} }

// AttachmentPayload returns an attachment payload.
func AttachmentPayload(u string, ft data.FileType) Payload { return Payload{URL: u, FileType: ft} }

// Validate checks that exactly one of text or attachment is set.
func (p Payload) Validate() error {
	text := strings.TrimSpace(p.Text)
	hasText := text != ""
	hasFile := p.URL != "" || p.FileType != ""

	switch {
	case hasText && hasFile:
		return fmt.Errorf("%w: text and attachment are mutually exclusive", ErrInvalidPayload)
	case !hasText && !hasFile:
		return fmt.Errorf("%w: empty message", ErrInvalidPayload)
	case hasText:
		if utf8.RuneCountInString(text) > MaxTextLen {
			return fmt.Errorf("%w: text longer than %d characters", ErrInvalidPayload, MaxTextLen)
		}
		return nil
	}

	if !p.FileType.Valid() {
		return fmt.Errorf("%w: file type %q", ErrInvalidPayload, p.FileType)
	}
	u, err := url.Parse(p.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: attachment url must be absolute http(s)", ErrInvalidPayload)
	}
	return nil
}

// SummaryText is the conversation list line for this payload. Attachments
// get a fixed phrase instead of their URL.
func (p Payload) SummaryText() string {
	switch p.FileType {
	case data.FileImage:
		return "sent an image"
	case data.FileVideo:
		return "sent a video"
	case data.FileAudio:
		return "sent an audio message"
	}
	return strings.TrimSpace(p.Text)
}

// apply copies the payload into m.
func (p Payload) apply(m *data.Message) {
	switch p.FileType {
	case data.FileImage:
		m.ImageURL = p.URL
	case data.FileVideo:
		m.VideoURL = p.URL
	case data.FileAudio:
		m.AudioURL = p.URL
	default:
		m.Text = strings.TrimSpace(p.Text)
		return
	}
	m.FileType = p.FileType
}

// PayloadOf extracts the payload of a stored message.
func PayloadOf(m *data.Message) Payload {
	if m.FileType != "" {
		return Payload{URL: m.AttachmentURL(), FileType: m.FileType}
	}
	return Payload{Text: m.Text}
}
