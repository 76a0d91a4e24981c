// Package resolve holds the pure alias-resolution and message-composition
// rules: normalization, composition precedence, preview truncation, phone
// masking and the invocation-source parsers. No I/O happens here.
package resolve

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf16"

	"github.com/google/uuid"
	"github.com/mesmaili/alias-sms/internal/model"
)

// PreviewMax is the number of UTF-16 code units kept in a log preview.
const PreviewMax = 60

// Normalize turns a raw alias into its canonical lookup key: trimmed,
// lowercased, with a single trailing ':', '.', '!' or '?' stripped.
// This is the single normalization rule; the store and every invocation
// source go through it.
func Normalize(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	if n := len(s); n > 0 {
		switch s[n-1] {
		case ':', '.', '!', '?':
			s = s[:n-1]
		}
	}
	return s
}

// Compose builds the final outbound message. Override text wins over the
// predefined message when both exist. The prefix is concatenated verbatim,
// with no separator inserted.
func Compose(entry model.AliasEntry, override *string) string {
	body := entry.PredefinedMessage
	if override != nil {
		body = *override
	}
	prefix := ""
	if entry.DefaultPrefix != nil {
		prefix = *entry.DefaultPrefix
	}
	return prefix + body
}

// Preview returns the first PreviewMax UTF-16 code units of s. Counting in
// UTF-16 units rather than runes keeps previews identical to what the
// original client stored; a cut inside a surrogate pair yields U+FFFD.
func Preview(s string) string {
	units := utf16.Encode([]rune(s))
	if len(units) <= PreviewMax {
		return s
	}
	return string(utf16.Decode(units[:PreviewMax]))
}

// MaskPhone redacts a phone number for display and logging. All non-digit
// characters are stripped first; with fewer than 4 digits the input is
// returned unchanged rather than treated as an error.
func MaskPhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) < 4 {
		return phone
	}
	return "+" + digits[:2] + "****" + digits[len(digits)-3:]
}

// NewLogEntry builds the masked record for one send attempt. The alias keeps
// its original casing; failureReason should be nil unless status is FAILED.
func NewLogEntry(entry model.AliasEntry, composed string, status model.Status, failureReason *string) model.SmsLogEntry {
	return model.SmsLogEntry{
		ID:             uuid.NewString(),
		Timestamp:      time.Now().UTC(),
		Alias:          entry.Alias,
		MaskedPhone:    MaskPhone(entry.PhoneNumber),
		MessagePreview: Preview(composed),
		Status:         status,
		FailureReason:  failureReason,
	}
}

var voicePattern = regexp.MustCompile(`(?i)^send message to (.+?): (.*)$`)

// VoiceCommand is a parsed "Send message to <alias>: <text>" utterance.
type VoiceCommand struct {
	AliasRaw string
	Body     string
}

// ParseVoiceCommand matches the literal pattern "Send message to <alias>:
// <text>", case-insensitive on the leading phrase. Returns nil when the text
// does not match; no partial or fuzzy matching beyond the normalization the
// caller applies to AliasRaw afterwards.
func ParseVoiceCommand(text string) *VoiceCommand {
	m := voicePattern.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return nil
	}
	return &VoiceCommand{AliasRaw: m[1], Body: m[2]}
}

// DeepLink is a parsed <scheme>://send?alias=...&text=... invocation.
type DeepLink struct {
	AliasRaw string
	Text     *string
}

// ParseDeepLink parses a deep-link URL. The alias query parameter is
// required; text is optional and, when absent, the alias's predefined
// message is used downstream.
func ParseDeepLink(raw string) (*DeepLink, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid deep link: %w", err)
	}
	if u.Host != "send" {
		return nil, fmt.Errorf("unsupported deep link host: %q", u.Host)
	}

	q := u.Query()
	alias := q.Get("alias")
	if alias == "" {
		return nil, errors.New("deep link missing alias")
	}

	dl := &DeepLink{AliasRaw: alias}
	if q.Has("text") {
		text := q.Get("text")
		dl.Text = &text
	}
	return dl, nil
}
