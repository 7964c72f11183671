package dlevent

import (
	"encoding/json"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// TimeFormat is the clock format used for display entries.
const TimeFormat = "15:04:05"

// ErrMalformedURI is returned when percent-decoding yields an invalid
// escape or invalid UTF-8.
var ErrMalformedURI = errors.New("URI malformed")

// DisplayEntry is the rendered form of a LogEvent.
type DisplayEntry struct {
	Time     string
	Logger   string
	Message  string
	Severity string
}

// Class returns the severity class, the lower-cased severity.
func (d DisplayEntry) Class() string {
	return strings.ToLower(d.Severity)
}

// LoggerTag returns "[logger]", or "" when the entry has no logger.
func (d DisplayEntry) LoggerTag() string {
	if d.Logger == "" {
		return ""
	}
	return "[" + d.Logger + "]"
}

// String renders the entry as a single plain-text line.
func (d DisplayEntry) String() string {
	var sb strings.Builder
	sb.WriteString(d.Time)
	if tag := d.LoggerTag(); tag != "" {
		sb.WriteString(" ")
		sb.WriteString(tag)
	}
	sb.WriteString(" ")
	sb.WriteString(d.Message)
	return sb.String()
}

// Severity returns the upper-cased level of p, "INFO" by default.
// Events of type "error" are always "ERROR".
func Severity(p Payload) string {
	if p.IsText {
		return DefaultLevel
	}
	level := strings.ToUpper(p.Event.Level)
	if level == "" {
		level = DefaultLevel
	}
	if p.Event.Type == TypeError {
		level = "ERROR"
	}
	return level
}

// Render turns a payload into the entries an append produces. Usually
// that is one entry; when unescaping the message fails the decode
// diagnostic comes first, followed by the entry with the raw text.
func Render(p Payload, now time.Time) []DisplayEntry {
	return render(p, now, true)
}

func render(p Payload, now time.Time, diagnose bool) []DisplayEntry {
	entry := DisplayEntry{
		Time:     now.Format(TimeFormat),
		Severity: Severity(p),
	}
	if p.IsText {
		entry.Message = p.Text
		return []DisplayEntry{entry}
	}

	e := p.Event
	if t, ok := e.Time(); ok {
		entry.Time = t.Format(TimeFormat)
	}
	entry.Logger = e.Logger

	if e.Type == TypeConnection {
		entry.Message = "[" + e.Status + "] " + e.Message
		return []DisplayEntry{entry}
	}

	message := e.Message
	if message == "" {
		message = e.JSON()
	}
	message = LastLine(message)

	decoded, err := Unescape(message)
	if err != nil {
		entry.Message = message
		if !diagnose {
			return []DisplayEntry{entry}
		}
		diag := render(FromEvent(DecodeFailure(err)), now, false)
		return append(diag, entry)
	}
	entry.Message = decoded
	return []DisplayEntry{entry}
}

// LastLine keeps only the text after the final newline.
func LastLine(s string) string {
	if i := strings.LastIndex(s, "\n"); i >= 0 {
		return s[i+1:]
	}
	return s
}

// Unescape resolves JSON-style escapes (\uXXXX, \n, \\ ...) embedded in
// s and then percent-decodes the result. On failure s is returned
// unchanged along with the error.
func Unescape(s string) (string, error) {
	quoted := `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`

	var decoded string
	if err := json.Unmarshal([]byte(quoted), &decoded); err != nil {
		return s, err
	}

	out, err := url.PathUnescape(decoded)
	if err != nil || !utf8.ValidString(out) {
		return s, ErrMalformedURI
	}
	return out, nil
}
