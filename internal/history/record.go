// Package history maintains the room's bounded, most-recent-first message log
// and decodes the stored record formats.
package history

import "strings"

// Delimiter separates the three fields of a current-format record. It is
// three identical ASCII characters that never appear in names or colors.
const Delimiter = "|||"

// DefaultColor is assigned when a record carries no usable color.
const DefaultColor = "#000000"

// Placeholder values surfaced for records that cannot be parsed at all.
// Unparsable records are shown rather than dropped so stored and displayed
// record counts stay consistent.
const (
	placeholderName  = "Error"
	placeholderColor = "#888888"
	placeholderBody  = "(message format error)"
)

// Kind tags the decoded variant of a stored record.
type Kind int

const (
	// KindCurrent is the three-field nickname|||color|||body format.
	KindCurrent Kind = iota
	// KindLegacy is the old two-field "nickname: body" format.
	KindLegacy
	// KindUnparsable marks a record that matched neither format.
	KindUnparsable
)

// Record is one decoded history entry.
type Record struct {
	Nickname string
	Color    string
	Body     string
	Kind     Kind
}

// Encode serializes a record in the current format.
func Encode(nickname, color, body string) string {
	return nickname + Delimiter + color + Delimiter + body
}

// Decode classifies a raw stored record. Three delimited fields decode as a
// current record, with a malformed color replaced by the default. A record
// with no delimiter is treated as legacy "nickname: body". Anything else
// becomes a visible placeholder.
func Decode(raw string) Record {
	parts := strings.SplitN(raw, Delimiter, 3)
	switch len(parts) {
	case 3:
		color := parts[1]
		if !strings.HasPrefix(color, "#") || len(color) != 7 {
			color = DefaultColor
		}
		return Record{Nickname: parts[0], Color: color, Body: parts[2], Kind: KindCurrent}
	case 1:
		legacy := strings.SplitN(raw, ":", 2)
		body := ""
		if len(legacy) == 2 {
			body = strings.TrimSpace(legacy[1])
		}
		return Record{Nickname: legacy[0], Color: DefaultColor, Body: body, Kind: KindLegacy}
	default:
		return Record{
			Nickname: placeholderName,
			Color:    placeholderColor,
			Body:     placeholderBody,
			Kind:     KindUnparsable,
		}
	}
}
