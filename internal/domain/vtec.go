package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrInvalidFormat is returned when an identifier string does not split
	// into the seven dash-separated VTEC tokens.
	ErrInvalidFormat = errors.New("invalid vtec identifier format")

	// ErrSequenceOutOfRange is returned for event tracking numbers outside (0, 10000).
	ErrSequenceOutOfRange = errors.New("event tracking number out of range")
)

const (
	// MaxSequence is the exclusive upper bound of an event tracking number.
	MaxSequence = 10000

	// RadarTimeLayout is the UTC timestamp layout used for radar scans and
	// text-update keys, e.g. "202406071200".
	RadarTimeLayout = "200601021504"

	tokenCount = 7
)

// officeCorrections maps legacy K-prefixed identifiers to the office codes
// used by the archive for Alaska, Guam, Hawaii and Puerto Rico.
var officeCorrections = map[string]string{
	"KAFG": "PAFG",
	"KAFC": "PAFC",
	"KAJK": "PAJK",
	"KGUM": "PGUM",
	"KHFO": "PHFO",
	"KJSJ": "TJSJ",
}

// NormalizeOffice applies the office correction table.
func NormalizeOffice(office string) string {
	if fixed, ok := officeCorrections[office]; ok {
		return fixed
	}
	return office
}

// EventID identifies one VTEC event: the year, issuing office, phenomenon,
// significance and event tracking number. The zero value is not a valid event.
type EventID struct {
	Year         int    `json:"year"`
	Office       string `json:"wfo"`
	Phenomenon   string `json:"phenomena"`
	Significance string `json:"significance"`
	Sequence     int    `json:"eventid"`
}

// NewEventID builds an EventID, normalizing the office and rejecting
// sequences outside (0, MaxSequence).
func NewEventID(year int, office, phenomenon, significance string, sequence int) (EventID, error) {
	if sequence <= 0 || sequence >= MaxSequence {
		return EventID{}, fmt.Errorf("%w: %d", ErrSequenceOutOfRange, sequence)
	}
	return EventID{
		Year:         year,
		Office:       NormalizeOffice(office),
		Phenomenon:   phenomenon,
		Significance: significance,
		Sequence:     sequence,
	}, nil
}

// ParseEventID decodes the canonical YYYY-O-NEW-OFFICE-PHEN-SIG-SSSS form.
func ParseEventID(s string) (EventID, error) {
	return DecodeTokens(strings.Split(s, "-"))
}

// DecodeTokens decodes an already split identifier. Token 3 passes through
// the office correction table; phenomenon and significance are accepted as-is.
func DecodeTokens(tokens []string) (EventID, error) {
	if len(tokens) != tokenCount {
		return EventID{}, fmt.Errorf("%w: want %d tokens, got %d", ErrInvalidFormat, tokenCount, len(tokens))
	}
	year, err := strconv.Atoi(tokens[0])
	if err != nil {
		return EventID{}, fmt.Errorf("%w: year %q", ErrInvalidFormat, tokens[0])
	}
	seq, err := strconv.Atoi(tokens[6])
	if err != nil {
		return EventID{}, fmt.Errorf("%w: sequence %q", ErrInvalidFormat, tokens[6])
	}
	return NewEventID(year, tokens[3], tokens[4], tokens[5], seq)
}

// String returns the canonical form with the sequence zero-padded to four digits.
func (id EventID) String() string {
	return fmt.Sprintf("%d-O-NEW-%s-%s-%s-%04d", id.Year, id.Office, id.Phenomenon, id.Significance, id.Sequence)
}

// DottedKey returns the YYYY.OFFICE.PHEN.SIG.SSSS form expected by the
// archive image services.
func (id EventID) DottedKey() string {
	return fmt.Sprintf("%d.%s.%s.%s.%04d", id.Year, id.Office, id.Phenomenon, id.Significance, id.Sequence)
}

// IsZero reports whether id is the unset value.
func (id EventID) IsZero() bool {
	return id == EventID{}
}

// Step returns the event with the sequence moved by delta. When the result
// would leave the valid range the receiver is returned unchanged.
func (id EventID) Step(delta int) EventID {
	next := id.Sequence + delta
	if next <= 0 || next >= MaxSequence {
		return id
	}
	id.Sequence = next
	return id
}

// WithSequence returns a copy carrying the given sequence.
func (id EventID) WithSequence(seq int) (EventID, error) {
	return NewEventID(id.Year, id.Office, id.Phenomenon, id.Significance, seq)
}
