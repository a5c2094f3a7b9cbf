package domain

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCanonical = "2024-O-NEW-KDMX-TO-W-0045"

func TestEventID_String(t *testing.T) {
	id := EventID{Year: 2024, Office: "KDMX", Phenomenon: "TO", Significance: "W", Sequence: 45}
	assert.Equal(t, testCanonical, id.String())
}

func TestEventID_StringPadsToFourDigits(t *testing.T) {
	tests := []struct {
		seq  int
		want string
	}{
		{1, "0001"},
		{5, "0005"},
		{123, "0123"},
		{9999, "9999"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			id, err := NewEventID(2024, "KDMX", "SV", "W", tt.seq)
			require.NoError(t, err)
			assert.True(t, strings.HasSuffix(id.String(), "-"+tt.want))
		})
	}
}

func TestParseEventID_RoundTrip(t *testing.T) {
	for seq := 1; seq < MaxSequence; seq += 37 {
		id, err := NewEventID(2019, "KOAX", "SV", "W", seq)
		require.NoError(t, err)

		got, err := ParseEventID(id.String())
		require.NoError(t, err)
		assert.Equal(t, id, got)
	}
}

func TestParseEventID(t *testing.T) {
	t.Run("canonical", func(t *testing.T) {
		id, err := ParseEventID(testCanonical)
		require.NoError(t, err)
		assert.Equal(t, DefaultEventID(), id)
	})

	t.Run("office corrected", func(t *testing.T) {
		id, err := ParseEventID("2024-O-NEW-KAFG-WS-W-0003")
		require.NoError(t, err)
		assert.Equal(t, "PAFG", id.Office)
	})

	t.Run("unknown phenomenon accepted", func(t *testing.T) {
		id, err := ParseEventID("2024-O-NEW-KDMX-ZZ-Q-0010")
		require.NoError(t, err)
		assert.Equal(t, "ZZ", id.Phenomenon)
		assert.Equal(t, "Q", id.Significance)
	})

	t.Run("too few tokens", func(t *testing.T) {
		_, err := ParseEventID("2024-KDMX-TO-W-0045")
		require.ErrorIs(t, err, ErrInvalidFormat)
	})

	t.Run("too many tokens", func(t *testing.T) {
		_, err := ParseEventID(testCanonical + "-X")
		require.ErrorIs(t, err, ErrInvalidFormat)
	})

	t.Run("non-numeric year", func(t *testing.T) {
		_, err := ParseEventID("YYYY-O-NEW-KDMX-TO-W-0045")
		require.ErrorIs(t, err, ErrInvalidFormat)
	})

	t.Run("sequence zero", func(t *testing.T) {
		_, err := ParseEventID("2024-O-NEW-KDMX-TO-W-0000")
		require.ErrorIs(t, err, ErrSequenceOutOfRange)
	})
}

func TestNewEventID_RejectsLargeSequence(t *testing.T) {
	_, err := NewEventID(2024, "KDMX", "TO", "W", 10000)
	require.ErrorIs(t, err, ErrSequenceOutOfRange)

	_, err = NewEventID(2024, "KDMX", "TO", "W", -3)
	require.ErrorIs(t, err, ErrSequenceOutOfRange)
}

func TestNormalizeOffice(t *testing.T) {
	for legacy, want := range map[string]string{
		"KAFG": "PAFG",
		"KAFC": "PAFC",
		"KAJK": "PAJK",
		"KGUM": "PGUM",
		"KHFO": "PHFO",
		"KJSJ": "TJSJ",
		"KDMX": "KDMX",
		"":     "",
	} {
		assert.Equal(t, want, NormalizeOffice(legacy), fmt.Sprintf("office %q", legacy))
	}
}

func TestEventID_Step(t *testing.T) {
	id := DefaultEventID()

	assert.Equal(t, 46, id.Step(1).Sequence)
	assert.Equal(t, 44, id.Step(-1).Sequence)

	first := id
	first.Sequence = 1
	assert.Equal(t, 1, first.Step(-1).Sequence, "stepping below 1 keeps the current event")

	last := id
	last.Sequence = 9999
	assert.Equal(t, 9999, last.Step(1).Sequence)
}

func TestEventID_DottedKey(t *testing.T) {
	assert.Equal(t, "2024.KDMX.TO.W.0045", DefaultEventID().DottedKey())
}

func TestExtent_Center(t *testing.T) {
	lat, lon := Extent{MinLon: -94, MinLat: 41, MaxLon: -92, MaxLat: 43}.Center()
	assert.InDelta(t, 42.0, lat, 1e-9)
	assert.InDelta(t, -93.0, lon, 1e-9)
}

func TestEventID_Label(t *testing.T) {
	assert.Equal(t, "2024 KDMX Tornado (TO) Warning (W) Number 45", DefaultEventID().Label())

	odd := EventID{Year: 2020, Office: "KOAX", Phenomenon: "QQ", Significance: "Z", Sequence: 3}
	assert.Equal(t, "2020 KOAX QQ (QQ) Z (Z) Number 3", odd.Label())
}
