package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Aynı an hangi dilimde ifade edilirse edilsin aynı iş gününe düşmeli.
func TestBusinessDayNormalizesLocation(t *testing.T) {
	moment := time.Date(2026, 3, 15, 10, 30, 0, 0, time.Local)

	local := BusinessDay(moment)
	utc := BusinessDay(moment.UTC())

	assert.True(t, local.Equal(utc))
	assert.Equal(t, time.Local, local.Location())
	assert.Equal(t, 15, local.Day())
}

// API'den gelen tarih, time.Now ile damgalanan iş gününün anahtarına eşit olmalı.
func TestParseBusinessDayMatchesStamping(t *testing.T) {
	moment := time.Date(2026, 3, 15, 10, 30, 0, 0, time.Local)

	parsed, err := ParseBusinessDay("2026-03-15")
	require.NoError(t, err)
	assert.True(t, parsed.Equal(BusinessDay(moment)))

	_, err = ParseBusinessDay("15.03.2026")
	assert.Error(t, err)
}
