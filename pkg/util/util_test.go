package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseSnowflake(t *testing.T) {
	assert.Equal(t, uint64(123), ParseSnowflake("123"))
	assert.Equal(t, uint64(123456789012345678), ParseSnowflake("123456789012345678"))
	assert.Zero(t, ParseSnowflake(""))
	assert.Zero(t, ParseSnowflake("abc"))
	assert.Zero(t, ParseSnowflake("-5"))
}

func TestHumanDelta(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want string
	}{
		{0, "0s"},
		{-3 * time.Second, "0s"},
		{45 * time.Second, "45s"},
		{90 * time.Second, "1m 30s"},
		{2 * time.Hour, "2h 0s"},
		{26*time.Hour + 61*time.Second, "1d 2h 1m 1s"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, HumanDelta(c.in), "duration %s", c.in)
	}
}

func TestFormatSeconds(t *testing.T) {
	assert.Equal(t, "45s", FormatSeconds(45))
	assert.Equal(t, "10m", FormatSeconds(600))
	assert.Equal(t, "1m 30s", FormatSeconds(90))
	assert.Equal(t, "90m", FormatSeconds(5400))
}
