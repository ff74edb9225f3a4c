package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseThreshold(t *testing.T) {
	raw := "123.45"
	value, parseError := parseThreshold(&raw, "daily_threshold_usd")
	require.Nil(t, parseError)
	require.NotNil(t, value)
	assert.Equal(t, "123.45", value.String())
}

func TestParseThresholdNilPassesThrough(t *testing.T) {
	value, parseError := parseThreshold(nil, "daily_threshold_usd")
	require.Nil(t, parseError)
	assert.Nil(t, value, "missing field means keep the current threshold")
}

func TestParseThresholdRejectsGarbage(t *testing.T) {
	raw := "eighty"
	_, parseError := parseThreshold(&raw, "daily_threshold_usd")
	require.NotNil(t, parseError)
	assert.Contains(t, parseError.ErrorDesc(), "daily_threshold_usd")
}

func TestParseThresholdRejectsNegative(t *testing.T) {
	raw := "-5"
	_, parseError := parseThreshold(&raw, "monthly_threshold_usd")
	require.NotNil(t, parseError)
}
