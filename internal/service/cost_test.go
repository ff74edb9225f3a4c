package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClampDays(t *testing.T) {
	assert.Equal(t, defaultQueryDays, clampDays(0), "missing days falls back to default")
	assert.Equal(t, defaultQueryDays, clampDays(-7))
	assert.Equal(t, 90, clampDays(90))
	assert.Equal(t, maxQueryDays, clampDays(365))
	assert.Equal(t, maxQueryDays, clampDays(10000), "oversized window is capped")
}
