package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidCostUnitPair(t *testing.T) {
	valid := map[CostType]CostUnit{
		CostTypeLLM:       CostUnitTokens,
		CostTypeDocument:  CostUnitPages,
		CostTypeEmbedding: CostUnitQueries,
		CostTypeMessaging: CostUnitMessages,
	}
	for costType, unit := range valid {
		assert.True(t, IsValidCostUnitPair(costType, unit), "%s/%s should be valid", costType, unit)
	}

	// 交叉配對一律拒絕
	for costType := range valid {
		for _, unit := range []CostUnit{CostUnitTokens, CostUnitPages, CostUnitQueries, CostUnitMessages} {
			if valid[costType] == unit {
				continue
			}
			assert.False(t, IsValidCostUnitPair(costType, unit), "%s/%s should be rejected", costType, unit)
		}
	}

	assert.False(t, IsValidCostUnitPair("gpu", CostUnitTokens))
	assert.False(t, IsValidCostUnitPair(CostTypeLLM, "hours"))
}

func TestIsValidCostType(t *testing.T) {
	for _, costType := range CostTypes {
		assert.True(t, IsValidCostType(string(costType)))
	}
	assert.False(t, IsValidCostType("gpu"))
	assert.False(t, IsValidCostType(""))
	assert.False(t, IsValidCostType("LLM"), "cost types are case sensitive")
}
