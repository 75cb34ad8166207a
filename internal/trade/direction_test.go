package trade

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDirection_Long(t *testing.T) {
	d, err := ParseDirection("long")
	require.NoError(t, err)
	assert.Equal(t, Direction{MarketType: "perp", IsBuy: true}, d)
}

func TestParseDirection_ShortCaseInsensitive(t *testing.T) {
	d, err := ParseDirection("SHORT")
	require.NoError(t, err)
	assert.Equal(t, Direction{MarketType: "perp", IsBuy: false}, d)
}

func TestParseDirection_Buy(t *testing.T) {
	d, err := ParseDirection("buy")
	require.NoError(t, err)
	assert.Equal(t, Direction{MarketType: "spot", IsBuy: true}, d)
}

func TestParseDirection_Invalid(t *testing.T) {
	_, err := ParseDirection("invalid")
	require.Error(t, err)
}
