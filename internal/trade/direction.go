// Package trade holds the small normalization helpers the out-of-scope
// trade/account/asset commands share with the core (§6); direction
// parsing is the one piece scenario 6 pins down explicitly.
package trade

import (
	"fmt"
	"strings"
)

// Direction is the normalized shape a parsed order direction takes:
// which book it trades on and which side.
type Direction struct {
	MarketType string // "perp" or "spot"
	IsBuy      bool
}

// ParseDirection accepts the four case-insensitive direction words the
// CLI exposes: long/short address the perpetual book, buy/sell the spot
// book. Anything else is a user input error (§7 "input validation").
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(s) {
	case "long":
		return Direction{MarketType: "perp", IsBuy: true}, nil
	case "short":
		return Direction{MarketType: "perp", IsBuy: false}, nil
	case "buy":
		return Direction{MarketType: "spot", IsBuy: true}, nil
	case "sell":
		return Direction{MarketType: "spot", IsBuy: false}, nil
	default:
		return Direction{}, fmt.Errorf("invalid direction: %q", s)
	}
}
