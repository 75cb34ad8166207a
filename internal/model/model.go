// Package model holds the wire-level value types shared by the cache,
// the IPC protocol, and the watcher pattern. All price and volume fields
// are decimal strings, never floats, to preserve exchange-reported
// precision — the daemon never parses them, only stores and forwards.
package model

// AssetContext mirrors one upstream perpetual asset's derived market
// data, as delivered by the "all-dexes asset contexts" push feed.
type AssetContext struct {
	Coin             string  `json:"coin"`
	DayNtlVlm        string  `json:"dayNtlVlm"`
	FundingRate      string  `json:"funding"`
	ImpactPxs        *[2]string `json:"impactPxs,omitempty"`
	MarkPx           string  `json:"markPx"`
	MidPx            *string `json:"midPx,omitempty"`
	OpenInterest     string  `json:"openInterest"`
	OraclePx         string  `json:"oraclePx"`
	Premium          *string `json:"premium,omitempty"`
	PrevDayPx        string  `json:"prevDayPx"`
	DayBaseVlm       string  `json:"dayBaseVlm"`
}

// DexAssetContexts pairs a dex name with its ordered asset contexts.
type DexAssetContexts struct {
	Dex  string         `json:"dex"`
	Ctxs []AssetContext `json:"ctxs"`
}

// PerpMeta describes one perpetual market's static metadata.
type PerpMeta struct {
	Symbol        string `json:"symbol"`
	SizeDecimals  int    `json:"sizeDecimals"`
	MaxLeverage   int    `json:"maxLeverage"`
	IsolatedOnly  bool   `json:"isolatedOnly"`
}

// Mids maps asset symbol to its mid-price string.
type Mids map[string]string
