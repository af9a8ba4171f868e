// Package sentiment reads the analyzer's success payload and turns it into
// per-ticker scores for display.
package sentiment

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

const (
	Bullish = "Bullish"
	Bearish = "Bearish"
	Neutral = "Neutral"
	NoData  = "No data"
)

var (
	bullishAt = decimal.RequireFromString("0.05")
	bearishAt = decimal.RequireFromString("-0.05")
)

// Classify labels a compound score the way the analyzer does: >= 0.05 is
// bullish, <= -0.05 bearish, anything between neutral.
func Classify(compound decimal.Decimal) string {
	switch {
	case compound.GreaterThanOrEqual(bullishAt):
		return Bullish
	case compound.LessThanOrEqual(bearishAt):
		return Bearish
	default:
		return Neutral
	}
}

type TickerScore struct {
	Ticker   string
	Label    string
	Compound decimal.Decimal
	Positive decimal.Decimal
	Negative decimal.Decimal
	Neutral  decimal.Decimal
}

// Summary is the decoded view of one analyzer payload.
type Summary struct {
	Success   bool
	Timestamp string
	Error     string
	Scores    []TickerScore // sorted by ticker
}

type payload struct {
	Success   bool                    `json:"success"`
	Timestamp string                  `json:"timestamp"`
	Error     string                  `json:"error"`
	Data      map[string]tickerFields `json:"data"`
}

type tickerFields struct {
	Sentiment string          `json:"sentiment"`
	Compound  decimal.Decimal `json:"compound_score"`
	Positive  decimal.Decimal `json:"positive"`
	Negative  decimal.Decimal `json:"negative"`
	Neutral   decimal.Decimal `json:"neutral"`
}

// Summarize decodes raw. Labels are recomputed from the compound score,
// except for tickers the analyzer reported as having no data.
func Summarize(raw json.RawMessage) (*Summary, error) {
	var p payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decoding sentiment payload: %w", err)
	}

	s := &Summary{
		Success:   p.Success,
		Timestamp: p.Timestamp,
		Error:     p.Error,
		Scores:    make([]TickerScore, 0, len(p.Data)),
	}
	for ticker, f := range p.Data {
		label := Classify(f.Compound)
		if f.Sentiment == NoData {
			label = NoData
		}
		s.Scores = append(s.Scores, TickerScore{
			Ticker:   ticker,
			Label:    label,
			Compound: f.Compound.Round(4),
			Positive: f.Positive.Round(4),
			Negative: f.Negative.Round(4),
			Neutral:  f.Neutral.Round(4),
		})
	}
	sort.Slice(s.Scores, func(i, j int) bool { return s.Scores[i].Ticker < s.Scores[j].Ticker })
	return s, nil
}
