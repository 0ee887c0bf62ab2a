package quote

import (
	"context"
	"time"
)

// Quote 实时行情快照
type Quote struct {
	Symbol     string    `json:"symbol"`
	Name       string    `json:"name,omitempty"`
	Last       float64   `json:"last"`
	Open       float64   `json:"open,omitempty"`
	High       float64   `json:"high,omitempty"`
	Low        float64   `json:"low,omitempty"`
	Bid1       float64   `json:"bid1,omitempty"`
	Ask1       float64   `json:"ask1,omitempty"`
	Bid1Volume int64     `json:"bid1_volume,omitempty"`
	Ask1Volume int64     `json:"ask1_volume,omitempty"`
	PrevClose  float64   `json:"prev_close,omitempty"`
	Volume     int64     `json:"volume,omitempty"`
	Amount     float64   `json:"amount,omitempty"`
	QuoteTime  time.Time `json:"quote_time,omitempty"`
	Source     string    `json:"source,omitempty"`
	Tradable   bool      `json:"tradable"`
}

// Gateway 行情网关接口。返回的 map 中缺失的代码视为无行情（停牌或代码无效），
// 由风控层负责拒单，这里不做重试。
type Gateway interface {
	FetchQuotes(ctx context.Context, symbols []string) (map[string]*Quote, error)
}
