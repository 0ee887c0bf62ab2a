package market

import (
	"fmt"
	"math"
	"regexp"
	"strings"
)

// Market 交易所市场
const (
	MarketSZ = "SZ" // 深圳证券交易所
	MarketSH = "SH" // 上海证券交易所
)

// Board 板块
const (
	BoardMain    = "MAIN"    // 主板（涨跌幅限制 10%）
	BoardChiNext = "CHINEXT" // 创业板（涨跌幅限制 20%）
)

var symbolRe = regexp.MustCompile(`^(\d{6})\.(SZ|SH)$`)

// ParsedSymbol 解析后的证券代码
type ParsedSymbol struct {
	Code   string // 6位数字代码
	Market string // SZ | SH
	Board  string // MAIN | CHINEXT
}

// Symbol 返回完整代码，如 000001.SZ
func (p ParsedSymbol) Symbol() string {
	return p.Code + "." + p.Market
}

// LimitRatio 返回板块对应的日涨跌幅限制
func (p ParsedSymbol) LimitRatio() float64 {
	if p.Board == BoardChiNext {
		return 0.20
	}
	return 0.10
}

// ParseSymbol 解析并校验证券代码（如 000001.SZ / 600519.SH）
func ParseSymbol(symbol string) (ParsedSymbol, error) {
	m := symbolRe.FindStringSubmatch(symbol)
	if m == nil {
		return ParsedSymbol{}, fmt.Errorf("代码格式错误，应形如 '000001.SZ' 或 '600519.SH': %s", symbol)
	}

	code := m[1]
	mkt := m[2]

	// 当前版本支持主板+创业板，科创板（688）不支持
	var board string
	switch {
	case strings.HasPrefix(code, "300"), strings.HasPrefix(code, "301"):
		board = BoardChiNext
	case strings.HasPrefix(code, "688"):
		return ParsedSymbol{}, fmt.Errorf("科创板暂不支持: %s", symbol)
	default:
		board = BoardMain
	}

	return ParsedSymbol{Code: code, Market: mkt, Board: board}, nil
}

// TickRound 按最小报价单位（0.01元）取整，带 epsilon 防止浮点漂移
func TickRound(price float64) float64 {
	return math.Round((price+1e-9)*100) / 100
}
