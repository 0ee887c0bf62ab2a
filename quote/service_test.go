package quote

import (
	"context"
	"errors"
	"testing"
	"time"
)

// countingGateway 记录上游调用次数的假网关
type countingGateway struct {
	calls  int
	quotes map[string]*Quote
	err    error
}

func (g *countingGateway) FetchQuotes(ctx context.Context, symbols []string) (map[string]*Quote, error) {
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	result := make(map[string]*Quote)
	for _, s := range symbols {
		if q, ok := g.quotes[s]; ok {
			result[s] = q
		}
	}
	return result, nil
}

func TestServiceCaching(t *testing.T) {
	gw := &countingGateway{quotes: map[string]*Quote{
		"000001.SZ": {Symbol: "000001.SZ", Last: 10, QuoteTime: time.Now(), Tradable: true},
	}}
	svc := NewService(gw, 60, 100)
	ctx := context.Background()

	q1, err := svc.FetchQuotes(ctx, []string{"000001.SZ"})
	if err != nil {
		t.Fatalf("获取行情失败: %v", err)
	}
	if len(q1) != 1 || gw.calls != 1 {
		t.Fatalf("首次获取应走上游: %d 条, %d 次调用", len(q1), gw.calls)
	}

	// 缓存期内不再调上游
	q2, _ := svc.FetchQuotes(ctx, []string{"000001.SZ"})
	if len(q2) != 1 || gw.calls != 1 {
		t.Fatalf("缓存期内不应调上游: %d 次调用", gw.calls)
	}

	// 未缓存的代码仍要上游
	svc.FetchQuotes(ctx, []string{"000001.SZ", "600000.SH"})
	if gw.calls != 2 {
		t.Fatalf("缓存未命中应调上游: %d 次调用", gw.calls)
	}
}

func TestServiceUpstreamErrorReturnsCacheHits(t *testing.T) {
	gw := &countingGateway{quotes: map[string]*Quote{
		"000001.SZ": {Symbol: "000001.SZ", Last: 10, QuoteTime: time.Now(), Tradable: true},
	}}
	svc := NewService(gw, 60, 100)
	ctx := context.Background()

	if _, err := svc.FetchQuotes(ctx, []string{"000001.SZ"}); err != nil {
		t.Fatalf("获取行情失败: %v", err)
	}

	// 上游故障时返回缓存命中的部分，不报错
	gw.err = errors.New("upstream down")
	result, err := svc.FetchQuotes(ctx, []string{"000001.SZ", "600000.SH"})
	if err != nil {
		t.Fatalf("上游故障不应透传错误: %v", err)
	}
	if len(result) != 1 || result["000001.SZ"] == nil {
		t.Fatalf("应返回缓存命中部分: %+v", result)
	}
}
