package quote

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"papermesh/logger"
)

// cacheEntry 缓存条目
type cacheEntry struct {
	quote     *Quote
	fetchedAt time.Time
}

// Service 带缓存和限速的行情服务。缓存是短 TTL 的只读外部数据，
// 不参与引擎的写锁序列化。
type Service struct {
	gateway Gateway
	ttl     time.Duration
	limiter *rate.Limiter

	mu    sync.RWMutex
	cache map[string]cacheEntry
}

// NewService 创建行情服务
func NewService(gateway Gateway, cacheSeconds int, ratePerSecond int) *Service {
	if ratePerSecond <= 0 {
		ratePerSecond = 5
	}
	return &Service{
		gateway: gateway,
		ttl:     time.Duration(cacheSeconds) * time.Second,
		limiter: rate.NewLimiter(rate.Limit(ratePerSecond), ratePerSecond),
		cache:   make(map[string]cacheEntry),
	}
}

// FetchQuotes 批量获取行情，缓存期内直接返回缓存，其余合并为一次上游请求
func (s *Service) FetchQuotes(ctx context.Context, symbols []string) (map[string]*Quote, error) {
	result := make(map[string]*Quote, len(symbols))
	now := time.Now()

	var missing []string
	s.mu.RLock()
	for _, sym := range symbols {
		if entry, ok := s.cache[sym]; ok && now.Sub(entry.fetchedAt) <= s.ttl {
			result[sym] = entry.quote
		} else {
			missing = append(missing, sym)
		}
	}
	s.mu.RUnlock()

	if len(missing) == 0 {
		return result, nil
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return result, err
	}

	fetched, err := s.gateway.FetchQuotes(ctx, missing)
	if err != nil {
		// 上游失败时返回已有缓存命中部分，缺失代码由风控拒单
		logger.Warn("⚠️ 获取行情失败: %v", err)
		return result, nil
	}

	s.mu.Lock()
	for sym, q := range fetched {
		s.cache[sym] = cacheEntry{quote: q, fetchedAt: now}
		result[sym] = q
	}
	s.mu.Unlock()

	return result, nil
}
