package quote

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/text/encoding/simplifiedchinese"

	"papermesh/logger"
	"papermesh/utils"
)

const tencentQuoteURL = "https://qt.gtimg.cn/q=%s"

// TencentGateway 腾讯行情网关（qt.gtimg.cn）
type TencentGateway struct {
	client *resty.Client
}

// NewTencentGateway 创建腾讯行情网关
func NewTencentGateway(timeout time.Duration) *TencentGateway {
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(1).
		SetHeader("Referer", "https://gu.qq.com/")

	return &TencentGateway{client: client}
}

// FetchQuotes 批量获取行情。返回的 map 只包含成功解析的代码。
func (g *TencentGateway) FetchQuotes(ctx context.Context, symbols []string) (map[string]*Quote, error) {
	result := make(map[string]*Quote)
	if len(symbols) == 0 {
		return result, nil
	}

	// 000001.SZ -> sz000001
	keys := make([]string, 0, len(symbols))
	for _, s := range symbols {
		k, err := tencentKey(s)
		if err != nil {
			logger.Debug("跳过无效代码: %s", s)
			continue
		}
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return result, nil
	}

	resp, err := g.client.R().
		SetContext(ctx).
		Get(fmt.Sprintf(tencentQuoteURL, strings.Join(keys, ",")))
	if err != nil {
		return nil, fmt.Errorf("请求行情失败: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("行情接口返回状态码 %d", resp.StatusCode())
	}

	// 返回内容为 GBK 编码
	body, err := simplifiedchinese.GBK.NewDecoder().Bytes(resp.Body())
	if err != nil {
		return nil, fmt.Errorf("解码行情内容失败: %w", err)
	}

	for _, line := range strings.Split(string(body), ";") {
		q, err := parseTencentLine(strings.TrimSpace(line))
		if err != nil || q == nil {
			continue
		}
		result[q.Symbol] = q
	}
	return result, nil
}

// tencentKey 将 000001.SZ 转换为腾讯接口使用的 sz000001
func tencentKey(symbol string) (string, error) {
	parts := strings.Split(symbol, ".")
	if len(parts) != 2 {
		return "", fmt.Errorf("代码格式错误: %s", symbol)
	}
	return strings.ToLower(parts[1]) + parts[0], nil
}

// parseTencentLine 解析单行行情，形如
// v_sz000001="51~平安银行~000001~11.40~11.37~11.38~...";
func parseTencentLine(line string) (*Quote, error) {
	if line == "" || !strings.HasPrefix(line, "v_") {
		return nil, nil
	}
	eq := strings.Index(line, "=")
	if eq < 0 {
		return nil, fmt.Errorf("行情行缺少等号")
	}

	key := line[2:eq] // sz000001
	if len(key) != 8 {
		return nil, fmt.Errorf("行情键格式错误: %s", key)
	}
	symbol := key[2:] + "." + strings.ToUpper(key[:2])

	payload := strings.Trim(line[eq+1:], "\"; \n\r")
	f := strings.Split(payload, "~")
	// 空结果（代码无效时腾讯返回 v_pv_none_match）
	if len(f) < 38 {
		return nil, fmt.Errorf("行情字段不足: %d", len(f))
	}

	q := &Quote{
		Symbol:     symbol,
		Name:       f[1],
		Last:       parseFloat(f[3]),
		PrevClose:  parseFloat(f[4]),
		Open:       parseFloat(f[5]),
		Bid1:       parseFloat(f[9]),
		Bid1Volume: parseInt(f[10]) * 100, // 腾讯以"手"为单位
		Ask1:       parseFloat(f[19]),
		Ask1Volume: parseInt(f[20]) * 100,
		High:       parseFloat(f[33]),
		Low:        parseFloat(f[34]),
		Volume:     parseInt(f[36]) * 100,
		Amount:     parseFloat(f[37]) * 10000, // 万元 -> 元
		Source:     "tencent",
		Tradable:   true,
	}

	// f[30] 形如 20240830150000
	if t, err := time.ParseInLocation("20060102150405", f[30], utils.CNLocation); err == nil {
		q.QuoteTime = t
	}

	if q.Last <= 0 {
		// 停牌或无效代码
		q.Tradable = false
	}
	return q, nil
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return v
}

func parseInt(s string) int64 {
	v, _ := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	return v
}
