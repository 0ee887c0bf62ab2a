package utils

import (
	"time"
)

var (
	// CNLocation A股交易时区（东8区）
	CNLocation *time.Location
)

func init() {
	loc, err := time.LoadLocation("Asia/Shanghai")
	if err != nil {
		// 加载失败时退回固定偏移
		loc = time.FixedZone("UTC+8", 8*60*60)
	}
	CNLocation = loc
}

// NowCN 获取当前东8区时间
func NowCN() time.Time {
	return time.Now().In(CNLocation)
}

// ToCN 将时间转换为东8区时间
func ToCN(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.In(CNLocation)
}

// FormatTime 格式化为 ISO-8601 字符串（数据库统一使用该格式）
func FormatTime(t time.Time) string {
	return ToCN(t).Format(time.RFC3339)
}

// ParseTime 解析 ISO-8601 字符串
func ParseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return ToCN(t), nil
}

// Today 获取当前东8区日期（YYYY-MM-DD）
func Today() string {
	return NowCN().Format("2006-01-02")
}

// IsWeekday 判断是否为工作日（周一到周五）
func IsWeekday(t time.Time) bool {
	wd := ToCN(t).Weekday()
	return wd >= time.Monday && wd <= time.Friday
}
