package utils

import (
	"strings"
	"testing"
	"time"
)

func TestFormatParseRoundtrip(t *testing.T) {
	orig := time.Date(2026, 8, 28, 10, 30, 0, 0, CNLocation)
	s := FormatTime(orig)
	if !strings.HasSuffix(s, "+08:00") {
		t.Errorf("格式化应带东8区偏移: %s", s)
	}

	parsed, err := ParseTime(s)
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if !parsed.Equal(orig) {
		t.Errorf("往返解析不一致: %v != %v", parsed, orig)
	}
}

func TestIsWeekday(t *testing.T) {
	friday := time.Date(2026, 8, 28, 10, 0, 0, 0, CNLocation)
	if !IsWeekday(friday) {
		t.Error("周五应为工作日")
	}
	saturday := time.Date(2026, 8, 29, 10, 0, 0, 0, CNLocation)
	if IsWeekday(saturday) {
		t.Error("周六不是工作日")
	}
}

func TestFormatTimeSortable(t *testing.T) {
	// 同时区下 RFC3339 字符串的字典序与时间序一致，过期比较依赖该性质
	earlier := FormatTime(time.Date(2026, 8, 28, 9, 59, 0, 0, CNLocation))
	later := FormatTime(time.Date(2026, 8, 28, 10, 0, 0, 0, CNLocation))
	if !(earlier < later) {
		t.Errorf("时间字符串应可按字典序比较: %s vs %s", earlier, later)
	}
}
