package market

import (
	"time"

	"papermesh/utils"
)

// TradingSession 可下单时段（含首尾）
type TradingSession struct {
	StartHour, StartMin int
	EndHour, EndMin     int
}

// Contains 判断时间是否落在时段内
func (s TradingSession) Contains(t time.Time) bool {
	t = utils.ToCN(t)
	minutes := t.Hour()*60 + t.Minute()
	return minutes >= s.StartHour*60+s.StartMin && minutes <= s.EndHour*60+s.EndMin
}

// 上午连续竞价 + 下午连续竞价（收盘前最后3分钟集合竞价不接受委托）
var orderSessions = []TradingSession{
	{StartHour: 9, StartMin: 30, EndHour: 11, EndMin: 30},
	{StartHour: 13, StartMin: 0, EndHour: 14, EndMin: 57},
}

// IsOrderSession 判断是否处于可下单时段
func IsOrderSession(t time.Time) bool {
	for _, s := range orderSessions {
		if s.Contains(t) {
			return true
		}
	}
	return false
}
