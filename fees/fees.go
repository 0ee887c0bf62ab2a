package fees

// A股费率（监管规定费率，非运营参数）
const (
	CommissionRate = 0.00025 // 佣金费率 万2.5
	CommissionMin  = 5.0     // 佣金最低 5 元
	StampTaxRate   = 0.001   // 印花税 千1（仅卖出）
	TransferRate   = 0.00002 // 过户费 十万分之2（仅沪市）
)

// Fees 单笔成交费用明细
type Fees struct {
	Commission  float64 `json:"commission"`   // 佣金
	StampTax    float64 `json:"stamp_tax"`    // 印花税
	TransferFee float64 `json:"transfer_fee"` // 过户费
}

// Total 费用合计
func (f Fees) Total() float64 {
	return f.Commission + f.StampTax + f.TransferFee
}

// Calc 按成交金额、买卖方向、市场计算费用。纯函数，无副作用。
func Calc(tradeValue float64, direction string, mkt string) Fees {
	commission := tradeValue * CommissionRate
	if commission < CommissionMin {
		commission = CommissionMin
	}

	var stampTax float64
	if direction == "SELL" {
		stampTax = tradeValue * StampTaxRate
	}

	var transferFee float64
	if mkt == "SH" {
		transferFee = tradeValue * TransferRate
	}

	return Fees{Commission: commission, StampTax: stampTax, TransferFee: transferFee}
}
