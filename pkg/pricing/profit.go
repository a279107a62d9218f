package pricing

import (
	"time"

	"github.com/google/uuid"
)

// Profit is the result of CalculateProfit.
type Profit struct {
	SellingPrice     float64 `json:"selling_price"`
	CostPrice        float64 `json:"cost_price"`
	AdditionalCosts  float64 `json:"additional_costs"`
	NetProfit        float64 `json:"net_profit"`
	NetMarginPercent float64 `json:"net_margin_percent"`
}

// CalculateProfit returns net profit and margin. Margin is 0 when the selling
// price is not positive.
func CalculateProfit(sellingPrice, costPrice float64, additionalCosts ...float64) Profit {
	var extra float64
	for _, c := range additionalCosts {
		extra += c
	}

	p := Profit{
		SellingPrice:    sellingPrice,
		CostPrice:       costPrice,
		AdditionalCosts: extra,
		NetProfit:       roundSigned(sellingPrice - costPrice - extra),
	}
	if sellingPrice > 0 {
		p.NetMarginPercent = roundSigned((sellingPrice - costPrice - extra) / sellingPrice * 100)
	}
	return p
}

// ProfitCalculation is one append-only audit row.
type ProfitCalculation struct {
	ID        uuid.UUID `json:"id"`
	TenantID  uuid.UUID `json:"tenant_id"`
	ProductID uuid.UUID `json:"product_id"`
	Profit
	CreatedAt time.Time `json:"created_at"`
}
