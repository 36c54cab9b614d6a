package portfolio

import (
	"context"
	"fmt"
	"log"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	"github.com/status-im/portfolio-proxy/interfaces"
)

const displayCurrency = "USD"

var hundred = decimal.NewFromInt(100)

// Performer is the best or worst holding by profit/loss percentage
type Performer struct {
	CoinID               string  `json:"coin_id"`
	CoinName             string  `json:"coin_name"`
	CoinSymbol           string  `json:"coin_symbol"`
	ProfitLossPercentage float64 `json:"profit_loss_percentage"`
	ProfitLoss           float64 `json:"profit_loss"`
}

// Holding is the net position in one coin
type Holding struct {
	CoinID               string  `json:"coin_id"`
	CoinName             string  `json:"coin_name"`
	CoinSymbol           string  `json:"coin_symbol"`
	Amount               float64 `json:"amount"`
	CostBasis            float64 `json:"cost_basis"`
	PriceAvailable       bool    `json:"price_available"`
	CurrentPrice         float64 `json:"current_price,omitempty"`
	CurrentValue         float64 `json:"current_value,omitempty"`
	ProfitLoss           float64 `json:"profit_loss,omitempty"`
	ProfitLossPercentage float64 `json:"profit_loss_percentage,omitempty"`
}

// Metrics is the analytics view of a portfolio. Holdings without a current
// price are listed but left out of the totals.
type Metrics struct {
	TotalValue             float64                `json:"total_value"`
	TotalCost              float64                `json:"total_cost"`
	TotalProfitLoss        float64                `json:"total_profit_loss"`
	ProfitLossPercentage   float64                `json:"profit_loss_percentage"`
	TotalValueDisplay      string                 `json:"total_value_display"`
	TotalProfitLossDisplay string                 `json:"total_profit_loss_display"`
	BestPerformer          *Performer             `json:"best_performer"`
	WorstPerformer         *Performer             `json:"worst_performer"`
	AssetAllocation        map[string]float64     `json:"asset_allocation"`
	Holdings               []Holding              `json:"holdings"`
	PriceStatus            interfaces.CacheStatus `json:"price_status"`
}

type position struct {
	coinID, name, symbol string
	amount, cost         decimal.Decimal
	value                decimal.Decimal
	priced               bool
}

// Analytics values portfolios with current prices
type Analytics struct {
	prices interfaces.PricesService
}

// NewAnalytics creates analytics on top of a prices service
func NewAnalytics(prices interfaces.PricesService) *Analytics {
	return &Analytics{prices: prices}
}

// Calculate values the holdings of p. It never fails: prices that are not
// available only shrink the totals.
func (a *Analytics) Calculate(ctx context.Context, p *Portfolio) Metrics {
	metrics := Metrics{
		AssetAllocation: map[string]float64{},
		Holdings:        []Holding{},
		PriceStatus:     interfaces.CacheStatusFull,
	}

	positions := buildPositions(p.Transactions)
	if len(positions) == 0 {
		metrics.TotalValueDisplay = formatUSD(decimal.Zero)
		metrics.TotalProfitLossDisplay = formatUSD(decimal.Zero)
		return metrics
	}

	ids := make([]string, 0, len(positions))
	for _, pos := range positions {
		ids = append(ids, pos.coinID)
	}

	snapshot, status := a.prices.GetPrices(ctx, ids)
	metrics.PriceStatus = status
	if len(snapshot) < len(ids) {
		log.Printf("Analytics: Prices available for %d of %d coins (status %s)", len(snapshot), len(ids), status)
	}

	totalValue := decimal.Zero
	totalCost := decimal.Zero
	var best, worst *Performer
	var bestPct, worstPct decimal.Decimal

	for _, pos := range positions {
		holding := Holding{
			CoinID:     pos.coinID,
			CoinName:   pos.name,
			CoinSymbol: pos.symbol,
			Amount:     pos.amount.InexactFloat64(),
			CostBasis:  round2(pos.cost),
		}

		record, ok := snapshot[pos.coinID]
		if ok {
			pos.priced = true
			pos.value = pos.amount.Mul(decimal.NewFromFloat(record.USD))

			pl := pos.value.Sub(pos.cost)
			plPct := percentage(pl, pos.cost)

			holding.PriceAvailable = true
			holding.CurrentPrice = record.USD
			holding.CurrentValue = round2(pos.value)
			holding.ProfitLoss = round2(pl)
			holding.ProfitLossPercentage = round2(plPct)

			totalValue = totalValue.Add(pos.value)
			totalCost = totalCost.Add(pos.cost)

			performer := &Performer{
				CoinID:               pos.coinID,
				CoinName:             pos.name,
				CoinSymbol:           pos.symbol,
				ProfitLossPercentage: round2(plPct),
				ProfitLoss:           round2(pl),
			}
			if best == nil || plPct.GreaterThan(bestPct) {
				best, bestPct = performer, plPct
			}
			if worst == nil || plPct.LessThan(worstPct) {
				worst, worstPct = performer, plPct
			}
		}

		metrics.Holdings = append(metrics.Holdings, holding)
	}

	if totalValue.IsPositive() {
		for _, pos := range positions {
			if !pos.priced {
				continue
			}
			label := fmt.Sprintf("%s (%s)", pos.symbol, pos.name)
			metrics.AssetAllocation[label] = round2(pos.value.Div(totalValue).Mul(hundred))
		}
	}

	totalPL := totalValue.Sub(totalCost)
	metrics.TotalValue = round2(totalValue)
	metrics.TotalCost = round2(totalCost)
	metrics.TotalProfitLoss = round2(totalPL)
	metrics.ProfitLossPercentage = round2(percentage(totalPL, totalCost))
	metrics.TotalValueDisplay = formatUSD(totalValue)
	metrics.TotalProfitLossDisplay = formatUSD(totalPL)
	metrics.BestPerformer = best
	metrics.WorstPerformer = worst

	return metrics
}

// buildPositions nets the transactions per coin in order of first appearance.
// Positions that are not positive are dropped.
func buildPositions(transactions []Transaction) []*position {
	byCoin := make(map[string]*position)
	ordered := make([]*position, 0)

	for _, tx := range transactions {
		pos, ok := byCoin[tx.CoinID]
		if !ok {
			pos = &position{coinID: tx.CoinID, name: tx.CoinName, symbol: tx.CoinSymbol}
			byCoin[tx.CoinID] = pos
			ordered = append(ordered, pos)
		}

		amount := decimal.NewFromFloat(tx.Amount)
		cost := amount.Mul(decimal.NewFromFloat(tx.PriceUSD))
		if tx.Type == Sell {
			amount = amount.Neg()
			cost = cost.Neg()
		}
		pos.amount = pos.amount.Add(amount)
		pos.cost = pos.cost.Add(cost)
	}

	result := make([]*position, 0, len(ordered))
	for _, pos := range ordered {
		if pos.amount.IsPositive() {
			result = append(result, pos)
		}
	}
	return result
}

func percentage(part, whole decimal.Decimal) decimal.Decimal {
	if !whole.IsPositive() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(hundred)
}

func round2(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

// formatUSD renders an amount the way go-money displays USD, e.g. $1,234.56
func formatUSD(amount decimal.Decimal) string {
	cur := money.GetCurrency(displayCurrency)
	if cur == nil {
		return amount.StringFixed(2)
	}
	return money.New(amount.Shift(int32(cur.Fraction)).Round(0).IntPart(), displayCurrency).Display()
}
