package grading

import "github.com/shopspring/decimal"

// Percentage returns score/total*100 rounded half-up to two decimals.
func Percentage(score, total int) float64 {
	if total <= 0 {
		return 0
	}
	p := decimal.NewFromInt(int64(score)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(total))).
		Round(2)
	return p.InexactFloat64()
}
