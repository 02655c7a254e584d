package domain

import (
	"math/big"
	"time"

	pricingDomain "github.com/fd1az/flashloan-arb/business/pricing/domain"
)

// Evaluation is everything decided for one block.
type Evaluation struct {
	BlockNumber uint64
	Snapshot    *pricingDomain.RateSnapshot
	Reference   *pricingDomain.ReferencePrice // nil when the cache was cold
	Results     []ProfitResult
	Best        *ProfitResult // nil when nothing clears the threshold
	EvaluatedAt time.Time
}

// SelectBest picks the highest net result strictly above min. Equal nets keep
// the earlier direction. NotEvaluable results never win.
func SelectBest(results []ProfitResult, min *big.Int) *ProfitResult {
	var best *ProfitResult
	for i := range results {
		r := &results[i]
		if r.Status != StatusProfitable || !r.Exceeds(min) {
			continue
		}
		if best == nil || r.Net.Cmp(best.Net) > 0 {
			best = r
		}
	}
	return best
}
