package service

import (
	"fmt"
	"math"
	"slices"

	"github.com/boddenberg/categorizer-go/internal/domain"
)

const (
	// DefaultAnomalyThreshold is the robust z-score above which a transaction is flagged.
	DefaultAnomalyThreshold = 3.5

	// Groups smaller than this are not scored.
	minAnomalyGroup = 5

	// madScale makes the MAD comparable to a standard deviation under normality.
	madScale = 0.6745

	severityHighScore   = 8
	severityMediumScore = 5
)

// DetectOutliers flags transactions whose absolute amount is far above the
// median of their category, using the robust z-score
// 0.6745 * (|amount| - median) / MAD. Results follow category first-appearance
// order and then member order. A threshold that is not a positive number
// falls back to DefaultAnomalyThreshold.
func DetectOutliers(txs []domain.Transaction, threshold float64) []domain.AnomalyResult {
	if math.IsNaN(threshold) || math.IsInf(threshold, 0) || threshold <= 0 {
		threshold = DefaultAnomalyThreshold
	}

	var order []string
	groups := make(map[string][]domain.Transaction)
	for _, tx := range txs {
		cat := tx.Category
		if cat == "" {
			cat = domain.CategoryNoCategory
		}
		if _, ok := groups[cat]; !ok {
			order = append(order, cat)
		}
		groups[cat] = append(groups[cat], tx)
	}

	anomalies := []domain.AnomalyResult{}
	for _, cat := range order {
		members := groups[cat]
		if len(members) < minAnomalyGroup {
			continue
		}

		amounts := make([]float64, len(members))
		for i, tx := range members {
			amounts[i] = math.Abs(tx.Amount)
		}
		med := median(amounts)

		deviations := make([]float64, len(amounts))
		for i, a := range amounts {
			deviations[i] = math.Abs(a - med)
		}
		mad := median(deviations)
		if mad == 0 {
			mad = 1
		}

		for i, tx := range members {
			score := madScale * (amounts[i] - med) / mad
			if score <= threshold {
				continue
			}
			anomalies = append(anomalies, domain.AnomalyResult{
				TransactionID: tx.ID,
				Amount:        tx.Amount,
				Description:   tx.Description,
				Category:      cat,
				Severity:      severityFor(score),
				Score:         math.Round(score*100) / 100,
				Reason: fmt.Sprintf("Monto %.2f muy por encima de la mediana %.2f en %s (z=%.1f)",
					amounts[i], med, cat, score),
			})
		}
	}
	return anomalies
}

func severityFor(score float64) domain.Severity {
	switch {
	case score > severityHighScore:
		return domain.SeverityHigh
	case score > severityMediumScore:
		return domain.SeverityMedium
	default:
		return domain.SeverityLow
	}
}

// median of values. values is not modified.
func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
