package domain

import (
	"fmt"
	"math"

	"github.com/DRSN-tech/photo-pipeline/pkg/e"
	"github.com/shopspring/decimal"
)

// Label — метка классификатора с вероятностью.
type Label struct {
	Name        string
	Probability float64
}

// ValidateLabels отклоняет метки с NaN или бесконечной вероятностью.
func ValidateLabels(labels []Label) error {
	for _, l := range labels {
		if !isFinite(l.Probability) {
			return fmt.Errorf("%w: %s=%v", e.ErrInvalidModelOutput, l.Name, l.Probability)
		}
	}

	return nil
}

// ConfidentTags оставляет метки с вероятностью строго выше порога, сохраняя порядок ранжирования.
// Пустой результат допустим и означает «нет уверенной метки». Нечисловые вероятности пропускаются.
func ConfidentTags(labels []Label, threshold decimal.Decimal) []string {
	tags := make([]string, 0, len(labels))
	for _, l := range labels {
		if !isFinite(l.Probability) {
			continue
		}
		if decimal.NewFromFloat(l.Probability).GreaterThan(threshold) {
			tags = append(tags, l.Name)
		}
	}

	return tags
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
