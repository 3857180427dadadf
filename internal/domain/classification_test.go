package domain

import (
	"errors"
	"math"
	"slices"
	"testing"

	"github.com/DRSN-tech/photo-pipeline/pkg/e"
	"github.com/shopspring/decimal"
)

func TestConfidentTags(t *testing.T) {
	half := decimal.RequireFromString("0.5")

	tests := []struct {
		name   string
		labels []Label
		want   []string
	}{
		{
			name:   "keeps labels above threshold in rank order",
			labels: []Label{{"tabby cat", 0.82}, {"Egyptian cat", 0.30}},
			want:   []string{"tabby cat"},
		},
		{
			name:   "threshold itself is excluded",
			labels: []Label{{"tabby cat", 0.5}},
			want:   []string{},
		},
		{
			name:   "no confident label",
			labels: []Label{{"tabby cat", 0.41}, {"tiger cat", 0.39}},
			want:   []string{},
		},
		{
			name:   "empty input",
			labels: nil,
			want:   []string{},
		},
		{
			name:   "non-finite probabilities are skipped",
			labels: []Label{{"a", math.NaN()}, {"b", math.Inf(1)}, {"c", 0.7}},
			want:   []string{"c"},
		},
		{
			name:   "several confident labels",
			labels: []Label{{"a", 0.9}, {"b", 0.51}, {"c", 0.2}},
			want:   []string{"a", "b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ConfidentTags(tt.labels, half)
			if got == nil {
				t.Fatal("ConfidentTags must return a non-nil slice")
			}
			if !slices.Equal(got, tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidateLabels(t *testing.T) {
	if err := ValidateLabels([]Label{{"tabby cat", 0.82}, {"Egyptian cat", 0.30}}); err != nil {
		t.Fatalf("valid labels rejected: %v", err)
	}

	for _, p := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		err := ValidateLabels([]Label{{"tabby cat", 0.82}, {"broken", p}})
		if !errors.Is(err, e.ErrInvalidModelOutput) {
			t.Fatalf("probability %v: expected ErrInvalidModelOutput, got %v", p, err)
		}
		if IsPermanent(err) {
			t.Fatalf("probability %v: model output error must be retried", p)
		}
	}
}
