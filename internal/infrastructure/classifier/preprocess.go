package classifier

import (
	"bufio"
	"fmt"
	"image"
	"io"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/DRSN-tech/photo-pipeline/internal/domain"
	"github.com/DRSN-tech/photo-pipeline/pkg/e"
	"github.com/disintegration/imaging"
)

// Нормализация ImageNet (RGB).
var (
	imagenetMean = [3]float32{0.485, 0.456, 0.406}
	imagenetStd  = [3]float32{0.229, 0.224, 0.225}
)

var synsetPrefix = regexp.MustCompile(`^n\d{8}\s+`)

// Preprocess приводит изображение к size×size и раскладывает его в тензор NCHW float32
// с нормализацией ImageNet.
func Preprocess(img image.Image, size int) []float32 {
	resized := imaging.Resize(img, size, size, imaging.Linear)

	plane := size * size
	out := make([]float32, 3*plane)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			i := (y*resized.Stride + x*4)
			px := resized.Pix[i : i+3 : i+3]
			idx := y*size + x
			for c := 0; c < 3; c++ {
				v := float32(px[c]) / 255
				out[c*plane+idx] = (v - imagenetMean[c]) / imagenetStd[c]
			}
		}
	}

	return out
}

// ToProbabilities возвращает распределение вероятностей. Если модель уже отдаёт
// вероятности (все значения в [0, 1], сумма ≈ 1), они возвращаются как есть, иначе применяется softmax.
func ToProbabilities(scores []float32) []float64 {
	out := make([]float64, len(scores))
	if len(scores) == 0 {
		return out
	}

	sum := 0.0
	isDistribution := true
	for _, s := range scores {
		if s < 0 || s > 1 {
			isDistribution = false
			break
		}
		sum += float64(s)
	}
	if isDistribution && math.Abs(sum-1) < 1e-3 {
		for i, s := range scores {
			out[i] = float64(s)
		}
		return out
	}

	maxScore := float64(scores[0])
	for _, s := range scores[1:] {
		maxScore = math.Max(maxScore, float64(s))
	}

	total := 0.0
	for i, s := range scores {
		out[i] = math.Exp(float64(s) - maxScore)
		total += out[i]
	}
	for i := range out {
		out[i] /= total
	}

	return out
}

// checkFinite проверяет, что модель не вернула NaN или бесконечность.
func checkFinite(probs []float64) error {
	for i, p := range probs {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return fmt.Errorf("%w: index %d", e.ErrInvalidModelOutput, i)
		}
	}

	return nil
}

// TopK возвращает k меток с наибольшей вероятностью в порядке убывания.
func TopK(probs []float64, labels []string, k int) []domain.Label {
	n := min(len(probs), len(labels))
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}

	sort.SliceStable(idx, func(a, b int) bool {
		return probs[idx[a]] > probs[idx[b]]
	})

	if k > 0 && k < n {
		idx = idx[:k]
	}

	out := make([]domain.Label, 0, len(idx))
	for _, i := range idx {
		out = append(out, domain.Label{Name: labels[i], Probability: probs[i]})
	}

	return out
}

// ParseLabels читает файл меток: по одной на строку, с необязательным WordNet-идентификатором в начале
// ("n02123045 tabby, tabby cat").
func ParseLabels(r io.Reader) ([]string, error) {
	var labels []string

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		labels = append(labels, synsetPrefix.ReplaceAllString(line, ""))
	}

	if err := sc.Err(); err != nil {
		return nil, err
	}

	return labels, nil
}
