package vectorstore

import (
	"math"

	"github.com/kubiyabot/skillrt/pkg/apperr"
	"github.com/kubiyabot/skillrt/pkg/skill"
)

// Similarity computes a higher-is-better score in [0,1] (the dot product
// is clamped to that range) between a and b under the given metric.
func Similarity(metric skill.DistanceMetric, a, b []float32) (float32, error) {
	if len(a) != len(b) {
		return 0, apperr.Newf(apperr.InvalidInput, "dimension mismatch: %d vs %d", len(a), len(b))
	}

	switch metric {
	case skill.Euclidean:
		return float32(1.0 / (1.0 + euclideanDistance(a, b))), nil
	case skill.DotProduct:
		return clamp01(dot(a, b)), nil
	case skill.Cosine, "":
		cos := cosine(a, b)
		return float32((1 + cos) / 2), nil
	default:
		return 0, apperr.Newf(apperr.InvalidInput, "unknown distance metric %q", metric)
	}
}

func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func norm(a []float32) float64 {
	var sumSq float64
	for _, v := range a {
		sumSq += float64(v) * float64(v)
	}
	return math.Sqrt(sumSq)
}

func cosine(a, b []float32) float64 {
	na, nb := norm(a), norm(b)
	if na == 0 || nb == 0 {
		return 0
	}
	return float64(dot(a, b)) / (na * nb)
}

func euclideanDistance(a, b []float32) float64 {
	var sumSq float64
	for i := range a {
		d := float64(a[i] - b[i])
		sumSq += d * d
	}
	return math.Sqrt(sumSq)
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
