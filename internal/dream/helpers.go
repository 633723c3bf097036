package dream

import (
	"math"

	"psyche/internal/domain"
)

var sqrt24 = math.Sqrt(float64(domain.EmotionDim))

// logUsage normalizes a raw usage count via log1p, capped at 1 to avoid
// a heavily-reactivated memory dominating the consolidation score.
func logUsage(usage int) float64 {
	return math.Min(math.Log1p(float64(usage))/5.0, 1.0)
}

// dominantEmotion returns the index of the largest component of v.
func dominantEmotion(v domain.EmotionVector) (int, float64) {
	maxIdx := 0
	maxVal := v[0]
	for i := 1; i < domain.EmotionDim; i++ {
		if v[i] > maxVal {
			maxVal = v[i]
			maxIdx = i
		}
	}
	return maxIdx, maxVal
}
