package contextualiser

import "psyche/internal/domain"

// positiveNames and stressNames partition the 24 labelled emotions into the
// two classes §4.B's weighting and context-detection rules need
// ("positive_emotions_sum", "positive emotion indices get 1.5", "stress
// indices 1.5"). §4.B leaves the exact partition unfixed; the choice made
// here is recorded in DESIGN.md.
var positiveNames = []string{
	"Admiration", "Adoration", "AestheticAppreciation", "Amusement",
	"Awe", "Calm", "Excitement", "Fascination",
	"Interest", "Joy", "Nostalgia", "Relief",
	"Satisfaction", "Triumph",
}

var stressNames = []string{
	"Anxiety", "Embarrassment", "Boredom", "Confusion",
	"Disgust", "EmpathicPain", "Fear", "Horror",
	"Sadness", "Sympathy",
}

func indicesOf(names []string) []int {
	out := make([]int, 0, len(names))
	for _, n := range names {
		if i, ok := domain.EmotionIndex(n); ok {
			out = append(out, i)
		}
	}
	return out
}

var positiveIndices = indicesOf(positiveNames)
var stressIndices = indicesOf(stressNames)

func isPositiveIndex(i int) bool {
	for _, p := range positiveIndices {
		if p == i {
			return true
		}
	}
	return false
}

func isStressIndex(i int) bool {
	for _, s := range stressIndices {
		if s == i {
			return true
		}
	}
	return false
}

func positiveEmotionsSum(e domain.EmotionVector) float64 {
	sum := 0.0
	for _, i := range positiveIndices {
		sum += e[i]
	}
	return sum
}
