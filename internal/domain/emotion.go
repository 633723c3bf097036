package domain

import (
	"encoding/json"
	"fmt"
)

// EmotionDim is the fixed number of labelled emotion positions. Order is
// part of the wire contract; tests pin it.
const EmotionDim = 24

// EmotionNames is the order-pinned label for each position of an
// EmotionVector. Index 0 is Admiration, index 23 is Triumph.
var EmotionNames = [EmotionDim]string{
	"Admiration", "Adoration", "AestheticAppreciation", "Amusement",
	"Anxiety", "Awe", "Embarrassment", "Boredom",
	"Calm", "Confusion", "Disgust", "EmpathicPain",
	"Fascination", "Excitement", "Fear", "Horror",
	"Interest", "Joy", "Nostalgia", "Relief",
	"Sadness", "Satisfaction", "Sympathy", "Triumph",
}

var emotionIndex = func() map[string]int {
	m := make(map[string]int, EmotionDim)
	for i, name := range EmotionNames {
		m[name] = i
	}
	return m
}()

// EmotionIndex returns the position of a labelled emotion, and false if the
// label is unknown.
func EmotionIndex(name string) (int, bool) {
	i, ok := emotionIndex[name]
	return i, ok
}

// EmotionVector is the 24-scalar affective state. Every exposed value is
// clamped to [0,1].
type EmotionVector [EmotionDim]float64

// Clamp returns a copy with every dimension clamped to [0,1].
func (v EmotionVector) Clamp() EmotionVector {
	var out EmotionVector
	for i, x := range v {
		out[i] = Clamp01(x)
	}
	return out
}

// Mean returns the arithmetic mean over all 24 dimensions.
func (v EmotionVector) Mean() float64 {
	sum := 0.0
	for _, x := range v {
		sum += x
	}
	return sum / float64(EmotionDim)
}

// Max returns the largest dimension value.
func (v EmotionVector) Max() float64 {
	m := v[0]
	for _, x := range v[1:] {
		if x > m {
			m = x
		}
	}
	return m
}

// MarshalJSON encodes the vector as an object keyed by emotion name, the
// wire format named in the inbound/outbound message contracts.
func (v EmotionVector) MarshalJSON() ([]byte, error) {
	m := make(map[string]float64, EmotionDim)
	for i, name := range EmotionNames {
		m[name] = v[i]
	}
	return json.Marshal(m)
}

// UnmarshalJSON decodes an object keyed by emotion name. Unknown keys are
// ignored; a missing labelled key returns an error naming that dimension.
func (v *EmotionVector) UnmarshalJSON(data []byte) error {
	var m map[string]float64
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	var out EmotionVector
	for i, name := range EmotionNames {
		val, ok := m[name]
		if !ok {
			return fmt.Errorf("missing emotion dimension: %s", name)
		}
		out[i] = val
	}
	*v = out
	return nil
}

// Clamp01 clamps a scalar to [0,1].
func Clamp01(v float64) float64 {
	return Clamp(v, 0, 1)
}

// ClampSigned clamps a scalar to [-1,1].
func ClampSigned(v float64) float64 {
	return Clamp(v, -1, 1)
}

// Clamp bounds v to [lo,hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Lerp linearly interpolates from cur towards next by alpha, which is
// clamped to [0,1] first.
func Lerp(cur, next, alpha float64) float64 {
	alpha = Clamp01(alpha)
	return cur + alpha*(next-cur)
}
