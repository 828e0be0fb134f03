package difficulty

import "math"

// PowSum combines values as (sum v^pow)^(1/pow). pp components are
// joined this way so that one strong component dominates weak ones.
func PowSum(pow float64, values ...float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += math.Pow(v, pow)
	}
	return math.Pow(sum, 1/pow)
}

// NormalizeAccuracy accepts either a 0..1 fraction or a 0..100 percentage
// and returns a fraction clamped to 0..1.
func NormalizeAccuracy(acc float64) float64 {
	if acc > 1 {
		acc /= 100
	}
	return clampFloat(acc, 0, 1)
}

func clampInt(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

func clampFloat(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return max(lo, min(v, hi))
}

func intOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}
