package difficulty

import (
	"math"
	"slices"
)

const (
	sectionLength = 400.0
	peakWeight    = 0.9
)

// sectionPeaks records the highest strain seen in each fixed-length window
// of clock-adjusted time.
type sectionPeaks struct {
	end     float64
	peak    float64
	peaks   []float64
	started bool
}

// advance closes every section ending before time. carry returns the strain
// left over at a section boundary, which seeds the next section's peak.
func (p *sectionPeaks) advance(time float64, carry func(boundary float64) float64) {
	if !p.started {
		p.end = math.Ceil(time/sectionLength) * sectionLength
		p.started = true
	}
	for time > p.end {
		p.peaks = append(p.peaks, p.peak)
		p.peak = carry(p.end)
		p.end += sectionLength
	}
}

func (p *sectionPeaks) observe(strain float64) {
	p.peak = max(p.peak, strain)
}

// value is the weighted sum of all section peaks, hardest first.
func (p *sectionPeaks) value() float64 {
	if !p.started {
		return 0
	}
	peaks := append(slices.Clone(p.peaks), p.peak)
	slices.SortFunc(peaks, func(a, b float64) int {
		switch {
		case a > b:
			return -1
		case a < b:
			return 1
		}
		return 0
	})
	total, weight := 0.0, 1.0
	for _, v := range peaks {
		total += v * weight
		weight *= peakWeight
	}
	return total
}

// strainSkill is a single exponentially decaying strain.
type strainSkill struct {
	multiplier float64
	decayBase  float64
	current    float64
	prevTime   float64
	sections   sectionPeaks
}

func newStrainSkill(multiplier, decayBase float64) *strainSkill {
	return &strainSkill{multiplier: multiplier, decayBase: decayBase}
}

func (s *strainSkill) decay(ms float64) float64 {
	return math.Pow(s.decayBase, ms/1000)
}

// process adds the strain of one object at the clock-adjusted time.
func (s *strainSkill) process(time, value float64) {
	s.sections.advance(time, func(boundary float64) float64 {
		return s.current * s.decay(boundary-s.prevTime)
	})
	s.current = s.current*s.decay(time-s.prevTime) + value*s.multiplier
	s.sections.observe(s.current)
	s.prevTime = time
}

func (s *strainSkill) difficultyValue() float64 {
	return s.sections.value()
}
