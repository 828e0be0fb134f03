package difficulty

import (
	"math"

	"ppbind/dotosu"
)

// legacyTailOffset is how far before its true end a slider tail is judged.
const legacyTailOffset = 36.0

// maxSliderNested caps the nested objects of one slider across all spans.
const maxSliderNested = 32768

type nestedKind uint8

const (
	nestedTick nestedKind = iota
	nestedRepeat
	nestedTail
)

type nested struct {
	Kind nestedKind
	Time float64
	Pos  Vec
}

// object is a chart hit object with its slider timeline expanded. Times are
// in chart milliseconds; callers divide by the clock rate.
type object struct {
	Kind    dotosu.ObjectKind
	Time    float64
	EndTime float64
	Pos     Vec
	// EndPos is where the cursor has to be at the judged end of the object.
	EndPos Vec
	// Travel is the cursor distance covered inside a slider.
	Travel float64
	Nested []nested
	Sound  dotosu.HitSoundFlags
	Spans  int
}

// combo is the number of combo-giving judgements of the object in
// osu!standard.
func (o object) combo() int {
	return 1 + len(o.Nested)
}

func expandObjects(b *dotosu.Beatmap) []object {
	out := make([]object, 0, len(b.HitObjects))
	for _, ho := range b.HitObjects {
		switch ho := ho.(type) {
		case dotosu.Circle:
			p := vecOf(ho.PosXY)
			out = append(out, object{
				Kind: dotosu.KindCircle, Time: float64(ho.Time), EndTime: float64(ho.Time),
				Pos: p, EndPos: p, Sound: ho.Sound,
			})
		case dotosu.Slider:
			out = append(out, expandSlider(b, ho))
		case dotosu.Spinner:
			out = append(out, object{
				Kind: dotosu.KindSpinner, Time: float64(ho.Time), EndTime: float64(ho.EndTime),
				Pos: playfieldCenter, EndPos: playfieldCenter, Sound: ho.Sound,
			})
		case dotosu.Hold:
			p := vecOf(ho.PosXY)
			out = append(out, object{
				Kind: dotosu.KindHold, Time: float64(ho.Time), EndTime: float64(ho.EndTime),
				Pos: p, EndPos: p, Sound: ho.Sound,
			})
		}
	}
	return out
}

func expandSlider(b *dotosu.Beatmap, s dotosu.Slider) object {
	start := float64(s.Time)
	head := vecOf(s.PosXY)
	beatLength, sv := b.TimingAt(start)

	spans := max(1, s.Slides)
	length := max(0, s.Length)
	velocity := b.Difficulty.SliderMultiplier * 100 * sv
	spanDuration := 0.0
	if velocity > 0 {
		spanDuration = length / velocity * beatLength
	}
	if math.IsNaN(spanDuration) || math.IsInf(spanDuration, 0) {
		spanDuration = 0
	}

	path := newSliderPath(s)
	o := object{
		Kind:    dotosu.KindSlider,
		Time:    start,
		EndTime: start + spanDuration*float64(spans),
		Pos:     head,
		Sound:   s.Sound,
		Spans:   spans,
	}

	tickRate := b.Difficulty.SliderTickRate
	ticks := 0
	tickTime, tickLength := 0.0, 0.0
	if spanDuration > 0 && tickRate > 0 {
		leniency := min(legacyTailOffset, spanDuration/2)
		perSpan := max(0, maxSliderNested/spans-1)
		ticks = int(clampFloat(math.Floor((spanDuration-leniency)/beatLength*tickRate), 0, float64(perSpan)))
		tickTime = beatLength / tickRate
		tickLength = length / (spanDuration / beatLength * tickRate)
	}

	for span := 0; span < spans; span++ {
		spanStart := start + float64(span)*spanDuration
		for j := 0; j < ticks; j++ {
			n := nested{Kind: nestedTick}
			if span%2 == 0 {
				n.Time = spanStart + float64(j+1)*tickTime
				n.Pos = path.PositionAt(float64(j+1) * tickLength)
			} else {
				n.Time = spanStart + spanDuration - float64(ticks-j)*tickTime
				n.Pos = path.PositionAt(float64(ticks-j) * tickLength)
			}
			o.Nested = append(o.Nested, n)
		}

		spanEnd := spanStart + spanDuration
		if span == spans-1 {
			leniency := min(legacyTailOffset, spanDuration/2)
			var progress float64
			if span%2 == 0 {
				progress = length - leniency/max(spanDuration, 1)*length
			} else {
				progress = leniency / max(spanDuration, 1) * length
			}
			o.Nested = append(o.Nested, nested{Kind: nestedTail, Time: spanEnd - leniency, Pos: path.PositionAt(progress)})
			break
		}
		repeat := nested{Kind: nestedRepeat, Time: spanEnd, Pos: head}
		if span%2 == 0 {
			repeat.Pos = path.PositionAt(length)
		}
		o.Nested = append(o.Nested, repeat)
	}

	cursor := head
	for _, n := range o.Nested {
		o.Travel += cursor.Dist(n.Pos)
		cursor = n.Pos
	}
	o.EndPos = cursor
	return o
}

// scope returns the first passed objects, or all of them when passed is nil.
func scope(objects []object, passed *int) []object {
	if passed == nil {
		return objects
	}
	return objects[:clampInt(*passed, 0, len(objects))]
}
