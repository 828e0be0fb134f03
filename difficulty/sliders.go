package difficulty

import (
	"math"
	"sort"

	"ppbind/dotosu"
)

// tolerances mirror osu!lazer's PathApproximator
const (
	bezierToleranceSq = 0.25 * 0.25
	arcTolerance      = 0.10
	catmullDetail     = 50
)

type Vec struct {
	X, Y float64
}

var playfieldCenter = Vec{X: 256, Y: 192}

func vecOf(p dotosu.Vec2) Vec { return Vec{float64(p.X), float64(p.Y)} }

func (a Vec) Sub(b Vec) Vec { return Vec{a.X - b.X, a.Y - b.Y} }
func (a Vec) Add(b Vec) Vec { return Vec{a.X + b.X, a.Y + b.Y} }
func (a Vec) Scale(f float64) Vec { return Vec{a.X * f, a.Y * f} }
func (a Vec) Dot(b Vec) float64 { return a.X*b.X + a.Y*b.Y }
func (a Vec) Cross(b Vec) float64 { return a.X*b.Y - a.Y*b.X }
func (a Vec) Len() float64 { return math.Hypot(a.X, a.Y) }
func (a Vec) Dist(b Vec) float64 { return a.Sub(b).Len() }
func (a Vec) AlmostEq(b Vec) bool { return math.Abs(a.X-b.X) < 1e-9 && math.Abs(a.Y-b.Y) < 1e-9 }
func (a Vec) Lerp(b Vec, t float64) Vec { return a.Add(b.Sub(a).Scale(t)) }

// sliderPath is a polyline approximation of a slider with cumulative
// lengths for distance lookups.
type sliderPath struct {
	points     []Vec
	cumulative []float64
}

func newSliderPath(s dotosu.Slider) sliderPath {
	points := approximatePath(s)
	if len(points) == 0 {
		points = []Vec{vecOf(s.PosXY)}
	}
	cumulative := make([]float64, len(points))
	for i := 1; i < len(points); i++ {
		cumulative[i] = cumulative[i-1] + points[i].Dist(points[i-1])
	}
	return sliderPath{points: points, cumulative: cumulative}
}

// PositionAt returns the point dist pixels along the path. Distances past
// the approximated end extend the last segment, as the game does for
// sliders whose declared length exceeds their control points.
func (p sliderPath) PositionAt(dist float64) Vec {
	n := len(p.points)
	if n == 1 || dist <= 0 {
		return p.points[0]
	}
	i := sort.SearchFloat64s(p.cumulative, dist)
	if i >= n {
		i = n - 1
	}
	if i == 0 {
		i = 1
	}
	from, to := p.points[i-1], p.points[i]
	segLen := p.cumulative[i] - p.cumulative[i-1]
	if segLen == 0 {
		return to
	}
	return from.Lerp(to, (dist-p.cumulative[i-1])/segLen)
}

func approximatePath(s dotosu.Slider) []Vec {
	path := s.Path
	if len(path.Segments) == 0 {
		return nil
	}
	var poly []Vec
	add := func(pts ...Vec) {
		for _, v := range pts {
			if n := len(poly); n == 0 || !poly[n-1].AlmostEq(v) {
				poly = append(poly, v)
			}
		}
	}

	switch path.Type {
	case dotosu.PathLinear:
		add(toVecs(path.Segments[0].Points)...)

	case dotosu.PathCatmull:
		add(approximateCatmull(toVecs(path.Segments[0].Points))...)

	case dotosu.PathPerfect:
		v := toVecs(path.Segments[0].Points)
		if len(v) == 3 {
			add(approximateCircularArc(v[0], v[1], v[2])...)
		} else {
			add(approximateBezier(v)...)
		}

	default:
		for _, seg := range path.Segments {
			v := toVecs(seg.Points)
			if len(v) < 2 {
				continue
			}
			add(approximateBezier(v)...)
		}
	}
	return poly
}

func toVecs(pts []dotosu.Vec2) []Vec {
	out := make([]Vec, len(pts))
	for i, p := range pts {
		out[i] = vecOf(p)
	}
	return out
}

// approximateBezier subdivides adaptively until every piece is flat.
func approximateBezier(cp []Vec) []Vec {
	if len(cp) == 0 {
		return nil
	}
	var out []Vec
	stack := [][]Vec{cp}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if bezierFlatEnough(cur) {
			out = append(out, cur[0])
			continue
		}
		// right half first so points come out in order
		l, r := bezierSubdivide(cur)
		stack = append(stack, r, l)
	}
	return append(out, cp[len(cp)-1])
}

func bezierFlatEnough(cp []Vec) bool {
	for i := 1; i < len(cp)-1; i++ {
		d := cp[i-1].Sub(cp[i].Scale(2)).Add(cp[i+1])
		if d.Dot(d) > bezierToleranceSq {
			return false
		}
	}
	return true
}

// bezierSubdivide splits the curve at t=0.5 with de Casteljau.
func bezierSubdivide(cp []Vec) (left, right []Vec) {
	n := len(cp)
	left = make([]Vec, n)
	right = make([]Vec, n)
	row := append([]Vec(nil), cp...)
	for r := 0; r < n; r++ {
		left[r] = row[0]
		right[n-1-r] = row[len(row)-1]
		next := make([]Vec, len(row)-1)
		for i := range next {
			next[i] = row[i].Lerp(row[i+1], 0.5)
		}
		row = next
	}
	return left, right
}

func approximateCatmull(pts []Vec) []Vec {
	n := len(pts)
	if n < 2 {
		return pts
	}
	out := make([]Vec, 0, (n-1)*catmullDetail+1)
	out = append(out, pts[0])
	for i := 0; i < n-1; i++ {
		p0 := pts[max(i-1, 0)]
		p1 := pts[i]
		p2 := pts[i+1]
		p3 := pts[min(i+2, n-1)]
		for s := 1; s <= catmullDetail; s++ {
			out = append(out, catmullPoint(p0, p1, p2, p3, float64(s)/catmullDetail))
		}
	}
	return out
}

func catmullPoint(p0, p1, p2, p3 Vec, t float64) Vec {
	t2 := t * t
	t3 := t2 * t
	f := func(a, b, c, d float64) float64 {
		return 0.5 * (2*b + (-a+c)*t + (2*a-5*b+4*c-d)*t2 + (-a+3*b-3*c+d)*t3)
	}
	return Vec{f(p0.X, p1.X, p2.X, p3.X), f(p0.Y, p1.Y, p2.Y, p3.Y)}
}

func approximateCircularArc(p1, p2, p3 Vec) []Vec {
	turn := p2.Sub(p1).Cross(p3.Sub(p2))
	if math.Abs(turn) < 1e-6 {
		return []Vec{p1, p3}
	}
	c, ok := circumcenter(p1, p2, p3)
	if !ok {
		return []Vec{p1, p3}
	}
	r := c.Dist(p1)

	a1 := math.Atan2(p1.Y-c.Y, p1.X-c.X)
	a3 := math.Atan2(p3.Y-c.Y, p3.X-c.X)
	dir := 1.0
	if turn < 0 {
		dir = -1.0
	}
	delta := sweep(a1, a3, dir)

	step := 2 * math.Acos(math.Max(-1, math.Min(1, 1-arcTolerance/r)))
	if step <= 0 || math.IsNaN(step) || step > math.Pi {
		step = math.Pi
	}
	steps := max(2, int(math.Ceil(math.Abs(delta)/step)))
	step = delta / float64(steps)

	out := make([]Vec, 0, steps+1)
	for i := 0; i < steps; i++ {
		a := a1 + float64(i)*step
		out = append(out, Vec{c.X + math.Cos(a)*r, c.Y + math.Sin(a)*r})
	}
	return append(out, p3)
}

func circumcenter(a, b, c Vec) (Vec, bool) {
	d := 2 * (a.X*(b.Y-c.Y) + b.X*(c.Y-a.Y) + c.X*(a.Y-b.Y))
	if math.Abs(d) < 1e-8 {
		return Vec{}, false
	}
	a2, b2, c2 := a.Dot(a), b.Dot(b), c.Dot(c)
	return Vec{
		X: (a2*(b.Y-c.Y) + b2*(c.Y-a.Y) + c2*(a.Y-b.Y)) / d,
		Y: (a2*(c.X-b.X) + b2*(a.X-c.X) + c2*(b.X-a.X)) / d,
	}, true
}

// sweep is the signed angle from start to end going in direction dir.
func sweep(start, end, dir float64) float64 {
	d := math.Remainder(end-start, 2*math.Pi)
	if dir < 0 && d > 0 {
		d -= 2 * math.Pi
	} else if dir > 0 && d < 0 {
		d += 2 * math.Pi
	}
	return d
}
