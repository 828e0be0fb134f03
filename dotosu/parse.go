package dotosu

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
)

const (
	EARLY_VERSION_TIMING_OFFSET = 24
	MAX_MANIA_KEY_COUNT         = 18
	LATEST_VERSION              = 14

	MIN_BEAT_LENGTH      = 6
	MAX_BEAT_LENGTH      = 60000
	MAX_COORDINATE_VALUE = 131072
	MAX_SLIDER_REPEATS   = 9000
	MAX_OBJECT_TIME      = math.MaxInt32
)

var (
	errNoHitObjects = errors.New("chart has no hit objects")
	errHeader       = errors.New("missing osu file format header")
)

type section int

const (
	secNone section = iota
	secGeneral
	secMetadata
	secDifficulty
	secTimingPoints
	secHitObjects
)

// Mode is the ruleset a chart was authored for, as stored in [General].
type Mode int

const (
	ModeStandard Mode = iota
	ModeTaiko
	ModeCatch
	ModeMania
)

func (m Mode) String() string {
	switch m {
	case ModeTaiko:
		return "taiko"
	case ModeCatch:
		return "catch"
	case ModeMania:
		return "mania"
	default:
		return "osu"
	}
}

type Beatmap struct {
	FormatVersion int
	General       General
	Metadata      Metadata
	Difficulty    Difficulty

	TimingPoints []TimingPoint
	HitObjects   []HitObject
}

type General struct {
	StackLeniency float64
	Mode          Mode
}

type Metadata struct {
	Title, Artist           string
	Creator, Version        string
	BeatmapID, BeatmapSetID int
}

type Difficulty struct {
	HPDrainRate, CircleSize, OverallDifficulty, ApproachRate float64
	SliderMultiplier, SliderTickRate                         float64
}

type TimingPoint struct {
	Time                     float64
	BeatLength               float64
	TimeSignature            int
	Uninherited              bool
	SliderVelocityMultiplier float64
}

type ObjectKind uint8

const (
	KindCircle ObjectKind = iota
	KindSlider
	KindSpinner
	KindHold
)

type HitSoundFlags uint8

const (
	HitSoundNormal  HitSoundFlags = 1 << iota // 1
	HitSoundWhistle                           // 2
	HitSoundFinish                            // 4
	HitSoundClap                              // 8
)

type HitObjectTypeFlags int

const (
	TypeCircle   HitObjectTypeFlags = 1 << iota // 1
	TypeSlider                                  // 2
	TypeNewCombo                                // 4
	TypeSpinner                                 // 8
	TypeHold     HitObjectTypeFlags = 1 << 7    // 128
)

type Vec2 struct{ X, Y int }

type SliderPathType uint8

const (
	PathBezier SliderPathType = iota
	PathLinear
	PathCatmull
	PathPerfect
)

type SliderSegment struct {
	// Points for this segment including its starting point.
	// For the first segment the first point is the slider head.
	Points []Vec2
}

type SliderPath struct {
	Type     SliderPathType
	Segments []SliderSegment // bezier paths split on repeated points (red anchors)
}

type HitObject interface {
	Kind() ObjectKind
	StartTime() int
	Pos() Vec2
	NewCombo() bool
	HitSound() HitSoundFlags
}

type BaseHO struct {
	PosXY Vec2
	Time  int
	Type  HitObjectTypeFlags
	Sound HitSoundFlags
}

func (b BaseHO) StartTime() int          { return b.Time }
func (b BaseHO) Pos() Vec2               { return b.PosXY }
func (b BaseHO) NewCombo() bool          { return (b.Type & TypeNewCombo) != 0 }
func (b BaseHO) HitSound() HitSoundFlags { return b.Sound }

type Circle struct{ BaseHO }

func (Circle) Kind() ObjectKind { return KindCircle }

type Slider struct {
	BaseHO
	Path   SliderPath
	Slides int
	Length float64
}

func (Slider) Kind() ObjectKind { return KindSlider }

type Spinner struct {
	BaseHO
	EndTime int
}

func (Spinner) Kind() ObjectKind { return KindSpinner }

type Hold struct {
	BaseHO
	EndTime int
}

func (Hold) Kind() ObjectKind { return KindHold }

// Load opens and decodes the chart at path. Open failures are reported as
// *ChartLoadError, malformed content as *ChartParseError.
func Load(path string) (*Beatmap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ChartLoadError{Path: path, Err: err}
	}
	defer f.Close()

	b, err := Decode(f)
	if err != nil {
		var perr *ChartParseError
		if errors.As(err, &perr) {
			perr.Path = path
			return nil, perr
		}
		return nil, &ChartLoadError{Path: path, Err: err}
	}
	return b, nil
}

// Decode reads a chart from r. Content problems are returned as
// *ChartParseError; any other error comes from the reader itself.
func Decode(r io.Reader) (*Beatmap, error) {
	sc := bufio.NewScanner(r)
	const maxLine = 1024 * 1024
	buf := make([]byte, 64*1024)
	sc.Buffer(buf, maxLine)

	lineNo := 0
	scanErr := func() error {
		err := sc.Err()
		if errors.Is(err, bufio.ErrTooLong) {
			return &ChartParseError{Line: lineNo + 1, Err: err}
		}
		return err
	}

	var header string
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(strings.TrimPrefix(sc.Text(), "\ufeff"))
		if line == "" {
			continue
		}
		header = line
		break
	}
	if err := scanErr(); err != nil {
		return nil, err
	}
	if !strings.HasPrefix(strings.ToLower(header), "osu file format v") {
		return nil, &ChartParseError{Line: lineNo, Err: fmt.Errorf("%w: %q", errHeader, header)}
	}
	versionStr := strings.TrimSpace(header[len("osu file format v"):])
	formatVersion, err := strconv.Atoi(versionStr)
	if err != nil {
		return nil, &ChartParseError{Line: lineNo, Err: fmt.Errorf("invalid format version %q: %w", versionStr, err)}
	}

	b := &Beatmap{
		FormatVersion: formatVersion,
		General:       General{StackLeniency: 0.7},
		Difficulty: Difficulty{
			HPDrainRate:       5,
			CircleSize:        5,
			OverallDifficulty: 5,
			ApproachRate:      5,
			SliderMultiplier:  1.4,
			SliderTickRate:    1,
		},
	}

	offset := 0
	if formatVersion < 5 {
		offset = EARLY_VERSION_TIMING_OFFSET
	}

	sec := secNone
	seenAR := false

	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			switch strings.ToLower(line) {
			case "[general]":
				sec = secGeneral
			case "[metadata]":
				sec = secMetadata
			case "[difficulty]":
				sec = secDifficulty
			case "[timingpoints]":
				sec = secTimingPoints
			case "[hitobjects]":
				sec = secHitObjects
			default:
				sec = secNone
			}
			continue
		}

		switch sec {
		case secGeneral:
			k, v := splitKeyVal(line)
			switch strings.ToLower(k) {
			case "stackleniency":
				b.General.StackLeniency = parseFloat(v, 0.7)
			case "mode":
				mode := parseInt(v, 0)
				if mode < 0 || mode > int(ModeMania) {
					return nil, &ChartParseError{Line: lineNo, Err: fmt.Errorf("unknown mode %d", mode)}
				}
				b.General.Mode = Mode(mode)
			}

		case secMetadata:
			k, v := splitKeyVal(line)
			switch strings.ToLower(k) {
			case "title":
				b.Metadata.Title = v
			case "artist":
				b.Metadata.Artist = v
			case "creator":
				b.Metadata.Creator = v
			case "version":
				b.Metadata.Version = v
			case "beatmapid":
				b.Metadata.BeatmapID = parseInt(v, 0)
			case "beatmapsetid":
				b.Metadata.BeatmapSetID = parseInt(v, 0)
			}

		case secDifficulty:
			k, v := splitKeyVal(line)
			switch strings.ToLower(k) {
			case "hpdrainrate":
				b.Difficulty.HPDrainRate = parseFloat(v, 5)
			case "circlesize":
				b.Difficulty.CircleSize = parseFloat(v, 5)
			case "overalldifficulty":
				b.Difficulty.OverallDifficulty = parseFloat(v, 5)
				if !seenAR {
					b.Difficulty.ApproachRate = b.Difficulty.OverallDifficulty
				}
			case "approachrate":
				b.Difficulty.ApproachRate = parseFloat(v, 5)
				seenAR = true
			case "slidermultiplier":
				b.Difficulty.SliderMultiplier = parseFloat(v, 1.4)
			case "slidertickrate":
				b.Difficulty.SliderTickRate = parseFloat(v, 1)
			}

		case secTimingPoints:
			tp, ok := parseTimingPoint(line, offset)
			if ok {
				b.TimingPoints = append(b.TimingPoints, tp)
			}

		case secHitObjects:
			ho, err := parseHitObject(line, offset)
			if err != nil {
				return nil, &ChartParseError{Line: lineNo, Err: err}
			}
			b.HitObjects = append(b.HitObjects, ho)
		}
	}
	if err := scanErr(); err != nil {
		return nil, err
	}
	if len(b.HitObjects) == 0 {
		return nil, &ChartParseError{Err: errNoHitObjects}
	}

	sort.SliceStable(b.HitObjects, func(i, j int) bool {
		return b.HitObjects[i].StartTime() < b.HitObjects[j].StartTime()
	})
	sort.SliceStable(b.TimingPoints, func(i, j int) bool {
		return b.TimingPoints[i].Time < b.TimingPoints[j].Time
	})

	applyDifficultyRestrictions(&b.Difficulty, b.General.Mode)
	return b, nil
}

// TimingAt returns the beat length of the active uninherited point and the
// slider velocity multiplier of the active inherited point at time t.
func (b *Beatmap) TimingAt(t float64) (beatLength, sv float64) {
	sv = 1
	for _, tp := range b.TimingPoints {
		if tp.Time > t {
			if beatLength > 0 {
				break
			}
			if !tp.Uninherited {
				continue
			}
		}
		if tp.Uninherited {
			if !math.IsNaN(tp.BeatLength) && tp.BeatLength > 0 {
				beatLength = tp.BeatLength
			}
			sv = 1
			if tp.Time > t {
				break
			}
		} else {
			sv = tp.SliderVelocityMultiplier
		}
	}
	if beatLength <= 0 {
		beatLength = 1000
	}
	return beatLength, sv
}

func parseTimingPoint(line string, offset int) (TimingPoint, bool) {
	parts := splitCSV(line)
	if len(parts) < 2 {
		return TimingPoint{}, false
	}
	t := parseFloat(parts[0], 0) + float64(offset)
	if math.IsNaN(t) || math.Abs(t) > MAX_OBJECT_TIME {
		return TimingPoint{}, false
	}
	beatLen := parseFloatAllowNaN(parts[1])
	if beatLen > 0 {
		beatLen = clampFloat(beatLen, MIN_BEAT_LENGTH, MAX_BEAT_LENGTH)
	}
	meter := 4
	if len(parts) >= 3 {
		meter = parseInt(parts[2], 4)
		if meter == 0 {
			meter = 4
		}
	}
	uninherited := true
	if len(parts) >= 7 {
		uninherited = strings.TrimSpace(parts[6]) == "1"
	}
	sv := 1.0
	if !math.IsNaN(beatLen) && beatLen < 0 {
		sv = clampFloat(100.0/-beatLen, 0.1, 10)
		uninherited = false
	}
	return TimingPoint{
		Time:                     t,
		BeatLength:               beatLen,
		TimeSignature:            meter,
		Uninherited:              uninherited,
		SliderVelocityMultiplier: sv,
	}, true
}

func parseHitObject(line string, offset int) (HitObject, error) {
	parts := splitCSV(line)
	if len(parts) < 5 {
		return nil, fmt.Errorf("hit object has %d fields, want at least 5", len(parts))
	}
	t, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return nil, fmt.Errorf("invalid hit object time %q: %w", parts[2], err)
	}
	if math.IsNaN(t) || math.Abs(t) > MAX_OBJECT_TIME {
		return nil, fmt.Errorf("hit object time %q out of range", parts[2])
	}
	typ, err := strconv.Atoi(parts[3])
	if err != nil {
		return nil, fmt.Errorf("invalid hit object type %q: %w", parts[3], err)
	}
	x := coordinate(parts[0], 0)
	y := coordinate(parts[1], 0)
	flags := HitObjectTypeFlags(typ)
	hs := HitSoundFlags(parseInt(parts[4], 0))

	base := BaseHO{PosXY: Vec2{X: x, Y: y}, Time: int(t) + offset, Type: flags, Sound: hs}

	switch {
	case (flags & TypeHold) != 0:
		// mania hold: "endTime:hitSample"
		end := base.Time
		if len(parts) >= 6 {
			end = parseEndTime(parts[5]) + offset
		}
		return Hold{BaseHO: base, EndTime: clampEnd(end, base.Time)}, nil

	case (flags & TypeSpinner) != 0:
		end := base.Time
		if len(parts) >= 6 && strings.TrimSpace(parts[5]) != "" {
			end = parseInt(parts[5], base.Time) + offset
		}
		return Spinner{BaseHO: base, EndTime: clampEnd(end, base.Time)}, nil

	case (flags & TypeSlider) != 0:
		if len(parts) < 8 {
			return nil, fmt.Errorf("slider has %d fields, want at least 8", len(parts))
		}
		slides := max(1, parseInt(parts[6], 1))
		if slides > MAX_SLIDER_REPEATS {
			return nil, fmt.Errorf("slider repeats %d, want at most %d", slides, MAX_SLIDER_REPEATS)
		}
		length := parseFloat(parts[7], 0)
		if math.IsNaN(length) {
			length = 0
		}
		length = clampFloat(length, 0, MAX_COORDINATE_VALUE)
		return Slider{
			BaseHO: base,
			Path:   parseSliderPath(base.PosXY, parts[5]),
			Slides: slides,
			Length: length,
		}, nil

	default:
		return Circle{BaseHO: base}, nil
	}
}

// ---------- parsing helpers ----------

func splitKeyVal(line string) (key, val string) {
	i := strings.Index(line, ":")
	if i < 0 {
		return strings.TrimSpace(line), ""
	}
	return strings.TrimSpace(line[:i]), strings.TrimSpace(line[i+1:])
}

func parseInt(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

func parseFloat(s string, def float64) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return v
}

func parseFloatAllowNaN(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// coordinate reads an osu!pixel position, clamped to the range the game
// accepts.
func coordinate(s string, def int) int {
	v := parseFloat(s, float64(def))
	if math.IsNaN(v) {
		return def
	}
	return int(clampFloat(v, -MAX_COORDINATE_VALUE, MAX_COORDINATE_VALUE))
}

func clampEnd(end, start int) int {
	return min(max(end, start), MAX_OBJECT_TIME)
}

func splitCSV(line string) []string {
	var out []string
	var cur strings.Builder
	inQ := false
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch c {
		case '"':
			inQ = !inQ
		case ',':
			if inQ {
				cur.WriteByte(c)
			} else {
				out = append(out, strings.TrimSpace(cur.String()))
				cur.Reset()
			}
		default:
			cur.WriteByte(c)
		}
	}
	out = append(out, strings.TrimSpace(cur.String()))
	return out
}

func applyDifficultyRestrictions(d *Difficulty, mode Mode) {
	d.HPDrainRate = clampFloat(d.HPDrainRate, 0, 10)
	d.OverallDifficulty = clampFloat(d.OverallDifficulty, 0, 10)
	d.ApproachRate = clampFloat(d.ApproachRate, 0, 10)
	if mode == ModeMania {
		d.CircleSize = clampFloat(d.CircleSize, 1, MAX_MANIA_KEY_COUNT)
	} else {
		d.CircleSize = clampFloat(d.CircleSize, 0, 10)
	}
	d.SliderMultiplier = clampFloat(d.SliderMultiplier, 0.4, 3.6)
	d.SliderTickRate = clampFloat(d.SliderTickRate, 0.5, 8.0)
}

func parseEndTime(s string) int {
	// "endTime:hitSample"
	if colon := strings.Index(s, ":"); colon >= 0 {
		s = s[:colon]
	}
	return parseInt(s, 0)
}

// parseSliderPath converts "B|x:y|x:y|..." into a typed SliderPath. The
// slider head is the first point; the string supplies the rest.
func parseSliderPath(head Vec2, spec string) SliderPath {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return SliderPath{Type: PathBezier, Segments: []SliderSegment{{Points: []Vec2{head, head}}}}
	}

	typeStr, rest, _ := strings.Cut(spec, "|")
	var pType SliderPathType
	switch strings.ToUpper(strings.TrimSpace(typeStr)) {
	case "L":
		pType = PathLinear
	case "C":
		pType = PathCatmull
	case "P":
		pType = PathPerfect
	default:
		pType = PathBezier
	}

	var cps []Vec2
	if strings.TrimSpace(rest) != "" {
		for _, t := range strings.Split(rest, "|") {
			xs, ys, ok := strings.Cut(strings.TrimSpace(t), ":")
			if !ok {
				continue
			}
			cps = append(cps, Vec2{
				X: coordinate(xs, head.X),
				Y: coordinate(ys, head.Y),
			})
		}
	}

	switch pType {
	case PathPerfect:
		// perfect circles need exactly head + 2 points, otherwise bezier
		if len(cps) != 2 {
			return buildBezierWithSegments(head, cps)
		}
		return SliderPath{Type: PathPerfect, Segments: []SliderSegment{{Points: append([]Vec2{head}, cps...)}}}
	case PathLinear, PathCatmull:
		return SliderPath{Type: pType, Segments: []SliderSegment{{Points: append([]Vec2{head}, cps...)}}}
	default:
		return buildBezierWithSegments(head, cps)
	}
}

func buildBezierWithSegments(head Vec2, cps []Vec2) SliderPath {
	pts := append([]Vec2{head}, cps...)
	var segs []SliderSegment
	cur := []Vec2{pts[0]}
	for i := 1; i < len(pts); i++ {
		p := pts[i]
		prev := cur[len(cur)-1]
		if p == prev {
			// red anchor
			if len(cur) >= 2 {
				segs = append(segs, SliderSegment{Points: cur})
			}
			cur = []Vec2{p}
			continue
		}
		cur = append(cur, p)
	}
	if len(cur) >= 2 {
		segs = append(segs, SliderSegment{Points: cur})
	}
	if len(segs) == 0 {
		segs = []SliderSegment{{Points: []Vec2{head, head}}}
	}
	return SliderPath{Type: PathBezier, Segments: segs}
}
