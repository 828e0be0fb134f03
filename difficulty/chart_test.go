package difficulty

import (
	"fmt"
	"strings"
	"testing"

	"ppbind/dotosu"
)

const chartTemplate = `osu file format v14

[General]
StackLeniency: 0.7
Mode: %d

[Difficulty]
HPDrainRate:5
CircleSize:%g
OverallDifficulty:8
ApproachRate:9
SliderMultiplier:1.4
SliderTickRate:1

[TimingPoints]
0,500,4,2,0,100,1,0

[HitObjects]
%s`

func decodeChart(t *testing.T, mode dotosu.Mode, cs float64, objects string) *dotosu.Beatmap {
	t.Helper()
	b, err := dotosu.Decode(strings.NewReader(fmt.Sprintf(chartTemplate, mode, cs, objects)))
	if err != nil {
		t.Fatalf("decode chart: %v", err)
	}
	return b
}

// jumpStream is n circles alternating between two far apart points.
func jumpStream(n int, spacingMs int) string {
	var sb strings.Builder
	for i := 0; i < n; i++ {
		x := 100
		if i%2 == 1 {
			x = 400
		}
		fmt.Fprintf(&sb, "%d,192,%d,1,0,0:0:0:0:\n", x, 1000+i*spacingMs)
	}
	return sb.String()
}

// drumRoll is n taiko hits; every third one is a kat.
func drumRoll(n int, spacingMs int) string {
	var sb strings.Builder
	for i := 0; i < n; i++ {
		sound := 0
		if i%3 == 2 {
			sound = 2
		}
		fmt.Fprintf(&sb, "256,192,%d,1,%d,0:0:0:0:\n", 1000+i*spacingMs, sound)
	}
	return sb.String()
}

// keyStream is n mania notes cycling through four columns, with a hold
// every fifth note.
func keyStream(n int, spacingMs int) string {
	var sb strings.Builder
	for i := 0; i < n; i++ {
		x := 64 + (i%4)*128
		t := 1000 + i*spacingMs
		if i%5 == 4 {
			fmt.Fprintf(&sb, "%d,192,%d,128,0,%d:0:0:0:0:\n", x, t, t+spacingMs*3)
			continue
		}
		fmt.Fprintf(&sb, "%d,192,%d,1,0,0:0:0:0:\n", x, t)
	}
	return sb.String()
}

func stdChart(t *testing.T) *dotosu.Beatmap {
	return decodeChart(t, dotosu.ModeStandard, 4, jumpStream(200, 150)+
		"100,100,31500,2,0,L|380:100,2,280\n")
}
