package mods

import "strings"

// Mods is the osu! mod bitmask as sent by the game client and the API.
type Mods uint32

const (
	NoFail Mods = 1 << iota
	Easy
	TouchDevice
	Hidden
	HardRock
	SuddenDeath
	DoubleTime
	Relax
	HalfTime
	Nightcore // always sent together with DoubleTime
	Flashlight
	Autoplay
	SpunOut
	Autopilot
	Perfect
	Key4
	Key5
	Key6
	Key7
	Key8
	FadeIn
	Random
	Cinema
	Target
	Key9
	KeyCoop
	Key1
	Key3
	Key2
	ScoreV2
	Mirror

	None Mods = 0
)

var acronyms = []struct {
	mod  Mods
	name string
}{
	{NoFail, "NF"},
	{Easy, "EZ"},
	{TouchDevice, "TD"},
	{Hidden, "HD"},
	{HardRock, "HR"},
	{SuddenDeath, "SD"},
	{Nightcore, "NC"},
	{DoubleTime, "DT"},
	{Relax, "RX"},
	{HalfTime, "HT"},
	{Flashlight, "FL"},
	{Autoplay, "AT"},
	{SpunOut, "SO"},
	{Autopilot, "AP"},
	{Perfect, "PF"},
	{Key1, "1K"},
	{Key2, "2K"},
	{Key3, "3K"},
	{Key4, "4K"},
	{Key5, "5K"},
	{Key6, "6K"},
	{Key7, "7K"},
	{Key8, "8K"},
	{Key9, "9K"},
	{FadeIn, "FI"},
	{Random, "RD"},
	{ScoreV2, "V2"},
	{Mirror, "MR"},
}

func (m Mods) Active(flags Mods) bool {
	return m&flags == flags
}

func (m Mods) Any(flags Mods) bool {
	return m&flags != 0
}

// ClockRate is the playback speed multiplier of the speed-changing mods.
func (m Mods) ClockRate() float64 {
	switch {
	case m.Any(DoubleTime | Nightcore):
		return 1.5
	case m.Any(HalfTime):
		return 0.75
	default:
		return 1
	}
}

func (m Mods) String() string {
	var sb strings.Builder
	for _, a := range acronyms {
		if !m.Active(a.mod) {
			continue
		}
		// NC implies DT, SD is shadowed by PF
		if a.mod == DoubleTime && m.Active(Nightcore) {
			continue
		}
		if a.mod == SuddenDeath && m.Active(Perfect) {
			continue
		}
		sb.WriteString(a.name)
	}
	if sb.Len() == 0 {
		return "NM"
	}
	return sb.String()
}

// Parse reads a mod string such as "HDDT" or "hd,hr". Unknown acronyms are
// reported back in the second value.
func Parse(s string) (Mods, []string) {
	s = strings.ToUpper(strings.NewReplacer(",", "", "+", "", " ", "").Replace(s))
	var m Mods
	var unknown []string
	for i := 0; i+1 < len(s); i += 2 {
		token := s[i : i+2]
		if token == "NM" {
			continue
		}
		found := false
		for _, a := range acronyms {
			if a.name == token {
				m |= a.mod
				found = true
				break
			}
		}
		if !found {
			unknown = append(unknown, token)
		}
	}
	if len(s)%2 == 1 {
		unknown = append(unknown, s[len(s)-1:])
	}
	if m.Active(Nightcore) {
		m |= DoubleTime
	}
	if m.Active(Perfect) {
		m |= SuddenDeath
	}
	return m, unknown
}
