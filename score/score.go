// Package score holds the sparse play records callers hand in and the
// resolved states the difficulty model consumes.
//
// A nil field means "not supplied". Resolution applies exactly one default,
// a missing miss count becomes zero misses, and leaves every other absent
// field for the model to infer.
package score

// Std is a partially known osu!standard play.
type Std struct {
	Combo             *int
	Accuracy          *float64
	PotentialAccuracy *float64
	N300              *int
	N100              *int
	N50               *int
	Misses            *int
	PassedObjects     *int
}

type Taiko struct {
	Combo         *int
	Accuracy      *float64
	N300          *int
	N100          *int
	Misses        *int
	PassedObjects *int
}

// Mania plays are scored from the raw score value alone.
type Mania struct {
	Score         *uint32
	PassedObjects *int
}

type Catch struct {
	Combo             *int
	Fruits            *int
	Droplets          *int
	TinyDroplets      *int
	TinyDropletMisses *int
	Misses            *int
	PassedObjects     *int
}

type StdState struct {
	Combo         *int
	Accuracy      *float64
	N300          *int
	N100          *int
	N50           *int
	Misses        int
	PassedObjects *int
}

type TaikoState struct {
	Combo         *int
	Accuracy      *float64
	N300          *int
	N100          *int
	Misses        int
	PassedObjects *int
}

type ManiaState struct {
	Score         *uint32
	PassedObjects *int
}

type CatchState struct {
	Combo             *int
	Fruits            *int
	Droplets          *int
	TinyDroplets      *int
	TinyDropletMisses *int
	Misses            int
	PassedObjects     *int
}

// Resolved is the outcome of resolving one raw record. Potential is only
// meaningful when NeedsPotential is set.
type Resolved[S any] struct {
	Actual         S
	Potential      S
	NeedsPotential bool
}

// Resolve builds the achieved-play state and the zero-miss potential state.
// The potential state carries PotentialAccuracy as its accuracy and nothing
// else from the achieved play.
func (in Std) Resolve() Resolved[StdState] {
	return Resolved[StdState]{
		Actual: StdState{
			Combo:         in.Combo,
			Accuracy:      in.Accuracy,
			N300:          in.N300,
			N100:          in.N100,
			N50:           in.N50,
			Misses:        missesOrZero(in.Misses),
			PassedObjects: in.PassedObjects,
		},
		Potential: StdState{
			Accuracy: in.PotentialAccuracy,
			Misses:   0,
		},
		NeedsPotential: true,
	}
}

func (in Taiko) Resolve() Resolved[TaikoState] {
	return Resolved[TaikoState]{
		Actual: TaikoState{
			Combo:         in.Combo,
			Accuracy:      in.Accuracy,
			N300:          in.N300,
			N100:          in.N100,
			Misses:        missesOrZero(in.Misses),
			PassedObjects: in.PassedObjects,
		},
	}
}

func (in Mania) Resolve() Resolved[ManiaState] {
	return Resolved[ManiaState]{
		Actual: ManiaState{
			Score:         in.Score,
			PassedObjects: in.PassedObjects,
		},
	}
}

func (in Catch) Resolve() Resolved[CatchState] {
	return Resolved[CatchState]{
		Actual: CatchState{
			Combo:             in.Combo,
			Fruits:            in.Fruits,
			Droplets:          in.Droplets,
			TinyDroplets:      in.TinyDroplets,
			TinyDropletMisses: in.TinyDropletMisses,
			Misses:            missesOrZero(in.Misses),
			PassedObjects:     in.PassedObjects,
		},
	}
}

func missesOrZero(n *int) int {
	if n == nil {
		return 0
	}
	return *n
}

// Ptr returns a pointer to v, for filling optional fields inline.
func Ptr[T any](v T) *T {
	return &v
}
