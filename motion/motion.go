// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package motion

import (
	"errors"
	"math"
	"math/rand/v2"
	"time"
)

// Kinematics is the position and velocity of one body, in percent-of-viewport
// units. It is recomputed every tick and never persisted.
type Kinematics struct {
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

// Speed returns the magnitude of the velocity.
func (k Kinematics) Speed() float64 {
	return math.Hypot(k.DX, k.DY)
}

// Bounds is the box every body stays inside.
type Bounds struct {
	MinX, MaxX float64
	MinY, MaxY float64
}

// DefaultBounds keeps bubbles clear of the page edges and the bottom button row.
var DefaultBounds = Bounds{MinX: 5, MaxX: 95, MinY: 5, MaxY: 85}

// Contains reports whether (x, y) lies inside b, edges included.
func (b Bounds) Contains(x, y float64) bool {
	return x >= b.MinX && x <= b.MaxX && y >= b.MinY && y <= b.MaxY
}

func (b Bounds) center() (float64, float64) {
	return (b.MinX + b.MaxX) / 2, (b.MinY + b.MaxY) / 2
}

// Tuning holds the constants the page variants disagreed on.
type Tuning struct {
	// Damping scales velocity into per-tick displacement.
	Damping float64
	// MaxBounceDegrees bounds the random turn applied on every wall bounce.
	MaxBounceDegrees float64

	MinSpeed float64
	MaxSpeed float64

	// Spawn region for new bodies.
	SpawnMinX, SpawnMaxX float64
	SpawnMinY, SpawnMaxY float64

	// Radius and ExpandedRadius are rendering hints in CSS pixels.
	Radius         float64
	ExpandedRadius float64

	// FrameRate is the number of ticks per second.
	FrameRate int
}

// DefaultTuning returns the constants of the refined page variant.
func DefaultTuning() Tuning {
	return Tuning{
		Damping:          0.5,
		MaxBounceDegrees: 15,
		MinSpeed:         0.125,
		MaxSpeed:         0.25,
		SpawnMinX:        10,
		SpawnMaxX:        90,
		SpawnMinY:        10,
		SpawnMaxY:        70,
		Radius:           48,
		ExpandedRadius:   170,
		FrameRate:        60,
	}
}

var (
	ErrInvalidDamping   = errors.New("damping must be positive")
	ErrInvalidSpeed     = errors.New("speeds must satisfy 0 < min <= max")
	ErrInvalidBounce    = errors.New("max bounce angle must be within [0, 90) degrees")
	ErrInvalidSpawn     = errors.New("spawn region must be non-empty and inside bounds")
	ErrInvalidFrameRate = errors.New("frame rate must be between 1 and 240")
)

// Validate checks t against the default bounds.
func (t Tuning) Validate() error {
	return t.ValidateFor(DefaultBounds)
}

// ValidateFor checks t against b.
func (t Tuning) ValidateFor(b Bounds) error {
	if !(t.Damping > 0) || math.IsInf(t.Damping, 0) {
		return ErrInvalidDamping
	}
	if !(t.MinSpeed > 0) || t.MaxSpeed < t.MinSpeed || math.IsInf(t.MaxSpeed, 0) {
		return ErrInvalidSpeed
	}
	if t.MaxBounceDegrees < 0 || t.MaxBounceDegrees >= 90 {
		return ErrInvalidBounce
	}
	if t.SpawnMinX > t.SpawnMaxX || t.SpawnMinY > t.SpawnMaxY ||
		!b.Contains(t.SpawnMinX, t.SpawnMinY) || !b.Contains(t.SpawnMaxX, t.SpawnMaxY) {
		return ErrInvalidSpawn
	}
	if t.FrameRate < 1 || t.FrameRate > 240 {
		return ErrInvalidFrameRate
	}
	return nil
}

// FrameInterval is the wall-clock time between ticks.
func (t Tuning) FrameInterval() time.Duration {
	if t.FrameRate <= 0 {
		return time.Second / 60
	}
	return time.Second / time.Duration(t.FrameRate)
}

// Spawn places a new body somewhere in the spawn region with a random heading.
func Spawn(t Tuning, rng *rand.Rand) Kinematics {
	speed := t.MinSpeed + rng.Float64()*(t.MaxSpeed-t.MinSpeed)
	heading := rng.Float64() * 2 * math.Pi
	return Kinematics{
		X:  t.SpawnMinX + rng.Float64()*(t.SpawnMaxX-t.SpawnMinX),
		Y:  t.SpawnMinY + rng.Float64()*(t.SpawnMaxY-t.SpawnMinY),
		DX: math.Cos(heading) * speed,
		DY: math.Sin(heading) * speed,
	}
}

// Step advances one body by one tick. It integrates the velocity, reflects it
// off any wall that was crossed with a small random turn, and clamps the
// position back inside b. Speed is never changed.
func Step(k Kinematics, t Tuning, b Bounds, rng *rand.Rand) Kinematics {
	k = sanitize(k, t, b, rng)

	k.X += k.DX * t.Damping
	k.Y += k.DY * t.Damping

	// The reflected component must point back into the box; lockX/lockY pin
	// its sign so the random turn cannot undo the bounce.
	var lockX, lockY bool
	switch {
	case k.X < b.MinX:
		k.DX, lockX = math.Abs(k.DX), true
	case k.X > b.MaxX:
		k.DX, lockX = -math.Abs(k.DX), true
	}
	switch {
	case k.Y < b.MinY:
		k.DY, lockY = math.Abs(k.DY), true
	case k.Y > b.MaxY:
		k.DY, lockY = -math.Abs(k.DY), true
	}

	maxTurn := t.MaxBounceDegrees * math.Pi / 180
	for _, bounced := range [2]bool{lockX, lockY} {
		if !bounced {
			continue
		}
		angle := (rng.Float64()*2 - 1) * maxTurn
		k.DX, k.DY = turn(k.DX, k.DY, angle, lockX, lockY)
	}

	k.X = clamp(k.X, b.MinX, b.MaxX)
	k.Y = clamp(k.Y, b.MinY, b.MaxY)
	return k
}

// turn rotates (dx, dy) by angle, or by -angle when the first rotation would
// flip a locked component. If both would, the vector is left as is.
func turn(dx, dy, angle float64, lockX, lockY bool) (float64, float64) {
	for _, a := range [2]float64{angle, -angle} {
		sin, cos := math.Sincos(a)
		rx := dx*cos - dy*sin
		ry := dx*sin + dy*cos
		if (!lockX || sameSign(rx, dx)) && (!lockY || sameSign(ry, dy)) {
			return rx, ry
		}
	}
	return dx, dy
}

func sameSign(got, want float64) bool {
	switch {
	case want > 0:
		return got > 0
	case want < 0:
		return got < 0
	default:
		return true
	}
}

// sanitize replaces non-finite values so one bad body cannot poison the board.
func sanitize(k Kinematics, t Tuning, b Bounds, rng *rand.Rand) Kinematics {
	if !finite(k.X) || !finite(k.Y) {
		k.X, k.Y = b.center()
	}
	if !finite(k.DX) || !finite(k.DY) {
		fresh := Spawn(t, rng)
		k.DX, k.DY = fresh.DX, fresh.DY
	}
	return k
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
