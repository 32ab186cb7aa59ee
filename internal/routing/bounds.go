package routing

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// CarWidth is the width of every vehicle footprint and look-ahead envelope.
const CarWidth = 5.0

// overlapEps absorbs float error in the zero-margin contact test.
const overlapEps = 1e-9

// ShapeKind tags the primitive held by a Shape.
type ShapeKind uint8

const (
	ShapeSegment ShapeKind = iota
	ShapeRect
)

// Segment is a line between two world points. It carries no transform.
type Segment struct {
	A, B mgl64.Vec2
}

// Shape wraps the segment in the closed shape variant.
func (s Segment) Shape() Shape {
	return Shape{Kind: ShapeSegment, Seg: s}
}

// OrientedRect is a rectangle centered on Center whose long side runs along
// the unit vector Axis.
type OrientedRect struct {
	Center    mgl64.Vec2
	Axis      mgl64.Vec2
	HalfLen   float64
	HalfWidth float64
}

// Shape wraps the rectangle in the closed shape variant.
func (r OrientedRect) Shape() Shape {
	return Shape{Kind: ShapeRect, Rect: r}
}

// Corners returns the four world corners, front pair first.
func (r OrientedRect) Corners() [4]mgl64.Vec2 {
	u := r.Axis.Mul(r.HalfLen)
	v := perp(r.Axis).Mul(r.HalfWidth)
	front := r.Center.Add(u)
	back := r.Center.Sub(u)
	return [4]mgl64.Vec2{front.Sub(v), front.Add(v), back.Sub(v), back.Add(v)}
}

// Length returns the full extent along Axis.
func (r OrientedRect) Length() float64 {
	return r.HalfLen * 2
}

// Isometry is a rigid transform: rotate by Angle radians, then translate.
type Isometry struct {
	Translation mgl64.Vec2
	Angle       float64
}

// Apply maps a local point into world space.
func (iso Isometry) Apply(p mgl64.Vec2) mgl64.Vec2 {
	sin, cos := math.Sincos(iso.Angle)
	return mgl64.Vec2{
		cos*p.X() - sin*p.Y() + iso.Translation.X(),
		sin*p.X() + cos*p.Y() + iso.Translation.Y(),
	}
}

// Primitive is an untransformed shape: a segment in local space, or a
// cuboid given by its half extents around the origin.
type Primitive struct {
	Kind        ShapeKind
	A, B        mgl64.Vec2
	HalfExtents mgl64.Vec2
}

// Shape is the closed set of collision shapes used by the engine.
// Exactly one of Seg or Rect is meaningful, selected by Kind.
type Shape struct {
	Kind ShapeKind
	Seg  Segment
	Rect OrientedRect
}

// Transform returns the shape as a rigid transform plus an untransformed
// primitive.
func (s Shape) Transform() (Isometry, Primitive) {
	if s.Kind == ShapeRect {
		r := s.Rect
		return Isometry{
				Translation: r.Center,
				Angle:       math.Atan2(r.Axis.Y(), r.Axis.X()),
			}, Primitive{
				Kind:        ShapeRect,
				HalfExtents: mgl64.Vec2{r.HalfLen, r.HalfWidth},
			}
	}
	return Isometry{}, Primitive{Kind: ShapeSegment, A: s.Seg.A, B: s.Seg.B}
}

// Colliding reports whether s touches or overlaps other.
func (s Shape) Colliding(other Shape) bool {
	return Collides(s, other)
}

// Collides is the zero-margin overlap query between two shapes after their
// transforms are applied. Touching counts as colliding. It never fails.
func Collides(a, b Shape) bool {
	pa, axesA := worldHull(a)
	pb, axesB := worldHull(b)

	for _, axis := range axesA {
		if separated(axis, pa, pb) {
			return false
		}
	}
	for _, axis := range axesB {
		if separated(axis, pa, pb) {
			return false
		}
	}
	return true
}

// worldHull returns the world vertices of a shape and the candidate
// separating axes it contributes.
func worldHull(s Shape) ([]mgl64.Vec2, []mgl64.Vec2) {
	iso, prim := s.Transform()

	if prim.Kind == ShapeRect {
		hx, hy := prim.HalfExtents.X(), prim.HalfExtents.Y()
		pts := []mgl64.Vec2{
			iso.Apply(mgl64.Vec2{hx, -hy}),
			iso.Apply(mgl64.Vec2{hx, hy}),
			iso.Apply(mgl64.Vec2{-hx, hy}),
			iso.Apply(mgl64.Vec2{-hx, -hy}),
		}
		sin, cos := math.Sincos(iso.Angle)
		u := mgl64.Vec2{cos, sin}
		return pts, []mgl64.Vec2{u, perp(u)}
	}

	a, b := iso.Apply(prim.A), iso.Apply(prim.B)
	dir := b.Sub(a)
	if dir.Len() < overlapEps {
		return []mgl64.Vec2{a, b}, nil
	}
	dir = dir.Normalize()
	// A segment's own direction also separates collinear segments.
	return []mgl64.Vec2{a, b}, []mgl64.Vec2{perp(dir), dir}
}

func separated(axis mgl64.Vec2, a, b []mgl64.Vec2) bool {
	minA, maxA := project(axis, a)
	minB, maxB := project(axis, b)
	return maxA < minB-overlapEps || maxB < minA-overlapEps
}

func project(axis mgl64.Vec2, pts []mgl64.Vec2) (float64, float64) {
	lo := math.Inf(1)
	hi := math.Inf(-1)
	for _, p := range pts {
		d := p.Dot(axis)
		lo = math.Min(lo, d)
		hi = math.Max(hi, d)
	}
	return lo, hi
}

func perp(v mgl64.Vec2) mgl64.Vec2 {
	return mgl64.Vec2{-v.Y(), v.X()}
}

// VehicleFootprint is the physical extent of a vehicle: CarWidth wide and
// length long, centered on pos and oriented along dir.
func VehicleFootprint(pos mgl64.Vec2, length float64, dir Direction) OrientedRect {
	return OrientedRect{
		Center:    pos,
		Axis:      dir.Vector(),
		HalfLen:   length / 2,
		HalfWidth: CarWidth / 2,
	}
}

// LookAhead is the envelope a vehicle checks before proceeding. It starts at
// pos and extends EnvelopeSize forward along dir.
func LookAhead(pos mgl64.Vec2, length, speed float64, dir Direction) OrientedRect {
	vec := dir.Vector()
	size := EnvelopeSize(length, speed, dir)
	return OrientedRect{
		Center:    pos.Add(vec.Mul(size / 2)),
		Axis:      vec,
		HalfLen:   size / 2,
		HalfWidth: CarWidth / 2,
	}
}

// EnvelopeSize is length*1.5 plus a projected distance. Turning vehicles
// project their own length. Straight vehicles project the sum of speed,
// speed-Brake*TickRate, ... over its non-negative terms, an approximation of
// braking distance under constant deceleration.
func EnvelopeSize(length, speed float64, dir Direction) float64 {
	projected := 0.0
	if dir.IsTurn() {
		projected = length
	} else {
		for s := speed; s >= 0; s -= Brake * TickRate {
			projected += s
		}
	}
	return length*1.5 + projected
}
