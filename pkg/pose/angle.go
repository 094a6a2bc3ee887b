package pose

import (
	"errors"
	"math"
)

// ErrDegenerateGeometry is returned by CheckedAngle when a limb vector has
// (near) zero length and the angle at the vertex is undefined.
var ErrDegenerateGeometry = errors.New("pose: degenerate joint geometry")

// minLimbLength is the shortest vertex-to-point distance CheckedAngle accepts.
const minLimbLength = 1e-9

// Point is a planar position in normalized frame coordinates.
type Point struct {
	X, Y float64
}

// Angle returns the angle in degrees at vertex b formed by rays b→a and b→c.
// The result lies in [0, 180]. Coincident points are not guarded: atan2(0, 0)
// is 0, so a collapsed ray silently yields an angle measured from the x axis.
func Angle(a, b, c Point) float64 {
	radians := math.Atan2(c.Y-b.Y, c.X-b.X) - math.Atan2(a.Y-b.Y, a.X-b.X)
	deg := math.Abs(radians * 180.0 / math.Pi)
	if deg > 180.0 {
		deg = 360 - deg
	}
	return deg
}

// CheckedAngle is Angle with a guard against collapsed limbs.
func CheckedAngle(a, b, c Point) (float64, error) {
	if dist(a, b) < minLimbLength || dist(c, b) < minLimbLength {
		return 0, ErrDegenerateGeometry
	}
	return Angle(a, b, c), nil
}

func dist(p, q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}
