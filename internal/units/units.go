// Package units defines the astronomical unit system used by the simulation.
//
// Distances are in astronomical units, times in days and masses in Earth
// masses. [G] is pre-scaled into that system so the force law never converts.
// Everything here is a constant; the conversion helpers are the boundary
// between external SI descriptors and internal state.
package units

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

const (
	// AU is the number of meters in an astronomical unit.
	AU = 149597870707.0
	// Day is the number of seconds in a day.
	Day = 86400.0
	// SiderealDay is the number of seconds in a sidereal day.
	SiderealDay = 86164.0905
	// EarthMass in kilograms (NASA JPL, May 2022).
	EarthMass = 5.97219e24
	// GravitationalConstant in SI units (m³ kg⁻¹ s⁻²).
	GravitationalConstant = 6.67428e-11
	// G is the gravitational constant in AU³ EarthMass⁻¹ day⁻².
	G = GravitationalConstant * EarthMass * Day * Day / (AU * AU * AU)
)

func MassFromKilograms(kg float64) float64 { return kg / EarthMass }

func DistanceFromMeters(m float64) float64 { return m / AU }

// VelocityFromMetersPerSecond converts m/s to AU/day.
func VelocityFromMetersPerSecond(v float64) float64 { return v * Day / AU }

func DaysFromSeconds(s float64) float64 { return s / Day }

func SecondsFromDays(d float64) float64 { return d * Day }

func Radians(deg float64) float64 { return deg * math.Pi / 180 }

// VectorFromMeters converts an SI position to AU.
func VectorFromMeters(v [3]float64) r3.Vec {
	return r3.Vec{
		X: DistanceFromMeters(v[0]),
		Y: DistanceFromMeters(v[1]),
		Z: DistanceFromMeters(v[2]),
	}
}

// VelocityVectorFromSI converts an SI velocity to AU/day.
func VelocityVectorFromSI(v [3]float64) r3.Vec {
	return r3.Vec{
		X: VelocityFromMetersPerSecond(v[0]),
		Y: VelocityFromMetersPerSecond(v[1]),
		Z: VelocityFromMetersPerSecond(v[2]),
	}
}
