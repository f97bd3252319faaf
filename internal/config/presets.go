package config

import (
	"sort"

	"github.com/san-kum/orrery/internal/body"
	"github.com/san-kum/orrery/internal/units"
)

// Body data, SI units, positions on the ecliptic x axis and velocities
// along +y.
var (
	sun = body.Descriptor{
		Name: "Sun", Kind: body.Planet, Mass: 1.98847e30,
		Rotation: &body.RotationDescriptor{Obliquity: 7.25, Period: 2192832},
	}
	mercury = body.Descriptor{
		Name: "Mercury", Kind: body.Planet, Mass: 3.3011e23,
		Position: [3]float64{0.3871 * units.AU}, Velocity: [3]float64{0, 47362},
		Rotation: &body.RotationDescriptor{Obliquity: 0.034, Period: 5067031.68},
	}
	venus = body.Descriptor{
		Name: "Venus", Kind: body.Planet, Mass: 4.8675e24,
		Position: [3]float64{0.7233 * units.AU}, Velocity: [3]float64{0, 35021},
		Rotation: &body.RotationDescriptor{Obliquity: 177.36, Period: -20997360},
	}
	earth = body.Descriptor{
		Name: "Earth", Kind: body.Planet, Mass: units.EarthMass,
		Position: [3]float64{units.AU}, Velocity: [3]float64{0, 29784.7},
		Rotation: &body.RotationDescriptor{Obliquity: 23.44, Period: units.SiderealDay},
	}
	moon = body.Descriptor{
		Name: "Moon", Kind: body.Moon, Mass: 7.342e22,
		Position: [3]float64{units.AU + 384400e3}, Velocity: [3]float64{0, 29784.7 + 1022},
		Rotation: &body.RotationDescriptor{Obliquity: 6.68, Period: 2360591.5},
	}
	mars = body.Descriptor{
		Name: "Mars", Kind: body.Planet, Mass: 6.4171e23,
		Position: [3]float64{1.5237 * units.AU}, Velocity: [3]float64{0, 24077},
		Rotation: &body.RotationDescriptor{Obliquity: 25.19, Period: 88642.66},
	}
)

var Presets = map[string]*Scenario{
	"sun-earth": {
		Name: "sun-earth", Integrator: "leapfrog", SubIterations: 5,
		FrameDt: 0.5, Duration: 365.25, SampleEvery: 4, Rotation: true,
		Bodies: []body.Descriptor{sun, earth},
	},
	"earth-moon": {
		Name: "earth-moon", Integrator: "yoshida", SubIterations: 5,
		FrameDt: 0.05, Duration: 27.32, SampleEvery: 4, Rotation: true,
		Bodies: []body.Descriptor{
			{Name: earth.Name, Kind: earth.Kind, Mass: earth.Mass, Rotation: earth.Rotation},
			{Name: moon.Name, Kind: moon.Kind, Mass: moon.Mass, Position: [3]float64{384400e3}, Velocity: [3]float64{0, 1022}, Rotation: moon.Rotation},
		},
	},
	"sun-earth-moon": {
		Name: "sun-earth-moon", Integrator: "yoshida", SubIterations: 5,
		FrameDt: 0.1, Duration: 365.25, SampleEvery: 10, Rotation: true,
		Bodies: []body.Descriptor{sun, earth, moon},
	},
	"inner": {
		Name: "inner", Integrator: "leapfrog", SubIterations: 5,
		FrameDt: 0.1, Duration: 687, SampleEvery: 20, Rotation: true,
		Bodies: []body.Descriptor{sun, mercury, venus, earth, moon, mars},
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Scenario {
	sc, ok := Presets[name]
	if !ok {
		return nil
	}
	return sc.Clone()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
