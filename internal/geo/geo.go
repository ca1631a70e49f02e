// Package geo provides coordinate conversions between the sensor-native
// spherical frame (range, azimuth, elevation) and the Cartesian frame the
// tracking pipeline operates in.
//
// Azimuth follows the compass convention: degrees clockwise from north
// (+Y axis), normalised to [0, 360). Elevation is degrees above the XY
// plane. Range, X, Y and Z share the same length unit.
package geo

import "math"

const degToRad = math.Pi / 180

// SphericalToCartesian converts a (range, azimuth, elevation) reading to
// Cartesian (x, y, z). Azimuth and elevation are in degrees.
func SphericalToCartesian(rng, azDeg, elDeg float64) (x, y, z float64) {
	az := azDeg * degToRad
	el := elDeg * degToRad
	x = rng * math.Cos(el) * math.Sin(az)
	y = rng * math.Cos(el) * math.Cos(az)
	z = rng * math.Sin(el)
	return x, y, z
}

// CartesianToSpherical converts a Cartesian position back to
// (range, azimuth, elevation) with azimuth in [0, 360) degrees.
func CartesianToSpherical(x, y, z float64) (rng, azDeg, elDeg float64) {
	rng = math.Sqrt(x*x + y*y + z*z)
	elDeg = math.Atan2(z, math.Hypot(x, y)) / degToRad
	azDeg = NormalizeAzimuth(math.Atan2(x, y) / degToRad)
	return rng, azDeg, elDeg
}

// NormalizeAzimuth wraps an azimuth in degrees into [0, 360).
func NormalizeAzimuth(azDeg float64) float64 {
	az := math.Mod(azDeg, 360)
	if az < 0 {
		az += 360
	}
	return az
}
