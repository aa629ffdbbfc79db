// Package gcj02 converts GCJ-02 ("Mars") coordinates to WGS-84.
//
// GCJ-02 is the obfuscated coordinate system China-region map providers
// serve. The closed-form offset approximation here follows the
// eviltransform formula family; its coefficients are load-bearing
// constants, not tunable parameters.
package gcj02

import "math"

const (
	// semiMajorAxis is the reference ellipsoid's semi-major axis in meters.
	semiMajorAxis = 6378137.0
	// eccSquared is the ellipsoid's first eccentricity squared.
	eccSquared = 0.00669342162296594323
)

// offset computes the raw GCJ-02 perturbation for a point expressed
// relative to the 105°E / 35°N expansion origin.
func offset(x, y float64) (lat, lng float64) {
	xy := x * y
	absX := math.Sqrt(math.Abs(x))
	xPi := x * math.Pi
	yPi := y * math.Pi
	d := 20.0*math.Sin(6.0*xPi) + 20.0*math.Sin(2.0*xPi)

	lat = d
	lng = d

	lat += 20.0*math.Sin(yPi) + 40.0*math.Sin(yPi/3.0)
	lng += 20.0*math.Sin(xPi) + 40.0*math.Sin(xPi/3.0)

	lat += 160.0*math.Sin(yPi/12.0) + 320.0*math.Sin(yPi/30.0)
	lng += 150.0*math.Sin(xPi/12.0) + 300.0*math.Sin(xPi/30.0)

	lat *= 2.0 / 3.0
	lng *= 2.0 / 3.0

	lat += -100.0 + 2.0*x + 3.0*y + 0.2*y*y + 0.1*xy + 0.2*absX
	lng += 300.0 + x + 2.0*y + 0.1*x*x + 0.1*xy + 0.1*absX

	return lat, lng
}

// delta converts the raw perturbation at (lat, lng) into degree units
// on the reference ellipsoid: longitude scaled by cos(latitude),
// latitude by the meridional radius of curvature.
func delta(lat, lng float64) (dLat, dLng float64) {
	dLat, dLng = offset(lng-105.0, lat-35.0)
	radLat := lat / 180.0 * math.Pi
	magic := math.Sin(radLat)
	magic = 1 - eccSquared*magic*magic
	sqrtMagic := math.Sqrt(magic)
	dLat = (dLat * 180.0) / ((semiMajorAxis * (1 - eccSquared)) / (magic * sqrtMagic) * math.Pi)
	dLng = (dLng * 180.0) / (semiMajorAxis / sqrtMagic * math.Cos(radLat) * math.Pi)
	return dLat, dLng
}

// ToWGS84 converts a GCJ-02 coordinate to WGS-84. Inside the GCJ-02
// coverage region the result is accurate to within a few meters;
// outside it the result is unspecified, matching vendor behavior. No
// error is ever returned.
func ToWGS84(gcjLat, gcjLng float64) (lat, lng float64) {
	dLat, dLng := delta(gcjLat, gcjLng)
	return gcjLat - dLat, gcjLng - dLng
}

// ToGCJ02 applies the forward perturbation to a WGS-84 coordinate.
func ToGCJ02(wgsLat, wgsLng float64) (lat, lng float64) {
	dLat, dLng := delta(wgsLat, wgsLng)
	return wgsLat + dLat, wgsLng + dLng
}
