package gcj02

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToWGS84_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		lat  float64
		lng  float64
	}{
		{"shanghai", 31.2304, 121.4737},
		{"beijing", 39.9042, 116.4074},
		{"shenzhen", 22.5431, 114.0579},
		{"chengdu", 30.5728, 104.0668},
		{"urumqi", 43.8256, 87.6168},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wgsLat, wgsLng := ToWGS84(tt.lat, tt.lng)
			backLat, backLng := ToGCJ02(wgsLat, wgsLng)
			assert.InDelta(t, tt.lat, backLat, 1e-5)
			assert.InDelta(t, tt.lng, backLng, 1e-5)
		})
	}
}

func TestToWGS84_OffsetMagnitude(t *testing.T) {
	// The GCJ-02 perturbation inside China is on the order of a few
	// hundred meters, so the corrected coordinate must differ from the
	// input, but not by more than ~0.01 degrees.
	wgsLat, wgsLng := ToWGS84(31.2304, 121.4737)

	latDiff := math.Abs(wgsLat - 31.2304)
	lngDiff := math.Abs(wgsLng - 121.4737)

	assert.Greater(t, latDiff, 1e-4)
	assert.Less(t, latDiff, 1e-2)
	assert.Greater(t, lngDiff, 1e-4)
	assert.Less(t, lngDiff, 1e-2)
}

func TestToWGS84_Deterministic(t *testing.T) {
	lat1, lng1 := ToWGS84(39.9042, 116.4074)
	lat2, lng2 := ToWGS84(39.9042, 116.4074)
	assert.Equal(t, lat1, lat2)
	assert.Equal(t, lng1, lng2)
}
