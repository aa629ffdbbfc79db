package oppocloud

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jiesou/oppo-cloud-tracker/pkg/logging"
)

func testScraper() *scraper {
	return newScraper(logging.NewDiscard())
}

func TestSplitPOI(t *testing.T) {
	tests := []struct {
		name         string
		poi          string
		wantLocation string
		wantLastSeen string
	}{
		{"ascii middle dot with spaces", "人民广场 · 5分钟前", "人民广场", "5分钟前"},
		{"no separator", "家", "家", ""},
		{"fullwidth middle dot", "公司・刚刚", "公司", "刚刚"},
		{"latin place", "Home · now", "Home", "now"},
		{"surrounding whitespace", "  咖啡店 ·  1小时前 ", "咖啡店", "1小时前"},
		{"empty", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			location, lastSeen := splitPOI(tt.poi)
			assert.Equal(t, tt.wantLocation, location)
			assert.Equal(t, tt.wantLastSeen, lastSeen)
		})
	}
}

func TestParseBattery(t *testing.T) {
	tests := []struct {
		in     string
		want   int
		wantOK bool
	}{
		{"85%", 85, true},
		{"100%", 100, true},
		{"0%", 0, true},
		{" 42% ", 42, true},
		{"7", 7, true},
		{"", 0, false},
		{"unknown", 0, false},
		{"120%", 0, false},
		{"-5%", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := parseBattery(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseCoordinate(t *testing.T) {
	lat, lng, ok := parseCoordinate("31.2,121.4")
	require.True(t, ok)
	assert.InDelta(t, 31.2, lat, 1e-9)
	assert.InDelta(t, 121.4, lng, 1e-9)

	for _, bad := range []string{"", "31.2", "a,b", "1,2,3"} {
		_, _, ok := parseCoordinate(bad)
		assert.False(t, ok, "input %q", bad)
	}
}

func TestParseDevice_AlignedPoint(t *testing.T) {
	s := testScraper()

	dev := s.parseDevice(rawDevice{
		DeviceName:   "A",
		OnlineStatus: 1,
		POI:          "Home · now",
		Battery:      "85%",
	}, &rawPoint{Lat: 31.2, Lng: 121.4})

	assert.Equal(t, "A", dev.Model)
	assert.True(t, dev.IsOnline)
	assert.Equal(t, "Home", dev.LocationName)
	assert.Equal(t, "now", dev.LastSeen)
	assert.Equal(t, 85, dev.BatteryLevel)
	require.NotNil(t, dev.Latitude)
	require.NotNil(t, dev.Longitude)
	// The GCJ-02 correction shifts the point, but only slightly.
	assert.InDelta(t, 31.2, *dev.Latitude, 0.01)
	assert.InDelta(t, 121.4, *dev.Longitude, 0.01)
}

func TestParseDevice_Defaults(t *testing.T) {
	s := testScraper()

	dev := s.parseDevice(rawDevice{}, nil)

	assert.Equal(t, "Unknown Device", dev.Model)
	assert.Empty(t, dev.LocationName)
	assert.Empty(t, dev.LastSeen)
	assert.False(t, dev.IsOnline)
	assert.Equal(t, 0, dev.BatteryLevel)
	assert.Nil(t, dev.Latitude)
	assert.Nil(t, dev.Longitude)
}

func TestParseDevice_StateObjectFields(t *testing.T) {
	s := testScraper()

	dev := s.parseDevice(rawDevice{
		DeviceName:     "OPPO Find X7",
		SimplePOI:      "人民广场",
		POITime:        "5分钟前",
		LocationStatus: "online",
	}, nil)

	assert.Equal(t, "OPPO Find X7", dev.Model)
	assert.Equal(t, "人民广场", dev.LocationName)
	assert.Equal(t, "5分钟前", dev.LastSeen)
	assert.True(t, dev.IsOnline)
	assert.Equal(t, 0, dev.BatteryLevel)
}

func TestParseDevice_CoordinateStringFallback(t *testing.T) {
	s := testScraper()

	dev := s.parseDevice(rawDevice{
		DeviceName: "B",
		Coordinate: "39.9042,116.4074",
	}, nil)

	require.NotNil(t, dev.Latitude)
	require.NotNil(t, dev.Longitude)
	assert.InDelta(t, 39.9042, *dev.Latitude, 0.01)
	assert.InDelta(t, 116.4074, *dev.Longitude, 0.01)
}

func TestParseDevice_BadCoordinateNotFatal(t *testing.T) {
	s := testScraper()

	dev := s.parseDevice(rawDevice{
		DeviceName: "C",
		Coordinate: "not,numbers",
	}, nil)

	assert.Nil(t, dev.Latitude)
	assert.Nil(t, dev.Longitude)
	assert.Equal(t, "C", dev.Model)
}

func TestParseDevice_CoordinatePairInvariant(t *testing.T) {
	s := testScraper()

	// A zero point means "not located"; neither axis may be set alone.
	dev := s.parseDevice(rawDevice{DeviceName: "D"}, &rawPoint{})
	assert.Nil(t, dev.Latitude)
	assert.Nil(t, dev.Longitude)
}
