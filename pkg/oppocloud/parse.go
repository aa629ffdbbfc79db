package oppocloud

import (
	"strconv"
	"strings"

	"github.com/jiesou/oppo-cloud-tracker/pkg/gcj02"
)

const defaultModel = "Unknown Device"

// poiSeparators are the middle-dot variants the console has used
// between the place name and the relative-time label.
var poiSeparators = []string{"・", "·"}

// splitPOI splits "人民广场 · 5分钟前" into its place and time parts.
// Without a separator the whole string is the place.
func splitPOI(poi string) (location, lastSeen string) {
	for _, sep := range poiSeparators {
		if i := strings.Index(poi, sep); i >= 0 {
			return strings.TrimSpace(poi[:i]), strings.TrimSpace(poi[i+len(sep):])
		}
	}
	return strings.TrimSpace(poi), ""
}

// parseBattery reads a "85%"-style battery label. ok is false when the
// field is absent or malformed.
func parseBattery(s string) (int, bool) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	if s == "" {
		return 0, false
	}
	level, err := strconv.Atoi(s)
	if err != nil || level < 0 || level > 100 {
		return 0, false
	}
	return level, true
}

// parseCoordinate reads a raw "lat,lng" field.
func parseCoordinate(s string) (lat, lng float64, ok bool) {
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 2 {
		return 0, 0, false
	}
	lat, errLat := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lng, errLng := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if errLat != nil || errLng != nil {
		return 0, 0, false
	}
	return lat, lng, true
}

// parseDevice converts one raw entry and its positionally-aligned
// point into a Device. Coordinate problems degrade to a record without
// coordinates; they never fail the scrape.
func (s *scraper) parseDevice(raw rawDevice, pt *rawPoint) Device {
	dev := Device{Model: defaultModel}
	if name := strings.TrimSpace(raw.DeviceName); name != "" {
		dev.Model = name
	}

	poi := raw.POI
	if poi == "" {
		poi = raw.SimplePOI
	}
	dev.LocationName, dev.LastSeen = splitPOI(poi)
	if dev.LastSeen == "" {
		dev.LastSeen = strings.TrimSpace(raw.POITime)
	}

	dev.IsOnline = raw.OnlineStatus == 1 || raw.LocationStatus == "online"

	if level, ok := parseBattery(raw.Battery); ok {
		dev.BatteryLevel = level
	} else if dev.IsOnline {
		// An online device should be reporting battery; silence means
		// the page shape has drifted.
		s.log.Warnf("device %q reports no battery info", dev.Model)
	} else {
		s.log.Debugf("device %q is offline with no battery info", dev.Model)
	}

	if gcjLat, gcjLng, ok := coordinateOf(raw, pt); ok {
		lat, lng := gcj02.ToWGS84(gcjLat, gcjLng)
		dev.Latitude = &lat
		dev.Longitude = &lng
	} else if raw.Coordinate != "" {
		s.log.Warnf("device %q has an unusable coordinate field %q", dev.Model, raw.Coordinate)
	}

	return dev
}

// coordinateOf prefers the aligned points entry and falls back to the
// entry's own raw coordinate string. A zero point means the console
// placed the device nowhere; treat it as absent rather than dropping
// the device in the Gulf of Guinea.
func coordinateOf(raw rawDevice, pt *rawPoint) (lat, lng float64, ok bool) {
	if pt != nil && (pt.Lat != 0 || pt.Lng != 0) {
		return pt.Lat, pt.Lng, true
	}
	return parseCoordinate(raw.Coordinate)
}
