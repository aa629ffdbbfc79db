package oppocloud

// Device is one tracked device as reported by the find-phone page.
// Records are produced fresh on every successful fetch and never
// mutated afterwards.
type Device struct {
	Model        string `json:"model"`
	LocationName string `json:"location_name"`
	// LastSeen is the vendor's free-text relative-time label, e.g.
	// "5分钟前". Empty when the vendor supplied none.
	LastSeen string `json:"last_seen,omitempty"`
	IsOnline bool   `json:"is_online"`
	// BatteryLevel is 0..100; 0 when the page exposed no battery field.
	BatteryLevel int `json:"battery_level"`
	// Latitude and Longitude are WGS-84. Either both are set or both
	// are nil; a device is never located on one axis only.
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// rawDevice is a vendor-shaped entry from the page's client state.
// Field availability varies across site revisions, so most fields are
// alternatives the parser ORs together.
type rawDevice struct {
	DeviceName     string `json:"deviceName"`
	POI            string `json:"poi"`
	SimplePOI      string `json:"simplePoi"`
	POITime        string `json:"poiTime"`
	OnlineStatus   int    `json:"onlineStatus"`
	LocationStatus string `json:"locationStatus"`
	Coordinate     string `json:"coordinate"`
	Battery        string `json:"battery"`
}

// rawPoint is positionally aligned with the deviceList array: the Nth
// device's coordinates are the Nth point. There is no id to join on,
// so that alignment must survive all the way to parsing.
type rawPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}
