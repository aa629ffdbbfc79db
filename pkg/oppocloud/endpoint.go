package oppocloud

import (
	"fmt"
	"net/url"
	"strings"
)

// Endpoint is a parsed remote-browser endpoint. The scheme alone
// determines the connection strategy: ws/wss endpoints speak the
// browser's native remote protocol, http/https endpoints address a
// Selenium Grid.
type Endpoint struct {
	Scheme  string
	Address string
}

// ParseEndpoint validates a remote-browser URL and derives the address
// the connector will use. Grid URLs are usually configured with the
// client-facing /wd/hub suffix; the grid itself is addressed without
// it, so the suffix and any trailing slashes are stripped. Unsupported
// schemes are rejected here, before any connection attempt is made.
func ParseEndpoint(raw string) (Endpoint, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Endpoint{}, wrapKind(ErrCommunication, "parsing endpoint URL", err)
	}

	switch u.Scheme {
	case "ws", "wss":
		return Endpoint{Scheme: u.Scheme, Address: raw}, nil
	case "http", "https":
		return Endpoint{Scheme: u.Scheme, Address: gridAddress(raw)}, nil
	default:
		return Endpoint{}, fmt.Errorf("%w: unsupported endpoint scheme %q", ErrCommunication, u.Scheme)
	}
}

// Native reports whether the endpoint connects straight to a running
// browser process rather than going through a grid.
func (e Endpoint) Native() bool {
	return e.Scheme == "ws" || e.Scheme == "wss"
}

func gridAddress(raw string) string {
	addr := strings.TrimRight(raw, "/")
	addr = strings.TrimSuffix(addr, "/wd/hub")
	return strings.TrimRight(addr, "/")
}
