package oppocloud

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/jiesou/oppo-cloud-tracker/pkg/logging"
)

const (
	deviceListWait = 30 * time.Second
	redirectMsg    = "not logged in or page redirected unexpectedly"
	expiredMsg     = "session expired"
)

// deviceScraper is the scraping surface the client orchestrates against.
type deviceScraper interface {
	scrape(page playwright.Page) ([]Device, error)
}

// extractStrategy is one way of pulling raw device entries out of the
// find page. The console's markup changed across revisions; the scraper
// probes for a working strategy each scrape instead of maintaining
// parallel clients per site version.
type extractStrategy interface {
	name() string
	// probe reports whether the page currently is in a shape this
	// strategy can read.
	probe(page playwright.Page) bool
	// extract returns the raw entries together with their
	// positionally-aligned points, which may be empty.
	extract(page playwright.Page) ([]rawDevice, []rawPoint, error)
}

type scraper struct {
	log        *logging.Logger
	strategies []extractStrategy
}

func newScraper(log *logging.Logger) *scraper {
	return &scraper{
		log: log,
		strategies: []extractStrategy{
			&stateObjectStrategy{log: log},
			&domStrategy{log: log},
		},
	}
}

// scrape navigates to the find page and extracts all device records.
// A redirect away from the find page, or a page whose client state
// never materializes, means the session is not authenticated.
func (s *scraper) scrape(page playwright.Page) ([]Device, error) {
	if _, err := page.Goto(findURL, gotoOptions()); err != nil {
		return nil, wrapKind(ErrCommunication, "opening find page", err)
	}
	if !strings.HasPrefix(page.URL(), findURL) {
		return nil, fmt.Errorf("%w: %s", ErrAuthentication, redirectMsg)
	}

	var chosen extractStrategy
	err := waitFor(deviceListWait, func() (bool, error) {
		// Late redirects happen when the session cookie dies mid-load.
		if !strings.HasPrefix(page.URL(), findURL) {
			return false, fmt.Errorf("%w: %s", ErrAuthentication, redirectMsg)
		}
		for _, strat := range s.strategies {
			if strat.probe(page) {
				chosen = strat
				return true, nil
			}
		}
		return false, nil
	})
	if errors.Is(err, errWaitExpired) {
		return s.settleEmptyPage(page)
	}
	if err != nil {
		return nil, err
	}

	s.log.Debugf("extracting devices via %s strategy", chosen.name())
	raws, points, err := chosen.extract(page)
	if err != nil {
		return nil, err
	}

	devices := make([]Device, 0, len(raws))
	for i, raw := range raws {
		var pt *rawPoint
		if i < len(points) {
			pt = &points[i]
		}
		devices = append(devices, s.parseDevice(raw, pt))
	}
	return devices, nil
}

func (s *scraper) settleEmptyPage(page playwright.Page) ([]Device, error) {
	return s.settleSnapshot(readStateObject(page))
}

// settleSnapshot distinguishes an account with zero devices from an
// expired session once the device-list wait has run out. A state object
// that exists with an explicitly empty list is a genuine empty account;
// an unreadable or absent one means the session is gone.
func (s *scraper) settleSnapshot(snap stateSnapshot, err error) ([]Device, error) {
	if err != nil || !snap.Present {
		return nil, fmt.Errorf("%w: %s", ErrAuthentication, expiredMsg)
	}
	if len(snap.DeviceList) == 0 {
		s.log.Infof("find page reports no devices")
		return []Device{}, nil
	}

	// The list filled in just as the wait gave up; use it.
	devices := make([]Device, 0, len(snap.DeviceList))
	for i, raw := range snap.DeviceList {
		var pt *rawPoint
		if i < len(snap.Points) {
			pt = &snap.Points[i]
		}
		devices = append(devices, s.parseDevice(raw, pt))
	}
	return devices, nil
}

// stateSnapshot is the JSON shape returned by stateProbeScript.
type stateSnapshot struct {
	Present    bool        `json:"present"`
	DeviceList []rawDevice `json:"deviceList"`
	Points     []rawPoint  `json:"points"`
}

// stateProbeScript reads the find app's exposed store state in one
// atomic evaluation so deviceList and points cannot drift between
// separate reads.
const stateProbeScript = `() => {
	const root = document.querySelector('#app');
	const vue = root && root.__vue__;
	const state = (vue && vue.$store && vue.$store.state && vue.$store.state.find)
		|| (window.__INITIAL_STATE__ && window.__INITIAL_STATE__.find)
		|| null;
	if (!state || !Array.isArray(state.deviceList)) {
		return { present: false, deviceList: [], points: [] };
	}
	return {
		present: true,
		deviceList: state.deviceList,
		points: Array.isArray(state.points) ? state.points : [],
	};
}`

// readStateObject evaluates the probe and decodes the result through a
// JSON round-trip into typed entries.
func readStateObject(page playwright.Page) (stateSnapshot, error) {
	var snap stateSnapshot

	result, err := page.Evaluate(stateProbeScript)
	if err != nil {
		return snap, wrapKind(ErrCommunication, "reading page state", err)
	}
	encoded, err := json.Marshal(result)
	if err != nil {
		return snap, wrapKind(ErrClient, "encoding page state", err)
	}
	if err := json.Unmarshal(encoded, &snap); err != nil {
		return snap, wrapKind(ErrClient, "decoding page state", err)
	}
	return snap, nil
}

// stateObjectStrategy reads the client application's store directly.
// Preferred: one atomic read, no panel clicking, and it carries the
// points array the DOM never shows.
type stateObjectStrategy struct {
	log *logging.Logger
}

func (st *stateObjectStrategy) name() string { return "state-object" }

func (st *stateObjectStrategy) probe(page playwright.Page) bool {
	snap, err := readStateObject(page)
	return err == nil && snap.Present && len(snap.DeviceList) > 0
}

func (st *stateObjectStrategy) extract(page playwright.Page) ([]rawDevice, []rawPoint, error) {
	snap, err := readStateObject(page)
	if err != nil {
		return nil, nil, err
	}
	if !snap.Present {
		return nil, nil, fmt.Errorf("%w: %s", ErrAuthentication, expiredMsg)
	}
	return snap.DeviceList, snap.Points, nil
}
