package oppocloud

import (
	"errors"
	"fmt"

	"github.com/playwright-community/playwright-go"

	"github.com/jiesou/oppo-cloud-tracker/pkg/logging"
)

// Legacy find-page selectors.
const (
	selDeviceItems  = "#device-list .device-list ul > li"
	selDeviceDetail = "div.panel-wrap > div.device-detail"
	selDetailBack   = "div.handle-header-left > i.back"
	selRefreshing   = `span:has-text("正在更新")`
)

// domStrategy walks the rendered markup: open each device's detail
// panel, read its fields, go back. Fallback for console revisions that
// expose no client state object.
type domStrategy struct {
	log *logging.Logger
}

func (d *domStrategy) name() string { return "dom" }

func (d *domStrategy) probe(page playwright.Page) bool {
	items, err := page.QuerySelectorAll(selDeviceItems)
	return err == nil && len(items) > 0
}

func (d *domStrategy) extract(page playwright.Page) ([]rawDevice, []rawPoint, error) {
	if err := d.waitListSettled(page); err != nil {
		return nil, nil, err
	}

	items, err := page.QuerySelectorAll(selDeviceItems)
	if err != nil {
		return nil, nil, wrapKind(ErrCommunication, "listing devices", err)
	}

	raws := make([]rawDevice, 0, len(items))
	for i := range items {
		raw, err := d.extractItem(page, i)
		if err != nil {
			return nil, nil, err
		}
		raws = append(raws, raw)
	}

	// The legacy markup exposes no points array; coordinates, when the
	// console has them, ride on the entry's own coordinate field.
	return raws, nil, nil
}

// waitListSettled waits out the per-device refresh indicators before
// anything is read; a panel opened mid-refresh shows stale fields.
func (d *domStrategy) waitListSettled(page playwright.Page) error {
	err := waitFor(deviceListWait, func() (bool, error) {
		refreshing, err := page.QuerySelectorAll(selRefreshing)
		if err != nil {
			return false, nil
		}
		return len(refreshing) == 0, nil
	})
	if errors.Is(err, errWaitExpired) {
		return fmt.Errorf("%w: when waiting for device list to settle", ErrTimeout)
	}
	return err
}

// extractItem opens the index-th device's detail panel, reads its
// fields and navigates back. Items are re-queried each round because
// the back navigation re-renders the list.
func (d *domStrategy) extractItem(page playwright.Page, index int) (rawDevice, error) {
	var raw rawDevice

	items, err := page.QuerySelectorAll(selDeviceItems)
	if err != nil {
		return raw, wrapKind(ErrCommunication, "re-listing devices", err)
	}
	if index >= len(items) {
		return raw, fmt.Errorf("%w: device list shrank while scraping", ErrClient)
	}

	if err := items[index].Click(); err != nil {
		return raw, wrapKind(ErrCommunication, "opening device detail", err)
	}

	detail, err := page.WaitForSelector(selDeviceDetail, playwright.PageWaitForSelectorOptions{
		Timeout: playwright.Float(millis(interactWait)),
	})
	if err != nil {
		return raw, wrapKind(ErrTimeout, "waiting for device detail", err)
	}

	markup, err := detail.InnerHTML()
	if err != nil {
		return raw, wrapKind(ErrCommunication, "reading device detail", err)
	}
	raw, err = parseDetailMarkup(markup)
	if err != nil {
		return raw, err
	}

	back, err := detail.QuerySelector(selDetailBack)
	if err != nil || back == nil {
		return raw, wrapKind(ErrCommunication, "finding back control", err)
	}
	if err := back.Click(); err != nil {
		return raw, wrapKind(ErrCommunication, "returning to device list", err)
	}
	return raw, nil
}
