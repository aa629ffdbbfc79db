package oppocloud

import (
	"errors"
	"time"
)

// pollInterval is the cadence for condition polling, matching the
// WebDriverWait-style checks this client grew out of.
const pollInterval = 250 * time.Millisecond

// errWaitExpired marks a bounded wait that ran out before its condition
// held. Callers classify it into one of the public error kinds.
var errWaitExpired = errors.New("wait expired")

// waitFor polls cond until it reports true, returns an error, or the
// deadline passes. Condition errors abort the wait immediately.
func waitFor(timeout time.Duration, cond func() (bool, error)) error {
	deadline := time.Now().Add(timeout)
	for {
		ok, err := cond()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if time.Now().After(deadline) {
			return errWaitExpired
		}
		time.Sleep(pollInterval)
	}
}

func millis(d time.Duration) float64 {
	return float64(d.Milliseconds())
}
