// Package oppocloud drives the OPPO Cloud (HeyTap) web console through
// a remotely-hosted browser to read device locations. It owns the full
// session lifecycle: connecting to the automation endpoint, signing in,
// scraping the find page and tearing everything down again.
package oppocloud

import (
	"context"
	"errors"
	"sync"

	"github.com/playwright-community/playwright-go"

	"github.com/jiesou/oppo-cloud-tracker/pkg/logging"
)

// Options configures a Client.
type Options struct {
	Username    string
	Password    string
	EndpointURL string
	// KeepSession keeps the browser session alive between fetches.
	KeepSession bool
	// Headless controls the browser launched for grid endpoints.
	Headless bool
}

// Client is the OPPO Cloud client. All public methods on one Client are
// serialized: a concurrent call queues behind the in-flight one, it is
// never interleaved, because the underlying session shares a single
// page whose navigation state cannot be shared. The lock is taken by
// the worker goroutine, so a call whose context is canceled returns
// early while the abandoned work keeps the lock until it finishes;
// the next call queues behind it. Distinct Clients are fully
// independent.
type Client struct {
	mu      sync.Mutex
	session sessionHandle
	auth    authenticator
	scraper deviceScraper
	opts    Options
	log     *logging.Logger
}

// New builds a Client for the given account and endpoint. The endpoint
// URL is validated eagerly so a bad scheme fails before any browser
// work starts. A nil logger discards.
func New(opts Options, log *logging.Logger) (*Client, error) {
	endpoint, err := ParseEndpoint(opts.EndpointURL)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logging.NewDiscard()
	}

	sess := newSession(newConnector(endpoint, opts.Headless, log), log)
	sess.setKeepAlive(opts.KeepSession)

	return &Client{
		session: sess,
		auth:    &authFlow{log: log},
		scraper: newScraper(log),
		opts:    opts,
		log:     log,
	}, nil
}

// dispatch runs a blocking driver call on a worker goroutine so the
// caller can honor its context. Cancellation returns control to the
// caller but does not abort the worker: driver calls cannot be
// interrupted mid-flight, so the abandoned call runs to completion in
// the background (still holding any lock its fn took) and Cleanup
// remains the coarse cancellation primitive.
func dispatch[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	type outcome struct {
		value T
		err   error
	}
	ch := make(chan outcome, 1)
	go func() {
		value, err := fn()
		ch <- outcome{value: value, err: err}
	}()

	select {
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case out := <-ch:
		return out.value, out.err
	}
}

// FetchDevices scrapes the find page and returns all device records.
// An authentication failure is recovered exactly once by signing in and
// retrying the scrape; a second consecutive authentication failure
// propagates to the caller. With keep-session off the session is
// released before returning, whatever the outcome.
func (c *Client) FetchDevices(ctx context.Context) ([]Device, error) {
	return dispatch(ctx, func() ([]Device, error) {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.fetchDevices()
	})
}

func (c *Client) fetchDevices() ([]Device, error) {
	defer c.releaseUnlessKept()

	page, err := c.session.acquirePage()
	if err != nil {
		return nil, c.failAcquire(err)
	}

	devices, err := c.scraper.scrape(page)
	if errors.Is(err, ErrAuthentication) {
		c.log.Infof("not logged in, attempting login: %v", err)
		if err := c.auth.login(page, c.opts.Username, c.opts.Password); err != nil {
			return nil, err
		}
		devices, err = c.scraper.scrape(page)
	}
	if err != nil {
		return nil, err
	}
	return devices, nil
}

// Login signs in to the console on demand.
func (c *Client) Login(ctx context.Context) error {
	_, err := dispatch(ctx, func() (struct{}, error) {
		c.mu.Lock()
		defer c.mu.Unlock()

		page, err := c.session.acquirePage()
		if err != nil {
			return struct{}{}, c.failAcquire(err)
		}
		return struct{}{}, c.auth.login(page, c.opts.Username, c.opts.Password)
	})
	return err
}

// TestConnection verifies the automation endpoint can open the login
// page at all. The session is torn down on failure so a broken endpoint
// does not leave half-open handles behind.
func (c *Client) TestConnection(ctx context.Context) (bool, error) {
	return dispatch(ctx, func() (bool, error) {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.testConnection()
	})
}

func (c *Client) testConnection() (bool, error) {
	page, err := c.session.acquirePage()
	if err != nil {
		return false, c.failAcquire(err)
	}
	if _, err := page.Goto(loginURL, gotoOptions()); err != nil {
		c.session.release()
		return false, wrapKind(ErrCommunication, "testing connection", err)
	}
	if _, err := page.WaitForSelector("body", playwright.PageWaitForSelectorOptions{
		Timeout: playwright.Float(millis(interactWait)),
	}); err != nil {
		c.session.release()
		return false, wrapKind(ErrCommunication, "testing connection", err)
	}

	c.log.Infof("connected to %s", c.opts.EndpointURL)
	return true, nil
}

// SetKeepSession toggles session reuse across fetches. Turning it off
// while a session is active releases that session immediately.
func (c *Client) SetKeepSession(keep bool) {
	c.session.setKeepAlive(keep)
}

// Cleanup forcibly tears the session down. It deliberately does not
// wait for the single-flight lock: an in-flight operation loses its
// browser handles and fails at the driver level.
func (c *Client) Cleanup(ctx context.Context) error {
	_, err := dispatch(ctx, func() (struct{}, error) {
		c.session.release()
		return struct{}{}, nil
	})
	return err
}

// SessionActive reports whether a live browser session exists.
func (c *Client) SessionActive() bool {
	return c.session.active()
}

// releaseUnlessKept tears the session down in ephemeral-session mode.
func (c *Client) releaseUnlessKept() {
	if !c.session.keep() {
		c.session.release()
	}
}

// failAcquire forces a best-effort cleanup when the session could not
// be established, then propagates the failure.
func (c *Client) failAcquire(err error) error {
	c.session.release()
	return err
}
