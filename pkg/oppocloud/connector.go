package oppocloud

import (
	"io"
	"os"

	"github.com/playwright-community/playwright-go"

	"github.com/jiesou/oppo-cloud-tracker/pkg/logging"
)

// seleniumRemoteEnv is read by the automation driver when launching a
// browser against a Selenium Grid. The driver reads it once at startup,
// so the connector owns its driver process and applies the grid address
// right before starting it; changing the endpoint goes through release
// and a fresh acquire instead of mutating a running driver.
const seleniumRemoteEnv = "SELENIUM_REMOTE_URL"

// connector resolves the configured endpoint into a live browser,
// caching the handle while it stays connected.
type connector struct {
	endpoint Endpoint
	headless bool
	log      *logging.Logger

	pw          *playwright.Playwright
	browser     playwright.Browser
	gridApplied bool
}

func newConnector(endpoint Endpoint, headless bool, log *logging.Logger) *connector {
	return &connector{endpoint: endpoint, headless: headless, log: log}
}

// acquire returns the cached browser if it is still connected,
// otherwise establishes a new connection per the endpoint scheme.
func (c *connector) acquire() (playwright.Browser, error) {
	if c.browser != nil && c.browser.IsConnected() {
		return c.browser, nil
	}
	c.browser = nil

	if err := c.ensureDriver(); err != nil {
		return nil, wrapKind(ErrCommunication, "starting automation driver", err)
	}

	var (
		browser playwright.Browser
		err     error
	)
	if c.endpoint.Native() {
		c.log.Debugf("connecting over CDP to %s", c.endpoint.Address)
		browser, err = c.pw.Chromium.ConnectOverCDP(c.endpoint.Address)
	} else {
		c.log.Debugf("launching browser via grid %s", c.endpoint.Address)
		browser, err = c.pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
			Headless: playwright.Bool(c.headless),
			Args:     []string{"--disable-dev-shm-usage", "--disable-gpu"},
		})
	}
	if err != nil {
		return nil, wrapKind(ErrCommunication, "connecting to remote browser", err)
	}

	c.browser = browser
	return browser, nil
}

// ensureDriver starts this connector's automation driver process,
// installing the driver on first use. For grid endpoints the grid
// address is placed in the process environment first so the driver
// picks it up at startup.
func (c *connector) ensureDriver() error {
	if c.pw != nil {
		return nil
	}

	if !c.endpoint.Native() {
		if err := os.Setenv(seleniumRemoteEnv, c.endpoint.Address); err != nil {
			return err
		}
		c.gridApplied = true
	}

	// Discard driver output; it interleaves badly with our own logs.
	opts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}

	if err := playwright.Install(opts); err != nil {
		c.clearGridEnv()
		return err
	}

	pw, err := playwright.Run(opts)
	if err != nil {
		c.clearGridEnv()
		return err
	}
	c.pw = pw
	return nil
}

func (c *connector) clearGridEnv() {
	if c.gridApplied {
		os.Unsetenv(seleniumRemoteEnv)
		c.gridApplied = false
	}
}

// release closes the browser and stops the driver, clearing the grid
// configuration last. Shutdown errors are swallowed; an already-closed
// handle is not a failure.
func (c *connector) release() {
	if c.browser != nil {
		_ = c.browser.Close()
		c.browser = nil
	}
	if c.pw != nil {
		if err := c.pw.Stop(); err != nil {
			c.log.Warnf("stopping automation driver: %v", err)
		}
		c.pw = nil
	}
	c.clearGridEnv()
}
