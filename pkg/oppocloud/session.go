package oppocloud

import (
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/jiesou/oppo-cloud-tracker/pkg/logging"
)

const (
	viewportWidth  = 1280
	viewportHeight = 800

	// identityString is the browser identity presented to the console.
	// The vendor serves the desktop page for a mainstream desktop UA.
	identityString = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	pageDefaultTimeout = 30 * time.Second
)

// sessionHandle is the session surface the client orchestrates against.
type sessionHandle interface {
	acquirePage() (playwright.Page, error)
	release()
	setKeepAlive(keep bool)
	keep() bool
	active() bool
}

// browserSource yields the live browser a session builds its context
// on. Satisfied by connector.
type browserSource interface {
	acquire() (playwright.Browser, error)
	release()
}

// session owns the browser context and page of one client. It carries
// its own lock so Cleanup can tear it down while another goroutine is
// mid-operation; that operation then fails at the driver level.
type session struct {
	mu        sync.Mutex
	connector browserSource
	context   playwright.BrowserContext
	page      playwright.Page
	keepAlive bool
	log       *logging.Logger
}

func newSession(connector browserSource, log *logging.Logger) *session {
	return &session{connector: connector, log: log}
}

// acquirePage lazily creates the browser context and page, reusing them
// across calls until released.
func (s *session) acquirePage() (playwright.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.page != nil && !s.page.IsClosed() {
		return s.page, nil
	}

	// The page died externally; its context is stale and must be closed
	// before a replacement is built.
	if s.context != nil {
		_ = s.context.Close()
		s.context = nil
		s.page = nil
	}

	browser, err := s.connector.acquire()
	if err != nil {
		return nil, err
	}

	context, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport:  &playwright.Size{Width: viewportWidth, Height: viewportHeight},
		UserAgent: playwright.String(identityString),
	})
	if err != nil {
		return nil, wrapKind(ErrCommunication, "creating browser context", err)
	}

	page, err := context.NewPage()
	if err != nil {
		_ = context.Close()
		return nil, wrapKind(ErrCommunication, "opening page", err)
	}
	page.SetDefaultTimeout(millis(pageDefaultTimeout))

	s.context = context
	s.page = page
	return page, nil
}

// active reports whether a live page exists.
func (s *session) active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page != nil && !s.page.IsClosed()
}

// setKeepAlive toggles session reuse. Disabling it while a session is
// active releases the session immediately.
func (s *session) setKeepAlive(keep bool) {
	s.mu.Lock()
	s.keepAlive = keep
	shouldRelease := !keep && s.page != nil
	s.mu.Unlock()

	if shouldRelease {
		s.log.Debugf("keep-alive disabled with an active session, releasing")
		s.release()
	}
}

func (s *session) keep() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keepAlive
}

// release closes page, context, browser and driver, in that order. It
// is idempotent, a no-op with no session, and swallows driver-level
// shutdown errors.
func (s *session) release() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.page != nil {
		_ = s.page.Close()
		s.page = nil
	}
	if s.context != nil {
		_ = s.context.Close()
		s.context = nil
	}
	s.connector.release()
}
