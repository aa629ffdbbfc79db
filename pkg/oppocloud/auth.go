package oppocloud

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/jiesou/oppo-cloud-tracker/pkg/logging"
)

// Console surfaces. Navigation away from the login surface is the only
// reliable success signal the console gives after submitting.
const (
	loginURL = "https://cloud.heytap.com/home/login"
	findURL  = "https://cloud.heytap.com/home/find"
)

// Login-flow selectors, tracking the current console markup.
const (
	selSignInButton  = "div.wrapper-login span.btn"
	selLoginFrame    = "iframe"
	selUsernameInput = "div:nth-child(1) > form input[type='tel']"
	selPasswordInput = "div:nth-child(1) > form input[type='password']"
	selSubmitButton  = "div:nth-child(1) > form button"
	selConsentAccept = "div.protocol-dialog span.agree, div.dialog-wrap button.confirm"
)

// Wait budgets for the individual login steps.
const (
	consentWait    = 3 * time.Second
	interactWait   = 10 * time.Second
	postSubmitWait = 5 * time.Second
	urlChangeWait  = 10 * time.Second
)

// errorCaptureScript installs a passive MutationObserver recording any
// newly-inserted text that matches the console's failure wording.
// Failure toasts are transient, so they have to be captured as they
// appear and drained once the URL wait gives up.
const errorCaptureScript = `() => {
	window.__ocFeedback = window.__ocFeedback || [];
	if (window.__ocObserver) { return; }
	const pattern = /(incorrect|invalid|fail|错误|失败|不正确|验证码)/i;
	window.__ocObserver = new MutationObserver((mutations) => {
		for (const m of mutations) {
			for (const node of m.addedNodes) {
				const text = ((node.innerText || node.textContent) || '').trim();
				if (text && pattern.test(text)) {
					window.__ocFeedback.push(text);
				}
			}
		}
	});
	window.__ocObserver.observe(document.body, { childList: true, subtree: true });
}`

const drainFeedbackScript = `() => window.__ocFeedback || []`

// authenticator is the login surface the client orchestrates against.
type authenticator interface {
	login(page playwright.Page, username, password string) error
}

// authFlow walks the console's multi-step sign-in. Timeouts during the
// interactive steps surface as ErrTimeout; a submit that never leaves
// the login surface surfaces as ErrAuthentication carrying whatever
// diagnostic text the page produced.
type authFlow struct {
	log *logging.Logger
}

func (a *authFlow) login(page playwright.Page, username, password string) error {
	if _, err := page.Goto(loginURL, gotoOptions()); err != nil {
		return wrapKind(ErrCommunication, "opening login page", err)
	}

	// Consent dialog only shows up for fresh sessions; absence is the
	// normal case.
	a.dismissConsent(page, consentWait)

	if err := page.Click(selSignInButton, playwright.PageClickOptions{
		Timeout: playwright.Float(millis(interactWait)),
	}); err != nil {
		return wrapKind(ErrTimeout, "activating sign-in", err)
	}

	frame, err := a.loginFrame(page)
	if err != nil {
		return err
	}

	fillOpts := playwright.FrameFillOptions{Timeout: playwright.Float(millis(interactWait))}
	if err := frame.Fill(selUsernameInput, username, fillOpts); err != nil {
		return wrapKind(ErrTimeout, "filling account field", err)
	}
	if err := frame.Fill(selPasswordInput, password, fillOpts); err != nil {
		return wrapKind(ErrTimeout, "filling password field", err)
	}

	if _, err := page.Evaluate(errorCaptureScript); err != nil {
		a.log.Debugf("error capture unavailable: %v", err)
	}

	if err := a.waitSubmitEnabled(frame); err != nil {
		return err
	}
	if err := frame.Click(selSubmitButton); err != nil {
		return wrapKind(ErrTimeout, "submitting credentials", err)
	}

	// Some accounts get a second terms prompt after submitting.
	a.dismissConsent(page, postSubmitWait)

	err = waitFor(urlChangeWait, func() (bool, error) {
		return !strings.HasPrefix(page.URL(), loginURL), nil
	})
	if err != nil {
		return a.classifyLoginFailure(page, err)
	}

	a.log.Infof("login completed, now at %s", page.URL())
	return nil
}

// dismissConsent clicks through a consent/terms dialog when one shows
// up within the budget.
func (a *authFlow) dismissConsent(page playwright.Page, budget time.Duration) {
	el, err := page.WaitForSelector(selConsentAccept, playwright.PageWaitForSelectorOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(millis(budget)),
	})
	if err != nil || el == nil {
		return
	}
	if err := el.Click(); err != nil {
		a.log.Debugf("consent dismissal failed: %v", err)
	}
}

// loginFrame waits for the credential iframe and enters it.
func (a *authFlow) loginFrame(page playwright.Page) (playwright.Frame, error) {
	handle, err := page.WaitForSelector(selLoginFrame, playwright.PageWaitForSelectorOptions{
		Timeout: playwright.Float(millis(interactWait)),
	})
	if err != nil {
		return nil, wrapKind(ErrTimeout, "locating login frame", err)
	}
	frame, err := handle.ContentFrame()
	if err != nil || frame == nil {
		return nil, wrapKind(ErrTimeout, "entering login frame", err)
	}
	return frame, nil
}

// waitSubmitEnabled polls until the submit button sheds its disabled
// class; the console enables it only after client-side validation.
func (a *authFlow) waitSubmitEnabled(frame playwright.Frame) error {
	err := waitFor(interactWait, func() (bool, error) {
		class, err := frame.GetAttribute(selSubmitButton, "class")
		if err != nil {
			return false, nil
		}
		return !strings.Contains(class, "disabled"), nil
	})
	if errors.Is(err, errWaitExpired) {
		return fmt.Errorf("%w: when waiting for submit button to enable", ErrTimeout)
	}
	return err
}

// classifyLoginFailure turns a failed URL-change wait into an
// authentication error carrying the captured in-page diagnostics, or a
// generic message when nothing was captured.
func (a *authFlow) classifyLoginFailure(page playwright.Page, cause error) error {
	if texts := a.drainFeedback(page); len(texts) > 0 {
		return fmt.Errorf("%w: login rejected: %s", ErrAuthentication, strings.Join(texts, "; "))
	}
	if errors.Is(cause, errWaitExpired) {
		return fmt.Errorf("%w: login did not leave the sign-in page", ErrAuthentication)
	}
	return wrapKind(ErrAuthentication, "completing login", cause)
}

// drainFeedback collects and deduplicates the captured error texts.
func (a *authFlow) drainFeedback(page playwright.Page) []string {
	result, err := page.Evaluate(drainFeedbackScript)
	if err != nil {
		a.log.Debugf("draining feedback failed: %v", err)
		return nil
	}
	items, ok := result.([]interface{})
	if !ok {
		return nil
	}

	seen := make(map[string]bool)
	var texts []string
	for _, item := range items {
		text, ok := item.(string)
		if !ok || text == "" || seen[text] {
			continue
		}
		seen[text] = true
		texts = append(texts, text)
	}
	return texts
}

func gotoOptions() playwright.PageGotoOptions {
	return playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(millis(pageDefaultTimeout)),
	}
}
