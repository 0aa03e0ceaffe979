package capture

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"
)

type PlaywrightConfig struct {
	ViewportWidth  int
	ViewportHeight int

	FullPage bool

	Timeout         time.Duration
	SelectorTimeout time.Duration
	Delay           time.Duration

	Headless                  bool
	ChromeDevtoolsProtocolURL string
}

func DefaultPlaywrightConfig() PlaywrightConfig {
	return PlaywrightConfig{
		ViewportWidth:   1280,
		ViewportHeight:  800,
		Timeout:         30 * time.Second,
		SelectorTimeout: 10 * time.Second,
		Headless:        true,
	}
}

const maxInnerTextLength = 200

type PlaywrightCapturer struct {
	config PlaywrightConfig
}

func NewPlaywrightCapturer(ctx context.Context, p PlaywrightConfig) (*PlaywrightCapturer, error) {
	if p.ViewportWidth <= 0 || p.ViewportHeight <= 0 {
		return nil, fmt.Errorf("invalid viewport %dx%d", p.ViewportWidth, p.ViewportHeight)
	}
	return &PlaywrightCapturer{
		config: p,
	}, nil
}

func (c *PlaywrightCapturer) Capture(ctx context.Context, url string, options CaptureOptions) (*CaptureResult, error) {
	var screenshot []byte
	err := c.withPage(ctx, url, options, func(page playwright.Page) error {
		if err := c.replay(ctx, page, options.Actions); err != nil {
			return err
		}

		if err := mask(page, options.MaskSelectors); err != nil {
			return err
		}

		b, err := page.Screenshot(playwright.PageScreenshotOptions{
			Type:     playwright.ScreenshotTypePng,
			FullPage: playwright.Bool(c.config.FullPage),
		})
		if err != nil {
			return fmt.Errorf("failed to take screenshot: %w", err)
		}
		screenshot = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &CaptureResult{
		Screenshot: screenshot,
	}, nil
}

const inspectScript = `({ x, y, max }) => {
	const el = document.elementFromPoint(x, y);
	if (!el) {
		return { selector: 'body', tagName: 'BODY', innerText: '' };
	}
	let selector;
	const className = typeof el.className === 'string' ? el.className.trim() : '';
	if (el.id) {
		selector = '#' + el.id;
	} else if (className) {
		selector = el.tagName.toLowerCase() + className.split(/\s+/).map((c) => '.' + c).join('');
	} else {
		const path = [];
		for (let node = el; node && node !== document.body && node.parentElement; node = node.parentElement) {
			const same = Array.from(node.parentElement.children).filter((c) => c.tagName === node.tagName);
			path.unshift(node.tagName.toLowerCase() + ':nth-of-type(' + (same.indexOf(node) + 1) + ')');
		}
		selector = path.join(' > ');
	}
	return { selector, tagName: el.tagName, innerText: (el.innerText || '').substring(0, max) };
}`

func (c *PlaywrightCapturer) Inspect(ctx context.Context, url string, x float64, y float64, options CaptureOptions) (*Element, error) {
	var element *Element
	err := c.withPage(ctx, url, options, func(page playwright.Page) error {
		v, err := page.Evaluate(inspectScript, map[string]any{"x": x, "y": y, "max": maxInnerTextLength})
		if err != nil {
			return fmt.Errorf("failed to inspect element: %w", err)
		}
		m, ok := v.(map[string]any)
		if !ok {
			return fmt.Errorf("unexpected inspect result %T", v)
		}
		element = &Element{}
		element.Selector, _ = m["selector"].(string)
		element.TagName, _ = m["tagName"].(string)
		element.InnerText, _ = m["innerText"].(string)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return element, nil
}

// withPage opens url in a fresh page sized for options and calls fn with it.
// The page is closed when ctx is cancelled.
func (c *PlaywrightCapturer) withPage(ctx context.Context, url string, options CaptureOptions, fn func(playwright.Page) error) error {
	p, err := playwright.Run()
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}
	defer p.Stop()

	var browser playwright.Browser
	if c.config.ChromeDevtoolsProtocolURL == "" {
		browser, err = p.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
			Headless: playwright.Bool(c.config.Headless),
			Args:     []string{"--no-sandbox", "--disable-setuid-sandbox", "--disable-dev-shm-usage"},
		})
		if err != nil {
			return fmt.Errorf("failed to launch browser: %w", err)
		}
		defer browser.Close()
	} else {
		browser, err = p.Chromium.ConnectOverCDP(c.config.ChromeDevtoolsProtocolURL)
		if err != nil {
			return fmt.Errorf("failed to connect to browser via CDP at %s: %w", c.config.ChromeDevtoolsProtocolURL, err)
		}
	}

	page, err := browser.NewPage()
	if err != nil {
		return fmt.Errorf("failed to create new page: %w", err)
	}
	defer page.Close()

	width, height := c.config.ViewportWidth, c.config.ViewportHeight
	if options.Width > 0 {
		width = options.Width
	}
	if options.Height > 0 {
		height = options.Height
	}
	if err := page.SetViewportSize(width, height); err != nil {
		return fmt.Errorf("failed to set viewport size: %w", err)
	}

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			page.Close()
		case <-done:
		}
	}()
	defer close(done)

	if len(options.Headers) > 0 {
		if err := page.SetExtraHTTPHeaders(options.Headers); err != nil {
			return fmt.Errorf("failed to set HTTP headers: %w", err)
		}
	}

	if _, err := page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateNetworkidle,
		Timeout:   playwright.Float(float64(c.config.Timeout.Milliseconds())),
	}); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}

	if err := sleep(ctx, c.config.Delay); err != nil {
		return err
	}

	return fn(page)
}

func (c *PlaywrightCapturer) replay(ctx context.Context, page playwright.Page, actions []Action) error {
	for i, action := range actions {
		var err error
		switch action.Type {
		case ClickAction:
			err = page.Locator(action.Selector).Click()
		case TypeAction:
			err = page.Locator(action.Selector).PressSequentially(action.Value)
		case WaitAction:
			if action.Selector != "" {
				err = page.Locator(action.Selector).WaitFor(playwright.LocatorWaitForOptions{
					Timeout: playwright.Float(float64(c.config.SelectorTimeout.Milliseconds())),
				})
			} else {
				err = sleep(ctx, action.DelayDuration())
			}
		default:
			err = fmt.Errorf("unknown action type %q", action.Type)
		}
		if err != nil {
			return fmt.Errorf("failed to run action %d (%s): %w", i, action.Type, err)
		}
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// mask covers every element matching selectors with an opaque black box so
// that volatile content does not show up as a difference.
func mask(page playwright.Page, selectors []string) error {
	if len(selectors) == 0 {
		return nil
	}

	unique := make([]byte, 8)
	if _, err := rand.Read(unique); err != nil {
		return fmt.Errorf("failed to generate unique identifier: %w", err)
	}
	className := "pagediff-mask-" + hex.EncodeToString(unique)

	css := fmt.Sprintf(`.%[1]s { position: relative !important; }
.%[1]s::after { content: "" !important; position: absolute !important; inset: 0 !important; background: #000 !important; z-index: 2147483646 !important; pointer-events: none !important; }`, className)

	script := `({ css, className, selectors }) => {
	const style = document.createElement('style');
	style.textContent = css;
	document.head.appendChild(style);
	for (const selector of selectors) {
		for (const el of document.querySelectorAll(selector)) {
			if (getComputedStyle(el).position === 'static') {
				el.style.position = 'relative';
			}
			el.classList.add(className);
		}
	}
}`
	if _, err := page.Evaluate(script, map[string]any{"css": css, "className": className, "selectors": selectors}); err != nil {
		return fmt.Errorf("failed to mask selectors: %w", err)
	}
	return nil
}
