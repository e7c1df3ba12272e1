package browser

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

// probeBudget bounds each attempt when trying a list of candidate selectors,
// so one missing candidate does not burn the whole element budget.
const probeBudget = 2 * time.Second

// byOpt picks the chromedp query option: XPath for // selectors, CSS otherwise.
func byOpt(selector string) chromedp.QueryOption {
	if strings.HasPrefix(selector, "//") {
		return chromedp.BySearch
	}
	return chromedp.ByQuery
}

// jsStr quotes s as a JavaScript string literal.
func jsStr(s string) string { return strconv.Quote(s) }

// Click scrolls the element into view and clicks it.
func (s *Session) Click(ctx context.Context, selector string) error {
	if err := s.run(ctx, s.elementWait,
		chromedp.ScrollIntoView(selector, byOpt(selector)),
		chromedp.Click(selector, byOpt(selector)),
	); err != nil {
		return fmt.Errorf("click %q: %w", selector, err)
	}
	return nil
}

// ClickFirst tries each candidate selector in order and clicks the first one
// that resolves. Returns the selector that worked.
func (s *Session) ClickFirst(ctx context.Context, selectors []string) (string, error) {
	var lastErr error
	for _, sel := range selectors {
		err := s.run(ctx, probeBudget,
			chromedp.ScrollIntoView(sel, byOpt(sel)),
			chromedp.Click(sel, byOpt(sel)),
		)
		if err == nil {
			return sel, nil
		}
		lastErr = err
	}
	return "", fmt.Errorf("no candidate selector clickable (last: %w)", lastErr)
}

// SetValue fills a visible text input or textarea, then dispatches the
// input/change events some forms require to register the value.
func (s *Session) SetValue(ctx context.Context, selector, value string) error {
	events := fmt.Sprintf(`(() => {
		const el = document.querySelector(%s);
		if (el) {
			el.dispatchEvent(new Event('input', { bubbles: true }));
			el.dispatchEvent(new Event('change', { bubbles: true }));
		}
	})()`, jsStr(selector))

	if err := s.run(ctx, s.elementWait,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Focus(selector, chromedp.ByQuery),
		chromedp.Clear(selector, chromedp.ByQuery),
		chromedp.SendKeys(selector, value, chromedp.ByQuery),
		chromedp.Evaluate(events, nil),
	); err != nil {
		return fmt.Errorf("fill %q: %w", selector, err)
	}
	return nil
}

// SetValueJS writes a value directly through the DOM. Used for hidden inputs
// (the form keeps some dates in hidden fields) where SendKeys cannot reach.
func (s *Session) SetValueJS(ctx context.Context, selector, value string) error {
	script := fmt.Sprintf(`(() => {
		const el = document.querySelector(%s);
		if (!el) return false;
		el.value = %s;
		el.dispatchEvent(new Event('input', { bubbles: true }));
		el.dispatchEvent(new Event('change', { bubbles: true }));
		return true;
	})()`, jsStr(selector), jsStr(value))

	var ok bool
	if err := s.Evaluate(ctx, script, &ok); err != nil {
		return fmt.Errorf("set value on %q: %w", selector, err)
	}
	if !ok {
		return fmt.Errorf("set value on %q: element not found", selector)
	}
	return nil
}

// IsHidden reports whether the element is an input of type hidden.
func (s *Session) IsHidden(ctx context.Context, selector string) (bool, error) {
	script := fmt.Sprintf(`(() => {
		const el = document.querySelector(%s);
		return el ? el.type === 'hidden' : false;
	})()`, jsStr(selector))
	var hidden bool
	if err := s.Evaluate(ctx, script, &hidden); err != nil {
		return false, fmt.Errorf("inspect %q: %w", selector, err)
	}
	return hidden, nil
}

// SelectByText selects the <option> whose visible text matches text.
func (s *Session) SelectByText(ctx context.Context, selector, text string) error {
	return s.selectOption(ctx, fmt.Sprintf(`document.querySelector(%s)`, jsStr(selector)), selector, text)
}

// SelectIndexedByText selects an option on the nth element matching selector.
// The form reuses one selector name for several date dropdown sets (birth,
// issued, expires, arrival), distinguishable only by document order.
func (s *Session) SelectIndexedByText(ctx context.Context, selector string, index int, text string) error {
	locate := fmt.Sprintf(`document.querySelectorAll(%s)[%d]`, jsStr(selector), index)
	return s.selectOption(ctx, locate, fmt.Sprintf("%s[%d]", selector, index), text)
}

func (s *Session) selectOption(ctx context.Context, locateExpr, label, text string) error {
	script := fmt.Sprintf(`(() => {
		const sel = %s;
		if (!sel) return 'missing';
		for (const opt of sel.options) {
			if (opt.textContent.trim() === %s) {
				sel.value = opt.value;
				sel.dispatchEvent(new Event('change', { bubbles: true }));
				return 'ok';
			}
		}
		return 'no-option';
	})()`, locateExpr, jsStr(text))

	var status string
	if err := s.Evaluate(ctx, script, &status); err != nil {
		return fmt.Errorf("select on %q: %w", label, err)
	}
	switch status {
	case "ok":
		return nil
	case "missing":
		return fmt.Errorf("select on %q: element not found", label)
	default:
		return fmt.Errorf("select on %q: no option with text %q", label, text)
	}
}
