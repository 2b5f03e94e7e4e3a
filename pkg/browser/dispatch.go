package browser

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"

	"github.com/qaflow/qaflow/pkg/models"
)

// parseSelector splits a stored selector into its locator strategy and bare
// value. Selectors with no recognized prefix are treated as css (the
// majority case, and the form §4.13's body-selector safeguard checks
// against).
func parseSelector(raw string) (models.LocatorStrategy, string) {
	for _, strategy := range []models.LocatorStrategy{
		models.LocatorStrategyCSS, models.LocatorStrategyRole, models.LocatorStrategyText, models.LocatorStrategyXPath,
	} {
		prefix := string(strategy) + ":"
		if strings.HasPrefix(raw, prefix) {
			return strategy, strings.TrimSpace(strings.TrimPrefix(raw, prefix))
		}
	}
	return models.LocatorStrategyCSS, raw
}

// locate resolves a stored selector to a live element. Role selectors are
// matched by the `[role="..."]` attribute; the caller is responsible for
// the case-insensitive accessible-name equality check §4.8 requires on top
// of this lookup.
func locate(page *rod.Page, raw string) (*rod.Element, models.LocatorStrategy, error) {
	strategy, value := parseSelector(raw)

	var el *rod.Element
	var err error
	switch strategy {
	case models.LocatorStrategyXPath:
		el, err = page.ElementX(value)
	case models.LocatorStrategyText:
		el, err = page.ElementR("*", value)
	case models.LocatorStrategyRole:
		role, _, _ := strings.Cut(value, ",")
		el, err = page.Element(fmt.Sprintf(`[role="%s"]`, role))
	default:
		el, err = page.Element(value)
	}
	if err != nil {
		return nil, strategy, fmt.Errorf("browser: locate selector %q: %w", raw, err)
	}
	return el, strategy, nil
}

// checkRoleAccessibleName enforces §4.8's pre-action validation for a
// role-based stored selector on click: the element's visible accessible
// name must case-insensitively equal the role selector's name payload.
func checkRoleAccessibleName(el *rod.Element, raw string) error {
	strategy, value := parseSelector(raw)
	if strategy != models.LocatorStrategyRole {
		return nil
	}
	_, wantName, ok := strings.Cut(value, ",")
	if !ok {
		return nil
	}
	text, err := el.Text()
	if err != nil {
		return fmt.Errorf("browser: read accessible name: %w", err)
	}
	if !strings.EqualFold(strings.TrimSpace(text), strings.TrimSpace(wantName)) {
		return fmt.Errorf("browser: accessible name %q does not match stored role selector name %q", text, wantName)
	}
	return nil
}

var fillFallbackOrder = []string{
	`input[type="password"]`, `input[type="text"]`, `[role="textbox"]`,
	`input[type="text"]`, `input[type="email"]`, `[role="textbox"]`,
}

// resolveFillTarget enforces §4.8's deterministic pre-action validation for
// fill: the locator must resolve to an input, textarea, or contenteditable
// element, falling back through an ordered candidate set when it does not.
func resolveFillTarget(page *rod.Page, raw string, isPasswordHint bool) (*rod.Element, error) {
	el, _, err := locate(page, raw)
	if err == nil && isFillable(el) {
		return el, nil
	}

	candidates := fillFallbackOrder[3:]
	if isPasswordHint {
		candidates = fillFallbackOrder[:3]
	}
	for _, css := range candidates {
		if el, ferr := page.Element(css); ferr == nil && isFillable(el) {
			return el, nil
		}
	}
	return nil, fmt.Errorf("browser: no fillable element found for selector %q", raw)
}

func isFillable(el *rod.Element) bool {
	if el == nil {
		return false
	}
	tag, err := el.Eval(`() => this.tagName.toLowerCase()`)
	if err != nil {
		return false
	}
	switch tag.Value.Str() {
	case "input", "textarea":
		return true
	}
	editable, err := el.Eval(`() => this.isContentEditable === true`)
	return err == nil && editable.Value.Bool()
}

// dispatchLogin implements the `login` row of §4.8's per-action table.
func dispatchLogin(page *rod.Page, baseURL, username, password string, actionTimeout time.Duration) error {
	if username == "" || password == "" {
		return nil
	}
	if err := page.Navigate(baseURL); err != nil {
		return fmt.Errorf("browser: navigate to %s: %w", baseURL, err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("browser: wait for load: %w", err)
	}

	userEl, err := findFirstVisible(page, []string{
		`input[name="username"]`, `input[name="email"]`, `input[type="email"]`,
		`input[autocomplete="username"]`, `input[type="text"]`,
	})
	if err != nil {
		return fmt.Errorf("browser: locate username input: %w", err)
	}
	if err := userEl.Input(username); err != nil {
		return fmt.Errorf("browser: fill username: %w", err)
	}

	passEl, err := page.Timeout(actionTimeout).Element(`input[type="password"]`)
	if err != nil {
		return fmt.Errorf("browser: locate password input: %w", err)
	}
	if err := passEl.Input(password); err != nil {
		return fmt.Errorf("browser: fill password: %w", err)
	}

	submitEl, err := findFirstVisible(page, []string{
		`button[type="submit"]`, `input[type="submit"]`, `button`,
	})
	if err != nil {
		return fmt.Errorf("browser: locate submit button: %w", err)
	}
	if err := submitEl.Click(input.Left, 1); err != nil {
		return fmt.Errorf("browser: click submit: %w", err)
	}

	return page.WaitLoad()
}

func findFirstVisible(page *rod.Page, selectors []string) (*rod.Element, error) {
	for _, sel := range selectors {
		el, err := page.Element(sel)
		if err != nil {
			continue
		}
		if visible, verr := el.Visible(); verr == nil && visible {
			return el, nil
		}
	}
	return nil, fmt.Errorf("browser: no visible element matched %v", selectors)
}

var absoluteURLPrefixes = []string{"http://", "https://"}

func isAbsoluteURL(s string) bool {
	for _, p := range absoluteURLPrefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
