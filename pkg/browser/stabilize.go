package browser

import (
	"fmt"
	"time"

	"github.com/go-rod/rod"
)

const stabilizationJS = `() => {
	const body = document.body;
	if (!body) return false;
	const style = window.getComputedStyle(body);
	if (style.display === "none" || style.visibility === "hidden") return false;
	if (body.offsetHeight < 100) return false;
	const hasText = body.innerText && body.innerText.trim().length > 0;
	const hasInteractive = body.querySelector("input, button, a, canvas, img");
	return Boolean(hasText || hasInteractive);
}`

// waitStable implements the rendering stabilization barrier (§4.8): before
// every screenshot, and after every navigation, wait until the body is
// visible, tall enough, and has visible text or an interactive element —
// so a single-page app's blank shell is never screenshotted.
func waitStable(page *rod.Page, budget time.Duration) error {
	deadline := time.Now().Add(budget)
	for {
		obj, err := page.Eval(stabilizationJS)
		if err != nil {
			return fmt.Errorf("browser: evaluate stabilization barrier: %w", err)
		}
		if obj.Value.Bool() {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("browser: page did not stabilize within %s", budget)
		}
		time.Sleep(100 * time.Millisecond)
	}
}
