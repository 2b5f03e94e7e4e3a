package browser

import (
	"encoding/json"
	"fmt"

	"github.com/go-rod/rod"

	"github.com/qaflow/qaflow/pkg/airesolve"
)

const snapshotJS = `() => {
	const nodes = document.querySelectorAll(
		"input:not([type=hidden]), textarea, button, a[href], select, [role], [contenteditable=true]"
	);
	const out = [];
	for (const el of nodes) {
		if (out.length >= %d) break;
		const style = window.getComputedStyle(el);
		if (style.display === "none" || style.visibility === "hidden") continue;
		if (el.disabled) continue;
		const rect = el.getBoundingClientRect();
		if (rect.width === 0 && rect.height === 0) continue;
		out.push({
			tag: el.tagName.toLowerCase(),
			type: el.getAttribute("type") || "",
			role: el.getAttribute("role") || "",
			name: el.getAttribute("name") || el.id || "",
			id: el.id || "",
			placeholder: el.getAttribute("placeholder") || "",
			aria_label: el.getAttribute("aria-label") || "",
			visible_text: (el.innerText || el.value || "").trim().slice(0, 120),
		});
	}
	return out;
}`

type snapshotElement struct {
	Tag         string `json:"tag"`
	Type        string `json:"type"`
	Role        string `json:"role"`
	Name        string `json:"name"`
	ID          string `json:"id"`
	Placeholder string `json:"placeholder"`
	AriaLabel   string `json:"aria_label"`
	VisibleText string `json:"visible_text"`
}

// buildSnapshot projects up to maxElements visible, non-disabled,
// interactive elements into the AI resolver's snapshot shape (§4.8 step 2).
func buildSnapshot(page *rod.Page, maxElements int) ([]airesolve.SnapshotRow, error) {
	if maxElements <= 0 || maxElements > 80 {
		maxElements = 80
	}

	obj, err := page.Eval(fmt.Sprintf(snapshotJS, maxElements))
	if err != nil {
		return nil, fmt.Errorf("browser: build DOM snapshot: %w", err)
	}

	var elements []snapshotElement
	if err := json.Unmarshal([]byte(obj.Value.Raw), &elements); err != nil {
		return nil, fmt.Errorf("browser: decode DOM snapshot: %w", err)
	}

	rows := make([]airesolve.SnapshotRow, 0, len(elements))
	for _, e := range elements {
		name := e.Name
		if name == "" {
			name = e.AriaLabel
		}
		text := e.VisibleText
		if text == "" {
			text = e.Placeholder
		}
		rows = append(rows, airesolve.SnapshotRow{
			ID:   e.ID,
			Tag:  e.Tag,
			Role: e.Role,
			Name: name,
			Text: text,
		})
	}
	return rows, nil
}
