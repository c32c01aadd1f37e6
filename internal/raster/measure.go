package raster

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// measureFunc returns the document box of the element with the given id
// and the boxes of the anchors inside it, as a JSON string.
const measureFunc = `function (id) {
	const el = document.getElementById(id);
	if (!el) {
		return JSON.stringify({ found: false });
	}
	const r = el.getBoundingClientRect();
	const links = Array.from(el.querySelectorAll('a[href]')).map((a) => {
		const b = a.getBoundingClientRect();
		return { href: a.href, x: b.left - r.left, y: b.top - r.top, width: b.width, height: b.height };
	}).filter((l) => l.width > 0 && l.height > 0);
	return JSON.stringify({
		found: true,
		x: r.left + window.scrollX,
		y: r.top + window.scrollY,
		width: r.width,
		height: Math.max(r.height, el.scrollHeight),
		links: links,
	});
}`

// measureExpression applies measureFunc to id as a standalone expression.
func measureExpression(id string) string {
	return "(" + measureFunc + ")(" + strconv.Quote(id) + ")"
}

func parseMeasurement(raw string) (measurement, error) {
	var m measurement
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return measurement{}, fmt.Errorf("decoding measurement: %w", err)
	}
	return m, nil
}
