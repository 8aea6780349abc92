package translate

import (
	"strings"

	"github.com/tidwall/gjson"
)

// ParseBatchResponse recovers per-item translations from a provider response
// that was asked to return a JSON array or object. Providers differ in how
// they wrap structured output, so several shapes are tried before falling
// back to line splitting. The returned slice always has want entries; items
// the response did not cover are empty strings.
func ParseBatchResponse(raw string, want int) []string {
	out := make([]string, want)
	raw = strings.TrimSpace(raw)

	// Strip a markdown code fence if the model added one.
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSuffix(strings.TrimSpace(raw), "```")
		raw = strings.TrimSpace(raw)
	}

	if gjson.Valid(raw) {
		parsed := gjson.Parse(raw)

		// {"translations": [{"text": ...}, ...]} or {"translations": ["...", ...]}
		if translations := parsed.Get("translations"); translations.IsArray() {
			fill(out, translations.Array())
			return out
		}
		// Bare array: ["...", ...] or [{"text": ...}, ...]
		if parsed.IsArray() {
			fill(out, parsed.Array())
			return out
		}
	}

	// Fallback: one translation per non-empty line.
	lines := strings.Split(raw, "\n")
	i := 0
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || i >= want {
			continue
		}
		out[i] = line
		i++
	}
	return out
}

func fill(out []string, items []gjson.Result) {
	for i, item := range items {
		if i >= len(out) {
			return
		}
		if text := item.Get("text"); text.Exists() {
			out[i] = text.String()
			continue
		}
		out[i] = item.String()
	}
}
