package htmlcodec

import (
	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
)

// ContextMarkdown renders a rich-text fragment as markdown. The rendering is
// attached to fragment translation prompts so the provider sees the
// surrounding document text, not only the isolated run.
func ContextMarkdown(fragment string) string {
	md, err := htmltomarkdown.ConvertString(fragment)
	if err != nil {
		return ""
	}
	return md
}
