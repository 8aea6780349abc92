package htmlcodec

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	nodes, err := Decode(`<p>Hi <b>there</b></p>`)
	require.NoError(t, err)
	require.Len(t, nodes, 2)

	assert.Equal(t, "Hi", nodes[0].Text)
	assert.Equal(t, "p", nodes[0].ParentTag)
	assert.Equal(t, "there", nodes[1].Text)
	assert.Equal(t, "b", nodes[1].ParentTag)
}

func TestDecodeSkipsWhitespaceAndScripts(t *testing.T) {
	nodes, err := Decode("<div>\n  <p>text</p>\n  <script>var x = 1;</script>\n</div>")
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "text", nodes[0].Text)
}

func TestDecodeCapturesAttributes(t *testing.T) {
	nodes, err := Decode(`<a href="/about" class="nav">About us</a>`)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "a", nodes[0].ParentTag)
	assert.Equal(t, "/about", nodes[0].ParentAttrs["href"])
}

func TestEncodeReplacesTextRuns(t *testing.T) {
	out, err := Encode(`<p>Hi <b>there</b></p>`, map[string]string{
		"Hi":    "Bonjour",
		"there": "toi",
	})
	require.NoError(t, err)
	assert.Equal(t, `<p>Bonjour <b>toi</b></p>`, out)
}

func TestEncodeKeepsInterWordWhitespace(t *testing.T) {
	// Text nodes carry the whitespace that separates adjacent inline
	// elements; replacement must not swallow it.
	out, err := Encode("<p>Hello <b>world</b> again</p>\n<p>\n  indented\n</p>", map[string]string{
		"Hello":    "Hallo",
		"world":    "Welt",
		"again":    "nochmal",
		"indented": "eingerückt",
	})
	require.NoError(t, err)
	assert.Equal(t, "<p>Hallo <b>Welt</b> nochmal</p>\n<p>\n  eingerückt\n</p>", out)
}

func TestEncodeIdentityRoundTrip(t *testing.T) {
	originals := []string{
		`<p>Hi <b>there</b></p>`,
		`<div class="rich"><h1>Title</h1><p>Body text with <a href="/x">a link</a>.</p></div>`,
		`<ul><li>one</li><li>two</li></ul>`,
	}

	for _, original := range originals {
		nodes, err := Decode(original)
		require.NoError(t, err)

		identity := make(map[string]string, len(nodes))
		for _, n := range nodes {
			identity[n.Text] = n.Text
		}

		out, err := Encode(original, identity)
		require.NoError(t, err)
		assert.Equal(t, original, out)
	}
}

func TestEncodePartialTranslations(t *testing.T) {
	// Untranslated runs keep their original text.
	out, err := Encode(`<p>keep <b>change</b></p>`, map[string]string{"change": "geändert"})
	require.NoError(t, err)
	assert.Contains(t, out, "keep")
	assert.Contains(t, out, "geändert")
}

func TestEncodeIdenticalRunsShareTranslation(t *testing.T) {
	out, err := Encode(`<p>same</p><div>same</div>`, map[string]string{"same": "pareil"})
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "pareil"))
}

func TestStructure(t *testing.T) {
	assert.Equal(t, []string{"p", "b"}, Structure(`<p>Hi <b>there</b></p>`))
}

func TestSanitize(t *testing.T) {
	t.Run("strips script and style", func(t *testing.T) {
		out := Sanitize(`<p>ok</p><script>evil()</script><style>.x{}</style>`, 0)
		assert.Equal(t, "<p>ok</p>", out)
	})

	t.Run("truncates plain text", func(t *testing.T) {
		assert.Equal(t, "abc", Sanitize("abcdef", 3))
	})
}
