package markup

import (
	"math/rand"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRender(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"bold", "**hi** there", "<p><strong>hi</strong> there</p>"},
		{"star italic", "*it*", "<p><em>it</em></p>"},
		{"two italics", "*a* *b*", "<p><em>a</em> <em>b</em></p>"},
		{"underscore and star", "_it_ and *this*", "<p><em>it</em> and <em>this</em></p>"},
		{"code keeps escaped body", "`x < y`", "<p><code>x &lt; y</code></p>"},
		{"ampersand", "a & b", "<p>a &amp; b</p>"},
		{"headings", "# Title\n## Sub\n###### Six\nbody", "<p><h1>Title</h1><br/><h2>Sub</h2><br/><h6>Six</h6><br/>body</p>"},
		{"seven markers stay literal", "####### seven", "<p>####### seven</p>"},
		{"heading needs space", "#tag", "<p>#tag</p>"},
		{"paragraphs", "one\n\n\ntwo\nthree", "<p>one</p><p>two<br/>three</p>"},
		{"unbalanced bold", "**bold", "<p>**bold</p>"},
		{"lone star", "a*b", "<p>a*b</p>"},
		{"unbalanced backtick", "`open", "<p>`open</p>"},
		{"empty", "", "<p></p>"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Render(tc.in))
		})
	}
}

func TestRenderEscapesScript(t *testing.T) {
	out := Render("<script>alert('x')</script> **bold**")
	assert.NotContains(t, out, "<script>")
	assert.Equal(t, "<p>&lt;script&gt;alert('x')&lt;/script&gt; <strong>bold</strong></p>", out)
}

func TestRenderPlainTextOnlyWrapped(t *testing.T) {
	for _, text := range []string{"plain text here", "What is 2 + 2?", "it's fine"} {
		assert.Equal(t, "<p>"+text+"</p>", Render(text))
	}
}

var synthesizedTags = regexp.MustCompile(`</?(?:strong|em|code|p|h[1-6])>|<br/>`)

func TestRenderNeverLeaksRawMarkup(t *testing.T) {
	alphabet := []string{"<", ">", "&", "*", "**", "_", "`", "#", "# ", "\n", "\n\n", "a", "b", " ", "script", "/", "amp;"}
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 2000; i++ {
		var b strings.Builder
		for j := rng.Intn(24); j >= 0; j-- {
			b.WriteString(alphabet[rng.Intn(len(alphabet))])
		}
		raw := b.String()
		out := synthesizedTags.ReplaceAllString(Render(raw), "")

		if strings.ContainsAny(out, "<>") {
			t.Fatalf("unescaped angle bracket for input %q: %q", raw, out)
		}
		for idx := strings.IndexByte(out, '&'); idx >= 0; idx = nextAmp(out, idx) {
			rest := out[idx:]
			if !strings.HasPrefix(rest, "&amp;") && !strings.HasPrefix(rest, "&lt;") && !strings.HasPrefix(rest, "&gt;") {
				t.Fatalf("bare ampersand for input %q: %q", raw, out)
			}
		}
	}
}

func nextAmp(s string, from int) int {
	next := strings.IndexByte(s[from+1:], '&')
	if next < 0 {
		return -1
	}
	return from + 1 + next
}
