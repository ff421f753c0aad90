package fetch

import (
	"strings"
	"testing"
)

func TestHTMLToText_StripsScriptAndStyle(t *testing.T) {
	html := `<html><head><style>p{color:red}</style><script>alert(1)</script></head>
<body><noscript>enable js</noscript><p>Visible text</p></body></html>`
	text := HTMLToText(html)
	if !strings.Contains(text, "Visible text") {
		t.Errorf("expected visible text, got %q", text)
	}
	for _, banned := range []string{"alert", "color:red", "enable js"} {
		if strings.Contains(text, banned) {
			t.Errorf("expected %q to be stripped, got %q", banned, text)
		}
	}
}

func TestHTMLToText_DecodesEntities(t *testing.T) {
	text := HTMLToText("<p>Fish &amp; chips &lt;3 &quot;quoted&quot;</p>")
	if text != `Fish & chips <3 "quoted"` {
		t.Errorf("unexpected text: %q", text)
	}
}

func TestHTMLToText_CollapsesWhitespace(t *testing.T) {
	text := HTMLToText("<div>one</div>\n\n  <div>two\t\tthree</div>")
	if text != "one two three" {
		t.Errorf("unexpected text: %q", text)
	}
}
