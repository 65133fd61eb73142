package processors

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJobContent_PrefersJobContainer(t *testing.T) {
	description := strings.Repeat("You will design and operate high-throughput APIs in Go. ", 5)
	html := `<!DOCTYPE html><html><head><title>Backend Engineer - Acme Co</title>
<script>window.tracking = true;</script><style>body{}</style></head>
<body>
  <nav><a href="/">Home</a><a href="/jobs">Jobs</a></nav>
  <div class="job-description">
    <h1>Backend Engineer</h1>
    <p>` + description + `</p>
    <ul><li>Go</li><li>PostgreSQL</li></ul>
  </div>
  <footer>Copyright Acme Co</footer>
</body></html>`

	text, err := NewHTMLCleaner().ExtractJobContent(html)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(text, "Backend Engineer - Acme Co\nBackend Engineer\n"))
	assert.Contains(t, text, "high-throughput APIs")
	assert.Contains(t, text, "Go\nPostgreSQL")
	assert.NotContains(t, text, "tracking")
	assert.NotContains(t, text, "Copyright")
	assert.NotContains(t, text, "Home")
}

func TestExtractJobContent_FallsBackToBody(t *testing.T) {
	html := `<html><body><div><span>Short posting</span></div><p>Please enable JavaScript to continue.</p></body></html>`

	text, err := NewHTMLCleaner().ExtractJobContent(html)
	require.NoError(t, err)
	assert.Equal(t, "Short posting", text)
}

func TestLooksLikeHTML(t *testing.T) {
	assert.True(t, LooksLikeHTML("<!DOCTYPE html><html></html>"))
	assert.True(t, LooksLikeHTML("  <div class=\"x\">hello</div>"))
	assert.False(t, LooksLikeHTML("# Backend Engineer\n\nAcme Co is hiring."))
	assert.False(t, LooksLikeHTML("Use a <T> generic parameter"))
}
