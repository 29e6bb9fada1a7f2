package htmltrack

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRewriter(trackOpens, trackClicks bool) *Rewriter {
	r := NewRewriter("https://t.example.com", trackOpens, trackClicks)
	seq := 0
	r.newID = func() string {
		seq++
		return fmt.Sprintf("id%022d", seq)
	}
	return r
}

func TestRewrite_ClickLinks(t *testing.T) {
	r := newTestRewriter(false, true)

	html := `<body><a href="https://a.example.com/page">A</a> <a class="x" href='https://b.example.com'>B</a></body>`
	result := r.Rewrite(html)

	require.Len(t, result.Links, 2)
	assert.Equal(t, "https://a.example.com/page", result.Links[0].OriginalURL)
	assert.Equal(t, "https://t.example.com/t/c/"+result.Links[0].TrackingID, result.Links[0].TrackingURL)
	assert.Contains(t, result.ModifiedHTML, `href="https://t.example.com/t/c/`+result.Links[0].TrackingID+`"`)
	assert.Contains(t, result.ModifiedHTML, `class="x"`)
	assert.NotContains(t, result.ModifiedHTML, `href="https://a.example.com/page"`)
}

func TestRewrite_DuplicateURLsShareOneID(t *testing.T) {
	r := newTestRewriter(false, true)

	html := `<a href="https://a.example.com">one</a><a href="https://a.example.com">two</a>`
	result := r.Rewrite(html)

	require.Len(t, result.Links, 1)
	assert.Equal(t, 2, strings.Count(result.ModifiedHTML, result.Links[0].TrackingID))
}

func TestRewrite_Exclusions(t *testing.T) {
	r := newTestRewriter(false, true)

	for _, url := range []string{
		"https://example.com/unsubscribe?u=1",
		"https://example.com/OptOut",
		"mailto:support@example.com",
		"tel:+15551234567",
		"https://example.com/page#section",
	} {
		html := fmt.Sprintf(`<a href="%s">x</a>`, url)
		result := r.Rewrite(html)
		assert.Empty(t, result.Links, url)
		assert.Equal(t, html, result.ModifiedHTML, url)
	}
}

func TestRewrite_OpenPixelBeforeBodyClose(t *testing.T) {
	r := newTestRewriter(true, false)

	result := r.Rewrite(`<html><body><p>hi</p></body></html>`)
	require.NotEmpty(t, result.OpenTrackingID)

	pixelURL := "https://t.example.com/t/o/" + result.OpenTrackingID
	assert.Contains(t, result.ModifiedHTML, pixelURL)
	assert.True(t, strings.Index(result.ModifiedHTML, pixelURL) < strings.Index(result.ModifiedHTML, "</body>"))
}

func TestRewrite_OpenPixelAppendedWithoutBody(t *testing.T) {
	r := newTestRewriter(true, false)

	result := r.Rewrite(`<p>hi</p>`)
	assert.True(t, strings.HasSuffix(result.ModifiedHTML, `border:0;" />`))
	assert.Contains(t, result.ModifiedHTML, result.OpenTrackingID)
}

func TestRewrite_CaseInsensitiveAnchorsAndBody(t *testing.T) {
	r := newTestRewriter(true, true)

	result := r.Rewrite(`<BODY><A HREF="https://a.example.com">x</A></BODY>`)
	require.Len(t, result.Links, 1)
	assert.True(t, strings.Index(result.ModifiedHTML, "/t/o/") < strings.Index(result.ModifiedHTML, "</BODY>"))
}

func TestRewrite_Disabled(t *testing.T) {
	r := newTestRewriter(false, false)

	html := `<body><a href="https://a.example.com">x</a></body>`
	result := r.Rewrite(html)
	assert.Equal(t, html, result.ModifiedHTML)
	assert.Empty(t, result.OpenTrackingID)
	assert.Empty(t, result.Links)
}
