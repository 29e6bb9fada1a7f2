package htmltrack

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/relaypost/relaypost/pkg/crypto"
)

var (
	anchorRe    = regexp.MustCompile(`(?i)<a\s+([^>]*?)href=["']([^"']+)["']([^>]*)>`)
	bodyCloseRe = regexp.MustCompile(`(?i)</body>`)
)

// URLs containing any of these fragments are never rewritten. Unsubscribe
// and opt-out links must keep their original target, and mailto/tel/anchor
// links are not HTTP destinations.
var excludedFragments = []string{"unsubscribe", "optout", "mailto:", "tel:", "#"}

// Link is one rewritten anchor target. Identical URLs within a message
// share a single tracking ID.
type Link struct {
	TrackingID  string `json:"trackingId"`
	OriginalURL string `json:"originalUrl"`
	TrackingURL string `json:"trackingUrl"`
}

// Result is the output of one rewrite pass.
type Result struct {
	ModifiedHTML   string `json:"modifiedHtml"`
	OpenTrackingID string `json:"openTrackingId"`
	Links          []Link `json:"links"`
}

// Rewriter rewrites anchor hrefs to click-redirect URLs and injects an
// open-tracking pixel.
type Rewriter struct {
	baseURL     string
	trackOpens  bool
	trackClicks bool

	// newID is swappable in tests.
	newID func() string
}

// NewRewriter creates a Rewriter serving tracking URLs from baseURL
// (no trailing slash).
func NewRewriter(baseURL string, trackOpens, trackClicks bool) *Rewriter {
	return &Rewriter{
		baseURL:     strings.TrimRight(baseURL, "/"),
		trackOpens:  trackOpens,
		trackClicks: trackClicks,
		newID:       crypto.NewTrackingID,
	}
}

// Rewrite processes one HTML body. Click rewriting allocates at most one
// tracking ID per distinct original URL; the open pixel is injected
// immediately before the first </body>, or appended when none exists.
func (r *Rewriter) Rewrite(html string) *Result {
	result := &Result{ModifiedHTML: html, Links: []Link{}}

	if r.trackClicks {
		byURL := make(map[string]string)
		result.ModifiedHTML = anchorRe.ReplaceAllStringFunc(result.ModifiedHTML, func(tag string) string {
			m := anchorRe.FindStringSubmatch(tag)
			originalURL := m[2]
			if isExcluded(originalURL) {
				return tag
			}

			id, seen := byURL[originalURL]
			if !seen {
				id = r.newID()
				byURL[originalURL] = id
				result.Links = append(result.Links, Link{
					TrackingID:  id,
					OriginalURL: originalURL,
					TrackingURL: fmt.Sprintf("%s/t/c/%s", r.baseURL, id),
				})
			}

			return fmt.Sprintf(`<a %shref="%s/t/c/%s"%s>`, m[1], r.baseURL, id, m[3])
		})
	}

	if r.trackOpens {
		result.OpenTrackingID = r.newID()
		pixel := fmt.Sprintf(
			`<img src="%s/t/o/%s" width="1" height="1" alt="" style="display:none;width:1px;height:1px;border:0;" />`,
			r.baseURL, result.OpenTrackingID,
		)
		if loc := bodyCloseRe.FindStringIndex(result.ModifiedHTML); loc != nil {
			result.ModifiedHTML = result.ModifiedHTML[:loc[0]] + pixel + result.ModifiedHTML[loc[0]:]
		} else {
			result.ModifiedHTML += pixel
		}
	}

	return result
}

func isExcluded(url string) bool {
	lower := strings.ToLower(url)
	for _, fragment := range excludedFragments {
		if strings.Contains(lower, fragment) {
			return true
		}
	}
	return false
}
