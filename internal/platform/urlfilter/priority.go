// internal/platform/urlfilter/priority.go
package urlfilter

import (
	"net/url"
	"path"
	"strings"
)

// Weights scores URL features. Positive means more interesting to the
// scanner rules: parameters, login forms, APIs.
type Weights struct {
	AuthPath      int
	AdminPath     int
	APIPath       int
	UploadPath    int
	HasParameters int // per non-trivial parameter

	StaticAsset   int
	AssetDir      int
	TrackingParam int
	Pagination    int
}

func DefaultWeights() Weights {
	return Weights{
		AuthPath:      350,
		AdminPath:     400,
		APIPath:       300,
		UploadPath:    250,
		HasParameters: 100,

		StaticAsset:   -200,
		AssetDir:      -100,
		TrackingParam: -100,
		Pagination:    -50,
	}
}

var (
	authHints    = []string{"/login", "/signin", "/signup", "/register", "/auth", "/oauth", "/password", "/account"}
	adminHints   = []string{"/admin", "/dashboard", "/console", "/manage", "/wp-admin"}
	apiHints     = []string{"/api/", "/rest/", "/graphql", "/v1/", "/v2/", "/v3/"}
	uploadHints  = []string{"/upload", "/files/", "/attachments/"}
	assetDirs    = []string{"/assets/", "/static/", "/images/", "/img/", "/fonts/", "/media/"}
	staticExts   = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".svg": true, ".ico": true, ".webp": true, ".css": true, ".woff": true, ".woff2": true, ".ttf": true, ".eot": true, ".mp4": true, ".mp3": true, ".pdf": true, ".zip": true}
	trackingKeys = []string{"utm_", "fbclid", "gclid", "_ga", "mc_"}
	pagingKeys   = map[string]bool{"page": true, "offset": true, "limit": true, "per_page": true, "start": true, "sort": true, "order": true}
)

// Scorer assigns a priority to a URL; unparsable URLs get a very low score.
type Scorer struct {
	w Weights
}

func NewScorer(w Weights) *Scorer { return &Scorer{w: w} }

func (s *Scorer) Score(rawURL string) int {
	u, err := url.Parse(rawURL)
	if err != nil {
		return -1000
	}
	p := strings.ToLower(u.Path)
	score := 0

	if containsAny(p, authHints) {
		score += s.w.AuthPath
	}
	if containsAny(p, adminHints) {
		score += s.w.AdminPath
	}
	if containsAny(p+"/", apiHints) {
		score += s.w.APIPath
	}
	if containsAny(p, uploadHints) {
		score += s.w.UploadPath
	}
	if containsAny(p, assetDirs) {
		score += s.w.AssetDir
	}
	if staticExts[path.Ext(p)] {
		score += s.w.StaticAsset
	}

	var tracking, paging bool
	for k := range u.Query() {
		k = strings.ToLower(k)
		switch {
		case hasAnyPrefix(k, trackingKeys):
			tracking = true
		case pagingKeys[k]:
			paging = true
		default:
			score += s.w.HasParameters
		}
	}
	if tracking {
		score += s.w.TrackingParam
	}
	if paging {
		score += s.w.Pagination
	}
	return score
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
