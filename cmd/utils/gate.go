package utils

import (
	"net/http"
	"net/url"
	"regexp"
	"strings"
)

var staticAsset = regexp.MustCompile(`(?i)\.(html?|css|js|jpe?g|webp|png|gif|svg|ttf|woff2?|ico|csv|docx?|xlsx?|zip|webmanifest)$`)

// IsStaticAsset reports whether path is exempt from session handling.
func IsStaticAsset(path string) bool {
	if strings.HasPrefix(path, "/_next/") {
		return true
	}
	return staticAsset.MatchString(path)
}

// AccessGate redirects session-less requests whose path starts with prefix
// to the sign-in page, passing the original URL back as redirect_url.
// Matching is a plain prefix, so "/admin" also covers "/admin-tools".
func AccessGate(prefix, signInURL string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if IsStaticAsset(r.URL.Path) || !strings.HasPrefix(r.URL.Path, prefix) {
				next.ServeHTTP(w, r)
				return
			}
			if _, ok := ExternalIDFromContext(r.Context()); ok {
				next.ServeHTTP(w, r)
				return
			}
			http.Redirect(w, r, signInRedirect(signInURL, r), http.StatusFound)
		})
	}
}

func signInRedirect(signInURL string, r *http.Request) string {
	back := r.URL.RequestURI()
	if r.Host != "" {
		scheme := "http"
		if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
			scheme = "https"
		}
		back = scheme + "://" + r.Host + back
	}

	u, err := url.Parse(signInURL)
	if err != nil {
		return signInURL
	}
	q := u.Query()
	q.Set("redirect_url", back)
	u.RawQuery = q.Encode()
	return u.String()
}
