package session

import (
	"net/http"
	"net/url"
)

// CookieMirror keeps a copy of the access token in a cookie so requests the
// interceptor does not see (plain form posts, redirects) still carry it.
type CookieMirror interface {
	Set(token string)
	Clear()
}

// JarMirror writes the token cookie into an http.CookieJar for one origin.
type JarMirror struct {
	jar    http.CookieJar
	origin *url.URL
	name   string
}

func NewJarMirror(jar http.CookieJar, origin *url.URL, name string) *JarMirror {
	return &JarMirror{
		jar:    jar,
		origin: &url.URL{Scheme: origin.Scheme, Host: origin.Host, Path: "/"},
		name:   name,
	}
}

func (j *JarMirror) Set(token string) {
	j.jar.SetCookies(j.origin, []*http.Cookie{{
		Name:     j.name,
		Value:    token,
		Path:     "/",
		SameSite: http.SameSiteStrictMode,
	}})
}

// Clear expires the cookie.
func (j *JarMirror) Clear() {
	j.jar.SetCookies(j.origin, []*http.Cookie{{
		Name:     j.name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		SameSite: http.SameSiteStrictMode,
	}})
}

// Value returns the cookie as the jar would send it, or "".
func (j *JarMirror) Value() string {
	for _, c := range j.jar.Cookies(j.origin) {
		if c.Name == j.name {
			return c.Value
		}
	}
	return ""
}

type noopMirror struct{}

func (noopMirror) Set(string) {}
func (noopMirror) Clear()     {}
