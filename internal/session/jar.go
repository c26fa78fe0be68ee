package session

import (
	"net/http"
	"net/url"
	"sort"
	"sync"
	"time"
)

// StoredCookie is the persisted form of a backend cookie.
type StoredCookie struct {
	Name    string    `json:"name"`
	Value   string    `json:"value"`
	Expires time.Time `json:"expires"`
}

// Jar holds the backend cookies of one session. The console only ever talks
// to a single backend origin, so cookies are keyed by name alone and sent on
// every request.
type Jar struct {
	mu      sync.Mutex
	cookies map[string]StoredCookie
	dirty   bool
	now     func() time.Time
}

// NewJar returns an empty jar.
func NewJar() *Jar {
	return &Jar{cookies: make(map[string]StoredCookie), now: time.Now}
}

// SetCookies implements http.CookieJar.
func (j *Jar) SetCookies(_ *url.URL, cookies []*http.Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()

	now := j.now()
	for _, c := range cookies {
		expires := c.Expires
		if c.MaxAge > 0 {
			expires = now.Add(time.Duration(c.MaxAge) * time.Second)
		}
		if c.MaxAge < 0 || (!expires.IsZero() && !expires.After(now)) {
			if _, ok := j.cookies[c.Name]; ok {
				delete(j.cookies, c.Name)
				j.dirty = true
			}
			continue
		}
		j.cookies[c.Name] = StoredCookie{Name: c.Name, Value: c.Value, Expires: expires}
		j.dirty = true
	}
}

// Cookies implements http.CookieJar.
func (j *Jar) Cookies(_ *url.URL) []*http.Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()

	now := j.now()
	out := make([]*http.Cookie, 0, len(j.cookies))
	for _, c := range j.cookies {
		if !c.Expires.IsZero() && !c.Expires.After(now) {
			continue
		}
		out = append(out, &http.Cookie{Name: c.Name, Value: c.Value})
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Name < out[b].Name })
	return out
}

// Dirty reports whether the jar changed since the last Snapshot.
func (j *Jar) Dirty() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.dirty
}

// Snapshot returns the stored cookies and marks the jar clean.
func (j *Jar) Snapshot() []StoredCookie {
	j.mu.Lock()
	defer j.mu.Unlock()

	out := make([]StoredCookie, 0, len(j.cookies))
	for _, c := range j.cookies {
		out = append(out, c)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Name < out[b].Name })
	j.dirty = false
	return out
}

// MarkDirty flags the jar for the next save, e.g. after a failed write.
func (j *Jar) MarkDirty() {
	j.mu.Lock()
	j.dirty = true
	j.mu.Unlock()
}

// Restore replaces the jar contents with persisted cookies.
func (j *Jar) Restore(cookies []StoredCookie) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.cookies = make(map[string]StoredCookie, len(cookies))
	for _, c := range cookies {
		j.cookies[c.Name] = c
	}
	j.dirty = false
}
