package transcript

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	bareIDRE    = regexp.MustCompile(`^[a-zA-Z0-9_-]{11}$`)
	idRE        = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	pathIDRE    = regexp.MustCompile(`^/(?:shorts|embed|live|v)/([a-zA-Z0-9_-]+)`)
	unsafeKeyRE = strings.NewReplacer("?", "_", "&", "_", "/", "_", "\\", "_", ":", "_")
)

// VideoID extracts the YouTube id from a watch URL, a youtu.be link, a /shorts/,
// /embed/ or /live/ path, or a bare 11-character id. ok is false when none is found.
func VideoID(ref string) (id string, ok bool) {
	ref = strings.TrimSpace(ref)
	if bareIDRE.MatchString(ref) {
		return ref, true
	}

	u, err := url.Parse(ref)
	if err == nil && u.Host == "" && !strings.Contains(ref, "://") {
		u, err = url.Parse("https://" + ref)
	}
	if err != nil {
		return "", false
	}

	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	host = strings.TrimPrefix(host, "m.")
	switch host {
	case "youtu.be":
		if candidate := strings.Trim(u.Path, "/"); idRE.MatchString(candidate) {
			return candidate, true
		}
	case "youtube.com", "music.youtube.com", "youtube-nocookie.com":
		if v := u.Query().Get("v"); idRE.MatchString(v) {
			return v, true
		}
		if m := pathIDRE.FindStringSubmatch(u.Path); len(m) == 2 {
			return m[1], true
		}
	}
	return "", false
}

// VideoIdentifier returns the identity used in cache keys: the parsed video id when
// available, else the text after the last "=" with separator characters replaced.
func VideoIdentifier(ref string) string {
	if id, ok := VideoID(ref); ok {
		return id
	}
	trailing := strings.TrimSpace(ref)
	if i := strings.LastIndex(trailing, "="); i >= 0 {
		trailing = trailing[i+1:]
	}
	return unsafeKeyRE.Replace(trailing)
}

// CacheKey names the persisted index for a video and its selected language.
func CacheKey(ref, language string) string {
	return VideoIdentifier(ref) + "_" + language
}
