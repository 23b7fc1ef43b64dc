// CLAUDE:SUMMARY Page identity keys: origin + path with lowercased scheme/host and default ports stripped; query and fragment never participate.
// CLAUDE:EXPORTS FromURL, Collection, Annotations, Picks
package pagekey

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrBadURL is returned for input that cannot identify a page.
var ErrBadURL = errors.New("pagekey: invalid page url")

// Collection kinds. Each page gets one collection per kind, stored and
// replaced as a whole.
const (
	KindAnnotations = "annotations"
	KindPicks       = "picks"
)

// FromURL derives the page identity key from a page URL: origin plus
// path. Scheme and host are lowercased and default ports dropped, so
// cosmetic URL variants of the same page share one key. Query string
// and fragment are ignored: annotations belong to the document, not to
// one particular view of it. An empty path becomes "/".
//
// Non-HTTP schemes (file, about) are kept verbatim apart from scheme
// lowercasing, since they carry no host/port conventions to normalize.
func FromURL(raw string) (string, error) {
	if raw == "" {
		return "", fmt.Errorf("%w: empty", ErrBadURL)
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadURL, err)
	}
	scheme := strings.ToLower(parsed.Scheme)
	if scheme == "" {
		return "", fmt.Errorf("%w: missing scheme in %q", ErrBadURL, raw)
	}

	if scheme != "http" && scheme != "https" {
		return scheme + "://" + parsed.Host + parsed.Path, nil
	}

	if parsed.Host == "" {
		return "", fmt.Errorf("%w: missing host in %q", ErrBadURL, raw)
	}
	host := strings.ToLower(parsed.Hostname())
	switch port := parsed.Port(); {
	case port == "":
	case scheme == "http" && port == "80":
	case scheme == "https" && port == "443":
	default:
		host += ":" + port
	}

	path := parsed.Path
	if path == "" {
		path = "/"
	}
	return scheme + "://" + host + path, nil
}

// Collection names the stored collection of a given kind for a page.
func Collection(kind, key string) string {
	return kind + ":" + key
}

// Annotations names the page's annotation collection.
func Annotations(key string) string {
	return Collection(KindAnnotations, key)
}

// Picks names the page's element-pick collection.
func Picks(key string) string {
	return Collection(KindPicks, key)
}
