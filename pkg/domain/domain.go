package domain

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/zeebo/xxh3"
)

var (
	unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9\-_]`)
	dashRuns    = regexp.MustCompile(`-+`)
)

// GetHost returns the authority of a given URL, user info included, with the
// port separator replaced, so "localhost:3000" becomes "localhost-3000"
func GetHost(u string) (string, error) {
	parsedUrl, err := url.Parse(u)
	if err != nil {
		return "", errors.New("error parsing URL")
	}
	host := parsedUrl.Host
	if parsedUrl.User != nil {
		host = parsedUrl.User.String() + "@" + host
	}
	return strings.ReplaceAll(host, ":", "-"), nil
}

// GetPath returns the URL path as a dash separated slug, "index" for the root.
// The path is taken as written, so "/a%2Fb" and "/a/b" stay distinct.
func GetPath(u string) (string, error) {
	parsedUrl, err := url.Parse(u)
	if err != nil {
		return "", errors.New("error parsing URL")
	}
	raw := parsedUrl.RawPath
	if raw == "" {
		raw = parsedUrl.EscapedPath()
	}
	path := strings.ReplaceAll(strings.Trim(raw, "/"), "/", "-")
	if path == "" {
		path = "index"
	}
	return path, nil
}

// GetDomain returns the host of a given URL without a leading "www."
func GetDomain(u string) (string, error) {
	parsedUrl, err := url.Parse(u)
	if err != nil {
		return "", errors.New("error parsing URL")
	}
	return strings.TrimPrefix(parsedUrl.Host, "www."), nil
}

func IsSameDomain(domain string, u string) bool {
	d, err := GetDomain(u)
	return err == nil && domain == d
}

// QueryHash returns a six digit decimal suffix derived from the raw query string.
// XXH3 is used so the suffix is the same on every run and platform.
func QueryHash(rawQuery string) string {
	return fmt.Sprintf("%06d", xxh3.HashString(rawQuery)%1_000_000)
}

// SanitizeFilename converts a URL into a file system safe base name.
func SanitizeFilename(u string) string {
	parsedUrl, err := url.Parse(u)
	if err != nil {
		// Not a URL at all; still produce something usable.
		if i := strings.Index(u, "://"); i >= 0 {
			u = u[i+len("://"):]
		}
		return cleanup(u)
	}

	host, _ := GetHost(u)
	path, _ := GetPath(u)

	if parsedUrl.RawQuery != "" {
		path = path + "-" + QueryHash(parsedUrl.RawQuery)
	}

	filename := host
	if path != "index" {
		filename = host + "-" + path
	}
	return cleanup(filename)
}

func cleanup(name string) string {
	name = unsafeChars.ReplaceAllString(name, "-")
	name = dashRuns.ReplaceAllString(name, "-")
	return strings.Trim(name, "-")
}

// ContentHash returns the first 12 hex characters of the MD5 digest of a file.
// A missing file hashes to the empty string.
func ContentHash(filepath string) (string, error) {
	file, err := os.Open(filepath)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	defer file.Close()

	h := md5.New()
	if _, err := io.Copy(h, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil))[:12], nil
}
