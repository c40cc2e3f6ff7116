package util

import (
	"fmt"
	"net/url"
	"strings"
)

type Platform string

const (
	PlatformInstagram Platform = "instagram"
	PlatformYouTube   Platform = "youtube"
)

// DetectPlatform parses a raw URL string and determines if it targets a
// supported platform (Instagram or YouTube). It returns the detected
// platform, the parsed URL, or an error with a clear message if unsupported.
func DetectPlatform(raw string) (Platform, *url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil, fmt.Errorf("url is required")
	}
	u, err := url.Parse(raw)
	if err == nil && (u.Scheme == "" || u.Host == "") {
		if u2, e2 := url.Parse("https://" + raw); e2 == nil {
			u = u2
		}
	}
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", nil, fmt.Errorf("invalid URL %q", raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", nil, fmt.Errorf("invalid URL %q: scheme must be http or https", raw)
	}

	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")

	switch host {
	case "instagram.com", "instagr.am", "m.instagram.com":
		return PlatformInstagram, u, nil
	case "youtube.com", "m.youtube.com", "music.youtube.com", "youtu.be":
		return PlatformYouTube, u, nil
	default:
		return "", nil, fmt.Errorf(
			"unsupported URL %q: only Instagram or YouTube are supported (instagram.com, instagr.am, youtube.com, youtu.be)",
			raw,
		)
	}
}
