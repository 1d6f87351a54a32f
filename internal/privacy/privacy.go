// Package privacy removes credentials and addresses from camera, broker and
// controller URLs before they leave the process in logs or error reports.
package privacy

import (
	"crypto/sha256"
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strings"
)

// urlPattern finds the URL schemes lanewatch is configured with
var urlPattern = regexp.MustCompile(`\b(?:https?|rtsps?|rtmp|tcp|ssl|mqtts?|wss?)://\S+`)

// ScrubMessage replaces every URL in message by its anonymized form
func ScrubMessage(message string) string {
	return urlPattern.ReplaceAllStringFunc(message, AnonymizeURL)
}

// AnonymizeURL reduces a URL to its scheme, a host category and a short hash
// of the pieces that identify a site. Equal URLs anonymize to equal strings.
func AnonymizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		sum := sha256.Sum256([]byte(raw))
		return fmt.Sprintf("url-%x", sum[:8])
	}

	parts := []string{u.Scheme, hostCategory(u.Hostname())}
	if p := u.Port(); p != "" {
		parts = append(parts, "port-"+p)
	}
	sum := sha256.Sum256([]byte(u.Hostname() + u.EscapedPath()))
	return fmt.Sprintf("%s-%x", strings.Join(parts, "-"), sum[:6])
}

// DisplayURL strips credentials, path and query from a URL, keeping scheme,
// host and port for logs. Values that are not URLs with a host, such as a
// camera index or a device path, are returned unchanged.
func DisplayURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return raw
	}
	return (&url.URL{Scheme: u.Scheme, Host: u.Host}).String()
}

func hostCategory(host string) string {
	if host == "localhost" {
		return "localhost"
	}
	if ip := net.ParseIP(host); ip != nil {
		switch {
		case ip.IsLoopback():
			return "localhost"
		case ip.IsPrivate(), ip.IsLinkLocalUnicast():
			return "private-ip"
		default:
			return "public-ip"
		}
	}
	if i := strings.LastIndexByte(host, '.'); i >= 0 && i < len(host)-1 {
		return "domain-" + host[i+1:]
	}
	return "host"
}
