package logger

import "net/url"

// RedactURL hides the password in a broker or endpoint URL before it is logged.
// Unparseable input is returned unchanged.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	if _, hasPassword := u.User.Password(); hasPassword {
		u.User = url.UserPassword(u.User.Username(), "REDACTED")
	}
	return u.String()
}
