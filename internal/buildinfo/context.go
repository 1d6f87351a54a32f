// Package buildinfo holds build-time metadata, kept apart from user configuration
package buildinfo

import "fmt"

// UnknownValue is reported for metadata that was not set at build time
const UnknownValue = "unknown"

// Context contains metadata injected with -ldflags at build time
type Context struct {
	version   string
	buildDate string
}

// NewContext returns build metadata
func NewContext(version, buildDate string) *Context {
	return &Context{version: version, buildDate: buildDate}
}

// Version returns the version tag, or UnknownValue
func (c *Context) Version() string {
	if c == nil || c.version == "" {
		return UnknownValue
	}
	return c.version
}

// BuildDate returns the build timestamp, or UnknownValue
func (c *Context) BuildDate() string {
	if c == nil || c.buildDate == "" {
		return UnknownValue
	}
	return c.buildDate
}

// String is the line printed by --version
func (c *Context) String() string {
	return fmt.Sprintf("%s (built %s)", c.Version(), c.BuildDate())
}
