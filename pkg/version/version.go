// Package version exposes build metadata for the migration engine.
package version

import (
	"fmt"
	"runtime"
)

// Injected at link time, for example:
//
//	go build -ldflags "-X github.com/schemashift/migrate/pkg/version.Version=v1.2.0 \
//	  -X github.com/schemashift/migrate/pkg/version.GitHash=$(git rev-parse --short HEAD) \
//	  -X github.com/schemashift/migrate/pkg/version.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
var (
	// Version is the release version of the engine.
	Version = "dev"

	// GitHash is the commit the binary was built from.
	GitHash = ""

	// BuildTime is when the binary was built, in RFC 3339 UTC.
	BuildTime = ""
)

// Info describes one build of the engine.
type Info struct {
	// Version is the release version.
	Version string

	// GitHash is the commit the binary was built from, if stamped.
	GitHash string

	// BuildTime is when the binary was built, if stamped.
	BuildTime string

	// GoVersion is the toolchain the binary was built with.
	GoVersion string
}

// Get returns the build metadata of the running binary.
// It must stay a function: the stamped variables are injected at link
// time, after any package-level composite literal would have been
// evaluated.
func Get() Info {
	return Info{
		Version:   Version,
		GitHash:   GitHash,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
	}
}

// String returns a single-line description suitable for a -version flag.
func (i Info) String() string {
	s := i.Version
	if i.GitHash != "" {
		s = fmt.Sprintf("%s (%s)", s, i.GitHash)
	}
	if i.BuildTime != "" {
		s = fmt.Sprintf("%s built %s", s, i.BuildTime)
	}
	return fmt.Sprintf("%s %s", s, i.GoVersion)
}
