// Package build exposes the version stamped in at link time, falling back to
// the module's vcs metadata.
package build

import "runtime/debug"

// Set with -ldflags "-X github.com/ngutech/lndlink/build.tag=...".
var (
	tag      string
	revision string
)

func GetTag() string {
	if tag != "" {
		return tag
	}

	return "none"
}

func GetRevision() string {
	if revision != "" {
		return revision
	}

	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}

	for _, setting := range buildInfo.Settings {
		if setting.Key == "vcs.revision" {
			revision = setting.Value
			return revision
		}
	}

	return "unknown"
}
