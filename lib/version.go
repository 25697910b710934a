package site

import (
	"fmt"
	"runtime/debug"
)

// Build describes the VCS state the binary was built from. Fields are empty
// when the build carried no VCS stamp, as with "go test" or "go run".
type Build struct {
	Revision  string
	Time      string
	Modified  bool
	GoVersion string
}

// ReadBuild extracts the VCS stamp from the running binary.
func ReadBuild() Build {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return Build{}
	}
	return buildFromSettings(bi.GoVersion, bi.Settings)
}

func buildFromSettings(goVersion string, settings []debug.BuildSetting) Build {
	b := Build{GoVersion: goVersion}
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			b.Revision = s.Value
		case "vcs.time":
			b.Time = s.Value
		case "vcs.modified":
			b.Modified = s.Value == "true"
		}
	}
	return b
}

func (b Build) String() string {
	if b.Revision == "" {
		return "(version info unavailable)"
	}
	when := b.Time
	if b.Modified {
		when = "dirty"
	}
	return fmt.Sprintf("built from commit %.8s (%s) using %s", b.Revision, when, b.GoVersion)
}

// VersionInfo is ReadBuild formatted for log lines.
func VersionInfo() string {
	return ReadBuild().String()
}
