package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// You can set the version at build time using something like:
// go build -ldflags "-X github.com/voxport/voxport/version.Version=$(git describe --dirty)"

var Version string

// Hash is the short VCS revision the binary was built from, with a -dirty
// suffix for modified trees; empty when the build carries no VCS stamp.
var Hash = func() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		return revision(info.Settings)
	}
	return ""
}()

var VersionOrHash = func() string {
	if Version != "" {
		return Version
	}
	if Hash != "" {
		return Hash
	}
	return "devel"
}()

func revision(settings []debug.BuildSetting) string {
	var rev string
	modified := false
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			rev = s.Value
		case "vcs.modified":
			modified = s.Value == "true"
		}
	}
	if len(rev) > 7 {
		rev = rev[:7]
	}
	if rev != "" && modified {
		rev += "-dirty"
	}
	return rev
}

// Long is the line printed by voxport -v.
func Long() string {
	return fmt.Sprintf("voxport %v (%v %v/%v)", VersionOrHash, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
