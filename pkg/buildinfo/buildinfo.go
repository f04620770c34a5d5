// Package buildinfo reports the version of the breeze binary.
package buildinfo

import (
	"encoding/json"
	"net/http"
	"runtime"
	"runtime/debug"
)

// Set at build time via ldflags:
// -X github.com/otherjamesbrown/breeze-cli/pkg/buildinfo.Version=v0.3.0
// -X github.com/otherjamesbrown/breeze-cli/pkg/buildinfo.Commit=4f1c2d9
// -X github.com/otherjamesbrown/breeze-cli/pkg/buildinfo.BuildTime=2026-10-01T12:00:00Z
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// Info holds build information.
type Info struct {
	ServiceName string `json:"service_name" yaml:"service_name"`
	Version     string `json:"version" yaml:"version"`
	Commit      string `json:"commit" yaml:"commit"`
	BuildTime   string `json:"build_time" yaml:"build_time"`
	GoVersion   string `json:"go_version" yaml:"go_version"`
	Platform    string `json:"platform" yaml:"platform"`
}

// readBuildInfo is swapped in tests.
var readBuildInfo = debug.ReadBuildInfo

// Get returns build info for serviceName. When the binary was built without
// ldflags, the commit and build time come from the embedded VCS settings.
func Get(serviceName string) Info {
	info := Info{
		ServiceName: serviceName,
		Version:     Version,
		Commit:      Commit,
		BuildTime:   BuildTime,
		GoVersion:   runtime.Version(),
		Platform:    runtime.GOOS + "/" + runtime.GOARCH,
	}

	if info.Commit == "unknown" || info.BuildTime == "unknown" {
		if bi, ok := readBuildInfo(); ok {
			for _, s := range bi.Settings {
				switch s.Key {
				case "vcs.revision":
					if info.Commit == "unknown" && len(s.Value) >= 7 {
						info.Commit = s.Value[:7]
					}
				case "vcs.time":
					if info.BuildTime == "unknown" {
						info.BuildTime = s.Value
					}
				}
			}
		}
	}
	return info
}

// String returns a one-liner like "v0.3.0 (4f1c2d9, 2026-10-01T12:00:00Z)".
func String() string {
	info := Get("")
	return info.Version + " (" + info.Commit + ", " + info.BuildTime + ")"
}

// Handler serves build info as JSON.
func Handler(serviceName string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Get(serviceName))
	}
}
