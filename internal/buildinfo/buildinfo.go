// Package buildinfo carries the version stamp shared by the simulator,
// the firmware menu and osdctl.
//
//	go build -ldflags "-X osdkit/internal/buildinfo.Version=v1.2.0 -X osdkit/internal/buildinfo.Commit=$(git rev-parse --short HEAD)"
package buildinfo

// Set at build time via -ldflags; empty values read as unknown.
var (
	Version = "dev"
	Commit  = ""
	Date    = ""
)

// Short returns the release version, or the commit for untagged builds.
// It fits the overlay title row.
func Short() string {
	switch {
	case Version != "" && Version != "dev":
		return Version
	case Commit != "":
		return "dev-" + Commit
	}
	return "dev"
}

// Long adds commit and build date to Short for usage text and logs.
func Long() string {
	s := Short()
	if Commit != "" && Version != "" && Version != "dev" {
		s += " (" + Commit + ")"
	}
	if Date != "" {
		s += " built " + Date
	}
	return s
}
