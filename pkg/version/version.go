package version

var (
	// Version is set at build time via -ldflags.
	Version = "dev"
	// GitCommit is set at build time via -ldflags.
	GitCommit = "unknown"
	// BuildDate is set at build time via -ldflags.
	BuildDate = "unknown"
)

type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"gitCommit"`
	BuildDate string `json:"buildDate"`
}

// GetVersion returns the build version info.
func GetVersion() Info {
	return Info{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
	}
}
