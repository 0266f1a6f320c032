package data

// these are set at build time, e.g.
// -ldflags "-X github.com/antonio-alexander/go-employees/internal/data.Version=1.0.0"
var (
	Version   string
	GitCommit string
	GitBranch string
)
