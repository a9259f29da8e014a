// Package buildinfo holds build metadata injected with -ldflags, e.g.
// -X github.com/garyellow/realestate-linebot-go/internal/buildinfo.Version=v1.2.0
package buildinfo

var (
	Version   = ""
	Commit    = ""
	BuildDate = ""
)

// Release is the identifier reported to error tracking: Version, else the
// short commit, else "dev".
func Release() string {
	switch {
	case Version != "":
		return Version
	case len(Commit) >= 7:
		return Commit[:7]
	case Commit != "":
		return Commit
	default:
		return "dev"
	}
}
