package version

// Flag contains extra info about the version. It is helpul for tracking
// versions while developing. It should always by empty on the master branch.
// This will be inforced in a continuous integration test.
const Flag = "develop"

var (
	// Version is The full version string
	Version = "0.1.0"

	// GitCommit is set with --ldflags "-X github.com/mosaicnetworks/maelnode/src/version.GitCommit=$(git rev-parse HEAD)"
	GitCommit string
)

func init() {
	Version = FullVersion(Version, Flag, GitCommit)
}

// FullVersion appends the flag and the short commit hash, when present, to
// a base version.
func FullVersion(base, flag, commit string) string {
	v := base

	if flag != "" {
		v += "-" + flag
	}

	if len(commit) > 8 {
		commit = commit[:8]
	}
	if commit != "" {
		v += "-" + commit
	}

	return v
}
