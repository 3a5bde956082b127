// Package build holds version information set with -ldflags -X.
package build

import "time"

var (
	commit  = ""
	date    = ""
	version = "dev"
	repoURL = ""
)

var Current Build

func init() {
	date, _ := time.Parse(time.RFC3339, date)

	Current = Build{
		Commit:     commit,
		Version:    version,
		Date:       date,
		RepoURL:    repoURL,
		CommitURL:  "#",
		ReleaseURL: "#",
	}
	if repoURL != "" {
		Current.CommitURL = repoURL + "/tree/" + commit
		Current.ReleaseURL = repoURL + "/releases/tag/" + version
	}
}

type Build struct {
	Commit     string    `json:"commit,omitempty"`
	Version    string    `json:"version"`
	Date       time.Time `json:"date"`
	RepoURL    string    `json:"repo_url,omitempty"`
	CommitURL  string    `json:"commit_url"`
	ReleaseURL string    `json:"release_url"`
}

func (b Build) String() string {
	if b.Commit == "" {
		return b.Version
	}
	short := b.Commit
	if len(short) > 7 {
		short = short[:7]
	}
	return b.Version + " (" + short + ")"
}
