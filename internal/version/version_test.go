package version

import (
	"testing"

	"github.com/fatih/color"
)

func TestBanner(t *testing.T) {
	saved := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = saved }()

	origVersion, origCommit, origDate := Version, GitCommit, BuildDate
	defer func() { Version, GitCommit, BuildDate = origVersion, origCommit, origDate }()

	Version, GitCommit, BuildDate = "1.2.3-rc.1", "abc123", "2026-01-15"
	if got := Banner(); got != "ember 1.2.3-rc.1 (abc123) built 2026-01-15" {
		t.Fatalf("Banner() = %q", got)
	}
	GitCommit, BuildDate = "", ""
	if got := Banner(); got != "ember 1.2.3-rc.1" {
		t.Fatalf("Banner() = %q", got)
	}
}

func TestColoredKeepsOddVersions(t *testing.T) {
	orig := Version
	defer func() { Version = orig }()
	Version = "nightly"
	if got := Colored(); got != "nightly" {
		t.Fatalf("Colored() = %q", got)
	}
}
