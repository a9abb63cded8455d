package version

import (
	"fmt"
	"io"
)

// Set at build time with -ldflags "-X github.com/wenzapen/scraper/version.Version=...".
var (
	BuildTS   = "None"
	GitHash   = "None"
	GitBranch = "None"
	Version   = "None"
)

func GetVersion() string {
	if GitHash != "" && GitHash != "None" {
		h := GitHash
		if len(h) > 7 {
			h = h[:7]
		}
		return fmt.Sprintf("%s-%s", Version, h)
	}
	return Version
}

func Printer(w io.Writer) {
	fmt.Fprintln(w, "Version:          ", GetVersion())
	fmt.Fprintln(w, "Git Branch:       ", GitBranch)
	fmt.Fprintln(w, "Git Hash:         ", GitHash)
	fmt.Fprintln(w, "Build Time (UTC): ", BuildTS)
}
