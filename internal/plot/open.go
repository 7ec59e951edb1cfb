package plot

import (
	"io"

	"github.com/pkg/browser"
)

func init() {
	browser.Stdout = io.Discard
	browser.Stderr = io.Discard
}

// OpenFile shows the file in the system's default viewer.
func OpenFile(path string) error {
	return browser.OpenFile(path)
}
