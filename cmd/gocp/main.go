// Command gocp is a POSIX file-copy utility that prefers Linux
// zero-copy primitives over a userspace read/write loop.
package main

import (
	"os"

	"github.com/gocp/gocp/internal/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
