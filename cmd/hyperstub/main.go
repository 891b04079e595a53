// hyperstub serves a mock HTTP API synthesized from a JSON hyper-schema.
package main

import (
	"os"

	"github.com/getmockd/hyperstub/pkg/cli"
)

func main() {
	os.Exit(cli.Main())
}
