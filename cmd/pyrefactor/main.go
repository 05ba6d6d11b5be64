// # cmd/pyrefactor/main.go
package main

import (
	"os"

	"pyrefactor/internal/ui/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:]))
}
