// cmd/scell-inspect/main.go
package main

import (
	"scell/internal/appshell"
	"scell/internal/inspectapp"
)

func main() {
	appshell.Main(inspectapp.RunContext)
}
