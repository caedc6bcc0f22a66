// cmd/scell-markers/main.go
package main

import (
	"scell/internal/appshell"
	"scell/internal/markersapp"
)

func main() {
	appshell.Main(markersapp.RunContext)
}
