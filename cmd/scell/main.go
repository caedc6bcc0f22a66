// cmd/scell/main.go
package main

import (
	"scell/internal/app"
	"scell/internal/appshell"
)

func main() {
	appshell.Main(app.RunContext)
}
