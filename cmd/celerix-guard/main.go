package main

import "github.com/celerix-dev/celerix-guard/cmd/celerix-guard/cmd"

func main() {
	cmd.Execute()
}
