package main

import "github.com/angelospk/tmdbimporter/cmd/cli/cmd"

func main() {
	cmd.Execute()
}
