package main

import "github.com/pairwise-ratings/cmd/cli/cmd"

func main() {
	cmd.Execute()
}
