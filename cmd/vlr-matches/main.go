package main

import "github.com/pfrederiksen/vlr-matches/internal/cli"

func main() {
	cli.Execute()
}
