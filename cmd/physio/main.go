package main

import "github.com/synheart/synheart-physio/internal/cli"

func main() {
	cli.Execute()
}
