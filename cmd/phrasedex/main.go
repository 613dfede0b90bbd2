package main

import "phrasedex/internal/cli"

func main() {
	cli.Execute()
}
