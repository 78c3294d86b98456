package main

import "github.com/refereat/refereat-server/internal/cli"

func main() {
	cli.Execute()
}
