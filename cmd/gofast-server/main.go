package main

import "github.com/gofast-io/gofast-server/internal/cli"

func main() {
	cli.Execute()
}
