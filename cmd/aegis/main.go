package main

import "github.com/tranvd/aegis/internal/cli"

func main() {
	cli.Execute()
}
