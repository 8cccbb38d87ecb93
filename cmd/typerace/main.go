package main

import "github.com/mcoot/typerace/internal/cli"

func main() {
	cli.Execute()
}
