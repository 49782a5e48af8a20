package main

import "github.com/curzel-it/battld/internal/cli"

func main() {
	cli.Execute()
}
