package main

import "github.com/tbourn/hoststand/internal/cli"

func main() {
	cli.Execute()
}
