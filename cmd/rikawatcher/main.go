package main

import (
	"github.com/vincentpoireau/Rika-firenet/internal/cli"
)

func main() {
	cli.Execute()
}
