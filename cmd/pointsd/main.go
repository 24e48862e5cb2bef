package main

import "github.com/adsbot-network/pointsd/internal/cli"

func main() {
	cli.Execute()
}
