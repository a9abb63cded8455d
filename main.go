package main

import (
	"os"

	"github.com/wenzapen/scraper/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
