package main

import (
	"os"

	"github.com/enchung913/career-recommender/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
