package main

import (
	"os"

	cmd "github.com/tunevault/tunevault/internal"
	"github.com/tunevault/tunevault/internal/logger"
)

func main() {
	if err := cmd.Execute(); err != nil {
		logger.LogError(err.Error())
		os.Exit(1)
	}
}
