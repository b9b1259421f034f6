// Command mongoctl exercises the document store dispatcher from the shell.
package main

import (
	"os"

	"github.com/sachtalks/sachtalks-api/internal/config"
	"github.com/sachtalks/sachtalks-api/pkg/logger"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.SetFormat(cfg.Log.Format)
	logger.Init(cfg.Log.Level)
	if err := newRootCmd(cfg).Execute(); err != nil {
		os.Exit(1)
	}
}
