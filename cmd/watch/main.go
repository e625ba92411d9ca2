package main

import (
	"log/slog"

	"github.com/Hayato040404/Watch/internal/cli"
	"github.com/Hayato040404/Watch/internal/logging"
)

func main() {
	// Keep the terminal UI clean unless LOG_LEVEL says otherwise.
	logging.Init(slog.LevelWarn)
	cli.Execute()
}
