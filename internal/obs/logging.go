// Package obs contains observability utilities such as logging.
package obs

import (
	"log/slog"
	"os"
)

// Logger is the structured logger shared across the service. It defaults
// to a JSON handler so the binary logs sanely even before InitLogger runs.
var Logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))

// InitLogger initializes Logger with a JSON handler at the given level.
func InitLogger(level slog.Level) {
	Logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
