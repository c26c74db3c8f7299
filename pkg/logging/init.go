package logging

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/lmittmann/tint"
)

const (
	JSON = "json"
	Text = "text"
	Tint = "tint"
)

// Initialize installs the default slog handler. Output goes to w
// (stderr in the binary) so stdout stays clean for tooling.
func Initialize(w io.Writer, loggingType string, logLevelName string) error {
	var logLevel slog.Level
	err := logLevel.UnmarshalText([]byte(logLevelName))
	if err != nil {
		return fmt.Errorf("could not parse log level: %v", err)
	}

	var logHandler slog.Handler

	switch loggingType {
	case JSON:
		logHandler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: logLevel})
	case Text:
		logHandler = slog.NewTextHandler(w, &slog.HandlerOptions{Level: logLevel})
	case Tint:
		logHandler = tint.NewHandler(w, &tint.Options{
			Level:      logLevel,
			TimeFormat: time.RFC3339,
		})
	default:
		return fmt.Errorf("unknown logging type: %s", loggingType)
	}

	slog.SetDefault(slog.New(logHandler))
	return nil
}
