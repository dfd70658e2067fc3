package security

import (
	"io"
	"log/slog"

	"github.com/calliperhq/calliper/internal/logger"
	"github.com/calliperhq/calliper/theme"
)

func createTestLogger() *logger.StyledLogger {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return logger.NewStyledLogger(log, theme.Default())
}
