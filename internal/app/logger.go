package app

import (
	"strings"

	"github.com/Ajsrental/Ajsrental-ajarra-backend/pkg/logger"
)

// ConfigureLogging initialises the global logger with the provided level, defaulting to info.
func ConfigureLogging(level, format string) error {
	level = strings.TrimSpace(level)
	if level == "" {
		level = "info"
	}
	return logger.Init(level, strings.TrimSpace(format))
}
