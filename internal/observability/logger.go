package observability

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/tlvwire/internal/logging"
)

// InitLogger installs the runtime logger tagged with app. level comes from
// the config file; TLVWIRE_LOG_* variables still win.
func InitLogger(app, level string, noColor bool) zerolog.Logger {
	cfg := logging.DefaultConfig(logging.ProfileRuntime)
	cfg.Output = os.Stdout
	if lvl, ok := logging.ParseLevel(level); ok {
		cfg.Level = lvl
	}
	cfg.NoColor = noColor
	logging.ApplyEnvOverrides(&cfg)
	logging.Apply(cfg)

	log.Logger = log.Logger.With().Str("app", app).Logger()
	return log.Logger
}
