package logging_test

import (
	"bytes"
	"testing"

	"github.com/jrsteele09/go-jwt-session/internal/logging"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/require"
)

func TestSetup(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.TraceLevel) })

	t.Run("level filters", func(t *testing.T) {
		var buf bytes.Buffer
		logging.Setup("warn", &buf)

		log.Info().Msg("hidden")
		log.Warn().Msg("shown")

		require.NotContains(t, buf.String(), "hidden")
		require.Contains(t, buf.String(), "shown")
	})

	t.Run("unknown level falls back to info", func(t *testing.T) {
		var buf bytes.Buffer
		logging.Setup("loud", &buf)

		log.Debug().Msg("hidden")
		log.Info().Msg("shown")

		require.NotContains(t, buf.String(), "hidden")
		require.Contains(t, buf.String(), "shown")
	})
}
