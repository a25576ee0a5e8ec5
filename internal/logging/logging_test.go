// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/pdiddy/investigator/pkg/types"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     types.LogConfig
		enabled zapcore.Level
		muted   zapcore.Level
	}{
		{"default is info", types.LogConfig{}, zapcore.InfoLevel, zapcore.DebugLevel},
		{"debug console", types.LogConfig{Level: "debug"}, zapcore.DebugLevel, zapcore.DebugLevel - 1},
		{"warn json", types.LogConfig{Level: "warn", JSON: true}, zapcore.WarnLevel, zapcore.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.cfg)
			require.NoError(t, err)
			assert.True(t, logger.Core().Enabled(tt.enabled))
			assert.False(t, logger.Core().Enabled(tt.muted))
		})
	}
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(types.LogConfig{Level: "chatty"})
	assert.ErrorContains(t, err, "parsing log level")
}
