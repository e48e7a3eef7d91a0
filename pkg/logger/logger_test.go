package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		enabled zapcore.Level
		wantErr bool
	}{
		{name: "defaults to info", opts: Options{}, enabled: zapcore.InfoLevel},
		{name: "debug level", opts: Options{Level: "debug"}, enabled: zapcore.DebugLevel},
		{name: "console format", opts: Options{Level: "warn", Format: "console"}, enabled: zapcore.WarnLevel},
		{name: "bad level", opts: Options{Level: "loud"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := New("pr-tracker", tt.opts)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, log.Core().Enabled(tt.enabled))
			assert.False(t, log.Core().Enabled(tt.enabled-1))
		})
	}
}

func TestNewLoggerDoesNotPanic(t *testing.T) {
	assert.NotPanics(t, func() { NewLogger("pr-tracker") })
	assert.NotPanics(t, func() { NewDevelopmentLogger("pr-tracker") })
}
