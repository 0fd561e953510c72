package logger

import (
	"regexp"
	"strings"
	"testing"

	"github.com/CodeMonkeyCybersecurity/iaso/pkg/shared"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestSessionLogNameIsStable(t *testing.T) {
	t.Parallel()

	first := SessionLogName()
	second := SessionLogName()
	assert.Equal(t, first, second, "every log path candidate must share one session name")

	pattern := regexp.MustCompile(`^` + shared.IasoID + `-\d{8}-\d{6}\.log$`)
	assert.True(t, pattern.MatchString(first), "unexpected session log name %q", first)
}

func TestPlatformLogPathsEndWithSessionName(t *testing.T) {
	t.Parallel()

	paths := PlatformLogPaths()
	assert.NotEmpty(t, paths)
	for _, p := range paths {
		assert.True(t, strings.HasSuffix(p, SessionLogName()), "path %q", p)
	}
}

func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"", zapcore.InfoLevel},
		{"nonsense", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLogLevel(tt.in), "input %q", tt.in)
	}
}
