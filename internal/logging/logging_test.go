package logging

import (
	"bytes"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
)

func TestLevel(t *testing.T) {
	assert.Equal(t, log.WarnLevel, Level(-1))
	assert.Equal(t, log.WarnLevel, Level(0))
	assert.Equal(t, log.InfoLevel, Level(1))
	assert.Equal(t, log.DebugLevel, Level(2))
	assert.Equal(t, log.DebugLevel, Level(5))
}

func TestNew_FiltersByVerbosity(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, 0)
	l.Info("hidden")
	assert.NotContains(t, buf.String(), "hidden")

	l.Warn("shown", "k", 1)
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), "ionmd")

	buf.Reset()
	l = New(&buf, 2)
	l.Debug("detail")
	assert.Contains(t, buf.String(), "detail")
}

func TestDiscard(t *testing.T) {
	l := Discard()
	assert.NotPanics(t, func() { l.Error("nothing") })
}
