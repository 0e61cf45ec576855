package dynamo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "running", Running.String())
	assert.Equal(t, "finished", Finished.String())
	assert.Equal(t, "aborted", Aborted.String())
	assert.Equal(t, "failed", Failed.String())
	assert.Equal(t, "unknown", Status(42).String())
}

func TestStatus_CanMutate(t *testing.T) {
	for _, s := range []Status{Idle, Finished, Aborted, Failed} {
		assert.True(t, s.CanMutate(), s.String())
	}
	assert.False(t, Running.CanMutate())
}

func TestStatus_Terminal(t *testing.T) {
	assert.False(t, Idle.Terminal())
	assert.False(t, Running.Terminal())
	assert.True(t, Finished.Terminal())
	assert.True(t, Aborted.Terminal())
	assert.True(t, Failed.Terminal())
}
