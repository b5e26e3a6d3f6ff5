package logutils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithActor(t *testing.T) {
	entry := WithActor("pat@techopolis.test")
	assert.Equal(t, "pat@techopolis.test", entry.Data["actor"])
	assert.Same(t, Log, entry.Logger)
}
