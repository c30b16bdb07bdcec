package nats

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQualify(t *testing.T) {
	assert.Equal(t, "mission_control.alert.state_changed", qualify("mission_control", "alert.state_changed"))
	assert.Equal(t, "evaluation.completed", qualify("", "evaluation.completed"))
}
