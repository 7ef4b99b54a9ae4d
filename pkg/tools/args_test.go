package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestArgStringTrims(t *testing.T) {
	args := map[string]any{"query": "  login failure  ", "count": 3.0}

	assert.Equal(t, "login failure", argString(args, "query"))
	assert.Equal(t, "", argString(args, "missing"))
	assert.Equal(t, "", argString(args, "count"))
}
