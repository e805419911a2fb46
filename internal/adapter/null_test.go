package adapter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewNullAdapter_DefaultName(t *testing.T) {
	assert.Equal(t, "null", NewNullAdapter("").Name())
}

func TestNullAdapter_SendAndHealth(t *testing.T) {
	a := NewNullAdapter("http")
	assert.NoError(t, a.Send(context.Background(), "user-1", "content"))
	assert.NoError(t, a.Health(context.Background()))
}
