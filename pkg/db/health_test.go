package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheck_NilPool(t *testing.T) {
	status := Check(context.Background(), nil)

	assert.False(t, status.Healthy)
	assert.Equal(t, "pool is nil", status.Error)
}
