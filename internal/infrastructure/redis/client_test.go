package redis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewClientRejectsInvalidURL(t *testing.T) {
	_, err := NewClient("not a url", nil)
	assert.ErrorContains(t, err, "invalid redis url")
}
