package redisbus

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	b, err := json.Marshal(event{Origin: "node-a", Collections: []string{"direct_messages/a_b/messages"}})
	require.NoError(t, err)

	origin, collections, err := decode(string(b))
	require.NoError(t, err)
	assert.Equal(t, "node-a", origin)
	assert.Equal(t, []string{"direct_messages/a_b/messages"}, collections)

	_, _, err = decode("{not json")
	assert.Error(t, err)
}
