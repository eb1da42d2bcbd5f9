package db

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRedis(t *testing.T) {
	s := miniredis.RunT(t)
	rdb, err := NewRedis(s.Addr())
	require.NoError(t, err)
	assert.NoError(t, rdb.Close())

	addr := s.Addr()
	s.Close()
	_, err = NewRedis(addr)
	assert.Error(t, err)
}
