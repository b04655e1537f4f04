package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLiteralEqual(t *testing.T) {
	assert.True(t, Int(5).Equal(Int(5)))
	assert.False(t, Int(5).Equal(Int(6)))
	assert.False(t, Int(5).Equal(Varchar("5")))
	assert.True(t, Null().Equal(Null()))
}

func TestDiskSize(t *testing.T) {
	assert.Equal(t, 9, IntType().DiskSize())
	assert.Equal(t, 2, BoolType().DiskSize())
	assert.Equal(t, 12, VarcharType(10).DiskSize())
}

func TestCanStore(t *testing.T) {
	assert.True(t, IntType().CanStore(Int(1)))
	assert.False(t, IntType().CanStore(Varchar("x")))
	assert.True(t, IntType().CanStore(Null()))
	assert.True(t, VarcharType(3).CanStore(Varchar("abc")))
	assert.False(t, VarcharType(3).CanStore(Varchar("abcd")))
}
