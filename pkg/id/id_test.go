package id

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetUUID(t *testing.T) {
	a := GetUUID()
	b := GetUUID()
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 36)
}

func TestGetULID_Sortable(t *testing.T) {
	a := GetULID()
	b := GetULID()
	assert.Len(t, a, 26)
	assert.LessOrEqual(t, a, b)
}

func TestGetShortID(t *testing.T) {
	assert.NotEmpty(t, GetShortID())
}
