package tfhc

import (
	"testing"

	"github.com/brutella/hc/accessory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tfaccessory "github.com/cloudkucooland/toofar-tailwind/accessory"
)

func newTF(name string, id uint64) *tfaccessory.TFAccessory {
	info := accessory.Info{Name: name, ID: id}
	return &tfaccessory.TFAccessory{
		Name:      name,
		Info:      info,
		Accessory: accessory.New(info, accessory.TypeGarageDoorOpener),
	}
}

func TestAddAccessory(t *testing.T) {
	var h HCPlatform

	a := newTF("garage", 1001)
	require.NoError(t, h.AddAccessory(a))

	got, ok := h.GetAccessory("garage")
	require.True(t, ok)
	assert.Same(t, a, got)
	assert.Contains(t, Accessories(), a.Accessory)

	t.Run("Unset", func(t *testing.T) {
		err := h.AddAccessory(&tfaccessory.TFAccessory{Name: "empty"})
		assert.Error(t, err)
	})

	t.Run("IDCollision", func(t *testing.T) {
		err := h.AddAccessory(newTF("other", 1001))
		assert.Error(t, err)
		_, ok := h.GetAccessory("other")
		assert.False(t, ok)
	})

	t.Run("ReAddSameName", func(t *testing.T) {
		assert.NoError(t, h.AddAccessory(newTF("garage", 1001)))
	})
}

func TestAddAccessoryUnassignedID(t *testing.T) {
	var h HCPlatform

	require.NoError(t, h.AddAccessory(newTF("unassigned-a", 0)))
	require.NoError(t, h.AddAccessory(newTF("unassigned-b", 0)))

	_, ok := h.GetAccessory("unassigned-b")
	assert.True(t, ok)
}
