package scene

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntity_Scripts(t *testing.T) {
	var e Entity

	assert.True(t, e.AttachScript("Mover"))
	assert.False(t, e.AttachScript("Mover"), "duplicate attach must be rejected")
	assert.False(t, e.AttachScript(""))
	assert.True(t, e.AttachScript("Jumper"))
	require.Len(t, e.Scripts, 2)
	assert.True(t, e.HasScript("Jumper"))

	assert.False(t, e.DetachScript(5))
	assert.True(t, e.DetachScript(0))
	assert.Equal(t, []AttachedScript{{Name: "Jumper"}}, e.Scripts)
	assert.True(t, e.DetachScript(0))
	assert.Nil(t, e.Scripts)
}

func TestEntity_SetComponent(t *testing.T) {
	e := Entity{ID: "a", Components: ComponentList{Camera3d{}}}

	e.SetComponent(PointLight{ShadowsEnabled: ptr(true)})
	e.SetComponent(PointLight{ShadowsEnabled: ptr(false)})
	require.Len(t, e.Components, 2)

	c, ok := e.Component(KindPointLight)
	require.True(t, ok)
	assert.Equal(t, PointLight{ShadowsEnabled: ptr(false)}, c)

	_, ok = e.Component(KindMesh3d)
	assert.False(t, ok)
}

func TestDoc_DuplicateIDs(t *testing.T) {
	doc := &Doc{Entities: []Entity{{ID: "a"}, {ID: "b"}, {ID: "a"}, {ID: "a"}, {ID: "b"}, {ID: "c"}}}
	assert.Equal(t, []string{"a", "b"}, doc.DuplicateIDs())
	assert.Empty(t, Starter().DuplicateIDs())
}

func TestNewComponent(t *testing.T) {
	for _, kind := range KnownKinds() {
		assert.Equal(t, kind, NewComponent(kind).TypeID())
	}
	assert.Equal(t, Opaque{ID: "Spin"}, NewComponent("Spin"))
}
