package gogo

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/facebridge/bundle"
)

type fakeParams struct {
	ints  map[string]int32
	bools map[string]bool
}

func (p *fakeParams) IntParam(name string) (int32, bool) {
	v, ok := p.ints[name]
	return v, ok
}

func (p *fakeParams) BoolParam(name string) (bool, bool) {
	v, ok := p.bools[name]
	return v, ok
}

func TestNotifyPersistsIdlePoses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "extGogo.json")

	g := New(path, nil)
	g.Notify(standParam, int32(2))
	g.Notify(crouchParam, int32(1))
	g.Notify(proneParam, int32(4))
	g.Notify(standParam, float32(9)) // wrong type, ignored

	reloaded := New(path, nil)
	assert.Equal(t, int32(2), reloaded.state.IdleStand)
	assert.Equal(t, int32(1), reloaded.state.IdleCrouch)
	assert.Equal(t, int32(4), reloaded.state.IdleProne)
}

func TestAvatarRestoresPoses(t *testing.T) {
	g := New(filepath.Join(t.TempDir(), "extGogo.json"), nil)
	g.state = gogoState{IdleStand: 2, IdleCrouch: 1, IdleProne: 4}

	b := bundle.New()
	g.Avatar(b)

	require.Equal(t, 3, b.Len())
	msgs := b.Messages()
	assert.Equal(t, "/avatar/parameters/Go/StandIdle", msgs[0].Address)
	assert.Equal(t, int32(2), msgs[0].Arguments[0])
	assert.Equal(t, int32(1), msgs[1].Arguments[0])
	assert.Equal(t, int32(4), msgs[2].Arguments[0])
}

func TestStepTogglesLocomotion(t *testing.T) {
	g := New(filepath.Join(t.TempDir(), "extGogo.json"), nil)

	// Three-point tracking: locomotion should be animated.
	params := &fakeParams{
		ints:  map[string]int32{trackingTypeParam: 3},
		bools: map[string]bool{},
	}
	b := bundle.New()
	g.Step(params, b)
	require.Equal(t, 1, b.Len())
	assert.Equal(t, "/avatar/parameters/Go/Locomotion", b.Messages()[0].Address)
	assert.Equal(t, true, b.Messages()[0].Arguments[0])

	// Already in the wanted state: nothing sent.
	params.bools[locoParam] = true
	b = bundle.New()
	g.Step(params, b)
	assert.Equal(t, 0, b.Len())

	// Full body tracking: turn animated locomotion off.
	params.ints[trackingTypeParam] = 6
	b = bundle.New()
	g.Step(params, b)
	require.Equal(t, 1, b.Len())
	assert.Equal(t, false, b.Messages()[0].Arguments[0])
}

func TestStepWithoutTrackingType(t *testing.T) {
	g := New(filepath.Join(t.TempDir(), "extGogo.json"), nil)

	b := bundle.New()
	g.Step(&fakeParams{ints: map[string]int32{}, bools: map[string]bool{}}, b)
	assert.Equal(t, 0, b.Len())
}
