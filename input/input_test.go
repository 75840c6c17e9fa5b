package input

import (
	"encoding/binary"
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/hypebeast/go-osc/osc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/facebridge/expression"
)

type sinkRecorder struct {
	sources map[string]bool
}

func newSinkRecorder() *sinkRecorder {
	return &sinkRecorder{sources: map[string]bool{}}
}

func (s *sinkRecorder) SourceLive(name string, live bool) {
	s.sources[name] = live
}

func TestBabbleFanOut(t *testing.T) {
	b, err := NewBabble(9400, nil, nil)
	require.NoError(t, err)

	require.NoError(t, b.handlePacket(osc.NewMessage("/mouthFunnel", float32(0.8))))
	require.NoError(t, b.handlePacket(osc.NewMessage("/mouthPucker", float32(0.6))))
	require.NoError(t, b.handlePacket(osc.NewMessage("/mouthRollUpper", float32(0.4))))
	require.NoError(t, b.handlePacket(osc.NewMessage("/mouthRollLower", float32(0.3))))

	data := expression.NewTrackingData()
	b.Drain(data, newSinkRecorder())

	for _, ch := range []expression.Unified{
		expression.LipFunnelUpperLeft, expression.LipFunnelUpperRight,
		expression.LipFunnelLowerLeft, expression.LipFunnelLowerRight,
	} {
		assert.InDelta(t, 0.8, data.GetU(ch), 1e-6)
	}
	for _, ch := range []expression.Unified{
		expression.LipPuckerUpperLeft, expression.LipPuckerUpperRight,
		expression.LipPuckerLowerLeft, expression.LipPuckerLowerRight,
	} {
		assert.InDelta(t, 0.6, data.GetU(ch), 1e-6)
	}
	assert.InDelta(t, 0.4, data.GetU(expression.LipSuckUpperLeft), 1e-6)
	assert.InDelta(t, 0.4, data.GetU(expression.LipSuckUpperRight), 1e-6)
	assert.InDelta(t, 0.3, data.GetU(expression.LipSuckLowerLeft), 1e-6)
	assert.InDelta(t, 0.3, data.GetU(expression.LipSuckLowerRight), 1e-6)
}

func TestBabbleLivenessSplit(t *testing.T) {
	b, err := NewBabble(9400, nil, nil)
	require.NoError(t, err)

	// Mouth traffic only: babble live, eye tracker not.
	require.NoError(t, b.handlePacket(osc.NewMessage("/jawOpen", float32(0.5))))

	data := expression.NewTrackingData()
	sink := newSinkRecorder()
	b.Drain(data, sink)

	assert.True(t, sink.sources["BABBLE"])
	assert.False(t, sink.sources["ETVR"])

	// Eye traffic arrives under the avatar parameter prefix.
	require.NoError(t, b.handlePacket(osc.NewMessage("/avatar/parameters/EyesY", float32(-0.2))))
	b.Drain(data, sink)

	assert.True(t, sink.sources["ETVR"])
	assert.InDelta(t, -0.2, data.GetU(expression.EyeY), 1e-6)
}

func TestBabbleRejectsBadMessages(t *testing.T) {
	b, err := NewBabble(9400, nil, nil)
	require.NoError(t, err)

	assert.Error(t, b.handlePacket(osc.NewMessage("/jawOpen")))
	assert.Error(t, b.handlePacket(osc.NewMessage("/jawOpen", int32(1))))

	// Unknown addresses are not an error, just ignored.
	assert.NoError(t, b.handlePacket(osc.NewMessage("/somethingElse", float32(0.5))))
	assert.Zero(t, b.events.Len())
}

func identityQuatFloats() []float32 {
	return []float32{0, 0, 0, 1}
}

func wivrnPacket(t *testing.T, face map[int]float32) []byte {
	t.Helper()
	floats := make([]float32, 8+expression.FaceFBTongueWeights)
	copy(floats[0:4], identityQuatFloats())
	copy(floats[4:8], identityQuatFloats())
	for idx, v := range face {
		floats[8+idx] = v
	}

	payload := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(payload[i*4:], math.Float32bits(f))
	}
	return payload
}

func TestWivrnDecode(t *testing.T) {
	// Weight 24 is the jaw drop slot of the face vector; 68 is tongue out.
	payload := wivrnPacket(t, map[int]float32{24: 0.5, 68: 0.25})
	require.Len(t, payload, wivrnPacketSize)

	frame, err := decodeWivrnPacket(payload)
	require.NoError(t, err)

	assert.Equal(t, float32(0), frame.eyes[0].X())
	assert.Equal(t, float32(0), frame.eyes[1].Y())

	w, err := NewWiVRn(nil, nil)
	require.NoError(t, err)
	require.True(t, w.frames.Write(frame))

	data := expression.NewTrackingData()
	sink := newSinkRecorder()
	w.Drain(data, sink)

	assert.InDelta(t, 0.5, data.GetU(expression.JawOpen), 1e-6)
	assert.InDelta(t, 0.25, data.GetU(expression.TongueOut), 1e-6)
	require.NotNil(t, data.Eyes[0])
	require.NotNil(t, data.Eyes[1])
	assert.True(t, sink.sources["WIVRN"])
}

func TestWivrnDecodeRejectsWrongSize(t *testing.T) {
	_, err := decodeWivrnPacket(make([]byte, 100))
	assert.Error(t, err)

	_, err = decodeWivrnPacket(make([]byte, wivrnPacketSize+4))
	assert.Error(t, err)
}

func alvrTrackingEvent(t *testing.T, face []float32) []byte {
	t.Helper()
	event := map[string]interface{}{
		"event_type": map[string]interface{}{
			"id": "Tracking",
			"data": map[string]interface{}{
				"eye_gazes": []interface{}{
					map[string]interface{}{
						"orientation": []float32{0, 0, 0, 1},
						"position":    []float32{0, 0, 0},
					},
					nil,
				},
				"device_motions": []interface{}{
					[]interface{}{
						"/user/head",
						map[string]interface{}{
							"pose": map[string]interface{}{
								"orientation": []float32{0, 0, 0, 1},
								"position":    []float32{1, 2, 3},
							},
						},
					},
				},
				"hand_skeletons":     []interface{}{nil, nil},
				"fb_face_expression": face,
			},
		},
	}
	payload, err := json.Marshal(event)
	require.NoError(t, err)
	return payload
}

func TestAlvrHandleEvent(t *testing.T) {
	a, err := NewALVR(nil, nil)
	require.NoError(t, err)

	face := make([]float32, expression.FaceFBWeights)
	face[24] = 0.5 // jaw drop
	require.NoError(t, a.handleEvent(alvrTrackingEvent(t, face)))

	data := expression.NewTrackingData()
	sink := newSinkRecorder()
	a.Drain(data, sink)

	assert.InDelta(t, 0.5, data.GetU(expression.JawOpen), 1e-6)
	require.NotNil(t, data.Eyes[0])
	assert.Nil(t, data.Eyes[1])
	assert.Equal(t, float32(2), data.Head.Position.Y())
	assert.WithinDuration(t, time.Now(), data.PoseSeenAt, time.Second)
	assert.True(t, sink.sources["ALVR"])
}

func TestAlvrIgnoresOtherEvents(t *testing.T) {
	a, err := NewALVR(nil, nil)
	require.NoError(t, err)

	require.NoError(t, a.handleEvent([]byte(`{"event_type":{"id":"SessionUpdated"}}`)))
	assert.Zero(t, a.frames.Len())

	assert.Error(t, a.handleEvent([]byte(`{not json`)))
}

func TestAlvrRejectsShortFaceVector(t *testing.T) {
	a, err := NewALVR(nil, nil)
	require.NoError(t, err)

	assert.Error(t, a.handleEvent(alvrTrackingEvent(t, make([]float32, 10))))
	assert.Zero(t, a.frames.Len())
}

func TestDummyIsInert(t *testing.T) {
	d := NewDummy()
	data := expression.NewTrackingData()
	sink := newSinkRecorder()
	d.Drain(data, sink)
	assert.Empty(t, sink.sources)
}
