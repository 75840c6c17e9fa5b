package gateway

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/hypebeast/go-osc/osc"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/facebridge/bundle"
	"github.com/c360/facebridge/config"
	"github.com/c360/facebridge/expression"
	"github.com/c360/facebridge/gogo"
	"github.com/c360/facebridge/input"
	"github.com/c360/facebridge/metric"
	"github.com/c360/facebridge/storage"
)

type fakeReceiver struct {
	name   string
	drains int
	apply  func(*expression.TrackingData)
}

func (f *fakeReceiver) Name() string {
	if f.name == "" {
		return "FAKE"
	}
	return f.name
}

func (f *fakeReceiver) Start(_ context.Context) error { return nil }

func (f *fakeReceiver) Drain(d *expression.TrackingData, sink input.StatusSink) {
	f.drains++
	if f.apply != nil {
		f.apply(d)
	}
	sink.SourceLive(f.Name(), true)
}

func newTestGateway(t *testing.T, backends ...input.Receiver) *Gateway {
	t.Helper()

	if len(backends) == 0 {
		backends = []input.Receiver{input.NewDummy()}
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dir := t.TempDir()

	return New(config.Default(), backends,
		storage.NewStore(filepath.Join(dir, "extMem.json"), logger),
		gogo.New(filepath.Join(dir, "extGogo.json"), logger),
		logger, metric.NewMetrics())
}

func findMessage(b *bundle.Bundle, addr string) *osc.Message {
	for _, m := range b.Messages() {
		if m.Address == addr {
			return m
		}
	}
	return nil
}

func TestHeartbeatSwitchesToExternalDrive(t *testing.T) {
	g := newTestGateway(t)
	require.True(t, g.selfDrive.Load())

	g.handleMessage(context.Background(), osc.NewMessage("/avatar/parameters/VSync", true))

	assert.False(t, g.selfDrive.Load())
	assert.Equal(t, 1.0, testutil.ToFloat64(g.metrics.TicksTotal.WithLabelValues(triggerConsumer)))
}

func TestWatchdogRevertsToSelfDrive(t *testing.T) {
	g := newTestGateway(t)
	g.setSelfDrive(false)

	// Fresh tick: no revert.
	g.lastTickAt.Store(time.Now().UnixNano())
	g.checkStale(time.Now())
	assert.False(t, g.selfDrive.Load())

	// Stale tick: revert.
	g.lastTickAt.Store(time.Now().Add(-time.Second).UnixNano())
	g.checkStale(time.Now())
	assert.True(t, g.selfDrive.Load())
	assert.Equal(t, 1.0, testutil.ToFloat64(g.metrics.DriveMode))
}

func TestParameterFanOut(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dir := t.TempDir()
	storePath := filepath.Join(dir, "extMem.json")
	g := New(config.Default(), []input.Receiver{input.NewDummy()},
		storage.NewStore(storePath, logger),
		gogo.New(filepath.Join(dir, "extGogo.json"), logger),
		logger, metric.NewMetrics())
	ctx := context.Background()

	g.handleMessage(ctx, osc.NewMessage("/avatar/parameters/TrackingType", int32(6)))
	v, ok := g.params.IntParam("TrackingType")
	require.True(t, ok)
	assert.Equal(t, int32(6), v)

	// Idle pose changes reach the locomotion store.
	g.handleMessage(ctx, osc.NewMessage("/avatar/parameters/Go/StandIdle", int32(3)))
	poses := bundle.New()
	g.loco.Avatar(poses)
	m := findMessage(poses, "/avatar/parameters/Go/StandIdle")
	require.NotNil(t, m)
	assert.Equal(t, int32(3), m.Arguments[0])

	// Index/value pairs reach the float memory.
	g.handleMessage(ctx, osc.NewMessage("/avatar/parameters/ExtValue", float32(0.5)))
	g.handleMessage(ctx, osc.NewMessage("/avatar/parameters/ExtIndex", int32(10)))
	g.store.Save()

	raw, err := os.ReadFile(storePath)
	require.NoError(t, err)
	var slots []float32
	require.NoError(t, json.Unmarshal(raw, &slots))
	assert.Equal(t, float32(0.5), slots[10])
}

func TestTrackerPoseParsing(t *testing.T) {
	g := newTestGateway(t)
	ctx := context.Background()

	g.handleMessage(ctx, osc.NewMessage("/tracking/trackers/head",
		float32(1), float32(2), float32(3),
		float32(0.1), float32(0.2), float32(0.3)))

	assert.Equal(t, mgl32.Vec3{1, 2, 3}, g.data.Head.Position)
	euler := expression.EulerZXY(g.data.Head.Orientation)
	assert.InDelta(t, 0.1, euler.X(), 1e-4)
	assert.InDelta(t, 0.2, euler.Y(), 1e-4)
	assert.InDelta(t, 0.3, euler.Z(), 1e-4)
	assert.WithinDuration(t, time.Now(), g.data.PoseSeenAt, time.Second)
}

func TestWristPoseDoesNotBumpLiveness(t *testing.T) {
	g := newTestGateway(t)

	g.handleMessage(context.Background(), osc.NewMessage("/tracking/trackers/leftwrist",
		float32(0.5), float32(1), float32(0),
		float32(0), float32(0), float32(0)))

	assert.Equal(t, mgl32.Vec3{0.5, 1, 0}, g.data.LeftHand.Position)
	assert.True(t, g.data.PoseSeenAt.IsZero())
}

func leaf(path string) map[string]interface{} {
	return map[string]interface{}{"FULL_PATH": path, "TYPE": "f"}
}

func schemaServer(t *testing.T, withHeartbeat bool) *httptest.Server {
	t.Helper()

	parameters := map[string]interface{}{
		"FULL_PATH": "/avatar/parameters",
		"CONTENTS": map[string]interface{}{
			"FT": map[string]interface{}{
				"FULL_PATH": "/avatar/parameters/FT",
				"CONTENTS": map[string]interface{}{
					"v2": map[string]interface{}{
						"FULL_PATH": "/avatar/parameters/FT/v2",
						"CONTENTS": map[string]interface{}{
							"JawOpen": leaf("/avatar/parameters/FT/v2/JawOpen"),
						},
					},
				},
			},
		},
	}
	if withHeartbeat {
		parameters["CONTENTS"].(map[string]interface{})["VSync"] = leaf("/avatar/parameters/VSync")
	}

	root := map[string]interface{}{
		"FULL_PATH": "/avatar",
		"CONTENTS":  map[string]interface{}{"parameters": parameters},
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/avatar", r.URL.Path)
		require.NoError(t, json.NewEncoder(w).Encode(root))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestAvatarChangeRebuildsFromSchema(t *testing.T) {
	g := newTestGateway(t)
	g.discovery.SetEndpoint(schemaServer(t, true).URL)
	g.trackingActive = true

	g.avatarChanged(context.Background())

	require.Equal(t, 1, g.table.Active())
	d := g.table.Get(expression.JawOpen.Index())
	require.NotNil(t, d)
	assert.Equal(t, "FT/v2/JawOpen", d.MainAddress)

	// The schema advertises the heartbeat: external drive.
	assert.False(t, g.selfDrive.Load())
	// Tracking-active announcements go out again for the new avatar.
	assert.False(t, g.trackingActive)
}

func TestAvatarChangeWithoutHeartbeatStaysSelfDriven(t *testing.T) {
	g := newTestGateway(t)
	g.discovery.SetEndpoint(schemaServer(t, false).URL)
	g.setSelfDrive(false)

	g.avatarChanged(context.Background())

	assert.True(t, g.selfDrive.Load())
}

func TestAvatarChangeDiscoveryFailureFallsBack(t *testing.T) {
	g := newTestGateway(t)
	// No endpoint resolved: discovery fails fast.
	g.table.Set(expression.JawOpen.Index(), nil)
	g.loco.Notify("Go/StandIdle", int32(3))
	g.setSelfDrive(false)

	g.avatarChanged(context.Background())

	// The default direct set is restored wholesale.
	assert.Equal(t, 21, g.table.Active())
	d := g.table.Get(expression.JawOpen.Index())
	require.NotNil(t, d)
	assert.Equal(t, "FT/v2/JawOpen", d.MainAddress)

	// No schema means no heartbeat: revert to self-driving at once
	// instead of waiting for the watchdog.
	assert.True(t, g.selfDrive.Load())
	// The remembered idle poses still go out for the new avatar.
	assert.Equal(t, 1.0, testutil.ToFloat64(g.metrics.MessagesSent.WithLabelValues("parameter")))
}

func TestTickOneShotTrackingActive(t *testing.T) {
	g := newTestGateway(t)
	ctx := context.Background()

	b := g.tick(ctx, triggerLoopback)
	require.NotNil(t, findMessage(b, "/avatar/parameters/ExpressionTrackingActive"))
	require.NotNil(t, findMessage(b, "/avatar/parameters/LipTrackingActive"))

	b = g.tick(ctx, triggerLoopback)
	assert.Nil(t, findMessage(b, "/avatar/parameters/ExpressionTrackingActive"))
	assert.Nil(t, findMessage(b, "/avatar/parameters/LipTrackingActive"))
}

func TestFacePauseSuppressesEncode(t *testing.T) {
	g := newTestGateway(t)
	g.params.set("FacePause", true)

	b := g.tick(context.Background(), triggerLoopback)

	assert.Nil(t, findMessage(b, "/avatar/parameters/FT/v2/JawOpen"))
	assert.Nil(t, findMessage(b, "/avatar/parameters/ExpressionTrackingActive"))
	// The paused announcement is not consumed; it goes out on resume.
	assert.False(t, g.trackingActive)

	// Synthetic input still flows while the face is paused.
	assert.NotNil(t, findMessage(b, "/input/LookHorizontal"))

	g.params.set("FacePause", false)
	b = g.tick(context.Background(), triggerLoopback)
	assert.NotNil(t, findMessage(b, "/avatar/parameters/ExpressionTrackingActive"))
	assert.NotNil(t, findMessage(b, "/avatar/parameters/FT/v2/JawOpen"))
}

func TestFreezeGatesDrain(t *testing.T) {
	fake := &fakeReceiver{}
	g := newTestGateway(t, fake)
	ctx := context.Background()

	g.params.set("Motion", int32(1))
	g.tick(ctx, triggerLoopback)
	assert.Equal(t, 0, fake.drains)

	// FaceFreeze inverts the motion override.
	g.params.set("FaceFreeze", true)
	g.tick(ctx, triggerLoopback)
	assert.Equal(t, 1, fake.drains)

	// AFK suppresses ingestion outright.
	g.params.set("AFK", true)
	g.tick(ctx, triggerLoopback)
	assert.Equal(t, 1, fake.drains)
}

func TestAllBackendsFusePerTick(t *testing.T) {
	var order []string
	face := &fakeReceiver{name: "FACE", apply: func(d *expression.TrackingData) {
		order = append(order, "FACE")
		d.SetU(expression.EyeClosedLeft, 0.2)
	}}
	mouth := &fakeReceiver{name: "MOUTH", apply: func(d *expression.TrackingData) {
		order = append(order, "MOUTH")
		d.SetU(expression.JawOpen, 0.7)
	}}
	g := newTestGateway(t, face, mouth)

	g.tick(context.Background(), triggerLoopback)

	// Every receiver drains once per tick, in construction order.
	assert.Equal(t, []string{"FACE", "MOUTH"}, order)

	// Channels from different sources land in the same snapshot.
	assert.InDelta(t, 0.2, g.data.GetU(expression.EyeClosedLeft), 1e-6)
	assert.InDelta(t, 0.7, g.data.GetU(expression.JawOpen), 1e-6)

	summary := g.tracker.Summary()
	assert.Contains(t, summary, "FACE:up")
	assert.Contains(t, summary, "MOUTH:up")
}

func TestDrainReportsLiveness(t *testing.T) {
	fake := &fakeReceiver{}
	g := newTestGateway(t, fake)

	g.tick(context.Background(), triggerLoopback)

	assert.Equal(t, 1, fake.drains)
	assert.Contains(t, g.tracker.Summary(), "FAKE:up")
	assert.Equal(t, 1.0, testutil.ToFloat64(g.metrics.BackendConnected.WithLabelValues("FAKE")))
}

func TestGazeFallbackWhenEyelidUnmapped(t *testing.T) {
	g := newTestGateway(t)
	g.data.SetEye(0, mgl32.Vec3{0.1, 0.2, 0})
	g.data.SetEye(1, mgl32.Vec3{0.3, 0.4, 0})
	g.data.SetU(expression.EyeClosedLeft, 0.4)
	g.data.SetU(expression.EyeClosedRight, 0.6)

	// Eyelid mapped (default table): raw gaze stays off the wire.
	b := bundle.New()
	g.gazeFallback(b)
	assert.Equal(t, 0, b.Len())

	g.table.Set(expression.EyeLidLeft.Index(), nil)
	b = bundle.New()
	g.gazeFallback(b)

	gaze := findMessage(b, "/tracking/eye/LeftRightPitchYaw")
	require.NotNil(t, gaze)
	require.Len(t, gaze.Arguments, 4)
	assert.InDelta(t, -0.1*180/3.14159265, gaze.Arguments[0].(float32), 1e-3)
	assert.InDelta(t, -0.2*180/3.14159265, gaze.Arguments[1].(float32), 1e-3)
	assert.InDelta(t, -0.3*180/3.14159265, gaze.Arguments[2].(float32), 1e-3)
	assert.InDelta(t, -0.4*180/3.14159265, gaze.Arguments[3].(float32), 1e-3)

	closed := findMessage(b, "/tracking/eye/EyesClosedAmount")
	require.NotNil(t, closed)
	assert.InDelta(t, 0.5, closed.Arguments[0].(float32), 1e-5)
}

func TestGazeFallbackNeedsBothEyes(t *testing.T) {
	g := newTestGateway(t)
	g.table.Set(expression.EyeLidLeft.Index(), nil)
	g.data.SetEye(0, mgl32.Vec3{0.1, 0, 0})

	b := bundle.New()
	g.gazeFallback(b)
	assert.Equal(t, 0, b.Len())
}

func TestDispatchLoopbackTriggersTick(t *testing.T) {
	g := newTestGateway(t)
	g.loopbackAddr = "127.0.0.1:45678"
	src := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 45678}

	g.dispatch(context.Background(), []byte{0}, src)

	assert.Equal(t, 1.0, testutil.ToFloat64(g.metrics.TicksTotal.WithLabelValues(triggerLoopback)))
}

func TestDispatchDiscardsUndecodable(t *testing.T) {
	g := newTestGateway(t)
	g.loopbackAddr = "127.0.0.1:45678"
	src := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 50000}

	g.dispatch(context.Background(), []byte{0xff, 0xfe}, src)

	assert.Equal(t, 0.0, testutil.ToFloat64(g.metrics.TicksTotal.WithLabelValues(triggerLoopback)))
}

func TestBundledMessagesAreUnpacked(t *testing.T) {
	g := newTestGateway(t)

	wire := osc.NewBundle(time.Time{})
	require.NoError(t, wire.Append(osc.NewMessage("/avatar/parameters/Motion", int32(1))))
	require.NoError(t, wire.Append(osc.NewMessage("/avatar/parameters/AFK", true)))

	g.handlePacket(context.Background(), wire)

	motion, ok := g.params.IntParam("Motion")
	require.True(t, ok)
	assert.Equal(t, int32(1), motion)
	afk, ok := g.params.BoolParam("AFK")
	require.True(t, ok)
	assert.True(t, afk)
}

func TestQuatZXYRoundTrips(t *testing.T) {
	q := quatZXY(0.4, -0.7, 1.1)
	euler := expression.EulerZXY(q)
	assert.InDelta(t, 0.4, euler.X(), 1e-5)
	assert.InDelta(t, -0.7, euler.Y(), 1e-5)
	assert.InDelta(t, 1.1, euler.Z(), 1e-5)
}
