// Package gateway runs the bridge loop: inbound OSC from the consumer
// drives ticks, each tick drains every tracking backend into the
// canonical snapshot, derives the combined channels, encodes due
// parameter updates, and ships them back out over UDP.
package gateway

import (
	"context"
	"log/slog"
	"math"
	"net"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/hypebeast/go-osc/osc"

	"github.com/c360/facebridge/autopilot"
	"github.com/c360/facebridge/bundle"
	"github.com/c360/facebridge/config"
	"github.com/c360/facebridge/errors"
	"github.com/c360/facebridge/expression"
	"github.com/c360/facebridge/gogo"
	"github.com/c360/facebridge/input"
	"github.com/c360/facebridge/metric"
	"github.com/c360/facebridge/oscquery"
	"github.com/c360/facebridge/params"
	"github.com/c360/facebridge/status"
	"github.com/c360/facebridge/storage"
)

const (
	// pulseInterval paces the loopback heartbeat while self-driven,
	// roughly 90 ticks per second.
	pulseInterval = 11 * time.Millisecond

	// idlePollInterval is how often the pulse goroutine rechecks the
	// drive mode while the consumer drives ticks.
	idlePollInterval = 200 * time.Millisecond

	// staleAfter is how long ticks may stall before the watchdog
	// reverts to self-driving.
	staleAfter = 500 * time.Millisecond

	watchdogInterval = time.Second

	readBufferSize = 65535
)

// Drive mode labels for the tick counter.
const (
	triggerLoopback = "loopback"
	triggerConsumer = "consumer"
)

// statusFan forwards backend liveness to the status tracker and the
// metrics in one Drain callback.
type statusFan struct {
	tracker *status.Tracker
	metrics *metric.Metrics
}

func (f *statusFan) SourceLive(name string, live bool) {
	f.tracker.SourceLive(name, live)

	v := 0.0
	if live {
		v = 1
		f.metrics.FramesReceived.WithLabelValues(name).Inc()
	}
	f.metrics.BackendConnected.WithLabelValues(name).Set(v)
}

// Gateway owns the sockets and the per-tick pipeline.
type Gateway struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *metric.Metrics

	backends  []input.Receiver
	discovery *oscquery.Client
	table     *params.Table
	store     *storage.Store
	loco      *gogo.Gogo
	pilot     *autopilot.Autopilot
	tracker   *status.Tracker
	fan       *statusFan

	data   *expression.TrackingData
	params *paramCache

	listener     *net.UDPConn
	upstream     *net.UDPConn
	loopback     *net.UDPConn
	loopbackAddr string

	selfDrive  atomic.Bool
	lastTickAt atomic.Int64

	trackingActive bool
	lastTick       time.Time
}

// New assembles a gateway around the already-constructed backends and
// the persistent collaborators. Each tick drains the backends in the
// given order, so later backends win overlapping channels. The
// parameter table starts on the default set until discovery replaces
// it.
func New(cfg *config.Config, backends []input.Receiver, store *storage.Store,
	loco *gogo.Gogo, logger *slog.Logger, metrics *metric.Metrics) *Gateway {

	if logger == nil {
		logger = slog.Default()
	}

	table := params.NewTable(logger)
	table.Defaults()

	tracker := status.NewTracker()

	g := &Gateway{
		cfg:       cfg,
		logger:    logger,
		metrics:   metrics,
		backends:  backends,
		discovery: oscquery.NewClient(cfg.ServicePrefix, logger),
		table:     table,
		store:     store,
		loco:      loco,
		pilot:     autopilot.New(logger),
		tracker:   tracker,
		fan:       &statusFan{tracker: tracker, metrics: metrics},
		data:      expression.NewTrackingData(),
		params:    newParamCache(),
	}

	g.setSelfDrive(true)
	return g
}

func (g *Gateway) backendNames() []string {
	names := make([]string, len(g.backends))
	for i, b := range g.backends {
		names[i] = b.Name()
	}
	return names
}

// Run binds the sockets and services inbound datagrams until ctx ends.
func (g *Gateway) Run(ctx context.Context) error {
	listener, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4zero, Port: g.cfg.ListenPort})
	if err != nil {
		return errors.WrapFatal(err, "gateway", "Run", "listener bind")
	}
	g.listener = listener
	defer listener.Close()

	upstreamAddr, err := net.ResolveUDPAddr("udp", g.cfg.ConsumerAddr())
	if err != nil {
		return errors.WrapInvalid(err, "gateway", "Run", "consumer address resolve")
	}
	upstream, err := net.DialUDP("udp", nil, upstreamAddr)
	if err != nil {
		return errors.WrapFatal(err, "gateway", "Run", "consumer dial")
	}
	g.upstream = upstream
	defer upstream.Close()

	loopback, err := net.DialUDP("udp", nil,
		&net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: g.cfg.ListenPort})
	if err != nil {
		return errors.WrapFatal(err, "gateway", "Run", "loopback dial")
	}
	g.loopback = loopback
	g.loopbackAddr = loopback.LocalAddr().String()
	defer loopback.Close()

	if err := g.discovery.Start(ctx); err != nil {
		g.logger.Warn("schema discovery unavailable", "error", err)
	} else {
		defer g.discovery.Stop()
	}

	for _, backend := range g.backends {
		if err := backend.Start(ctx); err != nil {
			return errors.Wrap(err, "gateway", "Run", backend.Name()+" backend start")
		}
	}

	g.logger.Info("gateway running",
		"listen", listener.LocalAddr().String(),
		"consumer", g.cfg.ConsumerAddr(),
		"backends", strings.Join(g.backendNames(), ","))

	g.lastTickAt.Store(time.Now().UnixNano())
	go g.pulse(ctx)
	go g.watchdog(ctx)
	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	buf := make([]byte, readBufferSize)
	for {
		n, src, err := listener.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				g.store.Save()
				return nil
			}
			return errors.WrapTransient(err, "gateway", "Run", "listener read")
		}
		g.dispatch(ctx, buf[:n], src)
	}
}

// pulse keeps ticks flowing while self-driven by poking the listener
// through the loopback socket.
func (g *Gateway) pulse(ctx context.Context) {
	beat := []byte{0}
	for {
		interval := idlePollInterval
		if g.selfDrive.Load() {
			if _, err := g.loopback.Write(beat); err != nil {
				g.logger.Warn("loopback pulse failed", "error", err)
			}
			interval = pulseInterval
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
	}
}

// watchdog reverts to self-driving when the consumer's heartbeat stops
// servicing ticks.
func (g *Gateway) watchdog(ctx context.Context) {
	ticker := time.NewTicker(watchdogInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.checkStale(time.Now())
		}
	}
}

func (g *Gateway) checkStale(now time.Time) {
	if g.selfDrive.Load() {
		return
	}
	last := time.Unix(0, g.lastTickAt.Load())
	if now.Sub(last) > staleAfter {
		g.logger.Info("ticks stalled, reverting to self-drive",
			"since_last", now.Sub(last).String())
		g.setSelfDrive(true)
	}
}

func (g *Gateway) setSelfDrive(v bool) {
	g.selfDrive.Store(v)
	if v {
		g.metrics.DriveMode.Set(1)
	} else {
		g.metrics.DriveMode.Set(0)
	}
}

// dispatch routes one inbound datagram. Loopback pulses trigger a tick
// directly; everything else must parse as OSC.
func (g *Gateway) dispatch(ctx context.Context, payload []byte, src *net.UDPAddr) {
	if src.String() == g.loopbackAddr {
		g.tick(ctx, triggerLoopback)
		return
	}

	pkt, err := osc.ParsePacket(string(payload))
	if err != nil {
		g.logger.Debug("discarding undecodable datagram",
			"from", src.String(), "bytes", len(payload))
		return
	}
	g.handlePacket(ctx, pkt)
}

func (g *Gateway) handlePacket(ctx context.Context, pkt osc.Packet) {
	switch p := pkt.(type) {
	case *osc.Message:
		g.handleMessage(ctx, p)
	case *osc.Bundle:
		for _, m := range p.Messages {
			g.handleMessage(ctx, m)
		}
		for _, b := range p.Bundles {
			g.handlePacket(ctx, b)
		}
	}
}

func (g *Gateway) handleMessage(ctx context.Context, msg *osc.Message) {
	g.tracker.TripRecv()

	switch {
	case strings.HasPrefix(msg.Address, bundle.ParamPrefix):
		g.handleParameter(ctx, strings.TrimPrefix(msg.Address, bundle.ParamPrefix), msg.Arguments)

	case strings.HasPrefix(msg.Address, bundle.TrackerPrefix):
		g.handleTrackerPose(strings.TrimPrefix(msg.Address, bundle.TrackerPrefix), msg.Arguments)

	case msg.Address == bundle.AvatarChangeAddress:
		id := ""
		if len(msg.Arguments) > 0 {
			id, _ = msg.Arguments[0].(string)
		}
		g.logger.Info("avatar changed", "id", id)
		g.avatarChanged(ctx)
	}
}

func (g *Gateway) handleParameter(ctx context.Context, name string, args []interface{}) {
	if name == g.cfg.HeartbeatParam {
		if g.selfDrive.Load() {
			g.logger.Info("consumer heartbeat detected, switching to external drive")
			g.setSelfDrive(false)
		}
		g.tick(ctx, triggerConsumer)
		return
	}

	if len(args) == 0 {
		return
	}
	value := args[0]

	g.store.Notify(name, value)
	g.loco.Notify(name, value)
	g.params.set(name, value)
}

// handleTrackerPose consumes one tracker report: position xyz followed
// by ZXY Euler angles, all float32. Only the head pose counts toward
// pose liveness.
func (g *Gateway) handleTrackerPose(name string, args []interface{}) {
	if len(args) < 6 {
		return
	}
	var f [6]float32
	for i := range f {
		v, ok := args[i].(float32)
		if !ok {
			return
		}
		f[i] = v
	}

	pose := expression.Pose{
		Position:    mgl32.Vec3{f[0], f[1], f[2]},
		Orientation: quatZXY(f[3], f[4], f[5]),
	}

	switch name {
	case "head":
		g.data.Head = pose
		g.data.PoseSeenAt = time.Now()
	case "leftwrist":
		g.data.LeftHand = pose
	case "rightwrist":
		g.data.RightHand = pose
	}
}

// avatarChanged rebuilds the parameter table from the discovered
// schema, resends the remembered idle poses, and decides the drive
// mode from the heartbeat parameter's presence. A failed discovery
// counts as an avatar without the heartbeat: the idle poses still go
// out and the loop reverts to self-driving at once.
func (g *Gateway) avatarChanged(ctx context.Context) {
	g.trackingActive = false

	root, err := g.discovery.Avatar(ctx)
	if err != nil {
		g.logger.Warn("schema discovery failed, using default parameter set", "error", err)
		g.table.Defaults()
	} else if err := g.table.Rebuild(root); err != nil {
		g.logger.Warn("schema had no usable parameters, using default set", "error", err)
		g.table.Defaults()
	} else {
		g.metrics.SchemaRebuilds.Inc()
		g.logger.Info("parameter table rebuilt", "mapped", g.table.Active())
	}

	poses := bundle.New()
	g.loco.Avatar(poses)
	g.send(poses)

	hasHeartbeat := root != nil && root.HasParameter(g.cfg.HeartbeatParam)
	g.setSelfDrive(!hasHeartbeat)
	if !hasHeartbeat {
		g.logger.Warn("avatar does not expose the heartbeat parameter, staying self-driven",
			"parameter", g.cfg.HeartbeatParam)
		g.logger.Warn("add a synced bool parameter toggled every frame to let the consumer drive ticks",
			"parameter", g.cfg.HeartbeatParam)
	}
}

// tick runs one pipeline pass and returns the bundle it produced.
func (g *Gateway) tick(ctx context.Context, trigger string) *bundle.Bundle {
	start := time.Now()

	var deltaT float32
	if !g.lastTick.IsZero() {
		deltaT = float32(start.Sub(g.lastTick).Seconds())
	}
	g.lastTick = start

	g.tracker.TripTick()
	g.metrics.TicksTotal.WithLabelValues(trigger).Inc()

	b := bundle.New()

	if g.discovery.Step() {
		g.avatarChanged(ctx)
	}

	g.store.Step(b)

	afk, _ := g.params.BoolParam("AFK")
	motion, _ := g.params.IntParam("Motion")
	faceFreeze, _ := g.params.BoolParam("FaceFreeze")
	frozen := (motion == 1) != faceFreeze

	if !afk && !frozen {
		for _, backend := range g.backends {
			backend.Drain(g.data, g.fan)
		}
		g.data.RecomputeDerived(expression.DeriveEnv{
			BlushHint: g.blushHint(),
			DeltaT:    deltaT,
		})
	}

	if facePause, _ := g.params.BoolParam("FacePause"); !facePause {
		if !g.trackingActive {
			b.SendParameter("ExpressionTrackingActive", true)
			b.SendParameter("LipTrackingActive", true)
			g.trackingActive = true
		}
		g.table.Encode(g.data, b)
		g.gazeFallback(b)
	}

	g.loco.Step(g.params, b)
	g.pilot.Step(g.params, g.data, b)

	g.send(b)
	g.tracker.AddSent(b.Len())

	if line, ok := g.tracker.SummaryDue(); ok {
		g.logger.Info(line)
	}

	g.metrics.TickDuration.Observe(time.Since(start).Seconds())
	g.lastTickAt.Store(start.UnixNano())

	return b
}

// blushHint reports whether either blush trigger parameter is raised.
func (g *Gateway) blushHint() bool {
	for _, name := range []string{"BlushFace", "BlushNade"} {
		if v, ok := g.params.FloatParam(name); ok && v > 0.1 {
			return true
		}
	}
	return false
}

// gazeFallback sends raw gaze messages for avatars whose schema never
// mapped the eyelid channel, so eye movement still works without a
// face-tracking parameter set.
func (g *Gateway) gazeFallback(b *bundle.Bundle) {
	if g.table.Get(expression.EyeLidLeft.Index()) != nil {
		return
	}

	left, right := g.data.Eyes[0], g.data.Eyes[1]
	if left == nil || right == nil {
		return
	}

	b.SendTracking("/tracking/eye/LeftRightPitchYaw",
		-degrees(left.X()), -degrees(left.Y()),
		-degrees(right.X()), -degrees(right.Y()))

	closed := (g.data.GetU(expression.EyeClosedLeft) + g.data.GetU(expression.EyeClosedRight)) * 0.5
	b.SendTracking("/tracking/eye/EyesClosedAmount", clamp01(closed))
}

// send serializes the bundle and writes the datagrams to the consumer.
func (g *Gateway) send(b *bundle.Bundle) {
	if b.Len() == 0 {
		return
	}

	for _, m := range b.Messages() {
		switch {
		case strings.HasPrefix(m.Address, bundle.ParamPrefix):
			g.metrics.MessagesSent.WithLabelValues("parameter").Inc()
		case strings.HasPrefix(m.Address, bundle.InputPrefix):
			g.metrics.MessagesSent.WithLabelValues("input").Inc()
		default:
			g.metrics.MessagesSent.WithLabelValues("tracking").Inc()
		}
	}

	if g.upstream == nil {
		return
	}

	for _, datagram := range b.Datagrams(bundle.DefaultChunkSize) {
		if _, err := g.upstream.Write(datagram); err != nil {
			g.logger.Warn("consumer write failed", "error", err)
			continue
		}
		g.metrics.PacketsSent.Inc()
	}
}

// quatZXY builds an orientation from ZXY Euler angles in radians.
func quatZXY(ex, ey, ez float32) mgl32.Quat {
	qz := mgl32.QuatRotate(ez, mgl32.Vec3{0, 0, 1})
	qx := mgl32.QuatRotate(ex, mgl32.Vec3{1, 0, 0})
	qy := mgl32.QuatRotate(ey, mgl32.Vec3{0, 1, 0})
	return qz.Mul(qx).Mul(qy)
}

func degrees(rad float32) float32 {
	return rad * 180 / math.Pi
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
