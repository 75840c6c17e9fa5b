package input

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/hypebeast/go-osc/osc"

	"github.com/c360/facebridge/errors"
	"github.com/c360/facebridge/expression"
	"github.com/c360/facebridge/metric"
	"github.com/c360/facebridge/pkg/buffer"
)

const (
	// babbleQueueSize is larger than the frame backends because every
	// OSC message is one channel, not one frame.
	babbleQueueSize = 128

	babbleRebindDelay = 5 * time.Second

	babbleReadBuffer = 1536
)

// babbleEvent is one channel update. Some source addresses fan out to
// several channels that share a value.
type babbleEvent struct {
	targets []expression.Unified
	value   float32
}

// Babble listens for OSC datagrams from ProjectBabble (mouth tracking)
// and EyeTrackVR (eye tracking). Both tools send to the same port.
type Babble struct {
	port   int
	logger *slog.Logger
	events *buffer.Queue[babbleEvent]

	lastMouth time.Time
	lastGaze  time.Time
}

// NewBabble creates the backend listening on the given localhost port.
// A nil metrics registry disables queue metric export.
func NewBabble(port int, logger *slog.Logger, metrics *metric.MetricsRegistry) (*Babble, error) {
	if logger == nil {
		logger = slog.Default()
	}
	events := buffer.NewQueue[babbleEvent](babbleQueueSize, buffer.DropNewest)
	if metrics != nil {
		if err := events.ExportMetrics(metrics, "babble-input"); err != nil {
			return nil, errors.Wrap(err, "input", "NewBabble", "queue metrics")
		}
	}
	return &Babble{
		port:   port,
		logger: logger,
		events: events,
	}, nil
}

// Name implements Receiver.
func (b *Babble) Name() string { return "BABBLE" }

// Start implements Receiver.
func (b *Babble) Start(ctx context.Context) error {
	go b.run(ctx)
	return nil
}

func (b *Babble) run(ctx context.Context) {
	for ctx.Err() == nil {
		conn, err := net.ListenUDP("udp", &net.UDPAddr{
			IP:   net.IPv4(127, 0, 0, 1),
			Port: b.port,
		})
		if err != nil {
			b.logger.Warn("babble listener bind failed", "port", b.port, "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(babbleRebindDelay):
			}
			continue
		}

		b.logger.Info("babble listener ready", "port", b.port)
		b.readLoop(ctx, conn)
		conn.Close()
	}
}

func (b *Babble) readLoop(ctx context.Context, conn *net.UDPConn) {
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	buf := make([]byte, babbleReadBuffer)
	for {
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() == nil {
				b.logger.Warn("babble listener read failed", "error", err)
			}
			return
		}

		packet, err := osc.ParsePacket(string(buf[:n]))
		if err != nil {
			b.logger.Warn("undecodable babble datagram", "error", err)
			continue
		}
		if err := b.handlePacket(packet); err != nil {
			b.logger.Warn("dropping babble message", "error", err)
		}
	}
}

func (b *Babble) handlePacket(packet osc.Packet) error {
	msg, ok := packet.(*osc.Message)
	if !ok {
		return nil
	}
	if len(msg.Arguments) == 0 {
		return errors.WrapInvalid(errors.ErrInvalidData, "input", "babble.handlePacket",
			fmt.Sprintf("message %s without arguments", msg.Address))
	}

	value, ok := msg.Arguments[0].(float32)
	if !ok {
		return errors.WrapInvalid(errors.ErrInvalidData, "input", "babble.handlePacket",
			fmt.Sprintf("message %s with non-float argument", msg.Address))
	}

	targets, ok := babbleAddrToUnified[msg.Address]
	if !ok {
		return nil
	}

	b.events.Write(babbleEvent{targets: targets, value: value})
	return nil
}

// Drain implements Receiver. Mouth and eye liveness are tracked
// separately since the two tools run independently.
func (b *Babble) Drain(data *expression.TrackingData, sink StatusSink) {
	for {
		event, ok := b.events.Read()
		if !ok {
			break
		}

		for _, target := range event.targets {
			data.SetU(target, event.value)
		}

		if event.targets[0] < expression.BrowPinchRight {
			b.lastGaze = time.Now()
		} else {
			b.lastMouth = time.Now()
		}
	}

	sink.SourceLive("BABBLE", live(b.lastMouth))
	sink.SourceLive("ETVR", live(b.lastGaze))
}

// babbleAddrToUnified maps incoming OSC addresses to channels. Babble
// publishes bare addresses; EyeTrackVR publishes under the avatar
// parameter prefix. Addresses coarser than the channel model fan out to
// every channel they cover.
var babbleAddrToUnified = map[string][]expression.Unified{
	// ProjectBabble
	"/cheekPuffLeft":  {expression.CheekPuffLeft},
	"/cheekPuffRight": {expression.CheekPuffRight},
	"/cheekSuckLeft":  {expression.CheekSuckLeft},
	"/cheekSuckRight": {expression.CheekSuckRight},
	"/jawOpen":        {expression.JawOpen},
	"/jawForward":     {expression.JawForward},
	"/jawLeft":        {expression.JawLeft},
	"/jawRight":       {expression.JawRight},
	"/noseSneerLeft":  {expression.NoseSneerLeft},
	"/noseSneerRight": {expression.NoseSneerRight},
	"/mouthFunnel": {
		expression.LipFunnelUpperRight, expression.LipFunnelUpperLeft,
		expression.LipFunnelLowerRight, expression.LipFunnelLowerLeft,
	},
	"/mouthPucker": {
		expression.LipPuckerUpperRight, expression.LipPuckerUpperLeft,
		expression.LipPuckerLowerRight, expression.LipPuckerLowerLeft,
	},
	"/mouthLeft":  {expression.MouthPressLeft},
	"/mouthRight": {expression.MouthPressRight},
	"/mouthRollUpper": {
		expression.LipSuckUpperRight, expression.LipSuckUpperLeft,
	},
	"/mouthRollLower": {
		expression.LipSuckLowerRight, expression.LipSuckLowerLeft,
	},
	"/mouthShrugUpper":    {expression.MouthRaiserUpper},
	"/mouthShrugLower":    {expression.MouthRaiserLower},
	"/mouthClose":         {expression.MouthClosed},
	"/mouthSmileLeft":     {expression.MouthCornerPullLeft},
	"/mouthSmileRight":    {expression.MouthCornerPullRight},
	"/mouthFrownLeft":     {expression.MouthFrownLeft},
	"/mouthFrownRight":    {expression.MouthFrownRight},
	"/mouthDimpleLeft":    {expression.MouthDimpleLeft},
	"/mouthDimpleRight":   {expression.MouthDimpleRight},
	"/mouthUpperUpLeft":   {expression.MouthUpperUpLeft},
	"/mouthUpperUpRight":  {expression.MouthUpperUpRight},
	"/mouthLowerDownLeft": {expression.MouthLowerDownLeft},
	"/mouthLowerDownRight": {
		expression.MouthLowerDownRight,
	},
	"/mouthStretchLeft":  {expression.MouthStretchLeft},
	"/mouthStretchRight": {expression.MouthStretchRight},
	"/tongueOut":         {expression.TongueOut},
	"/tongueUp":          {expression.TongueUp},
	"/tongueDown":        {expression.TongueDown},
	"/tongueLeft":        {expression.TongueLeft},
	"/tongueRight":       {expression.TongueRight},
	"/tongueRoll":        {expression.TongueRoll},
	"/tongueBendDown":    {expression.TongueBendDown},
	"/tongueCurlUp":      {expression.TongueCurlUp},
	"/tongueSquish":      {expression.TongueSquish},
	"/tongueFlat":        {expression.TongueFlat},
	"/tongueTwistLeft":   {expression.TongueTwistLeft},
	"/tongueTwistRight":  {expression.TongueTwistRight},
	"/mouthPressLeft":    {expression.MouthPressLeft},
	"/mouthPressRight":   {expression.MouthPressRight},

	// EyeTrackVR
	"/avatar/parameters/LeftEyeX":    {expression.EyeLeftX},
	"/avatar/parameters/RightEyeX":   {expression.EyeRightX},
	"/avatar/parameters/EyesY":       {expression.EyeY},
	"/avatar/parameters/LeftEyeLid":  {expression.EyeClosedLeft},
	"/avatar/parameters/RightEyeLid": {expression.EyeClosedRight},
}
