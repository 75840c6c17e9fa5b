package input

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"net"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/c360/facebridge/errors"
	"github.com/c360/facebridge/expression"
	"github.com/c360/facebridge/metric"
	"github.com/c360/facebridge/pkg/buffer"
)

const (
	// wivrnPort is where the WiVRn runtime pushes tracking datagrams.
	wivrnPort = 9009

	// wivrnPacketSize is the fixed wire layout: two eye gaze
	// quaternions followed by the extended face weight vector, all
	// little-endian float32.
	wivrnPacketSize = 4 * (8 + expression.FaceFBTongueWeights)

	wivrnQueueSize   = 8
	wivrnRebindDelay = 5 * time.Second
)

type wivrnFrame struct {
	eyes [2]mgl32.Vec3
	face [expression.FaceFBTongueWeights]float32
}

// WiVRn receives fixed-layout tracking datagrams from a WiVRn runtime.
type WiVRn struct {
	port   int
	logger *slog.Logger
	frames *buffer.Queue[*wivrnFrame]

	lastFace time.Time
}

// NewWiVRn creates the backend on the runtime's default port. A nil
// metrics registry disables queue metric export.
func NewWiVRn(logger *slog.Logger, metrics *metric.MetricsRegistry) (*WiVRn, error) {
	if logger == nil {
		logger = slog.Default()
	}
	frames := buffer.NewQueue[*wivrnFrame](wivrnQueueSize, buffer.DropNewest)
	if metrics != nil {
		if err := frames.ExportMetrics(metrics, "wivrn-input"); err != nil {
			return nil, errors.Wrap(err, "input", "NewWiVRn", "queue metrics")
		}
	}
	return &WiVRn{
		port:   wivrnPort,
		logger: logger,
		frames: frames,
	}, nil
}

// Name implements Receiver.
func (w *WiVRn) Name() string { return "WIVRN" }

// Start implements Receiver.
func (w *WiVRn) Start(ctx context.Context) error {
	go w.run(ctx)
	return nil
}

func (w *WiVRn) run(ctx context.Context) {
	for ctx.Err() == nil {
		conn, err := net.ListenUDP("udp", &net.UDPAddr{Port: w.port})
		if err != nil {
			w.logger.Warn("wivrn listener bind failed", "port", w.port, "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(wivrnRebindDelay):
			}
			continue
		}

		w.logger.Info("wivrn listener ready", "port", w.port)
		w.readLoop(ctx, conn)
		conn.Close()
	}
}

func (w *WiVRn) readLoop(ctx context.Context, conn *net.UDPConn) {
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	buf := make([]byte, 1000)
	for {
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() == nil {
				w.logger.Warn("wivrn listener read failed", "error", err)
			}
			return
		}

		frame, err := decodeWivrnPacket(buf[:n])
		if err != nil {
			w.logger.Warn("dropping wivrn packet", "error", err)
			continue
		}
		w.frames.Write(frame)
	}
}

// decodeWivrnPacket decodes one datagram. The layout is strict: any
// other size is rejected rather than partially read.
func decodeWivrnPacket(payload []byte) (*wivrnFrame, error) {
	if len(payload) != wivrnPacketSize {
		return nil, errors.WrapInvalid(errors.ErrShortPayload, "input", "decodeWivrnPacket",
			fmt.Sprintf("packet of %d bytes", len(payload)))
	}

	floats := make([]float32, len(payload)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(payload[i*4:]))
	}

	frame := &wivrnFrame{}
	for i := 0; i < 2; i++ {
		q := mgl32.Quat{
			W: floats[i*4+3],
			V: mgl32.Vec3{floats[i*4], floats[i*4+1], floats[i*4+2]},
		}
		frame.eyes[i] = expression.EulerZXY(q)
	}
	copy(frame.face[:], floats[8:])

	return frame, nil
}

// Drain implements Receiver.
func (w *WiVRn) Drain(data *expression.TrackingData, sink StatusSink) {
	for {
		frame, ok := w.frames.Read()
		if !ok {
			break
		}

		data.SetEye(0, frame.eyes[0])
		data.SetEye(1, frame.eyes[1])
		if err := data.ApplyFaceFB(frame.face[:]); err == nil {
			w.lastFace = time.Now()
		}
	}

	sink.SourceLive(w.Name(), live(w.lastFace))
}
