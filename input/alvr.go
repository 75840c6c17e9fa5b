package input

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gorilla/websocket"

	"github.com/c360/facebridge/errors"
	"github.com/c360/facebridge/expression"
	"github.com/c360/facebridge/metric"
	"github.com/c360/facebridge/pkg/buffer"
	"github.com/c360/facebridge/pkg/retry"
)

const (
	// alvrEventsURL is the streamer's local event websocket.
	alvrEventsURL = "ws://127.0.0.1:8082/api/events"

	// alvrQueueSize bounds frames between the socket goroutine and the
	// tick loop. Frames arrive at display rate; anything the loop did
	// not drain last tick is stale enough to shed.
	alvrQueueSize = 8

	alvrReconnectDelay = 5 * time.Second
)

// Device paths the event stream reports motions under.
const (
	alvrHeadPath      = "/user/head"
	alvrHandLeftPath  = "/user/hand/left"
	alvrHandRightPath = "/user/hand/right"
)

// alvrFrame is one decoded tracking event. Nil fields mean the event
// did not carry that piece.
type alvrFrame struct {
	eyes      [2]*mgl32.Vec3
	head      *expression.Pose
	leftHand  *expression.Pose
	rightHand *expression.Pose
	face      []float32
}

// ALVR streams tracking events from a local ALVR streamer over its
// websocket event API.
type ALVR struct {
	url    string
	logger *slog.Logger
	frames *buffer.Queue[*alvrFrame]

	lastFace time.Time
}

// NewALVR creates the backend against the default local streamer. A nil
// metrics registry disables queue metric export.
func NewALVR(logger *slog.Logger, metrics *metric.MetricsRegistry) (*ALVR, error) {
	if logger == nil {
		logger = slog.Default()
	}
	frames := buffer.NewQueue[*alvrFrame](alvrQueueSize, buffer.DropNewest)
	if metrics != nil {
		if err := frames.ExportMetrics(metrics, "alvr-input"); err != nil {
			return nil, errors.Wrap(err, "input", "NewALVR", "queue metrics")
		}
	}
	return &ALVR{
		url:    alvrEventsURL,
		logger: logger,
		frames: frames,
	}, nil
}

// Name implements Receiver.
func (a *ALVR) Name() string { return "ALVR" }

// Start implements Receiver. The goroutine reconnects with backoff for
// the life of ctx.
func (a *ALVR) Start(ctx context.Context) error {
	go a.run(ctx)
	return nil
}

func (a *ALVR) run(ctx context.Context) {
	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	header := http.Header{"X-ALVR": []string{"true"}}

	for ctx.Err() == nil {
		var conn *websocket.Conn
		err := retry.Do(ctx, retry.Persistent(), func() error {
			c, resp, err := dialer.DialContext(ctx, a.url, header)
			if resp != nil && resp.Body != nil {
				resp.Body.Close()
			}
			if err != nil {
				return errors.WrapTransient(err, "input", "alvr.run", "websocket dial")
			}
			conn = c
			return nil
		})
		if err != nil {
			select {
			case <-ctx.Done():
				return
			case <-time.After(alvrReconnectDelay):
			}
			continue
		}

		a.logger.Info("connected to alvr event stream", "url", a.url)
		a.readLoop(ctx, conn)
		conn.Close()

		select {
		case <-ctx.Done():
			return
		case <-time.After(alvrReconnectDelay):
		}
	}
}

func (a *ALVR) readLoop(ctx context.Context, conn *websocket.Conn) {
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		msgType, payload, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				a.logger.Warn("alvr event stream closed", "error", err)
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		if err := a.handleEvent(payload); err != nil {
			a.logger.Warn("dropping alvr event", "error", err)
		}
	}
}

// Event stream wire types. Quaternions arrive as [x, y, z, w], vectors
// as [x, y, z].
type alvrEvent struct {
	EventType alvrEventBody `json:"event_type"`
}

type alvrEventBody struct {
	ID   string          `json:"id"`
	Data json.RawMessage `json:"data"`
}

type alvrPose struct {
	Orientation [4]float32 `json:"orientation"`
	Position    [3]float32 `json:"position"`
}

func (p alvrPose) pose() expression.Pose {
	return expression.Pose{
		Orientation: mgl32.Quat{
			W: p.Orientation[3],
			V: mgl32.Vec3{p.Orientation[0], p.Orientation[1], p.Orientation[2]},
		},
		Position: mgl32.Vec3{p.Position[0], p.Position[1], p.Position[2]},
	}
}

// alvrDeviceMotion arrives as a two-element array: [devicePath, motion].
type alvrDeviceMotion struct {
	path string
	pose alvrPose
}

func (m *alvrDeviceMotion) UnmarshalJSON(b []byte) error {
	var raw [2]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if err := json.Unmarshal(raw[0], &m.path); err != nil {
		return err
	}
	var motion struct {
		Pose alvrPose `json:"pose"`
	}
	if err := json.Unmarshal(raw[1], &motion); err != nil {
		return err
	}
	m.pose = motion.Pose
	return nil
}

type alvrTracking struct {
	EyeGazes         [2]*alvrPose       `json:"eye_gazes"`
	DeviceMotions    []alvrDeviceMotion `json:"device_motions"`
	HandSkeletons    [2]*[]alvrPose     `json:"hand_skeletons"`
	FBFaceExpression []float32          `json:"fb_face_expression"`
}

func (a *ALVR) handleEvent(payload []byte) error {
	var event alvrEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return errors.WrapInvalid(errors.ErrParsingFailed, "input", "alvr.handleEvent", "event decode")
	}
	if event.EventType.ID != "Tracking" {
		return nil
	}

	var tracking alvrTracking
	if err := json.Unmarshal(event.EventType.Data, &tracking); err != nil {
		return errors.WrapInvalid(err, "input", "alvr.handleEvent", "tracking decode")
	}

	frame := &alvrFrame{}

	for i, gaze := range tracking.EyeGazes {
		if gaze == nil {
			continue
		}
		euler := expression.EulerYXZ(gaze.pose().Orientation)
		frame.eyes[i] = &euler
	}

	// Wrist poses: prefer the skeleton root, fall back to the device
	// motion entry.
	for i, skeleton := range tracking.HandSkeletons {
		if skeleton == nil || len(*skeleton) == 0 {
			continue
		}
		pose := (*skeleton)[0].pose()
		if i == 0 {
			frame.leftHand = &pose
		} else {
			frame.rightHand = &pose
		}
	}

	for _, motion := range tracking.DeviceMotions {
		pose := motion.pose.pose()
		switch motion.path {
		case alvrHeadPath:
			frame.head = &pose
		case alvrHandLeftPath:
			if frame.leftHand == nil {
				frame.leftHand = &pose
			}
		case alvrHandRightPath:
			if frame.rightHand == nil {
				frame.rightHand = &pose
			}
		}
	}

	if len(tracking.FBFaceExpression) > 0 {
		if len(tracking.FBFaceExpression) < expression.FaceFBWeights {
			return errors.WrapInvalid(errors.ErrShortPayload, "input", "alvr.handleEvent",
				fmt.Sprintf("face vector of %d weights", len(tracking.FBFaceExpression)))
		}
		frame.face = tracking.FBFaceExpression
	}

	a.frames.Write(frame)
	return nil
}

// Drain implements Receiver.
func (a *ALVR) Drain(data *expression.TrackingData, sink StatusSink) {
	for {
		frame, ok := a.frames.Read()
		if !ok {
			break
		}

		for i, eye := range frame.eyes {
			if eye != nil {
				data.SetEye(i, *eye)
			}
		}
		if frame.face != nil {
			if err := data.ApplyFaceFB(frame.face); err == nil {
				a.lastFace = time.Now()
			}
		}
		if frame.head != nil {
			data.Head = *frame.head
			data.PoseSeenAt = time.Now()
		}
		if frame.leftHand != nil {
			data.LeftHand = *frame.leftHand
		}
		if frame.rightHand != nil {
			data.RightHand = *frame.rightHand
		}
	}

	sink.SourceLive(a.Name(), live(a.lastFace))
}
