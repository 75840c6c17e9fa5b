// Package bundle assembles the OSC messages produced during one gateway
// tick and serializes them into UDP datagrams for the consumer.
package bundle

import (
	"log/slog"
	"time"

	"github.com/hypebeast/go-osc/osc"
)

// Address prefixes on the consumer's OSC surface.
const (
	// ParamPrefix is where avatar parameters live, inbound and outbound.
	ParamPrefix = "/avatar/parameters/"

	// InputPrefix carries synthetic controller input (axes and buttons).
	InputPrefix = "/input/"

	// TrackerPrefix is where the consumer reports tracker poses.
	TrackerPrefix = "/tracking/trackers/"

	// AvatarChangeAddress signals that the consumer switched avatars.
	AvatarChangeAddress = "/avatar/change"

	// ChatboxAddress accepts chatbox text.
	ChatboxAddress = "/chatbox/input"
)

// DefaultChunkSize is how many messages fit one outbound bundle.
const DefaultChunkSize = 30

// Bundle collects the messages of one tick in send order.
type Bundle struct {
	messages []*osc.Message
	logger   *slog.Logger
}

// New returns an empty bundle.
func New() *Bundle {
	return &Bundle{logger: slog.Default()}
}

// Len returns the number of queued messages.
func (b *Bundle) Len() int { return len(b.messages) }

// Messages returns the queued messages in send order.
func (b *Bundle) Messages() []*osc.Message { return b.messages }

// SendParameter queues an avatar parameter write. Value must be an OSC
// representable type (float32, bool, int32, string).
func (b *Bundle) SendParameter(name string, value interface{}) {
	b.messages = append(b.messages, osc.NewMessage(ParamPrefix+name, value))
}

// SendInputAxis queues a synthetic input axis value.
func (b *Bundle) SendInputAxis(name string, value float32) {
	b.messages = append(b.messages, osc.NewMessage(InputPrefix+name, value))
}

// SendInputButton queues a synthetic input button press. The consumer
// expects buttons as 0/1 floats.
func (b *Bundle) SendInputButton(name string, pressed bool) {
	v := float32(0)
	if pressed {
		v = 1
	}
	b.messages = append(b.messages, osc.NewMessage(InputPrefix+name, v))
}

// SendTracking queues a message at a raw tracking address.
func (b *Bundle) SendTracking(addr string, args ...interface{}) {
	b.messages = append(b.messages, osc.NewMessage(addr, args...))
}

// SendChatbox queues a chatbox message.
func (b *Bundle) SendChatbox(message string, openKeyboard, playSound bool) {
	b.messages = append(b.messages, osc.NewMessage(ChatboxAddress, message, openKeyboard, playSound))
}

// Datagrams serializes the queued messages into wire datagrams.
//
// The first message always goes out unbundled, so the heartbeat or a
// lone parameter write avoids bundle framing. The rest are grouped into
// OSC bundles of chunkSize messages. Empty chunks produce nothing; a
// message or chunk that fails to serialize is dropped with a warning
// and the rest still go out.
func (b *Bundle) Datagrams(chunkSize int) [][]byte {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	msgs := b.messages
	if len(msgs) == 0 {
		return nil
	}

	var out [][]byte

	data, err := msgs[0].MarshalBinary()
	if err != nil {
		b.logger.Warn("dropping unserializable message", "addr", msgs[0].Address, "error", err)
	} else {
		out = append(out, data)
	}
	msgs = msgs[1:]

	for start := 0; start < len(msgs); start += chunkSize {
		end := start + chunkSize
		if end > len(msgs) {
			end = len(msgs)
		}

		chunk := osc.NewBundle(time.Time{})
		for _, m := range msgs[start:end] {
			if err := chunk.Append(m); err != nil {
				b.logger.Warn("dropping message from chunk", "addr", m.Address, "error", err)
			}
		}
		if len(chunk.Messages) == 0 {
			continue
		}

		data, err := chunk.MarshalBinary()
		if err != nil {
			b.logger.Warn("dropping unserializable chunk", "messages", end-start, "error", err)
			continue
		}
		out = append(out, data)
	}

	return out
}
