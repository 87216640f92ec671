// Package oscio implements the two external collaborators of §6.1
// that speak OSC-over-UDP: a command receiver that decodes inbound
// OSC messages into control.Command values, and a Sink that packs a
// framebuffer into a single OSC blob per frame (§6.5). Grounded on the
// teacher's dmx.Service adaptive UDP transmission style, adapted here
// to OSC framing via github.com/hypebeast/go-osc instead of a raw
// Art-Net packet.
package oscio

import (
	"fmt"
	"log"

	"github.com/hypebeast/go-osc/osc"

	"github.com/lacylights-led/ledengine/internal/color"
	"github.com/lacylights-led/ledengine/internal/control"
)

// sinkAddress is the fixed OSC address frames are emitted to (§6.5).
const sinkAddress = "/light/serial"

// Receiver decodes inbound OSC messages and forwards them to a
// control.Surface as Commands. Unknown addresses are handled by the
// Surface itself (logged and dropped); the Receiver's job ends at
// decoding.
type Receiver struct {
	addr    string
	surface *control.Surface
	server  *osc.Server
}

// NewReceiver returns a Receiver bound to addr (e.g. "0.0.0.0:8765")
// that dispatches every received message to surface.
func NewReceiver(addr string, surface *control.Surface) *Receiver {
	return &Receiver{addr: addr, surface: surface}
}

// ListenAndServe blocks, decoding and dispatching messages until the
// underlying connection is closed. Run it in its own goroutine.
func (r *Receiver) ListenAndServe() error {
	dispatcher := osc.NewStandardDispatcher()
	err := dispatcher.AddMsgHandler("*", func(msg *osc.Message) {
		r.surface.Dispatch(control.Command{
			Address: msg.Address,
			Args:    filterArgs(msg.Address, msg.Arguments),
		})
	})
	if err != nil {
		return fmt.Errorf("oscio: registering wildcard handler: %w", err)
	}

	r.server = &osc.Server{Addr: r.addr, Dispatcher: dispatcher}
	return r.server.ListenAndServe()
}

// Sink emits one OSC message per frame to a fixed remote address,
// packing the framebuffer as N*4 bytes (R,G,B,0 per LED) into a
// single blob argument (§6.5). Satisfies the scheduler.Sink
// interface.
type Sink struct {
	client *osc.Client
}

// NewSink returns a Sink that sends to host:port via UDP.
func NewSink(host string, port int) *Sink {
	return &Sink{client: osc.NewClient(host, port)}
}

// packFrame packs fb into N*4 bytes in R,G,B,0 order per LED (§6.5).
func packFrame(fb []color.RGB) []byte {
	blob := make([]byte, 4*len(fb))
	for i, px := range fb {
		blob[4*i+0] = px.R
		blob[4*i+1] = px.G
		blob[4*i+2] = px.B
		blob[4*i+3] = 0
	}
	return blob
}

// Emit packs fb into a single OSC blob and sends it as one UDP
// datagram at /light/serial.
func (s *Sink) Emit(fb []color.RGB) error {
	blob := packFrame(fb)

	msg := osc.NewMessage(sinkAddress)
	msg.Append(blob)

	if err := s.client.Send(msg); err != nil {
		return fmt.Errorf("oscio: sending frame: %w", err)
	}
	return nil
}

// filterArgs keeps only the int/float/string argument types §6.1
// promises ControlSurface, dropping (and logging) anything else an
// OSC peer might send, such as a blob, bool, or timetag.
func filterArgs(address string, args []any) []any {
	out := make([]any, 0, len(args))
	for _, a := range args {
		switch a.(type) {
		case int32, int64, int, float32, float64, string:
			out = append(out, a)
		default:
			log.Printf("oscio: address %s: unsupported argument type %T, dropping", address, a)
		}
	}
	return out
}
