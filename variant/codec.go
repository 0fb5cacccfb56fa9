package variant

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"reflect"

	"github.com/vmihailenco/msgpack/v5"
)

// Frame size limits for the wire codec.
const (
	// MaxFrameSize is the maximum frame size (16 MiB), including the
	// length prefix.
	MaxFrameSize = 16 * 1024 * 1024
	// LengthPrefixSize is the size of the length prefix in bytes.
	LengthPrefixSize = 4
	// MaxPayloadSize is the maximum payload size.
	MaxPayloadSize = MaxFrameSize - LengthPrefixSize
)

// FrameErrorKind classifies frame decoding errors.
type FrameErrorKind int

const (
	// FrameErrorPartial indicates a truncated or incomplete frame.
	FrameErrorPartial FrameErrorKind = iota
	// FrameErrorTooLarge indicates a frame exceeding MaxFrameSize.
	FrameErrorTooLarge
	// FrameErrorDecode indicates a msgpack encoding or decoding error, or
	// an unregistered event type or tag.
	FrameErrorDecode
)

// FrameError represents a frame encoding or decoding error.
type FrameError struct {
	Kind FrameErrorKind
	Msg  string
	Err  error
}

func (e *FrameError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *FrameError) Unwrap() error { return e.Err }

// envelope is the msgpack shape of one framed event.
type envelope struct {
	Tag     string             `msgpack:"tag"`
	Payload msgpack.RawMessage `msgpack:"payload"`
}

// FrameEncoder writes variant events as length-prefixed msgpack frames.
type FrameEncoder struct {
	w   io.Writer
	reg *Registry
}

// NewFrameEncoder creates an encoder over w using reg for wire tags.
func NewFrameEncoder(w io.Writer, reg *Registry) *FrameEncoder {
	return &FrameEncoder{w: w, reg: reg}
}

// WriteEvent encodes e's active alternative as a frame. Unregistered
// event types are an error.
func (enc *FrameEncoder) WriteEvent(e Event) error {
	tag, ok := enc.reg.TagOf(e.Value())
	if !ok {
		return &FrameError{Kind: FrameErrorDecode, Msg: fmt.Sprintf("unregistered event type %T", e.Value())}
	}
	payload, err := msgpack.Marshal(e.Value())
	if err != nil {
		return &FrameError{Kind: FrameErrorDecode, Msg: "failed to encode event payload", Err: err}
	}
	body, err := msgpack.Marshal(envelope{Tag: tag, Payload: payload})
	if err != nil {
		return &FrameError{Kind: FrameErrorDecode, Msg: "failed to encode frame envelope", Err: err}
	}
	if len(body) > MaxPayloadSize {
		return &FrameError{Kind: FrameErrorTooLarge, Msg: fmt.Sprintf("frame payload of %d bytes exceeds limit", len(body))}
	}
	var lengthBuf [LengthPrefixSize]byte
	binary.BigEndian.PutUint32(lengthBuf[:], uint32(len(body)))
	if _, err := enc.w.Write(lengthBuf[:]); err != nil {
		return err
	}
	_, err = enc.w.Write(body)
	return err
}

// FrameDecoder reads length-prefixed msgpack frames back into variant
// events.
type FrameDecoder struct {
	r   *bufio.Reader
	reg *Registry
}

// NewFrameDecoder creates a decoder over r using reg to resolve wire
// tags. r is wrapped with bufio.Reader to reduce syscall overhead on
// unbuffered sources.
func NewFrameDecoder(r io.Reader, reg *Registry) *FrameDecoder {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &FrameDecoder{r: br, reg: reg}
}

// ReadEvent reads one frame. Returns io.EOF when the stream ended cleanly
// at a frame boundary; a stream ending mid-frame is a FrameError with
// Kind FrameErrorPartial.
func (dec *FrameDecoder) ReadEvent() (Event, error) {
	var lengthBuf [LengthPrefixSize]byte
	if _, err := io.ReadFull(dec.r, lengthBuf[:]); err != nil {
		if err == io.EOF {
			return Event{}, io.EOF
		}
		return Event{}, &FrameError{Kind: FrameErrorPartial, Msg: "failed to read length prefix", Err: err}
	}
	payloadSize := binary.BigEndian.Uint32(lengthBuf[:])
	if payloadSize > MaxPayloadSize {
		return Event{}, &FrameError{Kind: FrameErrorTooLarge, Msg: fmt.Sprintf("frame payload of %d bytes exceeds limit", payloadSize)}
	}
	body := make([]byte, payloadSize)
	if _, err := io.ReadFull(dec.r, body); err != nil {
		return Event{}, &FrameError{Kind: FrameErrorPartial, Msg: "failed to read frame payload", Err: err}
	}

	var env envelope
	if err := msgpack.Unmarshal(body, &env); err != nil {
		return Event{}, &FrameError{Kind: FrameErrorDecode, Msg: "failed to decode frame envelope", Err: err}
	}
	t, ok := dec.reg.TypeOfTag(env.Tag)
	if !ok {
		return Event{}, &FrameError{Kind: FrameErrorDecode, Msg: fmt.Sprintf("unregistered frame tag %q", env.Tag)}
	}
	v := reflect.New(t)
	if err := msgpack.Unmarshal(env.Payload, v.Interface()); err != nil {
		return Event{}, &FrameError{Kind: FrameErrorDecode, Msg: "failed to decode event payload", Err: err}
	}
	return NewEvent(v.Elem().Interface()), nil
}

// IsFatalFrameError reports whether err is a partial or oversized frame,
// after which the stream cannot be resynchronized.
func IsFatalFrameError(err error) bool {
	var fe *FrameError
	if errors.As(err, &fe) {
		return fe.Kind == FrameErrorPartial || fe.Kind == FrameErrorTooLarge
	}
	return false
}
