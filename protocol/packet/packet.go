// Package packet implements the Avea wire format.
//
// Every request and response starts with a one byte opcode, the bulb echoes
// the request opcode as the first byte of its response.
package packet

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/lunixbochs/struc"

	"github.com/pdf/goavea/common"
)

// Opcode identifies the operation a packet belongs to
type Opcode uint8

const (
	// Color reads or writes the bulb color
	Color Opcode = 0x35
	// Brightness reads or writes the bulb brightness
	Brightness Opcode = 0x57
	// Name reads the bulb name
	Name Opcode = 0x58
)

func (o Opcode) String() string {
	switch o {
	case Color:
		return `color`
	case Brightness:
		return `brightness`
	case Name:
		return `name`
	default:
		return fmt.Sprintf("0x%02x", uint8(o))
	}
}

// Packet is a single request or response frame
type Packet struct {
	Opcode  Opcode
	Payload []byte
}

// New returns a packet for op with an empty payload
func New(op Opcode) *Packet {
	return &Packet{Opcode: op}
}

// Decode splits a raw frame into opcode and payload
func Decode(data []byte) (*Packet, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty packet", common.ErrProtocolMismatch)
	}
	payload := make([]byte, len(data)-1)
	copy(payload, data[1:])
	return &Packet{Opcode: Opcode(data[0]), Payload: payload}, nil
}

// SetPayload packs the struc-tagged value p as the packet payload
func (p *Packet) SetPayload(payload any) error {
	buf := new(bytes.Buffer)
	if err := struc.Pack(buf, payload); err != nil {
		return err
	}
	p.Payload = buf.Bytes()
	return nil
}

// DecodePayload unpacks the packet payload into the struc-tagged value v
func (p *Packet) DecodePayload(v any) error {
	size, err := struc.Sizeof(v)
	if err != nil {
		return err
	}
	if len(p.Payload) < size {
		return fmt.Errorf("%w: %v payload is %d bytes, want at least %d", common.ErrProtocolMismatch, p.Opcode, len(p.Payload), size)
	}
	return struc.Unpack(bytes.NewReader(p.Payload), v)
}

// Encode returns the wire representation of the packet
func (p *Packet) Encode() []byte {
	data := make([]byte, 1+len(p.Payload))
	data[0] = byte(p.Opcode)
	copy(data[1:], p.Payload)
	return data
}

func (p *Packet) String() string {
	return fmt.Sprintf("%v[%s]", p.Opcode, hex.EncodeToString(p.Payload))
}
