package packet

import (
	"fmt"
	"math"
	"time"

	"github.com/pdf/goavea/common"
)

const (
	tagMask   = 0xf000
	valueMask = 0x0fff

	tagWhite = 0x8000
	tagRed   = 0x3000
	tagGreen = 0x2000
	tagBlue  = 0x1000

	// colorStateOffset skips the bytes preceding the color words in a color
	// response
	colorStateOffset = 3
)

// Fixed bytes following the fade delay of a color write
const (
	setColorReserved0 = 10
	setColorReserved1 = 0
)

type payloadColor struct {
	White uint16 `struc:"little"`
	Red   uint16 `struc:"little"`
	Green uint16 `struc:"little"`
	Blue  uint16 `struc:"little"`
}

type payloadSetColor struct {
	Delay     uint16 `struc:"little"`
	Reserved0 uint8
	Reserved1 uint8
	Color     payloadColor
}

type payloadBrightness struct {
	Level int16 `struc:"little"`
}

// NewGetName returns a name request
func NewGetName() *Packet {
	return New(Name)
}

// NewGetColor returns a color request
func NewGetColor() *Packet {
	return New(Color)
}

// NewGetBrightness returns a brightness request
func NewGetBrightness() *Packet {
	return New(Brightness)
}

// NewSetColor returns a color write fading over delay, at millisecond
// resolution. Delays beyond the 16 bit range are clamped.
func NewSetColor(color common.Color, delay time.Duration) (*Packet, error) {
	ms := delay / time.Millisecond
	if ms < 0 {
		ms = 0
	}
	if ms > math.MaxUint16 {
		ms = math.MaxUint16
	}
	p := &payloadSetColor{
		Delay:     uint16(ms),
		Reserved0: setColorReserved0,
		Reserved1: setColorReserved1,
		Color:     encodeColor(color),
	}
	pkt := New(Color)
	if err := pkt.SetPayload(p); err != nil {
		return nil, err
	}
	return pkt, nil
}

// NewSetBrightness returns a brightness write
func NewSetBrightness(level int16) (*Packet, error) {
	pkt := New(Brightness)
	if err := pkt.SetPayload(&payloadBrightness{Level: level}); err != nil {
		return nil, err
	}
	return pkt, nil
}

// DecodeName returns the UTF-8 name carried by a name response payload, minus
// its trailing terminator byte
func DecodeName(payload []byte) (string, error) {
	if len(payload) == 0 {
		return ``, fmt.Errorf("%w: name response has no terminator", common.ErrProtocolMismatch)
	}
	return string(payload[:len(payload)-1]), nil
}

// DecodeColor returns the color carried by a color response payload
func DecodeColor(payload []byte) (common.Color, error) {
	if len(payload) < colorStateOffset {
		return common.Color{}, fmt.Errorf("%w: color response is %d bytes", common.ErrProtocolMismatch, len(payload))
	}
	pkt := &Packet{Opcode: Color, Payload: payload[colorStateOffset:]}
	p := new(payloadColor)
	if err := pkt.DecodePayload(p); err != nil {
		return common.Color{}, err
	}
	return decodeColor(p)
}

// DecodeBrightness returns the level carried by a brightness response payload
func DecodeBrightness(payload []byte) (int16, error) {
	pkt := &Packet{Opcode: Brightness, Payload: payload}
	p := new(payloadBrightness)
	if err := pkt.DecodePayload(p); err != nil {
		return 0, err
	}
	return p.Level, nil
}

func encodeColor(c common.Color) payloadColor {
	c = c.Clamped()
	return payloadColor{
		White: tagWhite | c.White,
		Red:   tagRed | c.Red,
		Green: tagGreen | c.Green,
		Blue:  tagBlue | c.Blue,
	}
}

// The bulb tags each channel in the top nibble, so words are matched by tag
// rather than by position.
func decodeColor(p *payloadColor) (common.Color, error) {
	var (
		c    common.Color
		seen uint16
	)
	for _, word := range []uint16{p.White, p.Red, p.Green, p.Blue} {
		tag := word & tagMask
		switch tag {
		case tagWhite:
			c.White = word & valueMask
		case tagRed:
			c.Red = word & valueMask
		case tagGreen:
			c.Green = word & valueMask
		case tagBlue:
			c.Blue = word & valueMask
		default:
			return common.Color{}, fmt.Errorf("%w: unknown color channel 0x%04x", common.ErrProtocolMismatch, word)
		}
		if seen&(1<<(tag>>12)) != 0 {
			return common.Color{}, fmt.Errorf("%w: duplicate color channel 0x%04x", common.ErrProtocolMismatch, word)
		}
		seen |= 1 << (tag >> 12)
	}
	return c, nil
}
