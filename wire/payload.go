package wire

// PayloadKind tags which variant of the publisher payload union is present.
type PayloadKind uint8

const (
	// KindInt is a signed integer value: 1-byte sign, 4-byte magnitude.
	KindInt PayloadKind = iota
	// KindShortReal is a non-negative value scaled by 100, 2-byte magnitude.
	KindShortReal
	// KindFloat is a signed mantissa/exponent pair: value = mantissa / 10^exponent.
	KindFloat
	// KindString is a variable-length text payload, up to 1500 bytes.
	KindString
)

// Per-kind wire size bounds from the protocol table.
const (
	intPayloadSize       = 5
	shortRealPayloadSize = 2
	floatPayloadSize     = 6
	minStringPayloadSize = 1
	// MaxStringPayloadSize bounds the STRING payload variant.
	MaxStringPayloadSize = 1500
)

// Payload is the decoded form of a publisher payload. Exactly one group of
// fields is meaningful, selected by Kind; this flat-struct shape (rather
// than an interface-per-variant) lets decode write in place without an
// allocation for every non-string variant, mirroring the "no heap-escape"
// discipline of the original wire codec.
type Payload struct {
	Kind PayloadKind

	IntNegative  bool
	IntMagnitude uint32

	// ShortRealMagnitude is 100x the real value; always non-negative.
	ShortRealMagnitude uint16

	FloatNegative bool
	FloatMantissa uint32
	// FloatExponent means "divide by 10^FloatExponent".
	FloatExponent uint8

	String string
}

// EncodedSize returns the number of wire bytes this payload occupies,
// excluding the topic and kind header fields.
func (p Payload) EncodedSize() int {
	switch p.Kind {
	case KindInt:
		return intPayloadSize
	case KindShortReal:
		return shortRealPayloadSize
	case KindFloat:
		return floatPayloadSize
	case KindString:
		return len(p.String)
	default:
		return 0
	}
}

// encodePayload appends the wire encoding of p to dst and returns the
// extended slice.
func encodePayload(dst []byte, p Payload) []byte {
	switch p.Kind {
	case KindInt:
		var b [intPayloadSize]byte
		if p.IntNegative {
			b[0] = 1
		}
		PutUint32(b[1:5], p.IntMagnitude)
		return append(dst, b[:]...)

	case KindShortReal:
		var b [shortRealPayloadSize]byte
		PutUint16(b[:], p.ShortRealMagnitude)
		return append(dst, b[:]...)

	case KindFloat:
		var b [floatPayloadSize]byte
		if p.FloatNegative {
			b[0] = 1
		}
		PutUint32(b[1:5], p.FloatMantissa)
		b[5] = p.FloatExponent
		return append(dst, b[:]...)

	case KindString:
		return append(dst, p.String...)

	default:
		return dst
	}
}

// decodePayload reads a payload of the given kind from buf, returning the
// decoded value and the number of bytes consumed.
func decodePayload(kind PayloadKind, buf []byte) (Payload, int, error) {
	switch kind {
	case KindInt:
		if len(buf) < intPayloadSize {
			return Payload{}, 0, ErrBufferTooSmall
		}
		return Payload{
			Kind:         KindInt,
			IntNegative:  buf[0] != 0,
			IntMagnitude: GetUint32(buf[1:5]),
		}, intPayloadSize, nil

	case KindShortReal:
		if len(buf) < shortRealPayloadSize {
			return Payload{}, 0, ErrBufferTooSmall
		}
		return Payload{
			Kind:               KindShortReal,
			ShortRealMagnitude: GetUint16(buf[:2]),
		}, shortRealPayloadSize, nil

	case KindFloat:
		if len(buf) < floatPayloadSize {
			return Payload{}, 0, ErrBufferTooSmall
		}
		return Payload{
			Kind:          KindFloat,
			FloatNegative: buf[0] != 0,
			FloatMantissa: GetUint32(buf[1:5]),
			FloatExponent: buf[5],
		}, floatPayloadSize, nil

	case KindString:
		if len(buf) < minStringPayloadSize {
			return Payload{}, 0, ErrBufferTooSmall
		}
		n := len(buf)
		if n > MaxStringPayloadSize {
			n = MaxStringPayloadSize
		}
		// A trailing NUL terminates the string early; anything after it
		// (within the datagram) is silently dropped, per the protocol.
		end := n
		for i := 0; i < n; i++ {
			if buf[i] == 0 {
				end = i
				break
			}
		}
		return Payload{
			Kind:   KindString,
			String: string(buf[:end]),
		}, n, nil

	default:
		return Payload{}, 0, ErrUnknownKind
	}
}
