package viewstate

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"math/big"
	"time"
	"unicode/utf8"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultVersion is stamped on encoded snapshots unless WithVersion is used.
const DefaultVersion = 1

const macSize = sha256.Size

// CodecOption configures a Codec.
type CodecOption func(*Codec)

// WithMACKey signs encoded blobs with HMAC-SHA256 and rejects blobs whose
// signature does not verify.
func WithMACKey(key []byte) CodecOption {
	return func(c *Codec) {
		c.key = append([]byte(nil), key...)
	}
}

// WithVersion sets the snapshot version. Decoding a blob of another version
// fails.
func WithVersion(version int) CodecOption {
	return func(c *Codec) {
		if version > 0 {
			c.version = version
		}
	}
}

// WithCodecLogger attaches a logger to encode/decode passes.
func WithCodecLogger(logger Logger) CodecOption {
	return func(c *Codec) {
		c.logger = loggerOrNoop(logger)
	}
}

// Codec turns snapshots into opaque strings and back. Values keep their Go
// type across the round trip.
type Codec struct {
	version int
	key     []byte
	logger  Logger
}

// NewCodec constructs a codec.
func NewCodec(opts ...CodecOption) *Codec {
	c := &Codec{version: DefaultVersion, logger: noopLogger{}}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Version returns the snapshot version this codec writes and accepts.
func (c *Codec) Version() int {
	return c.version
}

// Encode serializes snapshot. A nil snapshot encodes to the empty string.
func (c *Codec) Encode(snapshot *Snapshot) (string, error) {
	if snapshot == nil {
		return "", nil
	}
	start := time.Now()
	wire, err := toWire(snapshot)
	if err != nil {
		c.logger.LogState(LogEvent{Op: "encode", Err: err})
		return "", err
	}
	wire.Version = c.version
	payload, err := json.Marshal(wire)
	if err != nil {
		c.logger.LogState(LogEvent{Op: "encode", Err: err})
		return "", fmt.Errorf("viewstate: encode: %w", err)
	}
	if len(c.key) > 0 {
		payload = append(payload, c.sign(payload)...)
	}
	blob := base64.RawURLEncoding.EncodeToString(payload)
	c.logger.LogState(LogEvent{Op: "encode", Entries: len(snapshot.Entries), Slots: len(snapshot.Slots), Bytes: len(blob), Duration: time.Since(start)})
	return blob, nil
}

// Decode parses blob. The empty string decodes to a nil snapshot.
func (c *Codec) Decode(blob string) (*Snapshot, error) {
	if blob == "" {
		return nil, nil
	}
	start := time.Now()
	snapshot, err := c.decode(blob)
	if err != nil {
		c.logger.LogState(LogEvent{Op: "decode", Bytes: len(blob), Err: err})
		return nil, err
	}
	c.logger.LogState(LogEvent{Op: "decode", Entries: len(snapshot.Entries), Slots: len(snapshot.Slots), Bytes: len(blob), Duration: time.Since(start)})
	return snapshot, nil
}

func (c *Codec) decode(blob string) (*Snapshot, error) {
	payload, err := base64.RawURLEncoding.DecodeString(blob)
	if err != nil {
		return nil, &StateCorruptionError{Op: "decode", Slot: -1, Reason: "invalid encoding", Err: err}
	}
	if len(c.key) > 0 {
		if len(payload) < macSize {
			return nil, corruptf("decode", "", "blob shorter than signature")
		}
		body, mac := payload[:len(payload)-macSize], payload[len(payload)-macSize:]
		if !hmac.Equal(mac, c.sign(body)) {
			return nil, corruptf("decode", "", "signature mismatch")
		}
		payload = body
	}
	var wire wireSnapshot
	if err := json.Unmarshal(payload, &wire); err != nil {
		return nil, &StateCorruptionError{Op: "decode", Slot: -1, Reason: "invalid payload", Err: err}
	}
	if wire.Version != c.version {
		return nil, corruptf("decode", "", "version %d, expected %d", wire.Version, c.version)
	}
	snapshot, err := fromWire(&wire)
	if err != nil {
		return nil, wrapCorruption("decode", "", -1, err)
	}
	snapshot.Version = wire.Version
	return snapshot, nil
}

func (c *Codec) sign(payload []byte) []byte {
	mac := hmac.New(sha256.New, c.key)
	mac.Write(payload)
	return mac.Sum(nil)
}

type wireSnapshot struct {
	Version int             `json:"v,omitempty"`
	Entries []wireEntry     `json:"e,omitempty"`
	Slots   []*wireSnapshot `json:"s,omitempty"`
}

type wireEntry struct {
	Key   string    `json:"k"`
	Value wireValue `json:"v"`
}

// wireDecimal keeps the exponent so 1.50 does not come back as 1.5.
type wireDecimal struct {
	Coefficient string `json:"c"`
	Exponent    int32  `json:"e"`
}

type wireValue struct {
	Tag  string          `json:"t"`
	Data json.RawMessage `json:"d,omitempty"`
}

func toWire(s *Snapshot) (*wireSnapshot, error) {
	out := &wireSnapshot{}
	for _, entry := range s.Entries {
		value, err := encodeValue(entry.Value)
		if err != nil {
			return nil, fmt.Errorf("viewstate: encode key %q: %w", entry.Key, err)
		}
		out.Entries = append(out.Entries, wireEntry{Key: entry.Key, Value: value})
	}
	if len(s.Slots) > 0 {
		out.Slots = make([]*wireSnapshot, len(s.Slots))
		for i, slot := range s.Slots {
			if slot == nil {
				continue
			}
			child, err := toWire(slot)
			if err != nil {
				return nil, fmt.Errorf("viewstate: encode slot %d: %w", i, err)
			}
			out.Slots[i] = child
		}
	}
	return out, nil
}

func fromWire(w *wireSnapshot) (*Snapshot, error) {
	out := &Snapshot{}
	for _, entry := range w.Entries {
		if entry.Key == "" {
			return nil, corruptf("decode", "", "entry with empty key")
		}
		value, err := decodeValue(entry.Value)
		if err != nil {
			return nil, &StateCorruptionError{Op: "decode", Slot: -1, Key: entry.Key, Err: err}
		}
		out.Entries = append(out.Entries, Entry{Key: entry.Key, Value: value})
	}
	if len(w.Slots) > 0 {
		out.Slots = make([]*Snapshot, len(w.Slots))
		for i, slot := range w.Slots {
			if slot == nil {
				continue
			}
			child, err := fromWire(slot)
			if err != nil {
				return nil, wrapCorruption("decode", "", i, err)
			}
			out.Slots[i] = child
		}
	}
	return out, nil
}

// nullData marks a typed nil slice or map.
var nullData = json.RawMessage("null")

func isNull(data json.RawMessage) bool {
	return string(data) == "null"
}

func tagged(tag string, v any) (wireValue, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return wireValue{}, err
	}
	return wireValue{Tag: tag, Data: raw}, nil
}

func encodeValue(value any) (wireValue, error) {
	switch v := value.(type) {
	case nil:
		return wireValue{Tag: "n"}, nil
	case string:
		if !utf8.ValidString(v) {
			return tagged("sb", []byte(v))
		}
		return tagged("s", v)
	case bool:
		return tagged("b", v)
	case int:
		return tagged("i", v)
	case int32:
		return tagged("i32", v)
	case int64:
		return tagged("i64", v)
	case uint:
		return tagged("u", v)
	case uint64:
		return tagged("u64", v)
	case float32:
		return tagged("f32", v)
	case float64:
		return tagged("f", v)
	case []byte:
		return tagged("bin", v)
	case time.Time:
		raw, err := v.MarshalBinary()
		if err != nil {
			return wireValue{}, err
		}
		return tagged("t", raw)
	case time.Duration:
		return tagged("dur", int64(v))
	case decimal.Decimal:
		return tagged("dec", wireDecimal{Coefficient: v.Coefficient().String(), Exponent: v.Exponent()})
	case uuid.UUID:
		return tagged("id", v.String())
	case []string:
		return tagged("ss", v)
	case []int:
		return tagged("is", v)
	case []time.Time:
		if v == nil {
			return wireValue{Tag: "ts", Data: nullData}, nil
		}
		items := make([]wireValue, len(v))
		for i, item := range v {
			encoded, err := encodeValue(item)
			if err != nil {
				return wireValue{}, err
			}
			items[i] = encoded
		}
		return tagged("ts", items)
	case []any:
		if v == nil {
			return wireValue{Tag: "a", Data: nullData}, nil
		}
		items := make([]wireValue, len(v))
		for i, item := range v {
			encoded, err := encodeValue(item)
			if err != nil {
				return wireValue{}, fmt.Errorf("index %d: %w", i, err)
			}
			items[i] = encoded
		}
		return tagged("a", items)
	case map[string]any:
		if v == nil {
			return wireValue{Tag: "m", Data: nullData}, nil
		}
		items := make(map[string]wireValue, len(v))
		for key, item := range v {
			encoded, err := encodeValue(item)
			if err != nil {
				return wireValue{}, fmt.Errorf("key %q: %w", key, err)
			}
			items[key] = encoded
		}
		return tagged("m", items)
	case *Snapshot:
		if v == nil {
			return wireValue{Tag: "n"}, nil
		}
		nested, err := toWire(v)
		if err != nil {
			return wireValue{}, err
		}
		return tagged("x", nested)
	default:
		return wireValue{}, fmt.Errorf("unsupported value type %T", value)
	}
}

func decodeValue(w wireValue) (any, error) {
	switch w.Tag {
	case "n":
		return nil, nil
	case "s":
		return decodeAs[string](w.Data)
	case "sb":
		raw, err := decodeAs[[]byte](w.Data)
		if err != nil {
			return nil, err
		}
		return string(raw), nil
	case "b":
		return decodeAs[bool](w.Data)
	case "i":
		return decodeAs[int](w.Data)
	case "i32":
		return decodeAs[int32](w.Data)
	case "i64":
		return decodeAs[int64](w.Data)
	case "u":
		return decodeAs[uint](w.Data)
	case "u64":
		return decodeAs[uint64](w.Data)
	case "f32":
		return decodeAs[float32](w.Data)
	case "f":
		return decodeAs[float64](w.Data)
	case "bin":
		return decodeAs[[]byte](w.Data)
	case "t":
		raw, err := decodeAs[[]byte](w.Data)
		if err != nil {
			return nil, err
		}
		var t time.Time
		if err := t.UnmarshalBinary(raw); err != nil {
			return nil, err
		}
		return t, nil
	case "dur":
		n, err := decodeAs[int64](w.Data)
		if err != nil {
			return nil, err
		}
		return time.Duration(n), nil
	case "dec":
		d, err := decodeAs[wireDecimal](w.Data)
		if err != nil {
			return nil, err
		}
		coefficient, ok := new(big.Int).SetString(d.Coefficient, 10)
		if !ok {
			return nil, fmt.Errorf("invalid decimal coefficient %q", d.Coefficient)
		}
		return decimal.NewFromBigInt(coefficient, d.Exponent), nil
	case "id":
		s, err := decodeAs[string](w.Data)
		if err != nil {
			return nil, err
		}
		return uuid.Parse(s)
	case "ss":
		return decodeAs[[]string](w.Data)
	case "is":
		return decodeAs[[]int](w.Data)
	case "ts":
		if isNull(w.Data) {
			return []time.Time(nil), nil
		}
		items, err := decodeAs[[]wireValue](w.Data)
		if err != nil {
			return nil, err
		}
		out := make([]time.Time, len(items))
		for i, item := range items {
			value, err := decodeValue(item)
			if err != nil {
				return nil, err
			}
			t, ok := value.(time.Time)
			if !ok {
				return nil, fmt.Errorf("index %d: expected time, got %T", i, value)
			}
			out[i] = t
		}
		return out, nil
	case "a":
		if isNull(w.Data) {
			return []any(nil), nil
		}
		items, err := decodeAs[[]wireValue](w.Data)
		if err != nil {
			return nil, err
		}
		out := make([]any, len(items))
		for i, item := range items {
			value, err := decodeValue(item)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			out[i] = value
		}
		return out, nil
	case "m":
		if isNull(w.Data) {
			return map[string]any(nil), nil
		}
		items, err := decodeAs[map[string]wireValue](w.Data)
		if err != nil {
			return nil, err
		}
		out := make(map[string]any, len(items))
		for key, item := range items {
			value, err := decodeValue(item)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", key, err)
			}
			out[key] = value
		}
		return out, nil
	case "x":
		nested, err := decodeAs[wireSnapshot](w.Data)
		if err != nil {
			return nil, err
		}
		return fromWire(&nested)
	default:
		return nil, fmt.Errorf("unknown value tag %q", w.Tag)
	}
}

func decodeAs[T any](raw json.RawMessage) (T, error) {
	var out T
	if len(raw) == 0 {
		return out, fmt.Errorf("missing value data")
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, err
	}
	return out, nil
}
