package splitpayv1

import (
	"bytes"
	"encoding/json"
	"fmt"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
)

// CodecName is registered as the "json" codec so requests use application/json.
const CodecName = "json"

// Codec marshals plain message structs with encoding/json and protobuf
// messages (emptypb.Empty) with protojson.
type Codec struct{}

var _ connect.Codec = Codec{}

// WithCodec is the option handlers and clients in this package install.
func WithCodec() connect.Option {
	return connect.WithCodec(Codec{})
}

func (Codec) Name() string { return CodecName }

func (Codec) Marshal(msg any) ([]byte, error) {
	if m, ok := msg.(proto.Message); ok {
		return protojson.Marshal(m)
	}
	return json.Marshal(msg)
}

func (Codec) Unmarshal(data []byte, msg any) error {
	// Connect sends an empty body for empty messages
	if len(bytes.TrimSpace(data)) == 0 {
		data = []byte("{}")
	}
	if m, ok := msg.(proto.Message); ok {
		return protojson.UnmarshalOptions{DiscardUnknown: true}.Unmarshal(data, m)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(msg); err != nil {
		return fmt.Errorf("invalid json: %w", err)
	}
	return nil
}
