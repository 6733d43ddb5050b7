package statusapi

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// codecName is the content-subtype of the Companion service messages.
const codecName = "json"

// jsonCodec carries plain Go structs over gRPC so the service needs no
// generated protobuf code. Only calls made with
// grpc.CallContentSubtype(codecName) use it.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

func (jsonCodec) Name() string { return codecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
