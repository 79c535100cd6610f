// Package connect provides the Connect RPC remote-control service.
package connect

import (
	"encoding/json"

	"connectrpc.com/connect"
)

// codecName replaces connect's protobuf-backed JSON codec so plain Go
// structs can be used as messages.
const codecName = "json"

type jsonCodec struct{}

func (jsonCodec) Name() string { return codecName }

func (jsonCodec) Marshal(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

func (jsonCodec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, msg)
}

// WithJSON is the handler option every procedure is registered with.
func WithJSON() connect.HandlerOption {
	return connect.WithCodec(jsonCodec{})
}

var _ connect.Codec = jsonCodec{}
