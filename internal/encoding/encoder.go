// Package encoding provides a buffer-pooled JSON codec for the large
// cluster result payloads written to and read from storage.
package encoding

import (
	"bytes"
	"encoding/json"
	"sync"
)

// Codec marshals and unmarshals JSON with pooled buffers so repeated
// result persistence does not reallocate per call.
type Codec struct {
	buffers sync.Pool
}

// NewCodec creates a new pooled JSON codec
func NewCodec() *Codec {
	return &Codec{
		buffers: sync.Pool{
			New: func() interface{} {
				return new(bytes.Buffer)
			},
		},
	}
}

// Marshal encodes v into a fresh byte slice using a pooled buffer.
func (c *Codec) Marshal(v interface{}) ([]byte, error) {
	buf := c.buffers.Get().(*bytes.Buffer)
	buf.Reset()
	defer c.buffers.Put(buf)

	enc := json.NewEncoder(buf)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}

	data := buf.Bytes()
	// json.Encoder appends a newline after each value
	if n := len(data); n > 0 && data[n-1] == '\n' {
		data = data[:n-1]
	}

	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Unmarshal decodes data into v.
func (c *Codec) Unmarshal(data []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	return dec.Decode(v)
}

var globalCodec = NewCodec()

// Marshal encodes v using the shared codec.
func Marshal(v interface{}) ([]byte, error) {
	return globalCodec.Marshal(v)
}

// Unmarshal decodes data using the shared codec.
func Unmarshal(data []byte, v interface{}) error {
	return globalCodec.Unmarshal(data, v)
}
