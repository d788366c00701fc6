package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
)

// Codec converts values to and from their wire representation.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// JSONCodec is the default [Codec], backed by encoding/json.
type JSONCodec struct {
	// UseNumber decodes numbers into interface values as json.Number
	// instead of float64, preserving precision.
	UseNumber bool
	// DisallowUnknownFields fails decoding when an object has a key that
	// does not match a destination field.
	DisallowUnknownFields bool
}

func (c JSONCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (c JSONCodec) Unmarshal(data []byte, v any) error {
	d := json.NewDecoder(bytes.NewReader(data))

	if c.UseNumber {
		d.UseNumber()
	}
	if c.DisallowUnknownFields {
		d.DisallowUnknownFields()
	}

	if err := d.Decode(v); err != nil {
		return err
	}

	if _, err := d.Token(); !errors.Is(err, io.EOF) {
		return errors.New("unexpected data after top-level value")
	}

	return nil
}
