package models

import (
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// MaxMessageSize bounds a single reliable channel frame.
const MaxMessageSize = 64 * 1024

func Encode(t string, payload any) ([]byte, error) {
	if t == "" {
		return nil, fmt.Errorf("trying to encode envelope with empty type")
	}
	var raw json.RawMessage
	if payload != nil {
		pb, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s payload: %w", t, err)
		}
		raw = pb
	}
	return json.Marshal(Envelope{Type: t, Payload: raw})
}

func DecodeEnvelope(b []byte) (Envelope, error) {
	if len(b) == 0 {
		return Envelope{}, fmt.Errorf("%w: empty frame", ErrMalformedMessage)
	}
	if len(b) > MaxMessageSize {
		return Envelope{}, fmt.Errorf("%w: frame of %d bytes", ErrMalformedMessage, len(b))
	}
	var e Envelope
	if err := json.Unmarshal(b, &e); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if e.Type == "" || len(e.Type) > 20 {
		return Envelope{}, fmt.Errorf("%w: bad type %q", ErrMalformedMessage, e.Type)
	}
	return e, nil
}

// DecodePayload unmarshals the envelope payload into T. An absent payload
// yields the zero value of T.
func DecodePayload[T any](env Envelope) (T, error) {
	var out T
	if len(env.Payload) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(env.Payload, &out); err != nil {
		return out, fmt.Errorf("%w: %s payload: %v", ErrMalformedMessage, env.Type, err)
	}
	return out, nil
}

func EncodeDatagram(d Datagram) ([]byte, error) {
	data, err := msgpack.Marshal(&d)
	if err != nil {
		return nil, fmt.Errorf("encode datagram: %w", err)
	}
	return data, nil
}

func DecodeDatagram(b []byte) (Datagram, error) {
	var d Datagram
	if len(b) == 0 {
		return d, fmt.Errorf("%w: empty datagram", ErrMalformedMessage)
	}
	if err := msgpack.Unmarshal(b, &d); err != nil {
		return d, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if d.Type == "" {
		return d, fmt.Errorf("%w: datagram without type", ErrMalformedMessage)
	}
	return d, nil
}
