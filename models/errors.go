package models

import "errors"

var (
	ErrAuthFailed       = errors.New("authentication failed")
	ErrCapacityExceeded = errors.New("server is full")
	ErrRateLimited      = errors.New("too many connection attempts")
	ErrMalformedMessage = errors.New("malformed message")
	ErrUnknownPlayer    = errors.New("unknown player")
	ErrIllegalIntent    = errors.New("intent not allowed in current phase")
	ErrNoRoute          = errors.New("no unreliable route to player")
	ErrSendBufferFull   = errors.New("send buffer is full")
)

// Wire reasons reported in JoinResponse.Error.
const (
	ReasonAuthFailed       = "AuthFailed"
	ReasonCapacityExceeded = "CapacityExceeded"
	ReasonRateLimited      = "RateLimited"
	ReasonMalformed        = "MalformedMessage"
)

// Reason maps an admission error to the reason string sent to the client.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrAuthFailed):
		return ReasonAuthFailed
	case errors.Is(err, ErrCapacityExceeded):
		return ReasonCapacityExceeded
	case errors.Is(err, ErrRateLimited):
		return ReasonRateLimited
	default:
		return ReasonMalformed
	}
}
