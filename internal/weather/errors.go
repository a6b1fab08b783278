package weather

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a current-weather request did not yield a WeatherInfo.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	// KindTransport covers connection failures, open breakers and unreadable bodies.
	KindTransport
	// KindMalformedURL means the request target could not be built.
	KindMalformedURL
	// KindDecode means the body did not match the shape expected for its status class.
	KindDecode
	// KindRemote is a non-2xx response carrying a decodable message.
	KindRemote
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindMalformedURL:
		return "malformed_url"
	case KindDecode:
		return "decode"
	case KindRemote:
		return "remote"
	default:
		return "unknown"
	}
}

// Error is the single error type returned by the weather client.
type Error struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.Kind == KindRemote:
		return fmt.Sprintf("remote error (HTTP %d): %s", e.StatusCode, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewTransportError(err error) *Error {
	return &Error{Kind: KindTransport, Err: err}
}

func NewMalformedURLError(err error) *Error {
	return &Error{Kind: KindMalformedURL, Err: err}
}

func NewDecodeError(statusCode int, err error) *Error {
	return &Error{Kind: KindDecode, StatusCode: statusCode, Err: err}
}

func NewRemoteError(statusCode int, message string) *Error {
	return &Error{Kind: KindRemote, StatusCode: statusCode, Message: message}
}

// KindOf reports the kind of err, or KindUnknown if err is not an *Error.
func KindOf(err error) ErrorKind {
	var werr *Error
	if errors.As(err, &werr) {
		return werr.Kind
	}
	return KindUnknown
}
