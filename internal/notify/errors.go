package notify

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a delivery failure.
type ErrorKind int

const (
	// Transport means no response was received: connection refused, DNS
	// failure, timeout or cancellation.
	Transport ErrorKind = iota + 1
	// RemoteRejected means the endpoint answered with a non-2xx status.
	RemoteRejected
)

func (k ErrorKind) String() string {
	switch k {
	case Transport:
		return "transport"
	case RemoteRejected:
		return "remote_rejected"
	default:
		return "unknown"
	}
}

// DeliveryError is returned by Send when a notification was not accepted.
type DeliveryError struct {
	Kind       ErrorKind
	StatusCode int    // RemoteRejected only
	Body       string // RemoteRejected only, truncated
	Err        error  // Transport only
}

func (e *DeliveryError) Error() string {
	switch e.Kind {
	case RemoteRejected:
		if e.Body == "" {
			return fmt.Sprintf("webhook returned HTTP %d", e.StatusCode)
		}
		return fmt.Sprintf("webhook returned HTTP %d: %s", e.StatusCode, e.Body)
	default:
		return fmt.Sprintf("webhook transport: %v", e.Err)
	}
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// IsTransport reports whether err is a Transport DeliveryError.
func IsTransport(err error) bool {
	var de *DeliveryError
	return errors.As(err, &de) && de.Kind == Transport
}

// IsRemoteRejected reports whether err is a RemoteRejected DeliveryError.
func IsRemoteRejected(err error) bool {
	var de *DeliveryError
	return errors.As(err, &de) && de.Kind == RemoteRejected
}
