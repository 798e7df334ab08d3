package entity

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Phase is the listener lifecycle phase. Succeeded and Failed are only ever
// observed inside a terminal transition; the session settles back to Idle.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseListening
	PhaseSucceeded
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseListening:
		return "LISTENING"
	case PhaseSucceeded:
		return "SUCCEEDED"
	case PhaseFailed:
		return "FAILED"
	default:
		return "IDLE"
	}
}

// ErrorKind classifies a failed episode.
type ErrorKind int

const (
	ErrorKindUnknown ErrorKind = iota
	ErrorKindTimeout
	ErrorKindPermissionDenied
	ErrorKindServiceUnavailable
	ErrorKindInvalidFormat
)

var errorKindNames = map[ErrorKind]string{
	ErrorKindUnknown:            "UNKNOWN_ERROR",
	ErrorKindTimeout:            "TIMEOUT",
	ErrorKindPermissionDenied:   "PERMISSION_DENIED",
	ErrorKindServiceUnavailable: "SERVICE_UNAVAILABLE",
	ErrorKindInvalidFormat:      "INVALID_SMS_FORMAT",
}

// ErrUnknownErrorKind is returned when decoding an unrecognised kind name.
var ErrUnknownErrorKind = errors.New("unknown error kind")

func (k ErrorKind) String() string {
	if s, ok := errorKindNames[k]; ok {
		return s
	}
	return errorKindNames[ErrorKindUnknown]
}

func (k ErrorKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *ErrorKind) UnmarshalText(b []byte) error {
	name := strings.ToUpper(strings.TrimSpace(string(b)))
	for kind, s := range errorKindNames {
		if s == name {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownErrorKind, b)
}

// DeliveryStatus is the platform status attached to a delivery.
type DeliveryStatus int

const (
	// DeliveryStatusMissing means the delivery carried no status at all.
	DeliveryStatusMissing DeliveryStatus = iota
	DeliveryStatusSuccess
	DeliveryStatusTimeout
	DeliveryStatusAPINotConnected
	DeliveryStatusOther
)

// Platform status codes.
const (
	StatusCodeSuccess         = 0
	StatusCodeTimeout         = 15
	StatusCodeAPINotConnected = 17
)

// NewDeliveryStatus maps a wire status to a DeliveryStatus. A numeric code
// wins over the name; a name may also be a number. The raw form is returned
// for messages about unrecognised statuses.
func NewDeliveryStatus(name string, code *int) (DeliveryStatus, string) {
	if code != nil {
		return fromCode(*code), strconv.Itoa(*code)
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return DeliveryStatusMissing, ""
	}
	if n, err := strconv.Atoi(name); err == nil {
		return fromCode(n), name
	}

	switch strings.ToUpper(name) {
	case "SUCCESS":
		return DeliveryStatusSuccess, name
	case "TIMEOUT":
		return DeliveryStatusTimeout, name
	case "API_NOT_CONNECTED":
		return DeliveryStatusAPINotConnected, name
	default:
		return DeliveryStatusOther, name
	}
}

func fromCode(code int) DeliveryStatus {
	switch code {
	case StatusCodeSuccess:
		return DeliveryStatusSuccess
	case StatusCodeTimeout:
		return DeliveryStatusTimeout
	case StatusCodeAPINotConnected:
		return DeliveryStatusAPINotConnected
	default:
		return DeliveryStatusOther
	}
}
