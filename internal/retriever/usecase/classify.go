package usecase

import (
	"strings"

	"github.com/shandysiswandi/otpbridge/internal/pkg/otpextract"
	"github.com/shandysiswandi/otpbridge/internal/retriever/entity"
)

// classify turns a delivery into the terminal event of its episode.
func classify(d entity.Delivery) entity.Event {
	switch d.Status {
	case entity.DeliveryStatusSuccess:
		if d.Message == nil || strings.TrimSpace(*d.Message) == "" {
			return failure(entity.ErrorKindInvalidFormat, "Empty SMS message")
		}
		code, ok := otpextract.Extract(*d.Message)
		if !ok {
			return failure(entity.ErrorKindInvalidFormat, "No valid OTP found in SMS")
		}
		return entity.Event{Type: entity.EventCodeReceived, Code: code}

	case entity.DeliveryStatusTimeout:
		return failure(entity.ErrorKindTimeout, "SMS retrieval timeout")

	case entity.DeliveryStatusAPINotConnected:
		return failure(entity.ErrorKindServiceUnavailable, "Google Play Services not available")

	case entity.DeliveryStatusMissing:
		return failure(entity.ErrorKindUnknown, "Invalid SMS status")

	default:
		return failure(entity.ErrorKindUnknown, "Unknown error: "+d.RawStatus)
	}
}

func failure(kind entity.ErrorKind, detail string) entity.Event {
	return entity.Event{Type: entity.EventError, Error: &entity.ErrorInfo{Kind: kind, Detail: detail}}
}
