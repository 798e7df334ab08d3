package event

// SMSRetrievedDestination carries deliveries from the device agent: either an
// intercepted SMS or a platform failure status.
const SMSRetrievedDestination string = "sms_retrieved"
const SMSRetrievedConsumerRetriever string = "sms_retrieved_retriever"

// SMSRetrievedMessage is the wire form of one delivery. Status is a platform
// status name (SUCCESS, TIMEOUT, API_NOT_CONNECTED) and StatusCode the
// numeric platform code; either may be sent. Both absent is an invalid status.
type SMSRetrievedMessage struct {
	ID         string  `json:"id,omitempty"`
	Message    *string `json:"message"`
	Status     string  `json:"status,omitempty"`
	StatusCode *int    `json:"status_code,omitempty"`
}
