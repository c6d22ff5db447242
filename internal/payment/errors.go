package payment

import "errors"

// ErrorKind classifies why a submission or callback did not succeed.
type ErrorKind string

const (
	KindTransport         ErrorKind = "TransportError"
	KindMalformedResponse ErrorKind = "MalformedResponse"
	KindValidation        ErrorKind = "ValidationFailure"
	KindBusiness          ErrorKind = "BusinessError"
)

const (
	msgBodyMissing        = "response body missing"
	msgResultMissing      = "response JSON missing Result"
	msgSignatureMismatch  = "signatures do not match"
	msgAmountMismatch     = "order amounts do not match"
	msgPostbackFailed     = "payment callback failed"
	GenericErrorNotice    = "An error occurred, please try again or try an alternate form of payment."
	GenericOrderFailedMsg = "Order Failed, please contact us."
)

var (
	ErrGatewayUnavailable = errors.New("dwolla gateway is not configured")
	ErrMissingOrderID     = errors.New("order id missing")
	ErrInvalidPayload     = errors.New("invalid callback payload")
)
