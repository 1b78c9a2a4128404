package mdq

import (
	"errors"
	"fmt"
)

// ErrFatalFetch is matched by every *FatalFetchError.
var ErrFatalFetch = errors.New("fatal metadata fetch")

// Reason classifies why a fetch was rejected.
type Reason string

const (
	ReasonTransport       Reason = "transport"
	ReasonStatus          Reason = "unexpected-status"
	ReasonNoContentType   Reason = "no-content-type"
	ReasonContentType     Reason = "invalid-content-type"
	ReasonReadBody        Reason = "read-body"
	ReasonBodyTooLarge    Reason = "body-too-large"
	ReasonInvalidXML      Reason = "invalid-xml"
	ReasonMissingEntityID Reason = "missing-entity-id"
)

// FatalFetchError reports a response the mirror refuses to store. The run
// that receives it must stop.
type FatalFetchError struct {
	URL         string
	Reason      Reason
	StatusCode  int
	ContentType string
	Err         error
}

func (e *FatalFetchError) Error() string {
	switch e.Reason {
	case ReasonStatus:
		return fmt.Sprintf("mdq returned %d for %s", e.StatusCode, e.URL)
	case ReasonNoContentType:
		return fmt.Sprintf("mdq returned no content-type for %s", e.URL)
	case ReasonContentType:
		return fmt.Sprintf("mdq returned invalid content-type %q for %s", e.ContentType, e.URL)
	case ReasonBodyTooLarge:
		return fmt.Sprintf("mdq response for %s exceeds %d bytes", e.URL, maxBodyBytes)
	case ReasonInvalidXML:
		return fmt.Sprintf("mdq returned invalid XML for %s: %v", e.URL, e.Err)
	case ReasonMissingEntityID:
		return fmt.Sprintf("mdq returned metadata without entityID for %s", e.URL)
	default:
		return fmt.Sprintf("mdq request for %s failed (%s): %v", e.URL, e.Reason, e.Err)
	}
}

func (e *FatalFetchError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrFatalFetch) hold for every fatal fetch.
func (e *FatalFetchError) Is(target error) bool { return target == ErrFatalFetch }

// ErrorKind classifies the failure as "network" or "external"; the CLI
// prints it next to the error.
func (e *FatalFetchError) ErrorKind() string {
	if e.Reason == ReasonTransport {
		return "network"
	}
	return "external"
}
