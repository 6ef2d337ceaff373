package errclass

import (
	"encoding/xml"
	"net/http"
)

// storeErrorBody is the error envelope S3-compatible stores return.
type storeErrorBody struct {
	XMLName xml.Name `xml:"Error"`
	Code    string   `xml:"Code"`
	Message string   `xml:"Message"`
}

// StoreCodeFromBody extracts the store error code from an S3-style XML error
// response; empty when the body is not parseable.
func StoreCodeFromBody(raw []byte) string {
	body := &storeErrorBody{}
	if err := xml.Unmarshal(raw, body); err != nil {
		return ""
	}
	return body.Code
}

// ClassifyServiceStatus maps a control-plane (transfer server) HTTP status to
// a failure class. 4xx request faults abort but keep the session; a server
// that answers 500/401/403 has disowned the session, so resumption state is
// worthless.
func ClassifyServiceStatus(status int, cause error) error {
	switch status {
	case http.StatusBadRequest, http.StatusNotFound:
		return NotRetryable(cause)
	case http.StatusInternalServerError, http.StatusUnauthorized, http.StatusForbidden:
		return NotResumable(cause)
	default:
		return Retryable(cause)
	}
}

// ClassifyStoreResponse maps a data-plane (object store) HTTP status plus the
// store-specific error code to a failure class. The mapping differs from the
// control plane: a 400 with a RequestTimeout code is transient, and a 403 on a
// pre-signed URL usually means the URL expired, which needs a fresh resolve
// rather than a session wipe.
func ClassifyStoreResponse(status int, code string, cause error) error {
	switch status {
	case http.StatusBadRequest:
		if code == "RequestTimeout" {
			return Retryable(cause)
		}
		return NotRetryable(cause)
	case http.StatusNotFound, http.StatusForbidden:
		return NotRetryable(cause)
	case http.StatusInternalServerError:
		return NotResumable(cause)
	default:
		return Retryable(cause)
	}
}
