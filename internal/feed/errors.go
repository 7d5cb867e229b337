package feed

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"

	"c1fapp/internal/apierr"
)

// UnexpectedError is a non-success response from C1fApp that is not a
// recognized "no data" answer.
type UnexpectedError struct {
	StatusCode int
	Body       string
}

func (e *UnexpectedError) Error() string {
	return fmt.Sprintf("c1fapp: unexpected response (status %d): %s", e.StatusCode, e.Body)
}

// Entry maps the upstream status to a Threat Response code.
func (e *UnexpectedError) Entry() apierr.Entry {
	return apierr.NewEntry(apierr.CodeForStatus(e.StatusCode), "Unexpected response from C1fApp: "+e.Body)
}

// TransportSecurityError reports a failed TLS certificate verification.
type TransportSecurityError struct {
	Detail string
	Err    error
}

func (e *TransportSecurityError) Error() string {
	return "c1fapp: tls verification failed: " + e.Detail
}

func (e *TransportSecurityError) Unwrap() error { return e.Err }

// Entry reports the verification failure under the unknown code.
func (e *TransportSecurityError) Entry() apierr.Entry {
	return apierr.NewEntry(apierr.CodeUnknown, "Unable to verify SSL certificate: "+e.Detail)
}

// IsUnexpected reports whether err is an UnexpectedError.
func IsUnexpected(err error) bool {
	var ue *UnexpectedError
	return errors.As(err, &ue)
}

// IsTransportSecurity reports whether err is a TransportSecurityError.
func IsTransportSecurity(err error) bool {
	var tse *TransportSecurityError
	return errors.As(err, &tse)
}

// asTransportSecurity recognizes certificate verification failures in a
// transport error chain.
func asTransportSecurity(err error) (*TransportSecurityError, bool) {
	var (
		verifyErr   *tls.CertificateVerificationError
		unknownAuth x509.UnknownAuthorityError
		hostErr     x509.HostnameError
		invalidErr  x509.CertificateInvalidError
	)
	switch {
	case errors.As(err, &verifyErr):
		return &TransportSecurityError{Detail: verifyErr.Err.Error(), Err: err}, true
	case errors.As(err, &unknownAuth):
		return &TransportSecurityError{Detail: unknownAuth.Error(), Err: err}, true
	case errors.As(err, &hostErr):
		return &TransportSecurityError{Detail: hostErr.Error(), Err: err}, true
	case errors.As(err, &invalidErr):
		return &TransportSecurityError{Detail: invalidErr.Error(), Err: err}, true
	}
	return nil, false
}
