package collect

import (
	"fmt"
	"net/http"
)

type Request struct {
	URL    string
	Cookie string
	Header http.Header
}

type Response struct {
	URL    string
	Status int
	Header http.Header
	Body   []byte
}

// TransportError is a failure to obtain a response for URL. A response
// with an error status is not a TransportError.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
