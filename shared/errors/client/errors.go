package client

import (
	"errors"
	"fmt"
)

var (
	ErrOracleUnreachable   = errors.New("oracle unreachable")
	ErrOracleNotFound      = errors.New("pool or denom pair not found")
	ErrBroadcastFailed     = errors.New("transaction broadcast failed")
	ErrUnsupportedEndpoint = errors.New("endpoint kind does not support this call")
	ErrEndpointUnreachable = errors.New("endpoint unreachable")
)

// OracleError is returned by every failed price read. Kind is either
// ErrOracleUnreachable or ErrOracleNotFound.
type OracleError struct {
	Kind     error
	Endpoint string
	Err      error
}

func NewUnreachable(endpoint string, err error) *OracleError {
	return &OracleError{Kind: ErrOracleUnreachable, Endpoint: endpoint, Err: err}
}

func NewNotFound(endpoint string, err error) *OracleError {
	return &OracleError{Kind: ErrOracleNotFound, Endpoint: endpoint, Err: err}
}

func (e *OracleError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%v (endpoint %s)", e.Kind, e.Endpoint)
	}
	return fmt.Sprintf("%v (endpoint %s): %v", e.Kind, e.Endpoint, e.Err)
}

func (e *OracleError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// BroadcastError carries the ledger's rejection code and log when the
// transaction reached the node, or only Err for transport failures.
type BroadcastError struct {
	Endpoint string
	Code     uint32
	Log      string
	Err      error
}

func (e *BroadcastError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%v (endpoint %s): code %d: %s", ErrBroadcastFailed, e.Endpoint, e.Code, e.Log)
	}
	return fmt.Sprintf("%v (endpoint %s): %v", ErrBroadcastFailed, e.Endpoint, e.Err)
}

func (e *BroadcastError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrBroadcastFailed}
	}
	return []error{ErrBroadcastFailed, e.Err}
}
