package models

import (
	"fmt"
	"strings"
	"time"
)

type EndpointKind string

const (
	EndpointKindRPC  EndpointKind = "rpc"
	EndpointKindREST EndpointKind = "rest"
	EndpointKindGRPC EndpointKind = "grpc"
)

func ParseEndpointKind(value string) (EndpointKind, error) {
	switch EndpointKind(strings.ToLower(strings.TrimSpace(value))) {
	case EndpointKindRPC:
		return EndpointKindRPC, nil
	case EndpointKindREST:
		return EndpointKindREST, nil
	case EndpointKindGRPC:
		return EndpointKindGRPC, nil
	default:
		return "", fmt.Errorf("unknown endpoint kind %q", value)
	}
}

type EndpointStatus uint8

const (
	EndpointStatusUnknown EndpointStatus = iota
	EndpointStatusOnline
	EndpointStatusOffline
)

func (s EndpointStatus) String() string {
	switch s {
	case EndpointStatusOnline:
		return "online"
	case EndpointStatusOffline:
		return "offline"
	default:
		return "unknown"
	}
}

type Endpoint struct {
	URL       string
	Kind      EndpointKind
	Status    EndpointStatus
	CheckedAt time.Time
}

func (e Endpoint) Online() bool {
	return e.Status == EndpointStatusOnline
}
