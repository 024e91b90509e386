package health

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health/grpc_health_v1"
)

const watchInterval = time.Second

// Server answers grpc.health.v1 probes from a readiness function so that
// orchestrators see NOT_SERVING while the executor is stopped.
type Server struct {
	grpc_health_v1.UnimplementedHealthServer
	ready func() bool
}

func NewServer(ready func() bool) *Server {
	if ready == nil {
		ready = func() bool { return true }
	}

	return &Server{ready: ready}
}

func (s *Server) status() grpc_health_v1.HealthCheckResponse_ServingStatus {
	if s.ready() {
		return grpc_health_v1.HealthCheckResponse_SERVING
	}
	return grpc_health_v1.HealthCheckResponse_NOT_SERVING
}

func (s *Server) Check(
	ctx context.Context,
	request *grpc_health_v1.HealthCheckRequest,
) (*grpc_health_v1.HealthCheckResponse, error) {
	return &grpc_health_v1.HealthCheckResponse{Status: s.status()}, nil
}

func (s *Server) Watch(
	request *grpc_health_v1.HealthCheckRequest,
	stream grpc_health_v1.Health_WatchServer,
) error {
	last := s.status()
	if err := stream.Send(&grpc_health_v1.HealthCheckResponse{Status: last}); err != nil {
		return err
	}

	ticker := time.NewTicker(watchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stream.Context().Done():
			return nil
		case <-ticker.C:
			current := s.status()
			if current == last {
				continue
			}
			last = current
			if err := stream.Send(&grpc_health_v1.HealthCheckResponse{Status: current}); err != nil {
				return err
			}
		}
	}
}

func RegisterService(server *grpc.Server, ready func() bool) {
	grpc_health_v1.RegisterHealthServer(server, NewServer(ready))
}
