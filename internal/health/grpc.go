package health

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName - имя сервиса в gRPC health protocol.
const ServiceName = "customers.v1.CustomerService"

// ServingStatus переводит статус проверок в статус gRPC health.
// Degraded считается SERVING: необязательные компоненты не выводят сервис из балансировки.
func ServingStatus(s Status) healthpb.HealthCheckResponse_ServingStatus {
	if s == StatusUnhealthy {
		return healthpb.HealthCheckResponse_NOT_SERVING
	}
	return healthpb.HealthCheckResponse_SERVING
}

// SyncGRPC периодически переносит результат проверок в gRPC health server до отмены ctx.
func SyncGRPC(ctx context.Context, h *Handler, srv *health.Server, interval time.Duration, logger *log.Entry) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	last := healthpb.HealthCheckResponse_UNKNOWN

	update := func() {
		overall, _ := h.Evaluate(ctx)
		status := ServingStatus(overall)
		srv.SetServingStatus("", status)
		srv.SetServingStatus(ServiceName, status)
		if status != last {
			logger.WithField("status", status.String()).Info("grpc health status changed")
			last = status
		}
	}

	update()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			srv.Shutdown()
			return
		case <-ticker.C:
			update()
		}
	}
}
