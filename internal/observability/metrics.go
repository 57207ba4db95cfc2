package observability

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

const namespace = "gatechat"

var (
	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})
	httpLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route"})
	grpcHandled = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "grpc",
		Name:      "handled_total",
		Help:      "Unary gRPC calls by service, method and code.",
	}, []string{"grpc_service", "grpc_method", "grpc_code"})
	wsConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "ws",
		Name:      "connections",
		Help:      "Open websocket connections, superseded ones included.",
	})
	wsEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ws",
		Name:      "events_total",
		Help:      "Socket events by source (frame, session) and name.",
	}, []string{"source", "event"})
	publishFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "amqp",
		Name:      "publish_failures_total",
		Help:      "Events the broker did not accept.",
	})
	presenceOnline = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "presence",
		Name:      "online_users",
		Help:      "Users holding a live socket.",
	})
	presenceRecipients = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "presence",
		Name:      "broadcast_recipients",
		Help:      "Sockets reached by one presence snapshot.",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
	})
	fanoutPushes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "fanout",
		Name:      "pushes_total",
		Help:      "Push attempts by event and outcome.",
	}, []string{"event", "outcome"})
)

// Push outcomes.
const (
	PushDelivered = "delivered"
	PushSkipped   = "skipped"
)

func init() {
	prometheus.MustRegister(
		httpRequests,
		httpLatency,
		grpcHandled,
		wsConnections,
		wsEvents,
		publishFailures,
		presenceOnline,
		presenceRecipients,
		fanoutPushes,
	)
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()

		httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		httpLatency.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

func GRPCServerMetricsUnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		resp, err := handler(ctx, req)
		statusInfo := status.Convert(err)
		service, method := splitFullMethod(info.FullMethod)
		grpcHandled.WithLabelValues(service, method, statusInfo.Code().String()).Inc()
		return resp, err
	}
}

func splitFullMethod(fullMethod string) (string, string) {
	parts := strings.Split(fullMethod, "/")
	if len(parts) < 3 {
		return "unknown", "unknown"
	}
	return parts[1], parts[2]
}

func SocketOpened() { wsConnections.Inc() }

func SocketClosed() { wsConnections.Dec() }

func CountSocketEvent(source, event string) {
	wsEvents.WithLabelValues(source, event).Inc()
}

func CountPublishFailure() { publishFailures.Inc() }

// ObservePresence records one snapshot of online users sent to recipients sockets.
func ObservePresence(online, recipients int) {
	presenceOnline.Set(float64(online))
	presenceRecipients.Observe(float64(recipients))
}

func CountPush(event, outcome string) {
	fanoutPushes.WithLabelValues(event, outcome).Inc()
}
