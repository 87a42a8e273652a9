package metrics

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	WsConnected = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chat_ws_connected",
		Help: "Whether the websocket connection is currently open (0 or 1)",
	})
	WsReconnectsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chat_ws_reconnects_total",
		Help: "Total number of reconnection attempts",
	})
	FramesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_frames_total",
		Help: "Total number of inbound frames by wire type",
	}, []string{"type"})
	FramesDroppedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chat_frames_dropped_total",
		Help: "Total number of inbound frames dropped as unparseable or unknown",
	})
	MessagesSentTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chat_messages_sent_total",
		Help: "Total number of chat messages sent by this client",
	})
)

func init() {
	prometheus.MustRegister(WsConnected, WsReconnectsTotal, FramesTotal, FramesDroppedTotal, MessagesSentTotal)
}

// DebugRouter 返回暴露 /healthz 与 /metrics 的调试路由，供 Prometheus 拉取。
func DebugRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return r
}
