package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/cloud-wave-best-zizon/inventory-service/internal/domain"
	"github.com/cloud-wave-best-zizon/inventory-service/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type DashboardHandler struct {
	dashboardService *service.DashboardService
	logger           *zap.Logger
}

func NewDashboardHandler(dashboardService *service.DashboardService, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{
		dashboardService: dashboardService,
		logger:           logger,
	}
}

func (h *DashboardHandler) GetDashboard(c *gin.Context) {
	dashboard, err := h.dashboardService.Snapshot(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err, "Failed to load dashboard")
		return
	}

	c.JSON(http.StatusOK, dashboard)
}

func (h *DashboardHandler) GetSalesReport(c *gin.Context) {
	report, err := h.dashboardService.SalesReport(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err, "Failed to build sales report")
		return
	}

	c.JSON(http.StatusOK, report)
}

// Stream pushes a dashboard snapshot over a websocket on connect and after
// every change. The subscription is released when the peer goes away.
func (h *DashboardHandler) Stream(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// holds only the newest snapshot; fn is only ever called from one goroutine
	latest := make(chan *domain.Dashboard, 1)
	stop, err := h.dashboardService.Watch(ctx, func(d *domain.Dashboard) {
		select {
		case <-latest:
		default:
		}
		latest <- d
	})
	if err != nil {
		h.logger.Error("Failed to watch dashboard", zap.Error(err))
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "dashboard unavailable"),
			time.Now().Add(writeWait))
		conn.Close()
		return
	}

	readDone := make(chan struct{})
	go h.readPump(conn, cancel, readDone)

	h.writePump(ctx, conn, latest)

	stop()
	conn.Close()
	<-readDone
	h.logger.Debug("Dashboard stream closed")
}

// readPump discards client frames and cancels the stream once the
// connection fails or closes.
func (h *DashboardHandler) readPump(conn *websocket.Conn, cancel context.CancelFunc, done chan<- struct{}) {
	defer close(done)
	defer cancel()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				h.logger.Warn("WebSocket read error", zap.Error(err))
			}
			return
		}
	}
}

func (h *DashboardHandler) writePump(ctx context.Context, conn *websocket.Conn, latest <-chan *domain.Dashboard) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case d := <-latest:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(d); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
