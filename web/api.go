package web

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"papermesh/engine"
	"papermesh/storage"
)

// handleCreateOrder POST /api/orders
func (s *Server) handleCreateOrder(c *gin.Context) {
	var req engine.OrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := s.engine.CreateOrder(c.Request.Context(), &req)
	if err != nil {
		// 参数非法是客户端错误，与系统故障区分状态码
		if errors.Is(err, engine.ErrInvalidRequest) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	// 拒单也是正常业务结果，同样返回 200，由调用方检查 status
	c.JSON(http.StatusOK, order)
}

// handleListOrders GET /api/orders?status=NEW&limit=100
func (s *Server) handleListOrders(c *gin.Context) {
	status := c.Query("status")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "200"))

	orders, err := s.store.ListOrders(status, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if orders == nil {
		orders = []*storage.Order{}
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders, "count": len(orders)})
}

// handleGetOrder GET /api/orders/:id
func (s *Server) handleGetOrder(c *gin.Context) {
	order, err := s.store.GetOrder(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if order == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		return
	}
	c.JSON(http.StatusOK, order)
}

// handleCancelOrder POST /api/orders/:id/cancel
func (s *Server) handleCancelOrder(c *gin.Context) {
	var body struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&body)

	order, err := s.engine.CancelOrder(c.Param("id"), body.Reason)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, order)
}

// handleGetAccount GET /api/account
func (s *Server) handleGetAccount(c *gin.Context) {
	account, err := s.store.GetAccount()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, account)
}

// handleRefreshAccount POST /api/account/refresh 按最新行情重估总资产
func (s *Server) handleRefreshAccount(c *gin.Context) {
	totalValue, err := s.engine.RefreshAccountValue(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	account, err := s.store.GetAccount()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"account": account, "total_value": totalValue})
}

// handleListPositions GET /api/positions
func (s *Server) handleListPositions(c *gin.Context) {
	positions, err := s.store.ListPositions()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if positions == nil {
		positions = []*storage.Position{}
	}
	c.JSON(http.StatusOK, gin.H{"positions": positions, "count": len(positions)})
}

// handleListFills GET /api/fills?since=2026-08-30T00:00:00+08:00&limit=100
func (s *Server) handleListFills(c *gin.Context) {
	since := c.Query("since")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "500"))

	fills, err := s.store.ListFills(since, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if fills == nil {
		fills = []*storage.Fill{}
	}
	c.JSON(http.StatusOK, gin.H{"fills": fills, "count": len(fills)})
}

// handleListDailyPnl GET /api/daily-pnl?from=2026-08-01&to=2026-08-31
func (s *Server) handleListDailyPnl(c *gin.Context) {
	result, err := s.store.ListDailyPnl(c.Query("from"), c.Query("to"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if result == nil {
		result = []*storage.DailyPnl{}
	}
	c.JSON(http.StatusOK, gin.H{"daily_pnl": result, "count": len(result)})
}

// handleListEvents GET /api/events?since_id=100&limit=500 按游标增量拉取
func (s *Server) handleListEvents(c *gin.Context) {
	sinceID, _ := strconv.ParseInt(c.DefaultQuery("since_id", "0"), 10, 64)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "500"))

	events, err := s.store.ListEvents(sinceID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if events == nil {
		events = []*storage.Event{}
	}

	var nextID int64 = sinceID
	if len(events) > 0 {
		nextID = events[len(events)-1].ID
	}
	c.JSON(http.StatusOK, gin.H{"events": events, "count": len(events), "next_id": nextID})
}

// handleGetKillSwitch GET /api/kill-switch
func (s *Server) handleGetKillSwitch(c *gin.Context) {
	enabled, err := s.engine.GetKillSwitch()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	updatedAt, _ := s.store.GetState(storage.StateKillSwitchUpdatedAt)
	c.JSON(http.StatusOK, gin.H{"enabled": enabled, "updated_at": updatedAt})
}

// handleSetKillSwitch POST /api/kill-switch {"enabled": true, "reason": "..."}
func (s *Server) handleSetKillSwitch(c *gin.Context) {
	var body struct {
		Enabled *bool  `json:"enabled" binding:"required"`
		Reason  string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.engine.SetKillSwitch(*body.Enabled, body.Reason); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"enabled": *body.Enabled})
}
