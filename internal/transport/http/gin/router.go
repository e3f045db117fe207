package httpgin

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/kyochen/tablecart/internal/domain"
	"github.com/kyochen/tablecart/internal/metrics"
	"github.com/kyochen/tablecart/internal/room"
	"github.com/kyochen/tablecart/internal/service"
	"github.com/kyochen/tablecart/internal/service/call"
	"github.com/kyochen/tablecart/internal/service/cart"
	"github.com/kyochen/tablecart/internal/service/inventory"
	"github.com/kyochen/tablecart/internal/service/live"
	"github.com/kyochen/tablecart/internal/service/submission"
	"github.com/kyochen/tablecart/internal/service/tickets"
)

type RouterConfig struct {
	AdminPIN       string
	AllowedOrigins []string
}

func NewRouter(
	svcs *service.Services,
	hub *room.Hub,
	m *metrics.Registry,
	logger *slog.Logger,
	cfg RouterConfig,
	middlewares ...gin.HandlerFunc,
) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery(), LoggingMiddleware(logger), RequestIDMiddleware(), CORS(cfg.AllowedOrigins))
	for _, mw := range middlewares {
		if mw != nil {
			r.Use(mw)
		}
	}

	// Swagger UI
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// health + metrics
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, OKResponse{OK: true})
	})
	if m != nil {
		r.GET("/metrics", gin.WrapH(m.Handler()))
	}

	// Sessions
	r.POST("/session/new", handleNewSession(svcs))
	r.GET("/session/exists/:code", handleSessionExists(svcs))
	r.GET("/session/:code/stream", handleSessionStream(svcs))
	r.POST("/session/:code/commands", handleCommand(svcs))

	// Customer-facing order detail
	r.GET("/order_by_session/:code", handleOrderDetail(svcs))
	r.GET("/order_detail/:code", handleOrderDetail(svcs))

	// Staff panel: tickets
	r.GET("/orders", handleListTickets(svcs, true))
	r.GET("/api/orders", handleListTickets(svcs, false))
	r.POST("/api/orders/:id/status", handleUpdateStatus(svcs))
	r.POST("/orders/:id/status", handleUpdateStatus(svcs))

	// Call announcements
	r.GET("/api/call", handleGetCall(svcs))
	r.POST("/api/call", handleSetCall(svcs))
	r.GET("/api/call/stream", handleCallStream(svcs, hub))

	// Sold-out flags and inventory
	r.GET("/soldout", handleListSoldOut(svcs))
	adminOnly := AdminPin(cfg.AdminPIN)
	r.PUT("/soldout", adminOnly, handleReplaceSoldOut(svcs))
	r.POST("/soldout", adminOnly, handleReplaceSoldOut(svcs))
	r.GET("/api/inventory", handleListInventory(svcs))
	r.POST("/api/inventory/:id", adminOnly, handleUpdateInventory(svcs))

	return r
}

// --- Handlers with Swagger annotations ---

// @Summary  Create a session with a fresh unique code
// @Success  200  {object}  NewSessionResponse
// @Failure  429  {object}  ErrorResponse
// @Router   /session/new [post]
func handleNewSession(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		code, err := svcs.Cart.NewSession(c.Request.Context(), "ip:"+c.ClientIP())
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, NewSessionResponse{OK: true, SessionCode: code})
	}
}

// @Summary  Check whether a session is active
// @Param    code  path  string  true  "Session code"
// @Success  200  {object}  SessionExistsResponse
// @Router   /session/exists/{code} [get]
func handleSessionExists(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		code := strings.TrimSpace(c.Param("code"))

		active := false
		if code != "" {
			var err error
			active, err = svcs.Cart.SessionIsActive(c.Request.Context(), code)
			if err != nil {
				respondErr(c, err)
				return
			}
		}

		c.JSON(http.StatusOK, SessionExistsResponse{OK: true, Exists: active})
	}
}

// @Summary  Dispatch one live command against a session
// @Param    code  path  string        true  "Session code"
// @Param    req   body  live.Command  true  "command"
// @Success  200  {object}  live.Result
// @Failure  404  {object}  ErrorResponse
// @Router   /session/{code}/commands [post]
func handleCommand(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var cmd live.Command
		if err := c.ShouldBindJSON(&cmd); err != nil {
			badRequest(c, err.Error())
			return
		}

		cmd.IdemKey = strings.TrimSpace(c.GetHeader("Idempotency-Key"))

		res, err := svcs.Live.Dispatch(c.Request.Context(), c.Param("code"), cmd)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, res)
	}
}

// @Summary  Bound order detail for a session
// @Param    code  path  string  true  "Session code"
// @Success  200  {object}  map[string]any
// @Router   /order_by_session/{code} [get]
func handleOrderDetail(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		view, err := svcs.Live.OrderDetail(c.Request.Context(), c.Param("code"))
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"ok": true, "exists": view != nil, "order": view})
	}
}

// @Summary  List recent tickets for the staff panel
// @Param    limit  query  int  false  "page size (max 500)"
// @Success  200  {object}  TicketListResponse
// @Router   /api/orders [get]
func handleListTickets(svcs *service.Services, withCount bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := parseIntDefault(c.Query("limit"), 0)

		views, err := svcs.Tickets.ListRecent(c.Request.Context(), limit)
		if err != nil {
			respondErr(c, err)
			return
		}

		resp := TicketListResponse{OK: true, Orders: views}
		if withCount {
			n := len(views)
			resp.Count = &n
		}

		c.JSON(http.StatusOK, resp)
	}
}

// @Summary  Update a ticket's status
// @Param    id   path  int                  true  "Ticket ID"
// @Param    req  body  StatusUpdateRequest  true  "target status"
// @Success  200  {object}  OKResponse
// @Failure  400  {object}  ErrorResponse
// @Failure  404  {object}  ErrorResponse
// @Failure  409  {object}  ErrorResponse
// @Router   /api/orders/{id}/status [post]
func handleUpdateStatus(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}

		var req StatusUpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		if err := svcs.Tickets.UpdateStatus(c.Request.Context(), id, req.Status); err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, OKResponse{OK: true})
	}
}

// @Summary  Current call announcement
// @Success  200  {object}  CallStateResponse
// @Router   /api/call [get]
func handleGetCall(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		st, err := svcs.Call.Get(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, CallStateResponse{OK: true, Code: st.Code, UpdatedAt: st.UpdatedAt})
	}
}

// @Summary  Announce a session code
// @Param    req  body  CallSetRequest  true  "4-digit code"
// @Success  200  {object}  OKResponse
// @Failure  400  {object}  ErrorResponse
// @Router   /api/call [post]
func handleSetCall(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CallSetRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		if err := svcs.Call.Set(c.Request.Context(), strings.TrimSpace(req.Code)); err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, OKResponse{OK: true})
	}
}

// @Summary  Sold-out menu positions
// @Success  200  {object}  SoldOutListResponse
// @Router   /soldout [get]
func handleListSoldOut(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		entries, err := svcs.SoldOut.List(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}

		items := make([][2]int, 0, len(entries))
		for _, e := range entries {
			items = append(items, [2]int{e.CategoryIdx, e.ItemIdx})
		}

		cachedJSON(c, SoldOutListResponse{OK: true, Items: items}, "public, max-age=5")
	}
}

// @Summary  Replace the sold-out set
// @Param    req  body  SoldOutPutRequest  true  "pairs"
// @Success  200  {object}  SoldOutPutResponse
// @Failure  401  {object}  ErrorResponse
// @Router   /soldout [put]
func handleReplaceSoldOut(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SoldOutPutRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		entries := make([]domain.SoldOutEntry, 0, len(req.Items))
		for _, pair := range req.Items {
			if len(pair) != 2 {
				continue
			}
			entries = append(entries, domain.SoldOutEntry{
				CategoryIdx: pair[0],
				ItemIdx:     pair[1],
			})
		}

		n, err := svcs.SoldOut.Replace(c.Request.Context(), entries)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, SoldOutPutResponse{OK: true, Count: n})
	}
}

// @Summary  List inventory with sold-out flags
// @Success  200  {object}  InventoryListResponse
// @Router   /api/inventory [get]
func handleListInventory(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		items, err := svcs.Inventory.List(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}

		cachedJSON(c, InventoryListResponse{OK: true, Items: items}, "public, max-age=5")
	}
}

// @Summary  Set or adjust an item's stock
// @Param    id   path  int                     true  "Inventory item ID"
// @Param    req  body  InventoryUpdateRequest  true  "op: set|add"
// @Success  200  {object}  InventoryUpdateResponse
// @Failure  404  {object}  ErrorResponse
// @Router   /api/inventory/{id} [post]
func handleUpdateInventory(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}

		var req InventoryUpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		var (
			stock int
			err   error
		)
		switch strings.ToLower(strings.TrimSpace(req.Op)) {
		case "add":
			stock, err = svcs.Inventory.AddStock(c.Request.Context(), id, req.Stock)
		default:
			stock, err = svcs.Inventory.SetStock(c.Request.Context(), id, req.Stock)
		}
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, InventoryUpdateResponse{OK: true, Stock: stock})
	}
}

// --- Helpers ---

func parseInt64Param(c *gin.Context, name string) (int64, bool) {
	s := c.Param(name)
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return v, true
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Msg: msg})
}

func respondErr(c *gin.Context, err error) {
	if err == nil {
		c.Status(http.StatusNoContent)
		return
	}

	switch {
	// cart service
	case errors.Is(err, cart.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Msg: "session not found or expired"})
	case errors.Is(err, cart.ErrRateLimited):
		c.Header("Retry-After", "60")
		c.JSON(http.StatusTooManyRequests, ErrorResponse{Msg: "rate limited"})
	case errors.Is(err, cart.ErrCodesExhausted):
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Msg: "no session codes available"})
	// submission service
	case errors.Is(err, submission.ErrEmptyCart):
		c.JSON(http.StatusOK, ErrorResponse{Msg: "cart empty"})
	case errors.Is(err, submission.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Msg: "session not found"})
	case errors.Is(err, submission.ErrInFlight):
		c.Header("Retry-After", "1")
		c.JSON(http.StatusConflict, ErrorResponse{Msg: "submission in progress"})
	// tickets service
	case errors.Is(err, tickets.ErrInvalidStatus):
		c.JSON(http.StatusBadRequest, ErrorResponse{Msg: "invalid status"})
	case errors.Is(err, tickets.ErrInvalidTransition):
		c.JSON(http.StatusConflict, ErrorResponse{Msg: "invalid status transition"})
	case errors.Is(err, tickets.ErrTicketNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Msg: "ticket not found"})
	// call service
	case errors.Is(err, call.ErrBadCode):
		c.JSON(http.StatusBadRequest, ErrorResponse{Msg: "code must be 4 digits"})
	// inventory service
	case errors.Is(err, inventory.ErrItemNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Msg: "not found"})
	// live coordinator
	case errors.Is(err, live.ErrUnknownCommand):
		c.JSON(http.StatusBadRequest, ErrorResponse{Msg: "unknown command type"})
	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{Msg: "internal error"})
	}
}
