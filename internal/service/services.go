package service

import (
	"github.com/kyochen/tablecart/internal/clock"
	"github.com/kyochen/tablecart/internal/metrics"
	redisx "github.com/kyochen/tablecart/internal/redis"
	postgres "github.com/kyochen/tablecart/internal/repository/postgres"
	redis "github.com/kyochen/tablecart/internal/repository/redis"
	"github.com/kyochen/tablecart/internal/room"
	"github.com/kyochen/tablecart/internal/service/call"
	"github.com/kyochen/tablecart/internal/service/cart"
	"github.com/kyochen/tablecart/internal/service/inventory"
	"github.com/kyochen/tablecart/internal/service/live"
	"github.com/kyochen/tablecart/internal/service/soldout"
	"github.com/kyochen/tablecart/internal/service/submission"
	"github.com/kyochen/tablecart/internal/service/tickets"
)

type Services struct {
	Cart       *cart.Service
	Submission *submission.Service
	Tickets    *tickets.Service
	Call       *call.Service
	SoldOut    *soldout.Service
	Inventory  *inventory.Service
	Live       *live.Service
}

type Config struct {
	Cart       cart.Config
	Submission submission.Config
	Tickets    tickets.Config
}

func NewServices(
	store *postgres.Store,
	cache *redis.Cache,
	pubsub *redisx.CallPubSub,
	limiter *redis.SlidingWindowLimiter,
	idem *redis.IdempotencyStore,
	registry *room.Registry,
	hub *room.Hub,
	clk *clock.Clock,
	m *metrics.Registry,
	cfg Config,
) *Services {
	cartSvc := cart.New(store.Sessions(), limiter, clk, cfg.Cart)
	submitSvc := submission.New(store.Submissions(), cache, idem, clk, cfg.Submission)
	callSvc := call.New(store.CallStates(), pubsub, clk)

	return &Services{
		Cart:       cartSvc,
		Submission: submitSvc,
		Tickets:    tickets.New(store.Tickets(), cache, callSvc, clk, cfg.Tickets),
		Call:       callSvc,
		SoldOut:    soldout.New(store.SoldOut(), clk),
		Inventory:  inventory.New(store.Inventory(), clk),
		Live: live.New(
			cartSvc,
			submitSvc,
			store.Sessions(),
			store.Orders(),
			registry,
			hub,
			clk,
			m,
		),
	}
}
