package httpgin

import (
	"github.com/kyochen/tablecart/internal/domain"
	"github.com/kyochen/tablecart/internal/service/tickets"
)

// ErrorResponse is the {ok:false, msg} failure shape every endpoint
// shares.
type ErrorResponse struct {
	OK  bool   `json:"ok"`
	Msg string `json:"msg"`
}

type NewSessionResponse struct {
	OK          bool   `json:"ok"`
	SessionCode string `json:"sessionId"`
}

type SessionExistsResponse struct {
	OK     bool `json:"ok"`
	Exists bool `json:"exists"`
}

// TicketListResponse carries Count only on the legacy /orders route.
type TicketListResponse struct {
	OK     bool           `json:"ok"`
	Count  *int           `json:"count,omitempty"`
	Orders []tickets.View `json:"orders"`
}

type StatusUpdateRequest struct {
	Status string `json:"status"`
}

type CallSetRequest struct {
	Code string `json:"code"`
}

type CallStateResponse struct {
	OK        bool   `json:"ok"`
	Code      string `json:"code"`
	UpdatedAt int64  `json:"updatedAt"`
}

// SoldOutPutRequest takes raw [categoryIdx, itemIdx] pairs; malformed
// entries are skipped, not rejected.
type SoldOutPutRequest struct {
	Items [][]int `json:"items"`
}

type SoldOutListResponse struct {
	OK    bool     `json:"ok"`
	Items [][2]int `json:"items"`
}

type SoldOutPutResponse struct {
	OK    bool `json:"ok"`
	Count int  `json:"count"`
}

type InventoryListResponse struct {
	OK    bool                   `json:"ok"`
	Items []domain.InventoryItem `json:"items"`
}

type InventoryUpdateRequest struct {
	Op    string `json:"op"`
	Stock int    `json:"stock"`
}

type InventoryUpdateResponse struct {
	OK    bool `json:"ok"`
	Stock int  `json:"stock"`
}

type OKResponse struct {
	OK bool `json:"ok"`
}
