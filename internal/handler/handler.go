package handler

import (
	"context"
	"strconv"

	"auctionhouse/internal/model"
	"auctionhouse/internal/service"
	"auctionhouse/pkg/response"

	"github.com/gin-gonic/gin"
)

// Services are the engine entry points the HTTP layer calls into.
type Services struct {
	Ledger     *service.DepositLedger
	Increments *service.IncrementService
	Bids       *service.BidService
	Settlement *service.SettlementService
	Lifecycle  *service.LifecycleService
	Orders     *service.OrderService
}

// Handler 统一处理器，包含所有服务依赖
type Handler struct {
	ledger     *service.DepositLedger
	increments *service.IncrementService
	bids       *service.BidService
	settlement *service.SettlementService
	lifecycle  *service.LifecycleService
	orders     *service.OrderService
}

func NewHandler(s Services) *Handler {
	return &Handler{
		ledger:     s.Ledger,
		increments: s.Increments,
		bids:       s.Bids,
		settlement: s.Settlement,
		lifecycle:  s.Lifecycle,
		orders:     s.Orders,
	}
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.ParamError(c, name+" must be a positive integer")
		return 0, false
	}
	return id, true
}

func queryID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Query(name), 10, 64)
	if err != nil || id <= 0 {
		response.ParamError(c, name+" must be a positive integer")
		return 0, false
	}
	return id, true
}

func paging(c *gin.Context) (page, pageSize int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))
	return page, pageSize
}

func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		response.ParamError(c, "invalid request: "+err.Error())
		return false
	}
	return true
}

// ============================================================
// 竞价
// ============================================================

// PlaceBid POST /api/v1/bids
func (h *Handler) PlaceBid(c *gin.Context) {
	var req service.BidRequest
	if !bind(c, &req) {
		return
	}
	result, err := h.bids.PlaceBid(c.Request.Context(), &req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, result)
}

// ListBids GET /api/v1/items/:id/bids
func (h *Handler) ListBids(c *gin.Context) {
	itemID, ok := pathID(c, "id")
	if !ok {
		return
	}
	bids, err := h.bids.ListBids(c.Request.Context(), itemID)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"list": bids, "total": len(bids)})
}

// MinimumBid GET /api/v1/items/:id/min-bid
func (h *Handler) MinimumBid(c *gin.Context) {
	itemID, ok := pathID(c, "id")
	if !ok {
		return
	}
	amount, err := h.bids.MinimumBid(c.Request.Context(), itemID)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"item_id": itemID, "minimum_bid": amount})
}

// ============================================================
// 保证金账户
// ============================================================

// GetAccount GET /api/v1/account?user_id=xxx
func (h *Handler) GetAccount(c *gin.Context) {
	userID, ok := queryID(c, "user_id")
	if !ok {
		return
	}
	account, err := h.ledger.GetAccount(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, account)
}

// ListTransactions GET /api/v1/account/transactions?user_id=xxx&page=1&page_size=20
func (h *Handler) ListTransactions(c *gin.Context) {
	userID, ok := queryID(c, "user_id")
	if !ok {
		return
	}
	page, pageSize := paging(c)
	list, total, err := h.ledger.ListTransactions(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"list": list, "total": total, "page": page, "page_size": pageSize})
}

type FundsRequest struct {
	UserID      int64  `json:"user_id" binding:"required"`
	Amount      int64  `json:"amount" binding:"required,gt=0"`
	Description string `json:"description"`
}

// Recharge POST /api/v1/account/recharge
// Creates a pending request; balances move on approval.
func (h *Handler) Recharge(c *gin.Context) {
	var req FundsRequest
	if !bind(c, &req) {
		return
	}
	trans, err := h.ledger.Recharge(c.Request.Context(), req.UserID, req.Amount, req.Description)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, trans)
}

// Withdraw POST /api/v1/account/withdraw
func (h *Handler) Withdraw(c *gin.Context) {
	var req FundsRequest
	if !bind(c, &req) {
		return
	}
	trans, err := h.ledger.Withdraw(c.Request.Context(), req.UserID, req.Amount, req.Description)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, trans)
}

type ReviewRequest struct {
	ReviewerID int64  `json:"reviewer_id" binding:"required"`
	Remark     string `json:"remark"`
}

// ApproveTransaction POST /api/v1/account/transactions/:id/approve
func (h *Handler) ApproveTransaction(c *gin.Context) {
	h.review(c, h.ledger.Approve)
}

// RejectTransaction POST /api/v1/account/transactions/:id/reject
func (h *Handler) RejectTransaction(c *gin.Context) {
	h.review(c, h.ledger.Reject)
}

func (h *Handler) review(c *gin.Context, fn func(ctx context.Context, transactionID, reviewerID int64, remark string) (*model.DepositTransaction, error)) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req ReviewRequest
	if !bind(c, &req) {
		return
	}
	trans, err := fn(c.Request.Context(), id, req.ReviewerID, req.Remark)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, trans)
}

type AccountStatusRequest struct {
	UserID int64  `json:"user_id" binding:"required"`
	Status string `json:"status" binding:"required,oneof=ACTIVE FROZEN"`
}

// SetAccountStatus POST /api/v1/account/status
func (h *Handler) SetAccountStatus(c *gin.Context) {
	var req AccountStatusRequest
	if !bind(c, &req) {
		return
	}
	if err := h.ledger.SetAccountStatus(c.Request.Context(), req.UserID, req.Status); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"user_id": req.UserID, "status": req.Status})
}

// ============================================================
// 加价阶梯
// ============================================================

type IncrementConfigRequest struct {
	Name  string                   `json:"name" binding:"required"`
	Rules []model.BidIncrementRule `json:"rules" binding:"required"`
}

// CreateIncrementConfig POST /api/v1/increment-configs
func (h *Handler) CreateIncrementConfig(c *gin.Context) {
	var req IncrementConfigRequest
	if !bind(c, &req) {
		return
	}
	config, err := h.increments.CreateConfig(c.Request.Context(), req.Name, req.Rules)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, config)
}

// GetIncrementConfig GET /api/v1/increment-configs/:id
func (h *Handler) GetIncrementConfig(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	config, err := h.increments.GetConfig(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, config)
}

// UpdateIncrementRules PUT /api/v1/increment-configs/:id/rules
func (h *Handler) UpdateIncrementRules(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var rules []model.BidIncrementRule
	if !bind(c, &rules) {
		return
	}
	if err := h.increments.UpdateRules(c.Request.Context(), id, rules); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"id": id, "rules": len(rules)})
}

// DeleteIncrementConfig DELETE /api/v1/increment-configs/:id
func (h *Handler) DeleteIncrementConfig(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.increments.DeleteConfig(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"id": id})
}

// ============================================================
// 拍卖会 / 拍品
// ============================================================

// CreateSession POST /api/v1/sessions
func (h *Handler) CreateSession(c *gin.Context) {
	var req service.CreateSessionRequest
	if !bind(c, &req) {
		return
	}
	session, err := h.lifecycle.CreateSession(c.Request.Context(), &req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, session)
}

// GetSession GET /api/v1/sessions/:id
func (h *Handler) GetSession(c *gin.Context) {
	h.sessionAction(c, h.lifecycle.SessionStatus)
}

// EndSessionNow POST /api/v1/sessions/:id/end
func (h *Handler) EndSessionNow(c *gin.Context) {
	h.sessionAction(c, h.lifecycle.EndSessionNow)
}

// CancelSession POST /api/v1/sessions/:id/cancel
func (h *Handler) CancelSession(c *gin.Context) {
	h.sessionAction(c, h.lifecycle.CancelSession)
}

func (h *Handler) sessionAction(c *gin.Context, fn func(ctx context.Context, sessionID int64) (*service.SessionView, error)) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	view, err := fn(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, view)
}

// StartSession POST /api/v1/sessions/:id/start
// With ?now=true a pending session is moved forward to start immediately.
func (h *Handler) StartSession(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	start := h.lifecycle.StartSession
	if c.Query("now") == "true" {
		start = h.lifecycle.StartSessionNow
	}
	started, err := start(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"session_id": id, "started_items": started})
}

// SettleSession POST /api/v1/sessions/:id/settle
func (h *Handler) SettleSession(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	settled, err := h.settlement.SettleSession(c.Request.Context(), id)
	if err != nil && len(settled) == 0 {
		fail(c, err)
		return
	}
	data := gin.H{"session_id": id, "settled": settled}
	if err != nil {
		data["error"] = err.Error()
	}
	response.Success(c, data)
}

// SettleItem POST /api/v1/sessions/:id/items/:item_id/settle
func (h *Handler) SettleItem(c *gin.Context) {
	sessionID, ok := pathID(c, "id")
	if !ok {
		return
	}
	itemID, ok := pathID(c, "item_id")
	if !ok {
		return
	}
	out, err := h.settlement.SettleItem(c.Request.Context(), sessionID, itemID)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, out)
}

// GetResult GET /api/v1/sessions/:id/items/:item_id/result
func (h *Handler) GetResult(c *gin.Context) {
	sessionID, ok := pathID(c, "id")
	if !ok {
		return
	}
	itemID, ok := pathID(c, "item_id")
	if !ok {
		return
	}
	result, err := h.settlement.GetResult(c.Request.Context(), sessionID, itemID)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, result)
}

// CreateItem POST /api/v1/items
func (h *Handler) CreateItem(c *gin.Context) {
	var req service.CreateItemRequest
	if !bind(c, &req) {
		return
	}
	item, err := h.lifecycle.CreateItem(c.Request.Context(), &req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, item)
}

// GetItem GET /api/v1/items/:id
func (h *Handler) GetItem(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	item, views, err := h.lifecycle.GetItem(ctx, id)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{
		"item":      item,
		"views":     views,
		"bid_count": h.lifecycle.BidCount(ctx, id),
	})
}

// ItemAction POST /api/v1/items/:id/:action
// action is one of submit, approve, reject, delist, relist.
func (h *Handler) ItemAction(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	actions := map[string]func(ctx context.Context, itemID int64) (*model.AuctionItem, error){
		model.ItemActionSubmit:  h.lifecycle.SubmitItem,
		model.ItemActionApprove: h.lifecycle.ApproveItem,
		model.ItemActionReject:  h.lifecycle.RejectItem,
		model.ItemActionDelist:  h.lifecycle.DelistItem,
		model.ItemActionRelist:  h.lifecycle.RelistItem,
	}
	fn, found := actions[c.Param("action")]
	if !found {
		response.Error(c, response.CodeNotFound, "unknown item action "+c.Param("action"))
		return
	}
	item, err := fn(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, item)
}

// ============================================================
// 成交订单
// ============================================================

// GetOrder GET /api/v1/orders/:id
func (h *Handler) GetOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	order, err := h.orders.GetOrder(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, order)
}

// ListOrders GET /api/v1/orders?buyer_id=xxx&page=1&page_size=20
func (h *Handler) ListOrders(c *gin.Context) {
	buyerID, ok := queryID(c, "buyer_id")
	if !ok {
		return
	}
	page, pageSize := paging(c)
	orders, total, err := h.orders.ListByBuyer(c.Request.Context(), buyerID, page, pageSize)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"list": orders, "total": total, "page": page, "page_size": pageSize})
}

// PayOrder POST /api/v1/orders/:id/pay
func (h *Handler) PayOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	order, err := h.orders.Pay(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, order)
}

// RejectShipment POST /api/v1/orders/:id/reject-shipment
func (h *Handler) RejectShipment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	if c.Request.ContentLength > 0 && !bind(c, &req) {
		return
	}
	order, err := h.orders.RejectShipment(c.Request.Context(), id, req.Reason)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, order)
}
