package main

import (
	"net/http"
	"strconv"

	"storyport/internal/domain/orders"
	"storyport/internal/domain/users"
	"storyport/internal/params"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"
)

// AdminStatsResponse is the dashboard headline block.
type AdminStatsResponse struct {
	Users              int64 `json:"users"`
	Books              int64 `json:"books"`
	Orders             int64 `json:"orders"`
	RevenueCents       int64 `json:"revenue_cents"`
	DonationTotalCents int64 `json:"donation_total_cents"`
}

// adminStatsHandler godoc
//
//	@Summary		Dashboard statistics
//	@Description	Aggregates user, catalog, and revenue counts. The five queries run concurrently.
//	@Tags			admin
//	@Produce		json
//	@Success		200	{object}	AdminStatsResponse
//	@Failure		500	{object}	ErrorInternalServerResponse
//	@Security		ApiKeyAuth
//	@Router			/admin/stats [get]
func (app *application) adminStatsHandler(w http.ResponseWriter, r *http.Request) {
	var stats AdminStatsResponse

	g, ctx := errgroup.WithContext(r.Context())

	g.Go(func() (err error) {
		stats.Users, err = app.store.Stats.CountUsers(ctx)
		return err
	})
	g.Go(func() (err error) {
		stats.Books, err = app.store.Stats.CountBooks(ctx)
		return err
	})
	g.Go(func() (err error) {
		stats.Orders, err = app.store.Stats.CountOrders(ctx)
		return err
	})
	g.Go(func() (err error) {
		stats.RevenueCents, err = app.store.Stats.PaidRevenueCents(ctx)
		return err
	})
	g.Go(func() (err error) {
		stats.DonationTotalCents, err = app.store.Stats.DonationTotalCents(ctx)
		return err
	})

	if err := g.Wait(); err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, stats); err != nil {
		app.internalServerError(w, r, err)
	}
}

// OrderListResponse pairs one page of orders with pagination metadata.
type OrderListResponse struct {
	Orders     []orders.Order    `json:"orders"`
	Pagination params.Pagination `json:"pagination"`
}

// adminListOrdersHandler godoc
//
//	@Summary		List confirmed orders
//	@Tags			admin
//	@Produce		json
//	@Param			limit	query		int	false	"Items per page"
//	@Param			page	query		int	false	"Page number"
//	@Success		200		{object}	OrderListResponse
//	@Failure		500		{object}	ErrorInternalServerResponse
//	@Security		ApiKeyAuth
//	@Router			/admin/orders [get]
func (app *application) adminListOrdersHandler(w http.ResponseWriter, r *http.Request) {
	p := params.ParsePagination(r.URL.Query())

	list, total, err := app.store.Orders.List(r.Context(), p.Limit, p.Offset)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	p.ComputeMeta(total)

	if list == nil {
		list = []orders.Order{}
	}

	if err := app.jsonResponse(w, http.StatusOK, OrderListResponse{
		Orders:     list,
		Pagination: p,
	}); err != nil {
		app.internalServerError(w, r, err)
	}
}

// adminOrderItemsHandler godoc
//
//	@Summary		List one order's line items
//	@Tags			admin
//	@Produce		json
//	@Param			orderID	path		int	true	"Order ID"
//	@Success		200		{array}		orders.OrderItem
//	@Failure		400		{object}	ErrorBadRequestResponse
//	@Failure		500		{object}	ErrorInternalServerResponse
//	@Security		ApiKeyAuth
//	@Router			/admin/orders/{orderID}/items [get]
func (app *application) adminOrderItemsHandler(w http.ResponseWriter, r *http.Request) {
	orderID, err := strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
	if err != nil || orderID <= 0 {
		writeJSONError(w, http.StatusBadRequest, "Invalid order ID")
		return
	}

	items, err := app.store.Orders.GetItems(r.Context(), orderID)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	if items == nil {
		items = []orders.OrderItem{}
	}

	if err := app.jsonResponse(w, http.StatusOK, items); err != nil {
		app.internalServerError(w, r, err)
	}
}

// UserListResponse pairs one page of users with pagination metadata.
type UserListResponse struct {
	Users      []users.User      `json:"users"`
	Pagination params.Pagination `json:"pagination"`
}

// adminListUsersHandler godoc
//
//	@Summary		List users
//	@Tags			admin
//	@Produce		json
//	@Param			limit	query		int	false	"Items per page"
//	@Param			page	query		int	false	"Page number"
//	@Success		200		{object}	UserListResponse
//	@Failure		500		{object}	ErrorInternalServerResponse
//	@Security		ApiKeyAuth
//	@Router			/admin/users [get]
func (app *application) adminListUsersHandler(w http.ResponseWriter, r *http.Request) {
	p := params.ParsePagination(r.URL.Query())

	list, total, err := app.store.Users.List(r.Context(), p.Limit, p.Offset)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	p.ComputeMeta(total)

	if list == nil {
		list = []users.User{}
	}

	if err := app.jsonResponse(w, http.StatusOK, UserListResponse{
		Users:      list,
		Pagination: p,
	}); err != nil {
		app.internalServerError(w, r, err)
	}
}

// adminTopBooksHandler godoc
//
//	@Summary		Best-selling books
//	@Description	Ranks books by units sold across confirmed purchase orders.
//	@Tags			admin
//	@Produce		json
//	@Param			limit	query		int	false	"Max rows (default 10)"
//	@Success		200		{array}		orders.TopBook
//	@Failure		500		{object}	ErrorInternalServerResponse
//	@Security		ApiKeyAuth
//	@Router			/admin/books/top [get]
func (app *application) adminTopBooksHandler(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if val := r.URL.Query().Get("limit"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	top, err := app.store.Orders.TopBooks(r.Context(), limit)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	if top == nil {
		top = []orders.TopBook{}
	}

	if err := app.jsonResponse(w, http.StatusOK, top); err != nil {
		app.internalServerError(w, r, err)
	}
}
