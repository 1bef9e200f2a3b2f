package main

import (
	"errors"
	"fmt"
	"net/http"

	"storyport/internal/cart"
	"storyport/internal/domain/books"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// CartResponse is the wire shape of a cart plus its derived totals.
type CartResponse struct {
	Items      []cart.LineItem `json:"items"`
	TotalCount int             `json:"total_count"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

func cartResponse(c *cart.Cart) CartResponse {
	items := c.Items
	if items == nil {
		items = []cart.LineItem{}
	}
	return CartResponse{
		Items:      items,
		TotalCount: c.TotalCount(),
		TotalPrice: c.TotalPrice(),
	}
}

// getCartHandler godoc
//
//	@Summary		Get the current cart
//	@Description	Returns the cart for the signed-in user, or for the anonymous session identified by X-Session-Token.
//	@Tags			cart
//	@Produce		json
//	@Success		200	{object}	CartResponse
//	@Failure		400	{object}	ErrorBadRequestResponse
//	@Failure		500	{object}	ErrorInternalServerResponse
//	@Router			/cart [get]
func (app *application) getCartHandler(w http.ResponseWriter, r *http.Request) {
	token, err := app.cartToken(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	c, err := app.carts.Load(r.Context(), token)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, cartResponse(c)); err != nil {
		app.internalServerError(w, r, err)
	}
}

type AddCartItemPayload struct {
	BookID   string `json:"book_id" validate:"required,max=100"`
	Quantity int    `json:"quantity" validate:"omitempty,gte=0,lte=99"`
}

// addCartItemHandler godoc
//
//	@Summary		Add a book to the cart
//	@Description	Adds the book, merging quantity into an existing line for the same book. Pricing always comes from the catalog.
//	@Tags			cart
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		AddCartItemPayload	true	"Book and quantity"
//	@Success		200		{object}	CartResponse
//	@Failure		400		{object}	ErrorBadRequestResponse
//	@Failure		404		{object}	ErrorBadRequestResponse	"Unknown or inactive book"
//	@Failure		500		{object}	ErrorInternalServerResponse
//	@Router			/cart/items [post]
func (app *application) addCartItemHandler(w http.ResponseWriter, r *http.Request) {
	token, err := app.cartToken(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var payload AddCartItemPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	ctx := r.Context()

	book, err := app.store.Books.GetByID(ctx, payload.BookID)
	if err != nil {
		if errors.Is(err, books.ErrNotFound) {
			app.notFoundResponse(w, r, err)
			return
		}
		app.internalServerError(w, r, err)
		return
	}
	if !book.Active {
		app.notFoundResponse(w, r, fmt.Errorf("book %q is not for sale", book.ID))
		return
	}

	c, err := app.carts.Load(ctx, token)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	item := cart.LineItem{
		ID:          book.ID,
		Title:       book.Title,
		Description: book.Description,
		UnitPrice:   book.Price,
		Quantity:    payload.Quantity,
	}
	if book.CoverURL != nil {
		item.CoverImageURL = *book.CoverURL
	}
	c.AddItem(item)

	if err := app.carts.Save(ctx, token, c); err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, cartResponse(c)); err != nil {
		app.internalServerError(w, r, err)
	}
}

// decrementCartItemHandler godoc
//
//	@Summary		Decrement a cart line by one
//	@Description	Lowers the line's quantity by one; a quantity-1 line is removed outright.
//	@Tags			cart
//	@Produce		json
//	@Param			itemID	path		string	true	"Book ID"
//	@Success		200		{object}	CartResponse
//	@Failure		400		{object}	ErrorBadRequestResponse
//	@Failure		500		{object}	ErrorInternalServerResponse
//	@Router			/cart/items/{itemID}/decrement [patch]
func (app *application) decrementCartItemHandler(w http.ResponseWriter, r *http.Request) {
	app.mutateCart(w, r, func(c *cart.Cart) {
		c.DecrementItem(chi.URLParam(r, "itemID"))
	})
}

// removeCartItemHandler godoc
//
//	@Summary		Remove a cart line
//	@Tags			cart
//	@Produce		json
//	@Param			itemID	path		string	true	"Book ID"
//	@Success		200		{object}	CartResponse
//	@Failure		400		{object}	ErrorBadRequestResponse
//	@Failure		500		{object}	ErrorInternalServerResponse
//	@Router			/cart/items/{itemID} [delete]
func (app *application) removeCartItemHandler(w http.ResponseWriter, r *http.Request) {
	app.mutateCart(w, r, func(c *cart.Cart) {
		c.RemoveItem(chi.URLParam(r, "itemID"))
	})
}

// clearCartHandler godoc
//
//	@Summary		Empty the cart
//	@Tags			cart
//	@Produce		json
//	@Success		200	{object}	CartResponse
//	@Failure		400	{object}	ErrorBadRequestResponse
//	@Failure		500	{object}	ErrorInternalServerResponse
//	@Router			/cart [delete]
func (app *application) clearCartHandler(w http.ResponseWriter, r *http.Request) {
	app.mutateCart(w, r, func(c *cart.Cart) {
		c.Clear()
	})
}

func (app *application) mutateCart(w http.ResponseWriter, r *http.Request, mutate func(c *cart.Cart)) {
	token, err := app.cartToken(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	ctx := r.Context()

	c, err := app.carts.Load(ctx, token)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	mutate(c)

	if err := app.carts.Save(ctx, token, c); err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, cartResponse(c)); err != nil {
		app.internalServerError(w, r, err)
	}
}
