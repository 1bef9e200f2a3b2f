package main

import (
	"errors"
	"net/http"

	"storyport/internal/domain/books"
	"storyport/internal/params"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// BookListResponse pairs one catalog page with pagination metadata.
type BookListResponse struct {
	Books      []books.Book      `json:"books"`
	Pagination params.Pagination `json:"pagination"`
}

// listBooksHandler godoc
//
//	@Summary		List the catalog
//	@Description	Returns active books, newest first.
//	@Tags			books
//	@Produce		json
//	@Param			limit	query		int	false	"Items per page"
//	@Param			page	query		int	false	"Page number"
//	@Success		200		{object}	BookListResponse
//	@Failure		500		{object}	ErrorInternalServerResponse
//	@Router			/books [get]
func (app *application) listBooksHandler(w http.ResponseWriter, r *http.Request) {
	p := params.ParsePagination(r.URL.Query())

	list, total, err := app.store.Books.List(r.Context(), false, p.Limit, p.Offset)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	p.ComputeMeta(total)

	if list == nil {
		list = []books.Book{}
	}

	if err := app.jsonResponse(w, http.StatusOK, BookListResponse{
		Books:      list,
		Pagination: p,
	}); err != nil {
		app.internalServerError(w, r, err)
	}
}

// getBookHandler godoc
//
//	@Summary		Get one book
//	@Tags			books
//	@Produce		json
//	@Param			bookID	path		string	true	"Book slug"
//	@Success		200		{object}	books.Book
//	@Failure		404		{object}	ErrorBadRequestResponse
//	@Failure		500		{object}	ErrorInternalServerResponse
//	@Router			/books/{bookID} [get]
func (app *application) getBookHandler(w http.ResponseWriter, r *http.Request) {
	bookID := chi.URLParam(r, "bookID")

	book, err := app.store.Books.GetByID(r.Context(), bookID)
	if err != nil {
		if errors.Is(err, books.ErrNotFound) {
			app.notFoundResponse(w, r, err)
			return
		}
		app.internalServerError(w, r, err)
		return
	}
	if !book.Active {
		app.notFoundResponse(w, r, books.ErrNotFound)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, book); err != nil {
		app.internalServerError(w, r, err)
	}
}

type CreateBookPayload struct {
	ID          string `json:"id" validate:"required,max=100"`
	Title       string `json:"title" validate:"required,max=255"`
	Author      string `json:"author" validate:"required,max=255"`
	Description string `json:"description" validate:"omitempty,max=5000"`
	Price       string `json:"price" validate:"required"`
}

// createBookHandler godoc
//
//	@Summary		Create a book
//	@Description	Adds a book to the catalog. Price is a decimal string in major units, e.g. "19.99".
//	@Tags			admin
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		CreateBookPayload	true	"Book details"
//	@Success		201		{object}	books.Book
//	@Failure		400		{object}	ErrorBadRequestResponse
//	@Failure		409		{object}	ErrorBadRequestResponse	"Duplicate slug"
//	@Failure		500		{object}	ErrorInternalServerResponse
//	@Security		ApiKeyAuth
//	@Router			/admin/books [post]
func (app *application) createBookHandler(w http.ResponseWriter, r *http.Request) {
	var payload CreateBookPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	price, err := decimal.NewFromString(payload.Price)
	if err != nil || price.IsNegative() {
		app.badRequestResponse(w, r, errors.New("price must be a non-negative decimal string"))
		return
	}

	book := &books.Book{
		ID:          payload.ID,
		Title:       payload.Title,
		Author:      payload.Author,
		Description: payload.Description,
		Price:       price,
		Active:      true,
	}

	if err := app.store.Books.Create(r.Context(), book); err != nil {
		switch {
		case errors.Is(err, books.ErrDuplicateID):
			app.conflictResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	if err := app.jsonResponse(w, http.StatusCreated, book); err != nil {
		app.internalServerError(w, r, err)
	}
}

type UpdateBookPayload struct {
	Title       *string `json:"title,omitempty" validate:"omitempty,max=255"`
	Author      *string `json:"author,omitempty" validate:"omitempty,max=255"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=5000"`
	Price       *string `json:"price,omitempty"`
}

// updateBookHandler godoc
//
//	@Summary		Update book fields
//	@Tags			admin
//	@Accept			json
//	@Produce		json
//	@Param			bookID	path		string				true	"Book slug"
//	@Param			payload	body		UpdateBookPayload	true	"Fields to update"
//	@Success		200		{object}	books.Book
//	@Failure		400		{object}	ErrorBadRequestResponse
//	@Failure		404		{object}	ErrorBadRequestResponse
//	@Failure		500		{object}	ErrorInternalServerResponse
//	@Security		ApiKeyAuth
//	@Router			/admin/books/{bookID} [patch]
func (app *application) updateBookHandler(w http.ResponseWriter, r *http.Request) {
	bookID := chi.URLParam(r, "bookID")

	var payload UpdateBookPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	updates := map[string]any{}
	if payload.Title != nil {
		updates["title"] = *payload.Title
	}
	if payload.Author != nil {
		updates["author"] = *payload.Author
	}
	if payload.Description != nil {
		updates["description"] = *payload.Description
	}
	if payload.Price != nil {
		price, err := decimal.NewFromString(*payload.Price)
		if err != nil || price.IsNegative() {
			app.badRequestResponse(w, r, errors.New("price must be a non-negative decimal string"))
			return
		}
		updates["price"] = price
	}
	if len(updates) == 0 {
		app.badRequestResponse(w, r, errors.New("no fields to update"))
		return
	}

	ctx := r.Context()

	if err := app.store.Books.Update(ctx, bookID, updates); err != nil {
		if errors.Is(err, books.ErrNotFound) {
			app.notFoundResponse(w, r, err)
			return
		}
		app.internalServerError(w, r, err)
		return
	}

	book, err := app.store.Books.GetByID(ctx, bookID)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, book); err != nil {
		app.internalServerError(w, r, err)
	}
}

type SetBookActivePayload struct {
	Active *bool `json:"active" validate:"required"`
}

// setBookActiveHandler godoc
//
//	@Summary		Activate or deactivate a book
//	@Description	Deactivated books disappear from the public catalog and can no longer be added to carts; existing orders are untouched.
//	@Tags			admin
//	@Accept			json
//	@Produce		json
//	@Param			bookID	path		string					true	"Book slug"
//	@Param			payload	body		SetBookActivePayload	true	"Active flag"
//	@Success		204		{string}	string					"No Content"
//	@Failure		400		{object}	ErrorBadRequestResponse
//	@Failure		404		{object}	ErrorBadRequestResponse
//	@Failure		500		{object}	ErrorInternalServerResponse
//	@Security		ApiKeyAuth
//	@Router			/admin/books/{bookID}/active [patch]
func (app *application) setBookActiveHandler(w http.ResponseWriter, r *http.Request) {
	bookID := chi.URLParam(r, "bookID")

	var payload SetBookActivePayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := app.store.Books.SetActive(r.Context(), bookID, *payload.Active); err != nil {
		if errors.Is(err, books.ErrNotFound) {
			app.notFoundResponse(w, r, err)
			return
		}
		app.internalServerError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
