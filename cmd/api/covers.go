package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"storyport/internal/domain/books"

	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/go-chi/chi/v5"
)

// uploadBookCoverHandler godoc
//
//	@Summary		Upload a book cover
//	@Description	Accepts multipart form field "cover", stores it on Cloudinary, and records the secure URL on the book.
//	@Tags			admin
//	@Accept			mpfd
//	@Produce		json
//	@Param			bookID	path		string	true	"Book slug"
//	@Param			cover	formData	file	true	"Cover image"
//	@Success		200		{object}	map[string]string	"Cover URL"
//	@Failure		400		{object}	ErrorBadRequestResponse
//	@Failure		404		{object}	ErrorBadRequestResponse
//	@Failure		500		{object}	ErrorInternalServerResponse
//	@Security		ApiKeyAuth
//	@Router			/admin/books/{bookID}/cover [post]
func (app *application) uploadBookCoverHandler(w http.ResponseWriter, r *http.Request) {
	bookID := chi.URLParam(r, "bookID")

	ctx := r.Context()

	book, err := app.store.Books.GetByID(ctx, bookID)
	if err != nil {
		if errors.Is(err, books.ErrNotFound) {
			app.notFoundResponse(w, r, err)
			return
		}
		app.internalServerError(w, r, err)
		return
	}

	if err := r.ParseMultipartForm(10 << 20); err != nil { // 10mb
		app.badRequestResponse(w, r, err)
		return
	}

	file, _, err := r.FormFile("cover")
	if err != nil {
		app.badRequestResponse(w, r, fmt.Errorf("cover file is required: %w", err))
		return
	}
	defer file.Close()

	// Replaced covers keep a fresh public ID so CDN caches never serve the
	// old image.
	publicID := fmt.Sprintf("book_%s_cover_%d", book.ID, time.Now().UnixNano())
	coverURL, err := app.uploadCoverToCloudinary(file, publicID)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	// Best-effort cleanup of the previous cover.
	if book.CoverURL != nil && *book.CoverURL != "" {
		if err := app.deleteCoverFromCloudinary(*book.CoverURL); err != nil {
			app.logger.Warnw("failed to delete old cover", "book_id", book.ID, "error", err)
		}
	}

	if err := app.store.Books.SetCover(ctx, book.ID, &coverURL); err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, map[string]string{"cover_url": coverURL}); err != nil {
		app.internalServerError(w, r, err)
	}
}

// deleteBookCoverHandler godoc
//
//	@Summary		Remove a book cover
//	@Tags			admin
//	@Produce		json
//	@Param			bookID	path		string	true	"Book slug"
//	@Success		204		{string}	string	"No Content"
//	@Failure		404		{object}	ErrorBadRequestResponse
//	@Failure		500		{object}	ErrorInternalServerResponse
//	@Security		ApiKeyAuth
//	@Router			/admin/books/{bookID}/cover [delete]
func (app *application) deleteBookCoverHandler(w http.ResponseWriter, r *http.Request) {
	bookID := chi.URLParam(r, "bookID")

	ctx := r.Context()

	book, err := app.store.Books.GetByID(ctx, bookID)
	if err != nil {
		if errors.Is(err, books.ErrNotFound) {
			app.notFoundResponse(w, r, err)
			return
		}
		app.internalServerError(w, r, err)
		return
	}

	if book.CoverURL != nil && *book.CoverURL != "" {
		if err := app.deleteCoverFromCloudinary(*book.CoverURL); err != nil {
			app.logger.Warnw("failed to delete cover asset", "book_id", book.ID, "error", err)
		}
	}

	if err := app.store.Books.SetCover(ctx, book.ID, nil); err != nil {
		app.internalServerError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// uploadCoverToCloudinary uploads a file to Cloudinary using a custom public ID.
func (app *application) uploadCoverToCloudinary(file io.Reader, publicID string) (string, error) {
	resp, err := app.cld.Upload.Upload(
		context.Background(), // using a background context for external call
		file,
		uploader.UploadParams{
			Folder:    "covers",
			PublicID:  publicID,
			Overwrite: api.Bool(false),
		},
	)
	if err != nil {
		return "", fmt.Errorf("cloudinary upload: %w", err)
	}
	return resp.SecureURL, nil
}

func (app *application) deleteCoverFromCloudinary(coverURL string) error {
	publicID, err := extractPublicIDFromURL(coverURL)
	if err != nil {
		return fmt.Errorf("failed to extract public ID: %w", err)
	}

	_, err = app.cld.Upload.Destroy(context.Background(), uploader.DestroyParams{
		PublicID: publicID,
	})
	if err != nil {
		return fmt.Errorf("failed to delete cover from Cloudinary: %w", err)
	}

	return nil
}

// Helper function to extract the public ID from the Cloudinary URL
func extractPublicIDFromURL(coverURL string) (string, error) {
	parsedURL, err := url.Parse(coverURL)
	if err != nil {
		return "", fmt.Errorf("invalid URL format: %w", err)
	}

	pathParts := strings.Split(parsedURL.Path, "/")
	for i, part := range pathParts {
		if part == "upload" && i+1 < len(pathParts) {
			return strings.Join(pathParts[i+1:], "/"), nil
		}
	}

	return "", errors.New("failed to extract public ID from URL")
}
