package main

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storyport/docs" //this is required to generate swagger docs
	"storyport/internal/auth"
	"storyport/internal/cart"
	"storyport/internal/checkout"
	"storyport/internal/domain/storage"
	"storyport/internal/mailer"
	"storyport/internal/notifications"
	"storyport/internal/ratelimiter"
	"storyport/internal/reconcile"
	"storyport/internal/session"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
)

type application struct {
	config        config
	store         *storage.Container
	sessions      session.Store
	carts         *cart.Service
	checkout      *checkout.Initiator
	reconciler    *reconcile.Reconciler
	logger        *zap.SugaredLogger
	cld           *cloudinary.Cloudinary
	mailer        mailer.Client
	authenticator auth.Authenticator
	rateLimiter   ratelimiter.Limiter
	push          notifications.PushSender
}

type config struct {
	addr        string
	db          dbConfig
	env         string
	apiURL      string
	frontendURL string
	mail        mailConfig
	auth        authConfig
	redis       redisConfig
	checkout    checkoutConfig
	session     sessionConfig
	rateLimiter ratelimiter.Config
}

type authConfig struct {
	basic basicConfig
	token tokenConfig
}

type tokenConfig struct {
	refreshSecret   string
	secret          string
	accessTokenExp  time.Duration
	refreshTokenExp time.Duration
	iss             string
}

type basicConfig struct {
	user string
	pass string
}

type mailConfig struct {
	fromEmail string
	mailtrap  mailTrapConfig
}

type mailTrapConfig struct {
	apiKey string
}

type dbConfig struct {
	addr        string
	maxConns    int
	maxIdleTime string
}

type redisConfig struct {
	addr     string
	password string
	db       int
	enabled  bool
}

type checkoutConfig struct {
	provider     string
	currency     string
	stripeSecret string
	successURL   string
	cancelURL    string
	dedupWindow  time.Duration
	orderRefSalt string
}

type sessionConfig struct {
	ttl time.Duration
}

func (app *application) mount() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(app.RateLimiterMiddleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{app.config.frontendURL},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Session-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	//Set a timeout value on the request context (ctx), that will signal through ctx.Done() that the request has timed out and further processing should be stopped
	r.Use(middleware.Timeout(60 * time.Second))

	r.Route("/v1", func(r chi.Router) {
		r.With(app.BasicAuthMiddleware()).Get("/health", app.healthCheckHandler)
		docsURL := fmt.Sprintf("%s/swagger/doc.json", app.config.addr)
		r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL(docsURL)))

		r.With(app.BasicAuthMiddleware()).Get("/debug/vars", expvar.Handler().ServeHTTP)

		// Anonymous session bootstrap; the returned token travels in the
		// X-Session-Token header on every cart and checkout call.
		r.Post("/session", app.createSessionHandler)

		r.Route("/books", func(r chi.Router) {
			r.Get("/", app.listBooksHandler)
			r.Get("/{bookID}", app.getBookHandler)
		})

		r.Route("/cart", func(r chi.Router) {
			r.Use(app.OptionalAuthTokenMiddleware)
			r.Get("/", app.getCartHandler)
			r.Post("/items", app.addCartItemHandler)
			r.Patch("/items/{itemID}/decrement", app.decrementCartItemHandler)
			r.Delete("/items/{itemID}", app.removeCartItemHandler)
			r.Delete("/", app.clearCartHandler)
		})

		r.Route("/store", func(r chi.Router) {
			r.With(app.OptionalAuthTokenMiddleware).Post("/checkout", app.startCheckoutHandler)
			r.Get("/checkout/return", app.checkoutReturnHandler)
			r.With(app.OptionalAuthTokenMiddleware).Post("/donations", app.startDonationHandler)
			r.With(app.OptionalAuthTokenMiddleware).Post("/orders/confirm", app.confirmOrderHandler)
		})

		// Public routes
		r.Route("/authentication", func(r chi.Router) {
			r.Post("/user", app.registerUserHandler)
			r.Post("/token", app.createTokenHandler)
			r.Post("/refresh", app.refreshTokenHandler)
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(app.AuthTokenMiddleware)
			r.Post("/logout", app.logoutHandler)
			r.Post("/push-token", app.registerPushTokenHandler)
			r.Delete("/push-token", app.removePushTokenHandler)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(app.AuthTokenMiddleware)
			r.Use(app.RequireAdmin)
			r.Get("/stats", app.adminStatsHandler)
			r.Get("/orders", app.adminListOrdersHandler)
			r.Get("/orders/{orderID}/items", app.adminOrderItemsHandler)
			r.Get("/users", app.adminListUsersHandler)
			r.Get("/books/top", app.adminTopBooksHandler)

			r.Route("/books", func(r chi.Router) {
				r.Post("/", app.createBookHandler)
				r.Patch("/{bookID}", app.updateBookHandler)
				r.Patch("/{bookID}/active", app.setBookActiveHandler)
				r.Post("/{bookID}/cover", app.uploadBookCoverHandler)
				r.Delete("/{bookID}/cover", app.deleteBookCoverHandler)
			})
		})
	})
	return r
}

func (app *application) run(mux http.Handler) error {
	// Docs
	docs.SwaggerInfo.Version = version
	docs.SwaggerInfo.Host = app.config.apiURL
	docs.SwaggerInfo.BasePath = "/v1"

	srv := &http.Server{
		Addr:         app.config.addr,
		Handler:      mux,
		WriteTimeout: time.Second * 30,
		ReadTimeout:  time.Second * 10,
		IdleTimeout:  time.Minute,
	}

	// Implementing graceful shutdown
	shutdown := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)

		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		app.logger.Infow("signal caught", "signal", s.String())

		shutdown <- srv.Shutdown(ctx)
	}()

	app.logger.Infow("server has started", "addr", app.config.addr, "env", app.config.env)

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdown
	if err != nil {
		return err
	}

	app.logger.Infow("server has stopped", "addr", app.config.addr, "env", app.config.env)

	return nil
}
