package main

import (
	"expvar"
	"fmt"
	"log"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"storyport/internal/auth"
	"storyport/internal/cart"
	"storyport/internal/checkout"
	"storyport/internal/db"
	"storyport/internal/domain/orders"
	"storyport/internal/domain/storage"
	"storyport/internal/mailer"
	"storyport/internal/notifications"
	"storyport/internal/payments"
	"storyport/internal/ratelimiter"
	"storyport/internal/reconcile"
	"storyport/internal/session"

	"github.com/9ssi7/exponent"
	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoadRateLimiterConfig retrieves rate limiter settings from environment variables
func LoadRateLimiterConfig() ratelimiter.Config {
	defaultRequests := 200
	defaultEnabled := false

	requestsPerTimeFrame := defaultRequests
	if val, exists := os.LookupEnv("RATELIMITER_REQUESTS_COUNT"); exists {
		if parsedVal, err := strconv.Atoi(val); err == nil {
			requestsPerTimeFrame = parsedVal
		} else {
			fmt.Println("Invalid RATELIMITER_REQUESTS_COUNT, defaulting to", defaultRequests)
		}
	}

	enabled := defaultEnabled
	if val, exists := os.LookupEnv("RATE_LIMITER_ENABLED"); exists {
		if parsedVal, err := strconv.ParseBool(val); err == nil {
			enabled = parsedVal
		} else {
			fmt.Println("Invalid RATE_LIMITER_ENABLED, defaulting to", defaultEnabled)
		}
	}

	return ratelimiter.Config{
		RequestsPerTimeFrame: requestsPerTimeFrame,
		TimeFrame:            5 * time.Second,
		Enabled:              enabled,
	}
}

// NewLogger creates a new zap logger with color.
func NewLogger() (*zap.SugaredLogger, error) {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder // This adds color to log levels (INFO, WARN, ERROR)

	consoleEncoder := zapcore.NewConsoleEncoder(encoderCfg)

	level := zapcore.InfoLevel

	core := zapcore.NewCore(consoleEncoder, zapcore.NewMultiWriteSyncer(zapcore.AddSync(os.Stdout)), level)

	logger := zap.New(core)

	return logger.Sugar(), nil
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if val, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
		fmt.Println("Invalid", key, "defaulting to", fallback)
	}
	return fallback
}

var version = "1.0.0"

//	@title			Storyport API
//	@description	API for Storyport, an ebook and podcast storefront.

//	@contact.name	API Support
//	@contact.url	http://www.swagger.io/support
//	@contact.email	support@swagger.io

//	@license.name	Apache 2.0
//	@license.url	http://www.apache.org/licenses/LICENSE-2.0.html

//	@BasePath					/v1
//	@securityDefinitions.apikey	ApiKeyAuth
//	@in							header
//	@name						Authorization
//	@description

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Fatalf("Error loading .env file: %v", err)
	}

	maxConnsStr := os.Getenv("DB_MAX_CONNS")
	maxConns, err := strconv.Atoi(maxConnsStr)
	if err != nil {
		log.Fatalf("Invalid value for DB_MAX_CONNS: %v", err)
	}

	redisDB := 0
	if val, exists := os.LookupEnv("REDIS_DB"); exists {
		if parsed, err := strconv.Atoi(val); err == nil {
			redisDB = parsed
		}
	}
	redisEnabled := false
	if val, exists := os.LookupEnv("REDIS_ENABLED"); exists {
		if parsed, err := strconv.ParseBool(val); err == nil {
			redisEnabled = parsed
		}
	}

	cfg := config{
		addr:        os.Getenv("ADDR"),
		env:         os.Getenv("ENV"),
		frontendURL: os.Getenv("FRONTEND_URL"),
		apiURL:      os.Getenv("EXTERNAL_URL"),
		db: dbConfig{
			addr:        os.Getenv("DB_ADDR"),
			maxConns:    maxConns,
			maxIdleTime: os.Getenv("DB_MAX_IDLE_TIME"),
		},
		mail: mailConfig{
			fromEmail: os.Getenv("MAIL_FROM_EMAIL"),
			mailtrap: mailTrapConfig{
				apiKey: os.Getenv("MAILTRAP_API_KEY"),
			},
		},
		auth: authConfig{
			basic: basicConfig{
				user: os.Getenv("AUTH_BASIC_USER"),
				pass: os.Getenv("AUTH_BASIC_PASS"),
			},
			token: tokenConfig{
				refreshSecret:   os.Getenv("AUTH_TOKEN_REFRESH_SECRET"),
				secret:          os.Getenv("AUTH_TOKEN_SECRET"),
				accessTokenExp:  time.Hour * 24 * 3, // 3 days
				refreshTokenExp: time.Hour * 24 * 9, // 9 days
				iss:             "Storyport",
			},
		},
		redis: redisConfig{
			addr:     os.Getenv("REDIS_ADDR"),
			password: os.Getenv("REDIS_PASSWORD"),
			db:       redisDB,
			enabled:  redisEnabled,
		},
		checkout: checkoutConfig{
			provider:     "stripe",
			currency:     envOrDefault("STORE_CURRENCY", "USD"),
			stripeSecret: os.Getenv("STRIPE_SECRET_KEY"),
			successURL:   os.Getenv("CHECKOUT_SUCCESS_URL"),
			cancelURL:    os.Getenv("CHECKOUT_CANCEL_URL"),
			dedupWindow:  envDuration("CONFIRM_DEDUP_WINDOW", reconcile.DefaultDedupWindow),
			orderRefSalt: os.Getenv("ORDER_REF_SALT"),
		},
		session: sessionConfig{
			ttl: envDuration("SESSION_TTL", time.Hour*24*7),
		},
		rateLimiter: LoadRateLimiterConfig(),
	}

	if missing := missingRequiredConfig(cfg); len(missing) > 0 {
		log.Fatalf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	// Logger
	logger, err := NewLogger()
	if err != nil {
		fmt.Println("Error creating logger:", err)
		return
	}
	defer logger.Sync()

	// Database
	pool, err := db.New(
		cfg.db.addr,
		int32(cfg.db.maxConns),
		cfg.db.maxIdleTime,
	)
	if err != nil {
		logger.Fatal(err)
	}
	defer pool.Close()
	logger.Info("database connection pool established")

	//storage
	store := storage.NewContainer(pool)

	// Session store: redis in deployment, in-memory for local work.
	var sessions session.Store
	if cfg.redis.enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.redis.addr,
			Password: cfg.redis.password,
			DB:       cfg.redis.db,
		})
		sessions = session.NewRedisStore(rdb, cfg.session.ttl)
		logger.Info("redis session store connected")
	} else {
		sessions = session.NewMemoryStore(cfg.session.ttl)
		logger.Info("in-memory session store active")
	}

	carts := cart.NewService(sessions, logger)

	//cloudinary
	cloudinaryUrl := os.Getenv("CLOUDINARY_URL")
	cld, err := cloudinary.NewFromURL(cloudinaryUrl)
	if err != nil {
		logger.Fatal(err)
	}

	mailtrap, err := mailer.NewMailTrapClient(cfg.mail.mailtrap.apiKey, cfg.mail.fromEmail)
	if err != nil {
		logger.Fatal(err)
	}

	// Payment gateways
	stripe := payments.NewStripeAdapter(
		cfg.checkout.stripeSecret,
		cfg.checkout.successURL,
		cfg.checkout.cancelURL,
	)
	gateways := payments.NewManager()
	gateways.RegisterGateway("stripe", stripe)

	gateway, err := gateways.Gateway(cfg.checkout.provider)
	if err != nil {
		logger.Fatal(err)
	}

	initiator := checkout.NewInitiator(gateway, checkout.NewFixedRateProvider(), logger)

	refs, err := orders.NewRefGenerator(cfg.checkout.orderRefSalt)
	if err != nil {
		logger.Fatal(err)
	}

	reconciler := reconcile.New(gateway, mailtrap, sessions, refs, cfg.checkout.dedupWindow, logger)

	// Rate limiter
	rateLimiter := ratelimiter.NewFixedWindowLimiter(
		cfg.rateLimiter.RequestsPerTimeFrame,
		cfg.rateLimiter.TimeFrame,
	)

	// Authenticator
	jwtAuthenticator := auth.NewJWTAuthenticator(
		cfg.auth.token.secret,
		cfg.auth.token.refreshSecret,
		cfg.auth.token.iss,
		cfg.auth.token.iss,
		cfg.auth.token.accessTokenExp,
		cfg.auth.token.refreshTokenExp,
	)

	// Expo push client for admin order alerts
	push := notifications.NewExpoAdapter(exponent.NewClient())

	app := &application{
		config:        cfg,
		logger:        logger,
		store:         store,
		sessions:      sessions,
		carts:         carts,
		checkout:      initiator,
		reconciler:    reconciler,
		cld:           cld,
		mailer:        mailtrap,
		authenticator: jwtAuthenticator,
		rateLimiter:   rateLimiter,
		push:          push,
	}

	app.pruneStalePushTokensDaily()

	//Metrics collected http://localhost:8080/v1/debug/vars
	expvar.NewString("version").Set(version)
	expvar.Publish("database", expvar.Func(func() any {
		return pool.Stat()
	}))
	expvar.Publish("goroutines", expvar.Func(func() any {
		return runtime.NumGoroutine()
	}))

	mux := app.mount()

	logger.Fatal(app.run(mux))
}

// missingRequiredConfig lists the env-backed settings the server cannot run
// without. An empty secret must stop startup here: otherwise JWTs get signed
// with an empty key and the payment processor rejects every session with an
// opaque 401 long after boot.
func missingRequiredConfig(cfg config) []string {
	required := []struct {
		name  string
		value string
	}{
		{"DB_ADDR", cfg.db.addr},
		{"FRONTEND_URL", cfg.frontendURL},
		{"AUTH_TOKEN_SECRET", cfg.auth.token.secret},
		{"AUTH_TOKEN_REFRESH_SECRET", cfg.auth.token.refreshSecret},
		{"STRIPE_SECRET_KEY", cfg.checkout.stripeSecret},
		{"CHECKOUT_SUCCESS_URL", cfg.checkout.successURL},
		{"CHECKOUT_CANCEL_URL", cfg.checkout.cancelURL},
		{"ORDER_REF_SALT", cfg.checkout.orderRefSalt},
	}

	var missing []string
	for _, req := range required {
		if req.value == "" {
			missing = append(missing, req.name)
		}
	}
	return missing
}

func envOrDefault(key, fallback string) string {
	if val, exists := os.LookupEnv(key); exists && val != "" {
		return val
	}
	return fallback
}
