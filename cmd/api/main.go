package main

import (
	"expvar"
	"fmt"
	"log"
	"os"
	"runtime"
	"strconv"
	"time"

	"holdme/internal/auth"
	"holdme/internal/db"
	"holdme/internal/mailer"
	"holdme/internal/notifications"
	"holdme/internal/ratelimiter"
	"holdme/internal/store"

	"github.com/9ssi7/exponent"
	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/joho/godotenv"
	"github.com/speps/go-hashids/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoadRateLimiterConfig retrieves rate limiter settings from environment variables
func LoadRateLimiterConfig() ratelimiter.Config {
	// Default values
	defaultRequests := 200
	defaultEnabled := false

	// Retrieve request count with error handling
	requestsPerTimeFrame := defaultRequests
	if val, exists := os.LookupEnv("RATELIMITER_REQUESTS_COUNT"); exists {
		if parsedVal, err := strconv.Atoi(val); err == nil {
			requestsPerTimeFrame = parsedVal
		} else {
			fmt.Println("Invalid RATELIMITER_REQUESTS_COUNT, defaulting to", defaultRequests)
		}
	}

	// Retrieve enabled flag with error handling
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
	// Configure the encoder to be a console encoder with color
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder // This adds color to log levels (INFO, WARN, ERROR)

	// Create a console encoder with the custom configuration
	consoleEncoder := zapcore.NewConsoleEncoder(encoderCfg)

	// Create a log level (you can set your own level here)
	level := zapcore.InfoLevel

	// Use zapcore.NewCore to write logs to standard output (stdout) with color
	core := zapcore.NewCore(consoleEncoder, zapcore.NewMultiWriteSyncer(zapcore.AddSync(os.Stdout)), level)

	// Create and return a new logger instance
	logger := zap.New(core)

	return logger.Sugar(), nil
}

var version = "0.3.0"

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Fatalf("Error loading .env file: %v", err)
	}
	// Retrieve and convert maxConns
	maxConnsStr := os.Getenv("DB_MAX_CONNS")
	maxConns, err := strconv.Atoi(maxConnsStr)
	if err != nil {
		log.Fatalf("Invalid value for DB_MAX_CONNS: %v", err)
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
				accessTokenExp:  time.Minute * 15,
				refreshTokenExp: time.Hour * 24 * 14, // 14 days
				iss:             "HoldMe",
			},
			session: sessionConfig{
				exp: time.Hour * 24, // 24 hours
			},
		},
		rateLimiter: LoadRateLimiterConfig(),
	}

	// Logger
	logger, err := NewLogger()
	if err != nil {
		fmt.Println("Error creating logger:", err)
		return
	}
	defer logger.Sync()

	// Database
	db, err := db.New(
		cfg.db.addr,
		int32(cfg.db.maxConns),
		cfg.db.maxIdleTime,
	)

	if err != nil {
		logger.Fatal(err)
	}

	defer db.Close()
	logger.Info("database connection pool established")

	//storage
	store := store.NewStorage(db)

	//cloudinary
	cloudinaryUrl := os.Getenv("CLOUDINARY_URL")
	cld, err := cloudinary.NewFromURL(cloudinaryUrl)
	if err != nil {
		logger.Fatal(err)
	}

	// client to send the welcome email
	mailtrap, err := mailer.NewMailTrapClient(cfg.mail.mailtrap.apiKey, cfg.mail.fromEmail)
	if err != nil {
		logger.Fatal(err)
	}

	// Expo push notifications
	push := notifications.NewExpoAdapter(exponent.NewClient())

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

	// Meetup share codes
	hd := hashids.NewData()
	hd.Salt = os.Getenv("SHARE_CODE_SALT")
	hd.MinLength = 8
	shareCodes, err := hashids.NewWithData(hd)
	if err != nil {
		logger.Fatal(err)
	}

	app := &application{
		config:        cfg,
		logger:        logger,
		store:         store,
		cld:           cld,
		mailer:        mailtrap,
		authenticator: jwtAuthenticator,
		push:          push,
		rateLimiter:   rateLimiter,
		shareCodes:    shareCodes,
	}

	app.sweepPastMeetupsEvery30Mins()
	app.cleanupSessionsHourly()
	app.prunePushTokensDaily()

	//Metrics collected http://localhost:8080/api/debug/vars
	expvar.NewString("version").Set(version)
	expvar.Publish("database", expvar.Func(func() any {
		return db.Stat()
	}))
	expvar.Publish("goroutines", expvar.Func(func() any {
		return runtime.NumGoroutine()
	}))

	mux := app.mount()

	logger.Fatal(app.run(mux))
}
