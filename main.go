package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	alertsapp "venue-timers/internal/alerts/application"
	alertshttp "venue-timers/internal/alerts/interfaces/http"
	"venue-timers/internal/alerts/notify"
	"venue-timers/internal/audit"
	"venue-timers/internal/auth"
	"venue-timers/internal/eventing"
	"venue-timers/internal/observability/metrics"
	overtimeapp "venue-timers/internal/overtime/application"
	overtimemem "venue-timers/internal/overtime/infrastructure/memory"
	overtimerepo "venue-timers/internal/overtime/infrastructure/postgres"
	overtimehttp "venue-timers/internal/overtime/interfaces/http"
	"venue-timers/internal/payments"
	queueapp "venue-timers/internal/queue/application"
	queuehttp "venue-timers/internal/queue/interfaces/http"
	sessionsapp "venue-timers/internal/sessions/application"
	stations "venue-timers/internal/stations/domain"
	stationsconfig "venue-timers/internal/stations/infrastructure/config"
	stationsrepo "venue-timers/internal/stations/infrastructure/postgres"
	stationshttp "venue-timers/internal/stations/interfaces/http"
	timersapp "venue-timers/internal/timers/application"
	timersmem "venue-timers/internal/timers/infrastructure/memory"
	timersredis "venue-timers/internal/timers/infrastructure/redis"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
	}
	if len(os.Args) > 1 && os.Args[1] == "token" {
		if err := issueToken(os.Args[2:]); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	cfg := loadConfig()
	logger := newLogger(cfg.LogLevel)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var db *sql.DB
	if cfg.DatabaseURL != "" {
		var err error
		db, err = sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("db open error")
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			logger.Fatal().Err(err).Msg("db ping error")
		}
	}
	metrics.Init(db, logger)

	registry, err := loadStations(ctx, cfg, db)
	if err != nil {
		logger.Fatal().Err(err).Msg("station catalog error")
	}
	logger.Info().Int("stations", len(registry.List())).Str("source", cfg.StationsSource).Msg("station catalog loaded")

	// Timer persistence.
	var (
		stateStore  timersapp.StateSaver
		stateLoader timersapp.StateLoader
		redisClient *goredis.Client
	)
	if cfg.RedisAddr != "" {
		redisClient = goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("redis ping error")
		}
		redisStore, err := timersredis.NewStateStore(redisClient, timersredis.WithKeyPrefix(cfg.RedisKeyPrefix), timersredis.WithLogger(logger))
		if err != nil {
			logger.Fatal().Err(err).Msg("redis state store error")
		}
		stateStore, stateLoader = redisStore, redisStore
	} else {
		memStore := timersmem.NewStateStore()
		stateStore, stateLoader = memStore, memStore
		logger.Warn().Msg("REDIS_ADDR not set; timer state is kept in memory only")
	}
	saver, err := timersapp.NewAsyncSaver(stateStore, logger.With().Str("component", "timer_saver").Logger())
	if err != nil {
		logger.Fatal().Err(err).Msg("timer saver error")
	}

	bus := eventing.NewInMemoryBus()
	engine, err := timersapp.NewEngine(registry, bus,
		timersapp.WithSaver(saver),
		timersapp.WithAdminGate(auth.ContextGate{}),
		timersapp.WithLogger(logger.With().Str("component", "timer_engine").Logger()),
		timersapp.WithTickInterval(cfg.TickInterval),
		timersapp.WithWarningThreshold(cfg.WarningThreshold),
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("timer engine error")
	}

	// Alarms.
	broker := alertshttp.NewSSEBroker()
	sinks := []notify.Sink{broker, notify.NewLogSink(logger.With().Str("component", "alarm_sink").Logger())}
	if cfg.AlarmWebhookURL != "" {
		webhook, err := notify.NewWebhookSink(cfg.AlarmWebhookURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("alarm webhook error")
		}
		sinks = append(sinks, webhook)
	}
	template, err := notify.NewTemplate(cfg.AlarmNotifyTemplate)
	if err != nil {
		logger.Fatal().Err(err).Msg("alarm template error")
	}
	scheduler, err := alertsapp.NewScheduler(notify.NewMulti(sinks...),
		alertsapp.WithLogger(logger.With().Str("component", "alert_scheduler").Logger()),
		alertsapp.WithTemplate(template),
		alertsapp.WithStations(registry),
		alertsapp.WithIntervals(cfg.AlarmRepeatInterval, cfg.AlarmReminderInterval),
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("alert scheduler error")
	}
	scheduler.Register(bus)

	// Overtime statistics.
	var overtimeStore overtimeapp.Store
	if db != nil {
		repo, err := overtimerepo.NewRecordRepository(db)
		if err != nil {
			logger.Fatal().Err(err).Msg("overtime repo error")
		}
		if err := repo.EnsureSchema(ctx); err != nil {
			logger.Fatal().Err(err).Msg("overtime schema error")
		}
		overtimeStore = repo
	} else {
		overtimeStore = overtimemem.NewRecordStore()
	}
	tracker, err := overtimeapp.NewTracker(overtimeStore, registry,
		overtimeapp.WithLogger(logger.With().Str("component", "overtime").Logger()),
		overtimeapp.WithDayStart(cfg.StatsDayStartHour, cfg.StatsLocation),
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("overtime tracker error")
	}
	tracker.Register(bus)

	// Payments.
	var (
		recorder payments.Recorder = payments.NewLogRecorder(logger.With().Str("component", "payments").Logger())
		natsConn *nats.Conn
	)
	if cfg.NATSURL != "" {
		natsConn, err = payments.Connect(cfg.NATSURL, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("nats connect error")
		}
		natsRecorder, err := payments.NewNATSRecorder(natsConn, cfg.PaymentSubjectPrefix)
		if err != nil {
			logger.Fatal().Err(err).Msg("payment recorder error")
		}
		recorder = natsRecorder
	}
	dispatcher, err := payments.NewDispatcher(recorder, logger.With().Str("component", "payments").Logger(),
		payments.WithCurrency(cfg.Currency),
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("payment dispatcher error")
	}
	dispatcher.Register(bus)

	restored, err := engine.Restore(ctx, stateLoader)
	if err != nil {
		logger.Error().Err(err).Msg("restore timers failed; starting idle")
	}
	for _, state := range restored {
		scheduler.Sync(ctx, state.StationID, string(state.Status))
	}
	logger.Info().Int("restored", len(restored)).Msg("timers restored")

	queueManager, err := queueapp.NewManager(registry, engine, queueapp.WithCleanupBuffer(cfg.CleanupBuffer))
	if err != nil {
		logger.Fatal().Err(err).Msg("queue manager error")
	}
	sessions, err := sessionsapp.NewService(engine, scheduler, tracker, queueManager, logger.With().Str("component", "sessions").Logger())
	if err != nil {
		logger.Fatal().Err(err).Msg("session service error")
	}

	var auditLogger audit.Logger = audit.NewLogWriter(logger.With().Str("component", "audit").Logger())
	if db != nil {
		repo, err := audit.NewRepository(db)
		if err != nil {
			logger.Fatal().Err(err).Msg("audit repo error")
		}
		if err := repo.EnsureSchema(ctx); err != nil {
			logger.Fatal().Err(err).Msg("audit schema error")
		}
		auditLogger = repo
	}

	// HTTP.
	queueHandler, err := queuehttp.NewHandler(queueManager, sessions)
	if err != nil {
		logger.Fatal().Err(err).Msg("queue handler error")
	}
	stationHandler, err := stationshttp.NewHandler(registry, engine, sessions, scheduler,
		stationshttp.WithQueueHandler(queueHandler),
		stationshttp.WithAuditLogger(auditLogger),
		stationshttp.WithLogger(logger),
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("station handler error")
	}
	alarmHandler, err := alertshttp.NewHandler(scheduler)
	if err != nil {
		logger.Fatal().Err(err).Msg("alarm handler error")
	}
	overtimeHandler, err := overtimehttp.NewHandler(tracker, clockwork.NewRealClock())
	if err != nil {
		logger.Fatal().Err(err).Msg("overtime handler error")
	}

	mux := http.NewServeMux()
	mux.Handle("/api/v1/stations", stationHandler)
	mux.Handle("/api/v1/stations/", stationHandler)
	mux.Handle("/api/v1/alarms/stream", alertshttp.NewStreamHandler(broker))
	mux.Handle("/api/v1/alarms", alarmHandler)
	mux.Handle("/api/v1/alarms/", alarmHandler)
	mux.Handle("/api/v1/overtime", overtimeHandler)
	mux.Handle("/api/v1/overtime/", overtimeHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	authMiddleware := auth.NewMiddleware([]byte(cfg.JWTSecret), auth.NewPolicy(auth.WithExemptPaths("/metrics", "/healthz")))
	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	})
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           corsMiddleware.Handler(loggingMiddleware(authMiddleware.Wrap(mux), logger)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go engine.Run(ctx)
	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Dur("tick", engine.Interval()).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server error")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown error")
	}
	scheduler.Close()
	dispatcher.Close()
	saver.Close()
	if natsConn != nil {
		if err := natsConn.Drain(); err != nil {
			logger.Warn().Err(err).Msg("nats drain error")
		}
	}
}

type config struct {
	HTTPAddr              string
	LogLevel              string
	DatabaseURL           string
	RedisAddr             string
	RedisPassword         string
	RedisDB               int
	RedisKeyPrefix        string
	NATSURL               string
	PaymentSubjectPrefix  string
	AlarmWebhookURL       string
	AlarmNotifyTemplate   string
	JWTSecret             string
	CORSAllowedOrigins    []string
	TickInterval          time.Duration
	WarningThreshold      time.Duration
	CleanupBuffer         time.Duration
	AlarmRepeatInterval   time.Duration
	AlarmReminderInterval time.Duration
	StatsDayStartHour     int
	StatsLocation         *time.Location
	Currency              string
	StationsConfig        string
	StationsSource        string
}

func loadConfig() config {
	cfg := config{
		HTTPAddr:              getenvDefault("HTTP_ADDR", ":8080"),
		LogLevel:              getenvDefault("LOG_LEVEL", "info"),
		DatabaseURL:           getenvDefault("DATABASE_URL", ""),
		RedisAddr:             getenvDefault("REDIS_ADDR", ""),
		RedisPassword:         getenvDefault("REDIS_PASSWORD", ""),
		RedisDB:               getenvIntDefault("REDIS_DB", 0),
		RedisKeyPrefix:        getenvDefault("REDIS_KEY_PREFIX", "venue:timer:"),
		NATSURL:               getenvDefault("NATS_URL", ""),
		PaymentSubjectPrefix:  getenvDefault("PAYMENT_SUBJECT_PREFIX", payments.DefaultSubjectPrefix),
		AlarmWebhookURL:       getenvDefault("ALARM_WEBHOOK_URL", ""),
		AlarmNotifyTemplate:   getenvDefault("ALARM_NOTIFY_TEMPLATE", ""),
		JWTSecret:             getenvDefault("AUTH_JWT_SECRET", ""),
		CORSAllowedOrigins:    splitList(getenvDefault("CORS_ALLOWED_ORIGINS", "*")),
		TickInterval:          getenvDuration("TICK_INTERVAL", time.Second),
		WarningThreshold:      getenvDuration("WARNING_THRESHOLD", 5*time.Minute),
		CleanupBuffer:         getenvDuration("CLEANUP_BUFFER", 3*time.Minute),
		AlarmRepeatInterval:   getenvDuration("ALARM_REPEAT_INTERVAL", 700*time.Millisecond),
		AlarmReminderInterval: getenvDuration("ALARM_REMINDER_INTERVAL", 30*time.Second),
		StatsDayStartHour:     getenvIntDefault("STATS_DAY_START_HOUR", 6),
		StatsLocation:         time.Local,
		Currency:              getenvDefault("CURRENCY", "CNY"),
		StationsConfig:        getenvDefault("STATIONS_CONFIG", "config/stations.yaml"),
		StationsSource:        getenvDefault("STATIONS_SOURCE", "file"),
	}
	if cfg.JWTSecret == "" {
		fatalConfig("AUTH_JWT_SECRET is required")
	}
	if tz := getenvDefault("STATS_TIMEZONE", ""); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			fatalConfig(fmt.Sprintf("STATS_TIMEZONE: %v", err))
		}
		cfg.StatsLocation = loc
	}
	if cfg.StationsSource == "postgres" && cfg.DatabaseURL == "" {
		fatalConfig("STATIONS_SOURCE=postgres requires DATABASE_URL")
	}
	return cfg
}

func loadStations(ctx context.Context, cfg config, db *sql.DB) (*stations.Registry, error) {
	var source stations.Source
	switch cfg.StationsSource {
	case "postgres":
		source = stationsrepo.NewStationRepository(db)
	case "file", "":
		fileSource, err := stationsconfig.NewFileSource(cfg.StationsConfig)
		if err != nil {
			return nil, err
		}
		source = fileSource
	default:
		return nil, fmt.Errorf("unknown STATIONS_SOURCE %q", cfg.StationsSource)
	}
	list, err := source.ListStations(ctx)
	if err != nil {
		return nil, err
	}
	return stations.NewRegistry(list)
}

// issueToken mints a bearer token for a front desk device or admin.
func issueToken(args []string) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	subject := fs.String("subject", "front-desk", "token subject")
	role := fs.String("role", string(auth.RoleOperator), "viewer, operator or admin")
	ttl := fs.Duration("ttl", 12*time.Hour, "token lifetime")
	scope := fs.String("stations", "", "comma separated station ids the token may act on; empty for all")
	if err := fs.Parse(args); err != nil {
		return err
	}
	secret := os.Getenv("AUTH_JWT_SECRET")
	if secret == "" {
		return errors.New("AUTH_JWT_SECRET is required")
	}
	normalized, ok := auth.NormalizeRole(*role)
	if !ok {
		return fmt.Errorf("unknown role %q", *role)
	}
	token, err := auth.IssueJWT([]byte(secret), *subject, normalized, splitList(*scope), *ttl)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

func newLogger(level string) zerolog.Logger {
	parsed, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		parsed = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(parsed)
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Str("service", "venue-timers").Logger()
}

func fatalConfig(msg string) {
	fmt.Fprintln(os.Stderr, "config:", msg)
	os.Exit(1)
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func loggingMiddleware(next http.Handler, logger zerolog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", resp.status).
			Dur("elapsed", time.Since(start)).
			Msg("http")
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Flush keeps the alarm stream working behind the logger.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
