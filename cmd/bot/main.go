package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"attendance_poll_bot/internal/app"
	"attendance_poll_bot/internal/domain/attendance"
	"attendance_poll_bot/internal/domain/holiday"
	"attendance_poll_bot/internal/domain/schedule"
	"attendance_poll_bot/internal/infra/config"
	idb "attendance_poll_bot/internal/infra/database"
	"attendance_poll_bot/internal/infra/httpapi"
	"attendance_poll_bot/internal/infra/logger"
	"attendance_poll_bot/internal/infra/scheduler"
	"attendance_poll_bot/internal/infra/storage"
	"attendance_poll_bot/internal/infra/telegram"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatalf("Could not load application configuration: %v", err)
	}
	logger.Init(cfg)
	mainLogger := logger.Component("main")

	mainLogger.WithFields(logrus.Fields{
		"environment": cfg.Environment,
		"chat_id":     cfg.ChatID,
		"timezone":    cfg.Location.String(),
		"weekdays":    cfg.Weekdays,
	}).Info("Configuration loaded")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Storage: PostgreSQL when DATABASE_URL is set, JSON files otherwise.
	var (
		db           *sql.DB
		holidayRepo  holiday.Repository
		responseRepo attendance.Repository
	)
	if cfg.DatabaseURL != "" {
		db, err = idb.NewPostgresConnection(cfg.DatabaseURL)
		if err != nil {
			mainLogger.WithError(err).Fatal("Could not connect to database")
		}
		defer db.Close()
		if err := idb.Migrate(ctx, db); err != nil {
			mainLogger.WithError(err).Fatal("Could not apply database schema")
		}
		holidayRepo = idb.NewPostgresHolidayRepository(db)
		responseRepo = idb.NewPostgresResponseRepository(db)
		mainLogger.Info("Using PostgreSQL storage")
	} else {
		holidayRepo = storage.NewJSONHolidayRepository(cfg.HolidaysFile, logger.Component("holiday_store"))
		responseRepo = storage.NewJSONResponseRepository(cfg.ResponsesFile, logger.Component("response_store"))
		mainLogger.WithFields(logrus.Fields{
			"holidays_file":  cfg.HolidaysFile,
			"responses_file": cfg.ResponsesFile,
		}).Info("Using JSON file storage")
	}

	now := func() time.Time { return time.Now().In(cfg.Location) }

	holidays := app.NewHolidayRegistry(ctx, holidayRepo, logger.Component("holidays"))
	attendanceService := app.NewAttendanceService(responseRepo, now, logger.Component("attendance"))

	weekdays, err := schedule.WeekdaysFromIndexes(cfg.Weekdays)
	if err != nil {
		mainLogger.WithError(err).Fatal("Invalid weekday configuration")
	}
	rule := schedule.Rule{
		Weekdays:           weekdays,
		SendBeforeHolidays: cfg.SendBeforeHolidays,
		PromptTime:         cfg.SendTime,
		SummaryTime:        cfg.SummaryTime,
	}
	engine := app.NewScheduleEngine(rule, holidays, cfg.Location, now, logger.Component("schedule_engine"))

	// Initialize Telegram Bot
	telegramLogger := logger.Component("telegram")
	pref := telebot.Settings{
		Token:  cfg.TelegramToken,
		Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c telebot.Context) { // Global error handler
			entry := telegramLogger.WithError(err)
			if c != nil && c.Sender() != nil && c.Chat() != nil {
				entry = entry.WithFields(logrus.Fields{"sender_id": c.Sender().ID, "chat_id": c.Chat().ID})
			}
			entry.Error("Telebot handler error")
		},
	}
	bot, err := telebot.NewBot(pref)
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not create Telegram bot")
	}

	polls := app.NewPollService(telegram.NewTelebotAdapter(bot), attendanceService, cfg.ChatID, cfg.Location, logger.Component("polls"))
	engine.RegisterPromptCallback(polls.SendPrompt)
	engine.RegisterSummaryCallback(polls.SendScheduledSummary)

	sessions := app.NewSessionManager(attendanceService, cfg.SessionTimeout, now, logger.Component("sessions"))
	adminService := app.NewAdminService(engine, holidays, polls, attendanceService, cfg.ChatID)

	// Register Handlers
	telegram.RegisterBotCommands(bot, telegramLogger)
	telegram.RegisterAdminHandlers(ctx, bot, adminService, telegramLogger)
	telegram.RegisterAttendanceHandlers(ctx, bot, sessions, telegramLogger)
	mainLogger.Info("Telegram handlers registered")

	tickScheduler := scheduler.NewTickScheduler(engine, sessions, cfg.Location, logger.Component("scheduler"), cfg.TickCronSpec)
	if err := tickScheduler.Start(); err != nil {
		mainLogger.WithError(err).Fatal("Could not start tick scheduler")
	}

	var server *http.Server
	if cfg.HealthAddr != "" {
		var pinger httpapi.Pinger
		if db != nil {
			pinger = db
		}
		server = httpapi.NewServer(cfg.HealthAddr, httpapi.NewRouter(engine, pinger, logger.Component("http")))
		go func() {
			mainLogger.WithField("addr", cfg.HealthAddr).Info("Health endpoint listening")
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				mainLogger.WithError(err).Error("Health endpoint stopped")
			}
		}()
	}

	if next, ok := engine.NextSendDatetime(); ok {
		mainLogger.WithField("next_send", next.Format(time.RFC3339)).Info("Next scheduled prompt")
	}
	mainLogger.Info("Application setup complete. Bot and scheduler are running")

	// Start bot in a goroutine so it doesn't block graceful shutdown handling
	go bot.Start()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit // Block until a signal is received

	mainLogger.Info("Shutting down application...")
	tickScheduler.Stop()
	bot.Stop()
	if server != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := server.Shutdown(shutdownCtx); err != nil {
			mainLogger.WithError(err).Warn("Health endpoint shutdown")
		}
		shutdownCancel()
	}
	cancel()
	mainLogger.Info("Application shut down gracefully.")
}
