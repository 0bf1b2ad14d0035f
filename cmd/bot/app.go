package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/thaiesports/ticketbot/pkg/dataaccess"
	"github.com/thaiesports/ticketbot/pkg/logging"
	"github.com/thaiesports/ticketbot/pkg/request"
	"github.com/thaiesports/ticketbot/pkg/ticketing"
	"github.com/thaiesports/ticketbot/pkg/transcripts"
	"golang.org/x/time/rate"
)

// PathMetrics is the path for metrics.
const PathMetrics = "/metrics"

// PathHealth is the path for the health check.
const PathHealth = "/health"

// PathTranscript is the path a saved transcript is served from.
const PathTranscript = "/transcripts/{filename}"

// IApp is the interface for the application.
type IApp interface {
	// Session returns the discord session.
	Session() *discordgo.Session

	// Log returns the application logger.
	Log() *slog.Logger

	// Coordinator returns the ticket lifecycle coordinator.
	Coordinator() *ticketing.Coordinator

	// Transcripts returns the transcript file store.
	Transcripts() *transcripts.Store

	// TicketDal returns the ticket mirror store.
	TicketDal() dataaccess.TicketDal

	// AllowCreate reports whether the user may attempt a ticket creation now.
	AllowCreate(userID string) bool
}

type App struct {
	// is the logger.
	*slog.Logger

	// r is the router for the application.
	r *mux.Router

	// svr is the server for the application.
	svr *http.Server

	// s is the discord session.
	s *discordgo.Session

	// eventNotifier is the channel for notifying of events.
	eventNotifier chan any

	// coordinator is the ticket lifecycle state machine.
	coordinator *ticketing.Coordinator

	// schedule is the operating-hours window.
	schedule *ticketing.Schedule

	// transcripts is the transcript file store.
	transcripts *transcripts.Store

	// ticketDal mirrors ticket records to the database.
	ticketDal dataaccess.TicketDal

	// counterDal persists the allocator counters.
	counterDal dataaccess.CounterDal

	// limiters rate limits ticket creation per user.
	limiters *userLimiters

	// registeredCommands are the slash commands created at startup, kept so
	// they can be removed again on shutdown.
	registeredCommands []*discordgo.ApplicationCommand
}

// NewApp creates a new instance of App.
func NewApp(l *slog.Logger, r *mux.Router) *App {
	return &App{
		Logger: l,
		r:      r,
	}
}

func (a *App) Run() error {
	// Register bot.
	if err := a.RegisterBot(); err != nil {
		return fmt.Errorf("error registering bot: %w", err)
	}

	a.s.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		a.Info(fmt.Sprintf("Logged in as %s#%s", r.User.Username, r.User.Discriminator))
	})

	if err := a.initTicketing(context.Background()); err != nil {
		return fmt.Errorf("error initialising ticketing: %w", err)
	}

	if err := a.RegisterDiscordHandlers(); err != nil {
		return fmt.Errorf("error registering discord handlers: %w", err)
	}

	// Start event listener.
	go a.eventListener()

	// Open websocket.
	if err := a.s.Open(); err != nil {
		return fmt.Errorf("error opening connection to Discord: %w", err)
	}

	// Register slash commands.
	if err := a.registerSlashCommands(); err != nil {
		return fmt.Errorf("error registering slash commands: %w", err)
	}

	go a.statusUpdater()

	a.Info("Bot is now running.")

	a.generateServer()
	a.setupRoutes()
	a.runServer()

	// Register listener for shutdown signal.
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)

	// Process shutdown signal.
	for sig := range c {
		a.Info("Received shutdown signal", slog.String(logging.KeySignal, sig.String()))
		if err := a.ShutdownHook(); err != nil {
			a.Error("Error shutting down application", slog.String(logging.KeyError, err.Error()))
		}
		os.Exit(0)
	}
	return nil
}

// initTicketing wires the lifecycle core: category table, counter-backed
// allocator, registry, transcript generator and the coordinator on top.
func (a *App) initTicketing(ctx context.Context) error {
	categories, err := ticketing.NewCategorySet(ticketCategories())
	if err != nil {
		return fmt.Errorf("error building category table: %w", err)
	}

	schedule, err := ticketing.NewSchedule(ScheduleStartHour, ScheduleEndHour, ScheduleTimezone)
	if err != nil {
		return fmt.Errorf("error building schedule: %w", err)
	}
	a.schedule = schedule

	a.ticketDal = dataaccess.NewTicketDal(a.Logger)
	a.counterDal = dataaccess.NewCounterDal(a.Logger)

	allocator, err := ticketing.NewAllocator(ctx, a.Logger, categories, a.counterDal)
	if err != nil {
		return fmt.Errorf("error building allocator: %w", err)
	}

	store, err := transcripts.NewStore(a.Logger, TranscriptDir, TranscriptBaseUrl)
	if err != nil {
		return fmt.Errorf("error building transcript store: %w", err)
	}
	a.transcripts = store

	a.coordinator = ticketing.NewCoordinator(a.Logger, categories, ticketing.NewRegistry(), allocator, ticketing.NewGenerator(),
		ticketing.WithMirror(a.ticketDal),
		ticketing.WithSchedule(schedule),
		ticketing.WithMaxTicketsPerOwner(MaxTicketsPerUser),
	)

	// Allow a retry shortly after a failed attempt, then back off.
	a.limiters = newUserLimiters(rate.Every(30*time.Second), 2)

	return nil
}

func (a *App) ShutdownHook() error {
	OpenTickets.Set(0)

	// Unregister slash commands.
	if err := a.unregisterSlashCommands(); err != nil {
		return fmt.Errorf("error unregistering slash commands: %w", err)
	}

	// Close the connection to Discord.
	if err := a.s.Close(); err != nil {
		return fmt.Errorf("error closing connection to Discord: %w", err)
	}
	return nil
}

func (a *App) RegisterBot() error {
	dg, err := discordgo.New("Bot " + BotToken)
	if err != nil {
		return fmt.Errorf("error creating Discord session: %w", err)
	}

	dg.Identify.Intents = discordgo.MakeIntent(discordgo.IntentsAll)

	if a.eventNotifier == nil {
		// Create event notifier. This is used to runServer events. It is buffered to prevent blocking.
		a.eventNotifier = make(chan any, 100)
	}

	dg.SetEventNotifier(a.eventNotifier)

	a.s = dg
	return nil
}

func (a *App) runServer() {
	go func() {
		slog.Info("Starting monitoring server")
		if err := a.svr.ListenAndServe(); err != nil {
			a.Error("Error starting monitoring server", slog.String(logging.KeyError, err.Error()))
			a.Warn("Monitoring server will not be available")
		}
	}()
}

func (a *App) setupRoutes() {
	// PathMetrics is the path for metrics.
	a.r.HandleFunc(PathMetrics, promhttp.Handler().ServeHTTP).Methods(http.MethodGet)

	// PathHealth is the path for health check.
	a.r.HandleFunc(PathHealth, middlewareHttp(a.healthCheck(), a)).Methods(http.MethodGet)

	// PathTranscript serves the archived ticket transcripts.
	a.r.HandleFunc(PathTranscript, middlewareHttp(a.transcriptController(), a)).Methods(http.MethodGet)

	// NotFoundHandler is the handler for 404.
	a.r.NotFoundHandler = request.NotFoundHandler(a.Logger)

	// MethodNotAllowedHandler is the handler for 405.
	a.r.MethodNotAllowedHandler = request.MethodNotAllowedHandler(a.Logger)
}

func (a *App) generateServer() {
	a.svr = &http.Server{
		Addr:    ":" + MonitoringPort,
		Handler: a.r,
	}
}

// transcriptController serves a saved transcript document by filename.
func (a *App) transcriptController() Controller {
	return func(w http.ResponseWriter, r *http.Request) {
		name := mux.Vars(r)["filename"]

		content, err := a.transcripts.Get(name)
		if err != nil {
			w.WriteHeader(http.StatusNotFound)
			if err := json.NewEncoder(w).Encode(request.NewMessage("Transcript not found")); err != nil {
				a.Error("Error encoding response", slog.String(logging.KeyError, err.Error()))
			}
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if _, err := w.Write(content); err != nil {
			a.Error("Error writing transcript response", slog.String(logging.KeyError, err.Error()))
		}
	}
}

func (a *App) RegisterDiscordHandlers() error {
	// Interaction create handler.
	a.s.AddHandler(interactionHandler(a,
		// Slash commands
		map[string]commandProcessor{
			SetupCmdName:  setupHandler,
			TicketCmdName: ticketCommandHandler,
		},
		// Components (select menu + buttons)
		map[string]commandProcessor{
			TicketCategorySelectID: createTicketHandler,
			PauseTicketButtonID:    pauseTicketHandler,
			UnpauseTicketButtonID:  unpauseTicketHandler,
			CloseTicketButtonID:    closeTicketHandler,
		}))

	// Enforce the paused state on owner messages.
	a.s.AddHandler(messageCreateHandler(a))

	return nil
}

func (a *App) eventListener() {
	for e := range a.eventNotifier {
		switch t := e.(type) {
		case *discordgo.Event:
			if t.Type != "" {
				TotalDiscordEvents.WithLabelValues(t.Type).Inc()
			} else {
				// If there is no type, then use the operation name.
				TotalDiscordEvents.WithLabelValues(strings.ToUpper(t.Operation.String())).Inc()
			}
		default:
			a.Error("Unknown event type", slog.String("type", fmt.Sprintf("%T", e)))
			TotalDiscordEvents.WithLabelValues("UNKNOWN").Inc()
		}
	}
}

func (a *App) registerSlashCommands() error {
	for _, cmd := range []*discordgo.ApplicationCommand{setupCmd, ticketCmd} {
		created, err := a.s.ApplicationCommandCreate(ApplicationId, GuildId, cmd)
		if err != nil {
			return fmt.Errorf("error creating %s command: %w", cmd.Name, err)
		}
		a.registeredCommands = append(a.registeredCommands, created)
	}
	return nil
}

func (a *App) unregisterSlashCommands() error {
	for _, cmd := range a.registeredCommands {
		if err := a.s.ApplicationCommandDelete(ApplicationId, GuildId, cmd.ID); err != nil {
			return fmt.Errorf("error deleting %s command: %w", cmd.Name, err)
		}
	}
	return nil
}

// statusUpdater flips the bot presence with the operating-hours window: online
// while tickets can be opened, do-not-disturb outside the window.
func (a *App) statusUpdater() {
	update := func() {
		start, end := a.schedule.Hours()

		var data discordgo.UpdateStatusData
		if a.schedule.Within(time.Now()) {
			data = discordgo.UpdateStatusData{
				Status: "online",
				Activities: []*discordgo.Activity{{
					Name: "Thai Esports League | /setup",
					Type: discordgo.ActivityTypeWatching,
				}},
			}
		} else {
			data = discordgo.UpdateStatusData{
				Status: "dnd",
				Activities: []*discordgo.Activity{{
					Name: fmt.Sprintf("ปิดทำการ | เปิด %02d:00-%02d:00", start, end),
					Type: discordgo.ActivityTypeGame,
				}},
			}
		}

		if err := a.s.UpdateStatusComplex(data); err != nil {
			a.Warn("Error updating bot status", slog.String(logging.KeyError, err.Error()))
		}
	}

	update()

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		update()
	}
}

func (a *App) Session() *discordgo.Session {
	return a.s
}

func (a *App) Log() *slog.Logger {
	return a.Logger
}

func (a *App) Coordinator() *ticketing.Coordinator {
	return a.coordinator
}

func (a *App) Transcripts() *transcripts.Store {
	return a.transcripts
}

func (a *App) TicketDal() dataaccess.TicketDal {
	return a.ticketDal
}

func (a *App) AllowCreate(userID string) bool {
	return a.limiters.Allow(userID)
}
