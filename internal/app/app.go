package app

import (
	"context"
	"fmt"
	"github.com/jmoiron/sqlx"
	"log/slog"
	"net/http"
	"teams-service/internal/app/rest"
	"teams-service/internal/config"
	v1 "teams-service/internal/http/v1"
	"teams-service/internal/lib/accesstoken"
	"teams-service/internal/lib/capacity"
	"teams-service/internal/lib/invitetoken"
	"teams-service/internal/lib/logger/sl"
	"teams-service/internal/lib/migrator"
	"teams-service/internal/mail"
	"teams-service/internal/metrics"
	"teams-service/internal/repo"
	"teams-service/internal/service"
	"teams-service/internal/storage/postgresql"
	"teams-service/internal/storage/sqlite"
	"time"
)

type storage interface {
	GetDB() *sqlx.DB
	Close() error
}

type App struct {
	log     *slog.Logger
	storage storage
	restApp *rest.App
}

// New migrates the configured database and wires every layer on top of it.
func New(cfg *config.Config, log *slog.Logger) (*App, error) {
	const op = "app.New"

	if err := migrator.RunMigrations(cfg, log); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	store, err := openStorage(cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	lastAdmin, err := service.ParseLastAdminPolicy(cfg.Team.LastAdminPolicy)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	codec, err := invitetoken.New(cfg.Invite.Secret, nil)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	db := store.GetDB()

	teamRepo := repo.NewTeamRepo(db)
	membershipRepo := repo.NewMembershipRepo(db)
	emailInvitationRepo := repo.NewEmailInvitationRepo(db)
	userRepo := repo.NewUserRepo(db)

	m := metrics.New()

	policy := capacity.NewPolicy(
		capacity.Limits{Free: cfg.Capacity.FreeTeams, Paid: cfg.Capacity.ProTeams},
		capacity.Limits{Free: cfg.Capacity.FreeTasks, Paid: cfg.Capacity.ProTasks},
	)

	teamService := service.NewTeamService(log, teamRepo, membershipRepo, userRepo, service.TeamConfig{
		Capacity:  &policy,
		LastAdmin: lastAdmin,
		Metrics:   m,
	})
	invitationService := service.NewInvitationService(
		log,
		teamRepo,
		membershipRepo,
		emailInvitationRepo,
		userRepo,
		codec,
		newNotifier(cfg, log),
		service.InvitationConfig{
			Capacity:    &policy,
			LinkBaseURL: cfg.Invite.LinkBaseURL,
			TTLDays:     cfg.Invite.TTLDays,
			Metrics:     m,
		},
	)
	accountService := service.NewAccountService(log, userRepo, invitationService, nil)

	routerDependencies := v1.RouterDependencies{
		TeamService:       teamService,
		InvitationService: invitationService,
		AccountService:    accountService,
		Verifier:          accesstoken.NewVerifier(cfg.Auth.Secret),
	}

	restApp := rest.New(
		log,
		&routerDependencies,
		m,
		cfg.Server,
	)

	return &App{
		log:     log,
		storage: store,
		restApp: restApp,
	}, nil
}

func MustNew(cfg *config.Config, log *slog.Logger) *App {
	a, err := New(cfg, log)
	if err != nil {
		log.Error("failed to build application", sl.Err(err))
		panic(err)
	}
	return a
}

func openStorage(cfg *config.Config) (storage, error) {
	switch cfg.Storage.Driver {
	case config.DriverSQLite:
		return sqlite.Init(cfg.SQLite)
	default:
		return postgresql.Init(cfg.Postgres)
	}
}

func newNotifier(cfg *config.Config, log *slog.Logger) service.Notifier {
	if cfg.SMTP.Host == "" {
		log.Warn("smtp host not configured, invitation emails will only be logged")
		return mail.NewLogNotifier(log)
	}
	return mail.NewSMTPNotifier(log, cfg.SMTP)
}

// Handler exposes the HTTP handler so tests can serve it without a listener.
func (a *App) Handler() http.Handler {
	return a.restApp.Handler()
}

func (a *App) MustRun() {
	const op = "app.MustRun"
	a.log.With(slog.String("op", op)).Info("starting application")

	if err := a.restApp.Run(); err != nil && err != http.ErrServerClosed {
		panic(err)
	}
}

func (a *App) GracefulShutdown() {
	const op = "app.GracefulShutdown"
	log := a.log.With(slog.String("op", op))
	log.Info("shutting down application")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.restApp.Stop(ctx); err != nil {
		log.Error("failed to stop HTTP server", sl.Err(err))
	}

	a.Close()
}

// Close releases the database connection.
func (a *App) Close() {
	if a.storage == nil {
		return
	}
	if err := a.storage.Close(); err != nil {
		a.log.Error("failed to close database", sl.Err(err))
		return
	}
	a.log.Info("database connection closed")
}
