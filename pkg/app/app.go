// Package app assembles the services that sit on top of the wired dependencies.
package app

import (
	"log/slog"

	"github.com/amirasaad/bankcore/pkg/config"
	"github.com/amirasaad/bankcore/pkg/eventbus"
	"github.com/amirasaad/bankcore/pkg/metrics"
	"github.com/amirasaad/bankcore/pkg/repository"
	"github.com/amirasaad/bankcore/pkg/service/account"
	"github.com/amirasaad/bankcore/pkg/transfer"
	"github.com/prometheus/client_golang/prometheus"
)

// Deps contains the infrastructure the services are built from.
type Deps struct {
	Uow      repository.UnitOfWork
	EventBus eventbus.Bus
	Logger   *slog.Logger
	Metrics  metrics.Recorder
	// Registry is nil when metrics are disabled.
	Registry *prometheus.Registry
}

type App struct {
	Deps           *Deps
	Config         *config.App
	Engine         *transfer.Engine
	AccountService *account.Service
}

// New builds the transfer engine and account service and registers the event handlers.
func New(deps *Deps, cfg *config.App) *App {
	recorder := deps.Metrics
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	scale := int32(2)
	if cfg.Money != nil {
		scale = cfg.Money.Scale
	}
	a := &App{
		Deps:   deps,
		Config: cfg,
		Engine: transfer.New(
			deps.Uow,
			deps.Logger,
			transfer.WithScale(scale),
			transfer.WithEventBus(deps.EventBus),
			transfer.WithMetrics(recorder),
		),
	}
	a.AccountService = account.New(deps.Uow, a.Engine, deps.Logger)
	a.setupEventBus()
	return a
}
