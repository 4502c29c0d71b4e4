package app

import (
	"context"

	"github.com/robfig/cron/v3"

	"github.com/talkincode/prodcatalog/config"
	"github.com/talkincode/prodcatalog/internal/auth"
	"github.com/talkincode/prodcatalog/internal/catalog"
	"github.com/talkincode/prodcatalog/internal/repository"
)

// StoreProvider provides database access
type StoreProvider interface {
	Store() repository.Store
}

// ConfigProvider provides application configuration
type ConfigProvider interface {
	Config() *config.AppConfig
}

// ServiceProvider provides the domain services
type ServiceProvider interface {
	Auth() *auth.Service
	Catalog() *catalog.Service
}

// SchedulerProvider provides task scheduling capability
type SchedulerProvider interface {
	Scheduler() *cron.Cron
}

// AppContext combines all provider interfaces for full application context
type AppContext interface {
	StoreProvider
	ConfigProvider
	ServiceProvider
	SchedulerProvider

	MigrateDB(ctx context.Context) error
	InitDb(ctx context.Context) error
	// SeedDemoProducts inserts the demo catalog entries that are missing
	SeedDemoProducts(ctx context.Context) (int, error)
	Release(ctx context.Context)
}
