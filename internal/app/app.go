package app

import (
	"context"
	"os"
	"path"
	"time"
	_ "time/tzdata"

	EventBus "github.com/asaskevich/EventBus"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/talkincode/prodcatalog/config"
	"github.com/talkincode/prodcatalog/internal/auth"
	"github.com/talkincode/prodcatalog/internal/catalog"
	"github.com/talkincode/prodcatalog/internal/repository"
	"github.com/talkincode/prodcatalog/internal/repository/gormrepo"
	"github.com/talkincode/prodcatalog/internal/repository/mongorepo"
	"github.com/talkincode/prodcatalog/pkg/common"
)

// snowflake node of this process
const defaultNodeID int64 = 1

type Application struct {
	appConfig      *config.AppConfig
	store          repository.Store
	ids            common.IDGenerator
	bus            EventBus.Bus
	sched          *cron.Cron
	authService    *auth.Service
	catalogService *catalog.Service
	jobs           *jobState
}

// Ensure Application implements all interfaces
var (
	_ StoreProvider     = (*Application)(nil)
	_ ConfigProvider    = (*Application)(nil)
	_ ServiceProvider   = (*Application)(nil)
	_ SchedulerProvider = (*Application)(nil)
	_ AppContext        = (*Application)(nil)
)

func NewApplication(appConfig *config.AppConfig) *Application {
	return &Application{appConfig: appConfig, jobs: &jobState{}}
}

func (a *Application) Config() *config.AppConfig {
	return a.appConfig
}

func (a *Application) Store() repository.Store {
	return a.store
}

// OverrideStore replaces the application's store (used in tests).
func (a *Application) OverrideStore(store repository.Store) {
	a.store = store
}

func (a *Application) Auth() *auth.Service {
	return a.authService
}

func (a *Application) Catalog() *catalog.Service {
	return a.catalogService
}

// Bus carries the product change events
func (a *Application) Bus() EventBus.Bus {
	return a.bus
}

// Init sets up logging, opens the configured store, prepares its schema and
// builds the services. The store is left untouched when one was injected
// with OverrideStore.
func (a *Application) Init(ctx context.Context) error {
	cfg := a.appConfig
	loc, err := time.LoadLocation(cfg.System.Location)
	if err != nil {
		zap.S().Error("timezone config error")
	} else {
		time.Local = loc
	}

	logger, err := newLogger(cfg.Logger)
	if err != nil {
		return err
	}
	zap.ReplaceGlobals(logger)

	if a.store == nil {
		a.store, err = openStore(ctx, cfg)
		if err != nil {
			return err
		}
		zap.S().Infof("Database connection successful, type: %s", cfg.Database.Type)
	}

	if err := a.MigrateDB(ctx); err != nil {
		return err
	}

	a.ids, err = common.NewSnowflakeGenerator(defaultNodeID)
	if err != nil {
		return err
	}
	a.bus = EventBus.New()
	a.authService = auth.NewService(a.store.Users(), a.ids, auth.Options{
		TokenSecret: cfg.Auth.TokenSecret,
		BcryptCost:  cfg.Auth.BcryptCost,
	})
	a.catalogService = catalog.NewService(a.store.Products(), a.ids, a.bus)

	return a.subscribeAudit()
}

func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var zapConfig zap.Config
	if cfg.Mode == config.ModeProduction {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}
	zapConfig.OutputPaths = []string{"stdout"}

	if !cfg.FileEnable {
		return zapConfig.Build(zap.AddCaller())
	}

	if err := os.MkdirAll(path.Dir(cfg.Filename), 0o755); err != nil {
		return nil, errors.Wrap(err, "create log dir")
	}
	lumberJackLogger := &lumberjack.Logger{
		Filename:   cfg.Filename,
		MaxSize:    64,
		MaxBackups: 7,
		MaxAge:     7,
		Compress:   false,
	}
	core := zapcore.NewTee(
		zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.AddSync(lumberJackLogger),
			zapConfig.Level,
		),
		zapcore.NewCore(
			zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
			zapcore.AddSync(os.Stdout),
			zapConfig.Level,
		),
	)
	return zap.New(core, zap.AddCaller()), nil
}

// openStore connects the backend named by the database type
func openStore(ctx context.Context, cfg *config.AppConfig) (repository.Store, error) {
	switch cfg.Database.Type {
	case config.DBTypeMongo:
		return mongorepo.Connect(ctx, cfg.Database)
	case config.DBTypePostgres, config.DBTypeSqlite:
		db, err := gormrepo.Open(cfg.Database, cfg.GetDataDir())
		if err != nil {
			return nil, err
		}
		return gormrepo.NewStore(db), nil
	case config.DBTypeMemory:
		return repository.NewMemoryStore(), nil
	default:
		return nil, errors.Errorf("unsupported database type %q", cfg.Database.Type)
	}
}

// MigrateDB prepares tables or indexes of the current store
func (a *Application) MigrateDB(ctx context.Context) error {
	if err := a.store.Migrate(ctx); err != nil {
		return errors.Wrap(err, "migrate database")
	}
	return nil
}

// InitDb drops everything and recreates an empty schema
func (a *Application) InitDb(ctx context.Context) error {
	if err := a.store.DropAll(ctx); err != nil {
		return errors.Wrap(err, "drop database")
	}
	return a.MigrateDB(ctx)
}

// Release stops the jobs and closes the store
func (a *Application) Release(ctx context.Context) {
	if a.sched != nil {
		<-a.sched.Stop().Done()
	}
	if a.store != nil {
		if err := a.store.Close(ctx); err != nil {
			zap.L().Warn("close store", zap.Error(err))
		}
	}
	_ = zap.L().Sync()
}
