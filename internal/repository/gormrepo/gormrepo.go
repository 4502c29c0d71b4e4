package gormrepo

import (
	"context"
	"os"
	"path"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/talkincode/prodcatalog/config"
	"github.com/talkincode/prodcatalog/internal/domain"
	"github.com/talkincode/prodcatalog/internal/repository"
)

// Open connects to postgres or sqlite according to the database config.
// Relative sqlite paths are resolved against the data directory.
func Open(cfg config.DBConfig, datadir string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Type {
	case config.DBTypePostgres:
		dialector = postgres.Open(cfg.URL)
	case config.DBTypeSqlite:
		dsn := cfg.URL
		// a server URL left over from another backend is not a file path
		if dsn == "" || strings.Contains(dsn, "://") {
			dsn = cfg.Name + ".db"
		}
		if !path.IsAbs(dsn) && dsn != ":memory:" {
			if err := os.MkdirAll(datadir, 0o755); err != nil {
				return nil, errors.Wrap(err, "create data dir")
			}
			dsn = path.Join(datadir, dsn)
		}
		dialector = sqlite.Open(dsn)
	default:
		return nil, errors.Errorf("gorm does not support database type %q", cfg.Type)
	}

	logLevel := logger.Silent
	if cfg.Debug {
		logLevel = logger.Info
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "open %s database", cfg.Type)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "get sql.DB")
	}
	if cfg.MaxConn > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxConn)
	}
	if cfg.IdleConn > 0 {
		sqlDB.SetMaxIdleConns(cfg.IdleConn)
	}
	sqlDB.SetConnMaxLifetime(time.Hour)
	return db, nil
}

// Store is the GORM backed repository bundle
type Store struct {
	db       *gorm.DB
	users    *GormUserRepository
	products *GormProductRepository
}

var _ repository.Store = (*Store)(nil)

func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:       db,
		users:    NewGormUserRepository(db),
		products: NewGormProductRepository(db),
	}
}

func (s *Store) DB() *gorm.DB { return s.db }

func (s *Store) Users() repository.UserRepository { return s.users }

func (s *Store) Products() repository.ProductRepository { return s.products }

// Migrate creates or updates the tables and unique indexes
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).Migrator().AutoMigrate(domain.Tables...); err != nil {
		return errors.Wrap(err, "auto migrate")
	}
	return nil
}

// DropAll removes every managed table
func (s *Store) DropAll(ctx context.Context) error {
	return s.db.WithContext(ctx).Migrator().DropTable(domain.Tables...)
}

func (s *Store) Close(context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// translate maps driver errors onto the domain taxonomy
func translate(err error, format string, args ...interface{}) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return errors.Wrapf(domain.ErrNotFound, format, args...)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return errors.Wrapf(domain.ErrDuplicate, format, args...)
	default:
		zap.L().Error("database error", zap.Error(err))
		return errors.Wrapf(err, format, args...)
	}
}

// GormUserRepository is the GORM implementation of repository.UserRepository
type GormUserRepository struct {
	db *gorm.DB
}

func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

func (r *GormUserRepository) Create(ctx context.Context, user *domain.User) error {
	var exists int64
	if err := r.db.WithContext(ctx).Model(&domain.User{}).Where("email = ?", user.Email).Count(&exists).Error; err != nil {
		return translate(err, "count users")
	}
	if exists > 0 {
		return errors.Wrapf(domain.ErrDuplicate, "email %s", user.Email)
	}
	return translate(r.db.WithContext(ctx).Create(user).Error, "create user %s", user.Email)
}

func (r *GormUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, translate(err, "user %s", email)
	}
	return &user, nil
}

// GormProductRepository is the GORM implementation of repository.ProductRepository
type GormProductRepository struct {
	db *gorm.DB
}

func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// columns maps ProductChanges field keys to table columns
var columns = map[string]string{
	"productId": "product_id",
	"name":      "name",
	"price":     "price",
	"rating":    "rating",
	"featured":  "featured",
	"company":   "company",
}

func applyQuery(db *gorm.DB, q repository.ProductQuery) *gorm.DB {
	if q.Featured != nil {
		db = db.Where("featured = ?", *q.Featured)
	}
	if q.PriceBelow != nil {
		db = db.Where("price < ?", *q.PriceBelow)
	}
	if q.RatingAbove != nil {
		db = db.Where("rating IS NOT NULL AND rating > ?", *q.RatingAbove)
	}
	return db
}

func productIDTaken(db *gorm.DB, productID, exceptID string) (bool, error) {
	var n int64
	query := db.Model(&domain.Product{}).Where("product_id = ?", productID)
	if exceptID != "" {
		query = query.Where("id <> ?", exceptID)
	}
	err := query.Count(&n).Error
	return n > 0, err
}

func (r *GormProductRepository) Create(ctx context.Context, product *domain.Product) error {
	db := r.db.WithContext(ctx)
	taken, err := productIDTaken(db, product.ProductID, "")
	if err != nil {
		return translate(err, "count products")
	}
	if taken {
		return errors.Wrapf(domain.ErrDuplicate, "productId %s", product.ProductID)
	}
	return translate(db.Create(product).Error, "create product %s", product.ProductID)
}

func (r *GormProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	var p domain.Product
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, translate(err, "product %s", id)
	}
	return &p, nil
}

func (r *GormProductRepository) List(ctx context.Context, query repository.ProductQuery) ([]*domain.Product, error) {
	products := make([]*domain.Product, 0)
	err := applyQuery(r.db.WithContext(ctx), query).
		Order("created_at ASC").
		Order("id ASC").
		Find(&products).Error
	if err != nil {
		return nil, translate(err, "list products")
	}
	return products, nil
}

func (r *GormProductRepository) Count(ctx context.Context, query repository.ProductQuery) (int64, error) {
	var total int64
	err := applyQuery(r.db.WithContext(ctx).Model(&domain.Product{}), query).Count(&total).Error
	return total, translate(err, "count products")
}

func (r *GormProductRepository) Update(ctx context.Context, id string, changes domain.ProductChanges) (*domain.Product, error) {
	var p domain.Product
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&p).Error; err != nil {
			return err
		}
		if changes.ProductID != nil {
			taken, err := productIDTaken(tx, *changes.ProductID, id)
			if err != nil {
				return err
			}
			if taken {
				return gorm.ErrDuplicatedKey
			}
		}
		updates := make(map[string]interface{})
		for key, value := range changes.Fields() {
			updates[columns[key]] = value
		}
		if len(updates) > 0 {
			if err := tx.Model(&domain.Product{}).Where("id = ?", id).Updates(updates).Error; err != nil {
				return err
			}
		}
		return tx.Where("id = ?", id).First(&p).Error
	})
	if err != nil {
		return nil, translate(err, "update product %s", id)
	}
	return &p, nil
}

func (r *GormProductRepository) Delete(ctx context.Context, id string) error {
	return translate(r.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Product{}).Error, "delete product %s", id)
}
