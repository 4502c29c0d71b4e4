package mongorepo

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"github.com/talkincode/prodcatalog/config"
	"github.com/talkincode/prodcatalog/internal/domain"
	"github.com/talkincode/prodcatalog/internal/repository"
)

const (
	usersCollection    = "users"
	productsCollection = "products"

	connectTimeout = 10 * time.Second
)

// Store is the MongoDB backed repository bundle
type Store struct {
	client   *mongo.Client
	db       *mongo.Database
	users    *MongoUserRepository
	products *MongoProductRepository
}

var _ repository.Store = (*Store)(nil)

// Connect dials the server and verifies the connection with a ping
func Connect(ctx context.Context, cfg config.DBConfig) (*Store, error) {
	opts := options.Client().
		ApplyURI(cfg.URL).
		SetConnectTimeout(connectTimeout)
	if cfg.MaxConn > 0 {
		opts.SetMaxPoolSize(uint64(cfg.MaxConn))
	}
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, errors.Wrap(err, "connect mongodb")
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.Wrap(err, "ping mongodb")
	}
	return NewStore(client, cfg.Name), nil
}

func NewStore(client *mongo.Client, dbName string) *Store {
	db := client.Database(dbName)
	return &Store{
		client:   client,
		db:       db,
		users:    &MongoUserRepository{coll: db.Collection(usersCollection)},
		products: &MongoProductRepository{coll: db.Collection(productsCollection)},
	}
}

func (s *Store) Database() *mongo.Database { return s.db }

func (s *Store) Users() repository.UserRepository { return s.users }

func (s *Store) Products() repository.ProductRepository { return s.products }

// Migrate ensures the unique indexes backing the email and productId invariants
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.users.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("uniq_email"),
	})
	if err != nil {
		return errors.Wrap(err, "create users index")
	}
	_, err = s.products.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "productId", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_product_id"),
		},
		{
			Keys:    bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("natural_order"),
		},
		{Keys: bson.D{{Key: "featured", Value: 1}}},
		{Keys: bson.D{{Key: "price", Value: 1}}},
		{Keys: bson.D{{Key: "rating", Value: 1}}},
	})
	return errors.Wrap(err, "create products indexes")
}

// DropAll drops both collections together with their indexes
func (s *Store) DropAll(ctx context.Context) error {
	if err := s.users.coll.Drop(ctx); err != nil {
		return errors.Wrap(err, "drop users")
	}
	return errors.Wrap(s.products.coll.Drop(ctx), "drop products")
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func translate(err error, format string, args ...interface{}) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return errors.Wrapf(domain.ErrNotFound, format, args...)
	case mongo.IsDuplicateKeyError(err):
		return errors.Wrapf(domain.ErrDuplicate, format, args...)
	default:
		zap.L().Error("mongodb error", zap.Error(err))
		return errors.Wrapf(err, format, args...)
	}
}

// MongoUserRepository is the MongoDB implementation of repository.UserRepository
type MongoUserRepository struct {
	coll *mongo.Collection
}

func (r *MongoUserRepository) Create(ctx context.Context, user *domain.User) error {
	n, err := r.coll.CountDocuments(ctx, bson.M{"email": user.Email})
	if err != nil {
		return translate(err, "count users")
	}
	if n > 0 {
		return errors.Wrapf(domain.ErrDuplicate, "email %s", user.Email)
	}
	_, err = r.coll.InsertOne(ctx, user)
	return translate(err, "create user %s", user.Email)
}

func (r *MongoUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	if err := r.coll.FindOne(ctx, bson.M{"email": email}).Decode(&user); err != nil {
		return nil, translate(err, "user %s", email)
	}
	return &user, nil
}

// MongoProductRepository is the MongoDB implementation of repository.ProductRepository
type MongoProductRepository struct {
	coll *mongo.Collection
}

func filter(q repository.ProductQuery) bson.M {
	f := bson.M{}
	if q.Featured != nil {
		f["featured"] = *q.Featured
	}
	if q.PriceBelow != nil {
		f["price"] = bson.M{"$lt": *q.PriceBelow}
	}
	if q.RatingAbove != nil {
		f["rating"] = bson.M{"$gt": *q.RatingAbove}
	}
	return f
}

var naturalOrder = bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}

func (r *MongoProductRepository) Create(ctx context.Context, product *domain.Product) error {
	n, err := r.coll.CountDocuments(ctx, bson.M{"productId": product.ProductID})
	if err != nil {
		return translate(err, "count products")
	}
	if n > 0 {
		return errors.Wrapf(domain.ErrDuplicate, "productId %s", product.ProductID)
	}
	_, err = r.coll.InsertOne(ctx, product)
	return translate(err, "create product %s", product.ProductID)
}

func (r *MongoProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	var p domain.Product
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		return nil, translate(err, "product %s", id)
	}
	return &p, nil
}

func (r *MongoProductRepository) List(ctx context.Context, query repository.ProductQuery) ([]*domain.Product, error) {
	cur, err := r.coll.Find(ctx, filter(query), options.Find().SetSort(naturalOrder))
	if err != nil {
		return nil, translate(err, "list products")
	}
	products := make([]*domain.Product, 0)
	if err := cur.All(ctx, &products); err != nil {
		return nil, translate(err, "decode products")
	}
	return products, nil
}

func (r *MongoProductRepository) Count(ctx context.Context, query repository.ProductQuery) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, filter(query))
	return n, translate(err, "count products")
}

func (r *MongoProductRepository) Update(ctx context.Context, id string, changes domain.ProductChanges) (*domain.Product, error) {
	fields := changes.Fields()
	if len(fields) == 0 {
		return r.GetByID(ctx, id)
	}
	if changes.ProductID != nil {
		n, err := r.coll.CountDocuments(ctx, bson.M{"productId": *changes.ProductID, "_id": bson.M{"$ne": id}})
		if err != nil {
			return nil, translate(err, "count products")
		}
		if n > 0 {
			return nil, errors.Wrapf(domain.ErrDuplicate, "productId %s", *changes.ProductID)
		}
	}
	var p domain.Product
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M(fields)},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&p)
	if err != nil {
		return nil, translate(err, "update product %s", id)
	}
	return &p, nil
}

func (r *MongoProductRepository) Delete(ctx context.Context, id string) error {
	_, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	return translate(err, "delete product %s", id)
}
