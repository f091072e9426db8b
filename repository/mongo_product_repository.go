package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pricehound/database"
	"pricehound/models"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoProductStore is a ProductStore on MongoDB.
// Integer ids come from a sequence document in the counters collection.
type MongoProductStore struct {
	products *mongo.Collection
	counters *mongo.Collection
}

// NewMongoProductStore creates a store on db.
func NewMongoProductStore(db *mongo.Database) *MongoProductStore {
	return &MongoProductStore{
		products: db.Collection(database.ProductsCollection),
		counters: db.Collection(database.CountersCollection),
	}
}

type productDocument struct {
	ID               int64                 `bson:"_id"`
	ProductURL       string                `bson:"product_url"`
	ProductName      string                `bson:"product_name"`
	SiteName         string                `bson:"site_name"`
	Category         string                `bson:"category"`
	TargetPrice      primitive.Decimal128  `bson:"target_price"`
	CurrentPrice     *primitive.Decimal128 `bson:"current_price"`
	IsActive         bool                  `bson:"is_active"`
	NotificationSent bool                  `bson:"notification_sent"`
	CreatedAt        time.Time             `bson:"created_at"`
	UpdatedAt        time.Time             `bson:"updated_at"`
	LastChecked      *time.Time            `bson:"last_checked"`
}

func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	return primitive.ParseDecimal128(d.StringFixed(2))
}

func toDocument(p *models.TrackedProduct) (*productDocument, error) {
	target, err := toDecimal128(p.TargetPrice)
	if err != nil {
		return nil, fmt.Errorf("invalid target price: %w", err)
	}
	doc := &productDocument{
		ID:               p.ID,
		ProductURL:       p.ProductURL,
		ProductName:      p.ProductName,
		SiteName:         p.SiteName,
		Category:         string(p.Category),
		TargetPrice:      target,
		IsActive:         p.IsActive,
		NotificationSent: p.NotificationSent,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
		LastChecked:      p.LastChecked,
	}
	if p.CurrentPrice.Valid {
		current, err := toDecimal128(p.CurrentPrice.Decimal)
		if err != nil {
			return nil, fmt.Errorf("invalid current price: %w", err)
		}
		doc.CurrentPrice = &current
	}
	return doc, nil
}

func (d *productDocument) toModel() (*models.TrackedProduct, error) {
	target, err := decimal.NewFromString(d.TargetPrice.String())
	if err != nil {
		return nil, fmt.Errorf("invalid stored target price: %w", err)
	}
	p := &models.TrackedProduct{
		ID:               d.ID,
		ProductURL:       d.ProductURL,
		ProductName:      d.ProductName,
		SiteName:         d.SiteName,
		Category:         models.Category(d.Category),
		TargetPrice:      target,
		IsActive:         d.IsActive,
		NotificationSent: d.NotificationSent,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
		LastChecked:      d.LastChecked,
	}
	if d.CurrentPrice != nil {
		current, err := decimal.NewFromString(d.CurrentPrice.String())
		if err != nil {
			return nil, fmt.Errorf("invalid stored current price: %w", err)
		}
		p.CurrentPrice = decimal.NewNullDecimal(current)
	}
	return p, nil
}

func (s *MongoProductStore) nextID(ctx context.Context) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := s.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": database.ProductsCollection},
		bson.M{"$inc": bson.M{"seq": 1}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate product id: %w", err)
	}
	return counter.Seq, nil
}

func (s *MongoProductStore) find(ctx context.Context, what string, filter any, opts ...*options.FindOptions) ([]models.TrackedProduct, error) {
	cursor, err := s.products.Find(ctx, filter, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", what, err)
	}
	var docs []productDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", what, err)
	}

	products := make([]models.TrackedProduct, 0, len(docs))
	for i := range docs {
		p, err := docs[i].toModel()
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	return products, nil
}

func newestFirst() *options.FindOptions {
	return options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
}

// Create implements ProductStore.
func (s *MongoProductStore) Create(ctx context.Context, p *models.TrackedProduct) (int64, error) {
	id, err := s.nextID(ctx)
	if err != nil {
		return 0, err
	}
	now := time.Now().UTC()
	p.ID = id
	p.IsActive = true
	p.NotificationSent = false
	p.CreatedAt, p.UpdatedAt = now, now

	doc, err := toDocument(p)
	if err != nil {
		return 0, err
	}
	if _, err := s.products.InsertOne(ctx, doc); err != nil {
		return 0, fmt.Errorf("failed to create product: %w", err)
	}
	return id, nil
}

// Get implements ProductStore.
func (s *MongoProductStore) Get(ctx context.Context, id int64) (*models.TrackedProduct, error) {
	var doc productDocument
	err := s.products.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return doc.toModel()
}

// Update implements ProductStore.
func (s *MongoProductStore) Update(ctx context.Context, p *models.TrackedProduct) (*models.TrackedProduct, error) {
	updated := *p
	updated.UpdatedAt = time.Now().UTC()
	doc, err := toDocument(&updated)
	if err != nil {
		return nil, err
	}
	res, err := s.products.ReplaceOne(ctx, bson.M{"_id": p.ID}, doc)
	if err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	if res.MatchedCount == 0 {
		return nil, models.ErrProductNotFound
	}
	return &updated, nil
}

// ListActive implements ProductStore.
func (s *MongoProductStore) ListActive(ctx context.Context) ([]models.TrackedProduct, error) {
	return s.find(ctx, "active products", bson.M{"is_active": true}, newestFirst())
}

// ListByCategory implements ProductStore.
func (s *MongoProductStore) ListByCategory(ctx context.Context, category models.Category) ([]models.TrackedProduct, error) {
	return s.find(ctx, "products by category", bson.M{"is_active": true, "category": string(category)}, newestFirst())
}

// CountByCategory implements ProductStore.
func (s *MongoProductStore) CountByCategory(ctx context.Context, category models.Category) (int64, error) {
	n, err := s.products.CountDocuments(ctx, bson.M{"is_active": true, "category": string(category)})
	if err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return n, nil
}

// Deactivate implements ProductStore.
func (s *MongoProductStore) Deactivate(ctx context.Context, id int64) error {
	res, err := s.products.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"is_active": false, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("failed to deactivate product: %w", err)
	}
	if res.MatchedCount == 0 {
		return models.ErrProductNotFound
	}
	return nil
}

// ListTargetReached implements ProductStore.
func (s *MongoProductStore) ListTargetReached(ctx context.Context) ([]models.TrackedProduct, error) {
	filter := bson.M{
		"is_active":     true,
		"current_price": bson.M{"$ne": nil},
		"$expr":         bson.M{"$lte": bson.A{"$current_price", "$target_price"}},
	}
	return s.find(ctx, "products at target", filter,
		options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}}))
}

// ListStale implements ProductStore.
func (s *MongoProductStore) ListStale(ctx context.Context, cutoff time.Time) ([]models.TrackedProduct, error) {
	filter := bson.M{
		"is_active":         true,
		"notification_sent": false,
		"$or": bson.A{
			bson.M{"last_checked": nil},
			bson.M{"last_checked": bson.M{"$lt": cutoff}},
		},
	}
	return s.find(ctx, "stale products", filter,
		options.Find().SetSort(bson.D{{Key: "last_checked", Value: 1}}))
}

// DeleteInactiveBefore implements ProductStore.
func (s *MongoProductStore) DeleteInactiveBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.products.DeleteMany(ctx, bson.M{"is_active": false, "updated_at": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, fmt.Errorf("failed to clean up products: %w", err)
	}
	return res.DeletedCount, nil
}
