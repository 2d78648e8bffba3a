package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	perrors "github.com/abgdnv/productcatalog/internal/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// productDocument is the BSON shape of a product in the collection.
type productDocument struct {
	ID               primitive.ObjectID `bson:"_id,omitempty"`
	Name             string             `bson:"name"`
	Price            float64            `bson:"price"`
	Description      string             `bson:"description"`
	Category         string             `bson:"category"`
	Image            []byte             `bson:"image,omitempty"`
	ImageContentType string             `bson:"imageContentType,omitempty"`
}

// MongoStore implements ProductStore on a MongoDB collection.
type MongoStore struct {
	coll *mongo.Collection
}

var _ ProductStore = (*MongoStore)(nil)

// NewMongoStore creates a new instance of ProductStore backed by the given collection.
func NewMongoStore(coll *mongo.Collection) *MongoStore {
	return &MongoStore{coll: coll}
}

// EnsureIndexes creates the secondary indexes used by the filter queries. It is idempotent.
func (m *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := m.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "category", Value: 1}}},
		{Keys: bson.D{{Key: "price", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create product indexes: %w", err)
	}
	return nil
}

func (m *MongoStore) Save(ctx context.Context, p Product) (*Product, error) {
	doc := toDocument(p)
	if p.ID == "" {
		res, err := m.coll.InsertOne(ctx, doc)
		if err != nil {
			return nil, fmt.Errorf("failed to insert product: %w", err)
		}
		oid, ok := res.InsertedID.(primitive.ObjectID)
		if !ok {
			return nil, fmt.Errorf("unexpected inserted id type %T", res.InsertedID)
		}
		doc.ID = oid
		return fromDocument(doc), nil
	}

	oid, err := parseID(p.ID)
	if err != nil {
		return nil, err
	}
	doc.ID = oid
	_, err = m.coll.ReplaceOne(ctx, bson.M{"_id": oid}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return nil, fmt.Errorf("failed to save product %s: %w", p.ID, err)
	}
	return fromDocument(doc), nil
}

func (m *MongoStore) FindByID(ctx context.Context, id string) (*Product, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	var doc productDocument
	if err := m.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, perrors.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}
	return fromDocument(doc), nil
}

func (m *MongoStore) FindAll(ctx context.Context) ([]Product, error) {
	return m.find(ctx, bson.M{})
}

func (m *MongoStore) DeleteByID(ctx context.Context, id string) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}
	res, err := m.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("failed to delete product by ID: %w", err)
	}
	if res.DeletedCount == 0 {
		return perrors.ErrProductNotFound
	}
	return nil
}

func (m *MongoStore) ExistsByID(ctx context.Context, id string) (bool, error) {
	oid, err := parseID(id)
	if err != nil {
		return false, err
	}
	n, err := m.coll.CountDocuments(ctx, bson.M{"_id": oid}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to check product existence: %w", err)
	}
	return n > 0, nil
}

func (m *MongoStore) FindByNameContaining(ctx context.Context, name string) ([]Product, error) {
	return m.find(ctx, bson.M{"name": containsIgnoreCase(name)})
}

func (m *MongoStore) FindByCategory(ctx context.Context, category string) ([]Product, error) {
	return m.find(ctx, bson.M{"category": equalsIgnoreCase(category)})
}

func (m *MongoStore) FindByPriceBetween(ctx context.Context, min, max float64) ([]Product, error) {
	return m.find(ctx, bson.M{"price": bson.M{"$gte": min, "$lte": max}})
}

func (m *MongoStore) FindByNameContainingAndCategory(ctx context.Context, name, category string) ([]Product, error) {
	return m.find(ctx, bson.M{
		"name":     containsIgnoreCase(name),
		"category": equalsIgnoreCase(category),
	})
}

func (m *MongoStore) find(ctx context.Context, filter bson.M) ([]Product, error) {
	cur, err := m.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	var docs []productDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode products: %w", err)
	}
	products := make([]Product, len(docs))
	for i, doc := range docs {
		products[i] = *fromDocument(doc)
	}
	return products, nil
}

func containsIgnoreCase(s string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
}

func equalsIgnoreCase(s string) primitive.Regex {
	return primitive.Regex{Pattern: "^" + regexp.QuoteMeta(s) + "$", Options: "i"}
}

func parseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return oid, nil
}

func toDocument(p Product) productDocument {
	return productDocument{
		Name:             p.Name,
		Price:            p.Price,
		Description:      p.Description,
		Category:         p.Category,
		Image:            p.Image,
		ImageContentType: p.ImageContentType,
	}
}

func fromDocument(doc productDocument) *Product {
	return &Product{
		ID:               doc.ID.Hex(),
		Name:             doc.Name,
		Price:            doc.Price,
		Description:      doc.Description,
		Category:         doc.Category,
		Image:            doc.Image,
		ImageContentType: doc.ImageContentType,
	}
}
