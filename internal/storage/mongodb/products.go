package mongodb

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vasiliy-maslov/shop-service/internal/catalog"
	"github.com/vasiliy-maslov/shop-service/internal/order"
)

type productDoc struct {
	ID                 primitive.ObjectID   `bson:"_id,omitempty"`
	Name               string               `bson:"name"`
	Description        string               `bson:"description"`
	Image              string               `bson:"image"`
	Category           string               `bson:"category"`
	Price              primitive.Decimal128 `bson:"price"`
	DiscountPercentage primitive.Decimal128 `bson:"discountPercentage"`
	StockQuantity      int                  `bson:"stockQuantity"`
	Sizes              []string             `bson:"sizes"`
	Colors             []string             `bson:"colors"`
	IsActive           bool                 `bson:"isActive"`
	CreatedAt          time.Time            `bson:"createdAt"`
	UpdatedAt          time.Time            `bson:"updatedAt"`
}

func newProductDoc(p *catalog.Product) (*productDoc, error) {
	price, err := toDecimal128(p.Price)
	if err != nil {
		return nil, err
	}
	discount, err := toDecimal128(p.DiscountPercentage)
	if err != nil {
		return nil, err
	}
	return &productDoc{
		Name:               p.Name,
		Description:        p.Description,
		Image:              p.Image,
		Category:           string(p.Category),
		Price:              price,
		DiscountPercentage: discount,
		StockQuantity:      p.StockQuantity,
		Sizes:              nonNil(p.Sizes),
		Colors:             nonNil(p.Colors),
		IsActive:           p.IsActive,
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
	}, nil
}

func (d *productDoc) product() (*catalog.Product, error) {
	price, err := fromDecimal128(d.Price)
	if err != nil {
		return nil, err
	}
	discount, err := fromDecimal128(d.DiscountPercentage)
	if err != nil {
		return nil, err
	}
	return &catalog.Product{
		ID:                 d.ID.Hex(),
		Name:               d.Name,
		Description:        d.Description,
		Image:              d.Image,
		Category:           catalog.Category(d.Category),
		Price:              price,
		DiscountPercentage: discount,
		StockQuantity:      d.StockQuantity,
		Sizes:              d.Sizes,
		Colors:             d.Colors,
		IsActive:           d.IsActive,
		CreatedAt:          d.CreatedAt,
		UpdatedAt:          d.UpdatedAt,
	}, nil
}

type ProductRepository struct {
	coll *mongo.Collection
}

var (
	_ catalog.Repository = (*ProductRepository)(nil)
	_ order.StockStore   = (*ProductRepository)(nil)
)

func (r *ProductRepository) Create(ctx context.Context, p *catalog.Product) error {
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	doc, err := newProductDoc(p)
	if err != nil {
		return err
	}
	doc.ID = primitive.NewObjectID()

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("repository: failed to insert product: %w", err)
	}
	p.ID = doc.ID.Hex()
	return nil
}

func (r *ProductRepository) GetByID(ctx context.Context, id string) (*catalog.Product, error) {
	oid, ok := objectID(id)
	if !ok {
		return nil, catalog.ErrNotFound
	}

	var doc productDoc
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, catalog.ErrNotFound
		}
		if hasLabel(err, transientTxLabel) {
			return nil, fmt.Errorf("repository: read product %s: %w", id, order.ErrConflict)
		}
		return nil, fmt.Errorf("repository: failed to find product %s: %w", id, err)
	}
	return doc.product()
}

func (r *ProductRepository) List(ctx context.Context, f catalog.Filter) ([]catalog.Product, error) {
	filter := bson.M{}
	if f.ActiveOnly {
		filter["isActive"] = true
	}
	if f.Category != "" {
		filter["category"] = string(f.Category)
	}
	if f.Query != "" {
		filter["name"] = primitive.Regex{Pattern: regexp.QuoteMeta(f.Query), Options: "i"}
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to list products: %w", err)
	}

	var docs []productDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("repository: failed to decode products: %w", err)
	}

	out := make([]catalog.Product, 0, len(docs))
	for i := range docs {
		p, err := docs[i].product()
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, nil
}

func (r *ProductRepository) Update(ctx context.Context, p *catalog.Product) error {
	oid, ok := objectID(p.ID)
	if !ok {
		return catalog.ErrNotFound
	}

	p.UpdatedAt = time.Now().UTC()
	doc, err := newProductDoc(p)
	if err != nil {
		return err
	}

	set := bson.M{
		"name":               doc.Name,
		"description":        doc.Description,
		"image":              doc.Image,
		"category":           doc.Category,
		"price":              doc.Price,
		"discountPercentage": doc.DiscountPercentage,
		"stockQuantity":      doc.StockQuantity,
		"sizes":              doc.Sizes,
		"colors":             doc.Colors,
		"isActive":           doc.IsActive,
		"updatedAt":          doc.UpdatedAt,
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("repository: failed to update product %s: %w", p.ID, err)
	}
	if res.MatchedCount == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	oid, ok := objectID(id)
	if !ok {
		return catalog.ErrNotFound
	}
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("repository: failed to delete product %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

func (r *ProductRepository) Count(ctx context.Context) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("repository: failed to count products: %w", err)
	}
	return n, nil
}

// DecrementStock applies $inc only when the filter still sees enough stock,
// so two writers cannot both take the last unit.
func (r *ProductRepository) DecrementStock(ctx context.Context, id string, qty int) (int64, error) {
	oid, ok := objectID(id)
	if !ok {
		return 0, nil
	}

	filter := bson.M{
		"_id":           oid,
		"isActive":      true,
		"stockQuantity": bson.M{"$gte": qty},
	}
	update := bson.M{
		"$inc": bson.M{"stockQuantity": -qty},
		"$set": bson.M{"updatedAt": time.Now().UTC()},
	}
	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		if hasLabel(err, transientTxLabel) {
			return 0, fmt.Errorf("repository: decrement of %s: %w", id, order.ErrConflict)
		}
		return 0, fmt.Errorf("repository: failed to decrement stock of %s: %w", id, err)
	}
	return res.ModifiedCount, nil
}

func (r *ProductRepository) IncrementStock(ctx context.Context, id string, qty int) error {
	oid, ok := objectID(id)
	if !ok {
		return catalog.ErrNotFound
	}
	update := bson.M{
		"$inc": bson.M{"stockQuantity": qty},
		"$set": bson.M{"updatedAt": time.Now().UTC()},
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return fmt.Errorf("repository: failed to restore stock of %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
