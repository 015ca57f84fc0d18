package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vasiliy-maslov/shop-service/internal/order"
)

type itemDoc struct {
	ProductID string               `bson:"productId"`
	Name      string               `bson:"name"`
	Quantity  int                  `bson:"quantity"`
	Price     primitive.Decimal128 `bson:"price"`
}

type orderDoc struct {
	ID              primitive.ObjectID   `bson:"_id,omitempty"`
	OrderNumber     string               `bson:"orderNumber"`
	UserID          string               `bson:"userId,omitempty"`
	CustomerName    string               `bson:"customerName"`
	CustomerEmail   string               `bson:"customerEmail"`
	Total           primitive.Decimal128 `bson:"total"`
	Status          string               `bson:"status"`
	RefundStatus    string               `bson:"refundStatus"`
	RefundReason    string               `bson:"refundReason,omitempty"`
	Items           []itemDoc            `bson:"items"`
	Date            time.Time            `bson:"date"`
	ShippingAddress string               `bson:"shippingAddress,omitempty"`
	City            string               `bson:"city,omitempty"`
	PostalCode      string               `bson:"postalCode,omitempty"`
	Country         string               `bson:"country,omitempty"`
	CreatedAt       time.Time            `bson:"createdAt"`
	UpdatedAt       time.Time            `bson:"updatedAt"`
}

func newOrderDoc(o *order.Order) (*orderDoc, error) {
	total, err := toDecimal128(o.Total)
	if err != nil {
		return nil, err
	}
	items := make([]itemDoc, 0, len(o.Items))
	for _, it := range o.Items {
		price, err := toDecimal128(it.Price)
		if err != nil {
			return nil, err
		}
		items = append(items, itemDoc{ProductID: it.ProductID, Name: it.Name, Quantity: it.Quantity, Price: price})
	}
	return &orderDoc{
		OrderNumber:     o.OrderNumber,
		UserID:          o.UserID,
		CustomerName:    o.CustomerName,
		CustomerEmail:   o.CustomerEmail,
		Total:           total,
		Status:          string(o.Status),
		RefundStatus:    string(o.RefundStatus),
		RefundReason:    o.RefundReason,
		Items:           items,
		Date:            o.Date,
		ShippingAddress: o.ShippingAddress,
		City:            o.City,
		PostalCode:      o.PostalCode,
		Country:         o.Country,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}, nil
}

func (d *orderDoc) order() (*order.Order, error) {
	total, err := fromDecimal128(d.Total)
	if err != nil {
		return nil, err
	}
	items := make([]order.Item, 0, len(d.Items))
	for _, it := range d.Items {
		price, err := fromDecimal128(it.Price)
		if err != nil {
			return nil, err
		}
		items = append(items, order.Item{ProductID: it.ProductID, Name: it.Name, Quantity: it.Quantity, Price: price})
	}
	return &order.Order{
		ID:              d.ID.Hex(),
		OrderNumber:     d.OrderNumber,
		UserID:          d.UserID,
		CustomerName:    d.CustomerName,
		CustomerEmail:   d.CustomerEmail,
		Total:           total,
		Status:          order.Status(d.Status),
		RefundStatus:    order.RefundStatus(d.RefundStatus),
		RefundReason:    d.RefundReason,
		Items:           items,
		Date:            d.Date,
		ShippingAddress: d.ShippingAddress,
		City:            d.City,
		PostalCode:      d.PostalCode,
		Country:         d.Country,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}, nil
}

type OrderRepository struct {
	coll *mongo.Collection
}

var (
	_ order.Repository  = (*OrderRepository)(nil)
	_ order.OrderWriter = (*OrderRepository)(nil)
)

func (r *OrderRepository) Insert(ctx context.Context, o *order.Order) error {
	doc, err := newOrderDoc(o)
	if err != nil {
		return err
	}
	doc.ID = primitive.NewObjectID()

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return order.ErrDuplicateOrderNumber
		}
		if hasLabel(err, transientTxLabel) {
			return fmt.Errorf("repository: insert order %s: %w", o.OrderNumber, order.ErrConflict)
		}
		return fmt.Errorf("repository: failed to insert order: %w", err)
	}
	o.ID = doc.ID.Hex()
	return nil
}

func (r *OrderRepository) FindByID(ctx context.Context, id string) (*order.Order, error) {
	oid, ok := objectID(id)
	if !ok {
		return nil, order.ErrOrderNotFound
	}

	var doc orderDoc
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, order.ErrOrderNotFound
		}
		return nil, fmt.Errorf("repository: failed to find order %s: %w", id, err)
	}
	return doc.order()
}

func (r *OrderRepository) FindByOwnerOrEmail(ctx context.Context, userID, email string) ([]order.Order, error) {
	var clauses bson.A
	if userID != "" {
		clauses = append(clauses, bson.M{"userId": userID})
	}
	if email != "" {
		clauses = append(clauses, bson.M{"customerEmail": equalFold(email)})
	}
	if len(clauses) == 0 {
		return []order.Order{}, nil
	}
	return r.find(ctx, bson.M{"$or": clauses})
}

func (r *OrderRepository) FindAll(ctx context.Context) ([]order.Order, error) {
	return r.find(ctx, bson.M{})
}

func (r *OrderRepository) find(ctx context.Context, filter bson.M) ([]order.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to list orders: %w", err)
	}

	var docs []orderDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("repository: failed to decode orders: %w", err)
	}

	out := make([]order.Order, 0, len(docs))
	for i := range docs {
		o, err := docs[i].order()
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, nil
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, status order.Status) (*order.Order, error) {
	oid, ok := objectID(id)
	if !ok {
		return nil, order.ErrOrderNotFound
	}

	update := bson.M{"$set": bson.M{"status": string(status), "updatedAt": time.Now().UTC()}}
	return r.findOneAndUpdate(ctx, bson.M{"_id": oid}, update, id)
}

// UpdateRefund only matches while refundStatus is still None, so of two
// concurrent requests exactly one succeeds.
func (r *OrderRepository) UpdateRefund(ctx context.Context, id, reason string) (*order.Order, error) {
	oid, ok := objectID(id)
	if !ok {
		return nil, order.ErrOrderNotFound
	}

	filter := bson.M{"_id": oid, "refundStatus": string(order.RefundNone)}
	update := bson.M{"$set": bson.M{
		"refundStatus": string(order.RefundRequested),
		"refundReason": reason,
		"updatedAt":    time.Now().UTC(),
	}}
	o, err := r.findOneAndUpdate(ctx, filter, update, id)
	if !errors.Is(err, order.ErrOrderNotFound) {
		return o, err
	}

	n, err := r.coll.CountDocuments(ctx, bson.M{"_id": oid})
	if err != nil {
		return nil, fmt.Errorf("repository: failed to check order %s: %w", id, err)
	}
	if n == 0 {
		return nil, order.ErrOrderNotFound
	}
	return nil, order.ErrRefundAlreadyRequested
}

func (r *OrderRepository) findOneAndUpdate(ctx context.Context, filter, update bson.M, id string) (*order.Order, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc orderDoc
	if err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, order.ErrOrderNotFound
		}
		return nil, fmt.Errorf("repository: failed to update order %s: %w", id, err)
	}
	return doc.order()
}
