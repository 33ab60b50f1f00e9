package repository

import (
	"context"
	"strings"

	"multishop-server/models"
	"multishop-server/services"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// OrderRepo 所有订单都在共享的订单库中
type OrderRepo struct {
	src ModelSource
}

func NewOrderRepo(src ModelSource) *OrderRepo {
	return &OrderRepo{src: src}
}

func (r *OrderRepo) model(ctx context.Context) (*models.Model[models.Order], error) {
	set, err := r.src.OrderModels(ctx)
	if err != nil {
		return nil, err
	}
	return set.Order, nil
}

func (r *OrderRepo) Insert(ctx context.Context, o *models.Order) error {
	m, err := r.model(ctx)
	if err != nil {
		return err
	}
	id, err := m.InsertOne(ctx, o)
	if err != nil {
		return err
	}
	o.ID, err = insertedID(id)
	return err
}

func (r *OrderRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	m, err := r.model(ctx)
	if err != nil {
		return nil, err
	}
	return m.FindOne(ctx, bson.M{"_id": id})
}

func (r *OrderRepo) FindByNo(ctx context.Context, shopID, orderNo string) (*models.Order, error) {
	m, err := r.model(ctx)
	if err != nil {
		return nil, err
	}
	return m.FindOne(ctx, bson.M{"shop_id": shopID, "order_no": orderNo})
}

func orderFilter(q services.OrderQuery) bson.M {
	filter := bson.M{}
	if q.UserID != "" {
		filter["user_id"] = q.UserID
	}
	if q.ShopID != "" {
		filter["shop_id"] = q.ShopID
	}
	switch len(q.Statuses) {
	case 0:
	case 1:
		filter["status"] = q.Statuses[0]
	default:
		filter["status"] = bson.M{"$in": q.Statuses}
	}
	if !q.CreatedBefore.IsZero() {
		filter["create_time"] = bson.M{"$lt": q.CreatedBefore}
	}
	return filter
}

func orderFindOptions(q services.OrderQuery) *options.FindOptions {
	opts := options.Find()
	field := q.SortField
	if field == "" || strings.HasPrefix(field, "$") {
		field = "create_time"
	}
	dir := 1
	if q.SortDesc {
		dir = -1
	}
	opts.SetSort(bson.D{{Key: field, Value: dir}})
	if q.Skip > 0 {
		opts.SetSkip(q.Skip)
	}
	if q.Limit > 0 {
		opts.SetLimit(q.Limit)
	}
	return opts
}

func (r *OrderRepo) List(ctx context.Context, q services.OrderQuery) ([]models.Order, error) {
	m, err := r.model(ctx)
	if err != nil {
		return nil, err
	}
	return m.Find(ctx, orderFilter(q), orderFindOptions(q))
}

func (r *OrderRepo) Count(ctx context.Context, q services.OrderQuery) (int64, error) {
	m, err := r.model(ctx)
	if err != nil {
		return 0, err
	}
	return m.Count(ctx, orderFilter(q))
}

func (r *OrderRepo) CountByStatus(ctx context.Context, userID string) (map[string]int64, error) {
	m, err := r.model(ctx)
	if err != nil {
		return nil, err
	}
	pipeline := bson.A{
		bson.M{"$match": bson.M{"user_id": userID}},
		bson.M{"$group": bson.M{"_id": "$status", "count": bson.M{"$sum": 1}}},
	}
	rows, err := m.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		status, _ := row["_id"].(string)
		out[status] += toInt64(row["count"])
	}
	return out, nil
}

func (r *OrderRepo) SumTotal(ctx context.Context, shopID, status string) (float64, error) {
	m, err := r.model(ctx)
	if err != nil {
		return 0, err
	}
	pipeline := bson.A{
		bson.M{"$match": bson.M{"shop_id": shopID, "status": status}},
		bson.M{"$group": bson.M{"_id": nil, "total": bson.M{"$sum": "$total_amount"}}},
	}
	rows, err := m.Aggregate(ctx, pipeline)
	if err != nil || len(rows) == 0 {
		return 0, err
	}
	return toFloat64(rows[0]["total"]), nil
}

func (r *OrderRepo) Apply(ctx context.Context, id primitive.ObjectID, expectStatus string, set bson.M) (*models.Order, error) {
	m, err := r.model(ctx)
	if err != nil {
		return nil, err
	}
	return m.FindOneAndUpdate(ctx, bson.M{"_id": id, "status": expectStatus}, bson.M{"$set": set})
}

func (r *OrderRepo) DeleteByID(ctx context.Context, id primitive.ObjectID) (bool, error) {
	m, err := r.model(ctx)
	if err != nil {
		return false, err
	}
	n, err := m.DeleteOne(ctx, bson.M{"_id": id})
	return n > 0, err
}

func (r *OrderRepo) DeleteByNo(ctx context.Context, shopID, orderNo string) (bool, error) {
	m, err := r.model(ctx)
	if err != nil {
		return false, err
	}
	n, err := m.DeleteOne(ctx, bson.M{"shop_id": shopID, "order_no": orderNo})
	return n > 0, err
}

func (r *OrderRepo) RecordSweep(ctx context.Context, stats *models.OrderSweepStatistics) error {
	set, err := r.src.OrderModels(ctx)
	if err != nil {
		return err
	}
	id, err := set.SweepStats.InsertOne(ctx, stats)
	if err != nil {
		return err
	}
	stats.ID, err = insertedID(id)
	return err
}
