package models

import (
	"context"
	"errors"
	"fmt"

	"multishop-server/common"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Model 某个集合上的类型化访问器
type Model[T any] struct {
	name string
	coll *mongo.Collection
}

// NewModel db 为空时只保留名称，用于不连库的测试
func NewModel[T any](db *mongo.Database, collection string) *Model[T] {
	m := &Model[T]{name: collection}
	if db != nil {
		m.coll = db.Collection(collection)
	}
	return m
}

func (m *Model[T]) Name() string { return m.name }

func (m *Model[T]) Collection() *mongo.Collection { return m.coll }

// FindOne 未找到时返回 nil, nil
func (m *Model[T]) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) (*T, error) {
	var doc T
	err := m.coll.FindOne(ctx, filter, opts...).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, m.wrap("findOne", err)
	}
	return &doc, nil
}

func (m *Model[T]) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) ([]T, error) {
	cursor, err := m.coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, m.wrap("find", err)
	}
	defer cursor.Close(ctx)

	docs := make([]T, 0)
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, m.wrap("decode", err)
	}
	return docs, nil
}

func (m *Model[T]) Count(ctx context.Context, filter interface{}) (int64, error) {
	n, err := m.coll.CountDocuments(ctx, filter)
	if err != nil {
		return 0, m.wrap("count", err)
	}
	return n, nil
}

// InsertOne 先校验再写入
func (m *Model[T]) InsertOne(ctx context.Context, doc *T) (interface{}, error) {
	if err := Validate(doc); err != nil {
		return nil, err
	}
	res, err := m.coll.InsertOne(ctx, doc)
	if err != nil {
		return nil, m.wrap("insertOne", err)
	}
	return res.InsertedID, nil
}

// ReplaceOne 整体替换，同样先校验
func (m *Model[T]) ReplaceOne(ctx context.Context, filter interface{}, doc *T) (int64, error) {
	if err := Validate(doc); err != nil {
		return 0, err
	}
	res, err := m.coll.ReplaceOne(ctx, filter, doc)
	if err != nil {
		return 0, m.wrap("replaceOne", err)
	}
	return res.MatchedCount, nil
}

func (m *Model[T]) UpdateOne(ctx context.Context, filter, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	res, err := m.coll.UpdateOne(ctx, filter, update, opts...)
	if err != nil {
		return nil, m.wrap("updateOne", err)
	}
	return res, nil
}

func (m *Model[T]) UpdateMany(ctx context.Context, filter, update interface{}) (*mongo.UpdateResult, error) {
	res, err := m.coll.UpdateMany(ctx, filter, update)
	if err != nil {
		return nil, m.wrap("updateMany", err)
	}
	return res, nil
}

// FindOneAndUpdate 默认返回更新后的文档，未匹配时返回 nil, nil
func (m *Model[T]) FindOneAndUpdate(ctx context.Context, filter, update interface{}, opts ...*options.FindOneAndUpdateOptions) (*T, error) {
	if len(opts) == 0 {
		opts = []*options.FindOneAndUpdateOptions{options.FindOneAndUpdate().SetReturnDocument(options.After)}
	}
	var doc T
	err := m.coll.FindOneAndUpdate(ctx, filter, update, opts...).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, m.wrap("findOneAndUpdate", err)
	}
	return &doc, nil
}

func (m *Model[T]) DeleteOne(ctx context.Context, filter interface{}) (int64, error) {
	res, err := m.coll.DeleteOne(ctx, filter)
	if err != nil {
		return 0, m.wrap("deleteOne", err)
	}
	return res.DeletedCount, nil
}

func (m *Model[T]) FindOneAndDelete(ctx context.Context, filter interface{}) (*T, error) {
	var doc T
	err := m.coll.FindOneAndDelete(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, m.wrap("findOneAndDelete", err)
	}
	return &doc, nil
}

func (m *Model[T]) Aggregate(ctx context.Context, pipeline interface{}) ([]bson.M, error) {
	cursor, err := m.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, m.wrap("aggregate", err)
	}
	defer cursor.Close(ctx)

	var out []bson.M
	if err := cursor.All(ctx, &out); err != nil {
		return nil, m.wrap("decode", err)
	}
	return out, nil
}

func (m *Model[T]) wrap(op string, err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%s.%s: %w: %w", m.name, op, common.ErrDuplicateKey, err)
	}
	return fmt.Errorf("%s.%s: %w", m.name, op, err)
}
