// Package repository 基于 models.Registry 的存储实现，按租户路由到对应数据库
package repository

import (
	"context"
	"fmt"
	"strconv"

	"multishop-server/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ModelSource 由 models.Registry 实现
type ModelSource interface {
	UserModels(ctx context.Context) (*models.UserModels, error)
	ShopModels(ctx context.Context, shopID string) (*models.ShopModels, error)
	ShopModelsForWrite(ctx context.Context, shopID string) (*models.ShopModels, error)
	OrderModels(ctx context.Context) (*models.OrderModels, error)
}

func insertedID(id interface{}) (primitive.ObjectID, error) {
	oid, ok := id.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, fmt.Errorf("意外的 _id 类型 %T", id)
	}
	return oid, nil
}

// toInt64 聚合结果里的数字可能是 int32/int64/float64
func toInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int32:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	}
	return 0
}

func toFloat64(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case int:
		return float64(n)
	case primitive.Decimal128:
		out, err := strconv.ParseFloat(n.String(), 64)
		if err != nil {
			return 0
		}
		return out
	}
	return 0
}
