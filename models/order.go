package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Order 保存在全局订单库，user_id 为 account_name
type Order struct {
	ID              primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	OrderNo         string             `json:"order_no" bson:"order_no" validate:"required"`
	UserID          string             `json:"user_id" bson:"user_id" validate:"required"`
	ShopID          string             `json:"shop_id" bson:"shop_id" validate:"required"`
	ShopName        string             `json:"shopName,omitempty" bson:"shopName,omitempty"`
	TotalAmount     float64            `json:"total_amount" bson:"total_amount" validate:"gte=0"`
	HandlingFee     float64            `json:"handling_fee" bson:"handling_fee" validate:"gte=0"`
	ShippingFee     float64            `json:"shipping_fee" bson:"shipping_fee" validate:"gte=0"`
	Status          string             `json:"status" bson:"status" validate:"required,order_status"`
	AddressSnapshot bson.M             `json:"address_snapshot" bson:"address_snapshot" validate:"required"`
	Remark          string             `json:"remark,omitempty" bson:"remark,omitempty"`
	PayTime         *time.Time         `json:"pay_time,omitempty" bson:"pay_time,omitempty"`
	ShipTime        *time.Time         `json:"ship_time,omitempty" bson:"ship_time,omitempty"`
	CompleteTime    *time.Time         `json:"complete_time,omitempty" bson:"complete_time,omitempty"`
	CancelTime      *time.Time         `json:"cancel_time,omitempty" bson:"cancel_time,omitempty"`
	CancelReason    string             `json:"cancel_reason,omitempty" bson:"cancel_reason,omitempty"`
	OrderItems      []OrderItem        `json:"orderItems" bson:"orderItems" validate:"required,min=1,dive"`

	// 单商品订单的展示字段
	GoodsName  string   `json:"goodsName,omitempty" bson:"goodsName,omitempty"`
	GoodsImage string   `json:"goodsImage,omitempty" bson:"goodsImage,omitempty"`
	Spec       string   `json:"spec,omitempty" bson:"spec,omitempty"`
	Price      *float64 `json:"price,omitempty" bson:"price,omitempty"`
	Count      *int     `json:"count,omitempty" bson:"count,omitempty"`

	CreateTime time.Time `json:"create_time" bson:"create_time"`
	UpdateTime time.Time `json:"update_time" bson:"update_time"`
}

// OrderItem 内嵌在订单中，商品信息以快照形式保存
type OrderItem struct {
	ProductID             string          `json:"product_id" bson:"product_id" validate:"required"`
	ProductIDOriginal     string          `json:"product_id_original" bson:"product_id_original"`
	ProductShopIDOriginal string          `json:"product_shop_id_original" bson:"product_shop_id_original"`
	ProductSnapshot       ProductSnapshot `json:"product_snapshot" bson:"product_snapshot"`
	Count                 int             `json:"count" bson:"count" validate:"min=1"`
	Price                 float64         `json:"price" bson:"price" validate:"gte=0"`
	Spec                  interface{}     `json:"spec,omitempty" bson:"spec,omitempty"`
	SpecDescription       string          `json:"spec_description,omitempty" bson:"spec_description,omitempty"`
	CustomizationData     interface{}     `json:"customization_data,omitempty" bson:"customization_data,omitempty"`
	CreateTime            time.Time       `json:"create_time" bson:"create_time"`
}

// Subtotal 单价乘数量
func (i *OrderItem) Subtotal() float64 {
	return i.Price * float64(i.Count)
}

type OrderSweepStatistics struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	SweepTime      time.Time          `bson:"sweep_time" json:"sweep_time"`
	CancelledCount int64              `bson:"cancelled_count" json:"cancelled_count"`
	TotalAmount    float64            `bson:"total_amount" json:"total_amount"`
}
