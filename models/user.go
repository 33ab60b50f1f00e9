package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	UserStatusDisabled = 0
	UserStatusNormal   = 1
)

type User struct {
	ID            primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	Username      string             `json:"username" bson:"username" validate:"required,min=3,max=50"`
	Password      string             `json:"-" bson:"password" validate:"required"`
	AccountName   string             `json:"account_name" bson:"account_name" validate:"required,max=50"` // 订单、收藏中引用的业务标识
	Nickname      string             `json:"nickname" bson:"nickname" validate:"max=50"`
	Avatar        string             `json:"avatar" bson:"avatar"`
	RealName      string             `json:"real_name" bson:"real_name"`
	Bio           string             `json:"bio" bson:"bio"`
	Birthday      string             `json:"birthday" bson:"birthday"` // YYYY-MM-DD
	Gender        int                `json:"gender" bson:"gender" validate:"min=0,max=2"` // 0-未设置，1-男，2-女
	Phone         string             `json:"phone" bson:"phone"`
	Email         string             `json:"email" bson:"email" validate:"omitempty,email"`
	Status        int                `json:"status" bson:"status" validate:"oneof=0 1"` // 0-禁用，1-正常
	RegisterTime  time.Time          `json:"register_time" bson:"register_time"`
	LastLoginTime *time.Time         `json:"last_login_time,omitempty" bson:"last_login_time,omitempty"`
	CreatedAt     time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt     time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// UserAddress 同一用户最多一个 is_default 为 true
type UserAddress struct {
	ID        primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	UserID    primitive.ObjectID `json:"user_id" bson:"user_id" validate:"required"`
	Name      string             `json:"name" bson:"name" validate:"required,max=20"`
	Phone     string             `json:"phone" bson:"phone" validate:"required,mobile"`
	Province  string             `json:"province" bson:"province" validate:"required,max=20"`
	City      string             `json:"city" bson:"city" validate:"required,max=20"`
	District  string             `json:"district" bson:"district" validate:"required,max=20"`
	Address   string             `json:"address" bson:"address" validate:"required"`
	Tag       string             `json:"tag" bson:"tag" validate:"max=5"`
	IsDefault bool               `json:"is_default" bson:"is_default"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt" bson:"updatedAt"`
}

const DefaultAddressTag = "家"

// ProductFavorite 商品在店铺库中，这里只保存业务ID
type ProductFavorite struct {
	ID                primitive.ObjectID       `json:"_id" bson:"_id,omitempty"`
	UserID            string                   `json:"user_id" bson:"user_id" validate:"required"` // account_name
	ProductIDOriginal string                   `json:"product_id_original" bson:"product_id_original" validate:"required"`
	ShopIDOriginal    string                   `json:"shop_id_original" bson:"shop_id_original" validate:"required"`
	ProductSnapshot   *FavoriteProductSnapshot `json:"product_snapshot,omitempty" bson:"product_snapshot,omitempty"`
	CreatedAt         time.Time                `json:"created_at" bson:"created_at"`
}

type FavoriteProductSnapshot struct {
	Name     string   `json:"name" bson:"name"`
	ImageURL string   `json:"image_url" bson:"image_url"`
	Price    *float64 `json:"price,omitempty" bson:"price,omitempty"`
}

func (f *ProductFavorite) Target() CrossRef {
	return CrossRef{Tenant: f.ShopIDOriginal, BusinessID: f.ProductIDOriginal}
}

type ShopFavorite struct {
	ID             primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	UserID         string             `json:"user_id" bson:"user_id" validate:"required"`
	ShopIDOriginal string             `json:"shop_id_original" bson:"shop_id_original" validate:"required"`
	ShopSnapshot   ShopSnapshot       `json:"shop_snapshot" bson:"shop_snapshot"`
	CreatedAt      time.Time          `json:"created_at" bson:"created_at"`
}

type ShopSnapshot struct {
	Name    string `json:"name,omitempty" bson:"name,omitempty"`
	LogoURL string `json:"logo_url,omitempty" bson:"logo_url,omitempty"`
}

func (f *ShopFavorite) Target() CrossRef {
	return CrossRef{Tenant: f.ShopIDOriginal, BusinessID: f.ShopIDOriginal}
}
