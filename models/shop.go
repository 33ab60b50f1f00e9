package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	ShopStatusActive          = "active"
	ShopStatusInactive        = "inactive"
	ShopStatusPendingApproval = "pending_approval"
	ShopStatusRejected        = "rejected"
	ShopStatusDeleted         = "deleted"
)

var shopStatuses = map[string]struct{}{
	ShopStatusActive:          {},
	ShopStatusInactive:        {},
	ShopStatusPendingApproval: {},
	ShopStatusRejected:        {},
	ShopStatusDeleted:         {},
}

func IsShopStatus(s string) bool {
	_, ok := shopStatuses[s]
	return ok
}

// ShopProfile 每个店铺库中只有一条
type ShopProfile struct {
	ID           primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	ShopID       string             `json:"shop_id" bson:"shop_id" validate:"required"`
	Name         string             `json:"name" bson:"name" validate:"required"`
	Description  string             `json:"description" bson:"description"`
	LogoURL      string             `json:"logo_url" bson:"logo_url"`
	ContactEmail string             `json:"contact_email" bson:"contact_email"`
	ContactPhone string             `json:"contact_phone" bson:"contact_phone"`
	Address      string             `json:"address" bson:"address"`
	Status       string             `json:"status" bson:"status" validate:"required,shop_status"`
	CreatedAt    time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at" bson:"updated_at"`
}

type ProductCategory struct {
	ID            primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	CategoryIDNum int                `json:"category_id_num" bson:"category_id_num" validate:"gte=0"`
	Name          string             `json:"name" bson:"name" validate:"required,max=20"`
	Icon          string             `json:"icon" bson:"icon"`
	CreatedAt     time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt     time.Time          `json:"updatedAt" bson:"updatedAt"`
}

const (
	ProductOffShelf = 0
	ProductOnShelf  = 1
)

type Product struct {
	ID             primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	ProductID      string             `json:"product_id" bson:"product_id" validate:"required,max=20"`
	ShopID         string             `json:"shop_id" bson:"shop_id" validate:"required"`
	CategoryID     primitive.ObjectID `json:"category_id" bson:"category_id" validate:"required"`
	Name           string             `json:"name" bson:"name" validate:"required,max=100"`
	Description    string             `json:"description" bson:"description"`
	Price          *float64           `json:"price" bson:"price" validate:"required,gte=0"`
	OriginalPrice  *float64           `json:"original_price,omitempty" bson:"original_price,omitempty" validate:"omitempty,gte=0"`
	Images         []string           `json:"images" bson:"images"`
	DetailImages   []string           `json:"detail_images" bson:"detail_images"`
	Sold           int                `json:"sold" bson:"sold" validate:"gte=0"`
	Stock          int                `json:"stock" bson:"stock" validate:"gte=0"`
	Location       string             `json:"location" bson:"location"`
	Status         int                `json:"status" bson:"status" validate:"oneof=0 1"` // 0-下架，1-上架
	IsCustomizable bool               `json:"is_customizable" bson:"is_customizable"`
	Specs          []ProductSpec      `json:"specs" bson:"specs" validate:"dive"`
	CreatedAt      time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt      time.Time          `json:"updatedAt" bson:"updatedAt"`

	// 只在响应中出现
	ShopName string `json:"shop_name,omitempty" bson:"-"`
}

type ProductSpec struct {
	Name    string   `json:"name" bson:"name" validate:"required"`
	Options []string `json:"options" bson:"options" validate:"required,min=1,dive,required"`
}

// FirstImage 商品主图，没有图片时为空
func (p *Product) FirstImage() string {
	if len(p.Images) > 0 {
		return p.Images[0]
	}
	return ""
}
