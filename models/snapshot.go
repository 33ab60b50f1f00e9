package models

// CrossRef 跨库引用：所在租户加业务ID，不同物理库之间没有外键
type CrossRef struct {
	Tenant     string `json:"tenant" bson:"tenant"`
	BusinessID string `json:"business_id" bson:"business_id"`
}

func (r CrossRef) String() string {
	return r.Tenant + "/" + r.BusinessID
}

// ProductSnapshot 下单时商品信息的副本，订单保存后不再改写
type ProductSnapshot struct {
	Name                string  `json:"name" bson:"name"`
	ImageURL            string  `json:"image_url" bson:"image_url"`
	OriginalPrice       float64 `json:"original_price" bson:"original_price"`
	PurchasePrice       float64 `json:"purchase_price" bson:"purchase_price"`
	Description         string  `json:"description" bson:"description"`
	ProductIDOriginalDB string  `json:"product_id_original_db" bson:"product_id_original_db"`
	ShopIDOriginalDB    string  `json:"shop_id_original_db" bson:"shop_id_original_db"`
}

// NewProductSnapshot 调用方需保证 p.Price 非空
func NewProductSnapshot(p *Product) ProductSnapshot {
	price := *p.Price
	original := price
	if p.OriginalPrice != nil && *p.OriginalPrice != 0 {
		original = *p.OriginalPrice
	}
	return ProductSnapshot{
		Name:                p.Name,
		ImageURL:            p.FirstImage(),
		OriginalPrice:       original,
		PurchasePrice:       price,
		Description:         p.Description,
		ProductIDOriginalDB: p.ProductID,
		ShopIDOriginalDB:    p.ShopID,
	}
}

func NewFavoriteProductSnapshot(p *Product) *FavoriteProductSnapshot {
	if p == nil {
		return nil
	}
	return &FavoriteProductSnapshot{Name: p.Name, ImageURL: p.FirstImage(), Price: p.Price}
}

func NewShopSnapshot(p *ShopProfile) ShopSnapshot {
	if p == nil {
		return ShopSnapshot{}
	}
	return ShopSnapshot{Name: p.Name, LogoURL: p.LogoURL}
}
