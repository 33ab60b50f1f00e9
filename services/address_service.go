package services

import (
	"context"
	"strings"
	"time"

	"multishop-server/common"
	"multishop-server/models"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AddressInput 创建时前六项必填，更新时只修改非空字段
type AddressInput struct {
	Name      *string `json:"name"`
	Phone     *string `json:"phone"`
	Province  *string `json:"province"`
	City      *string `json:"city"`
	District  *string `json:"district"`
	Address   *string `json:"address"`
	Tag       *string `json:"tag"`
	IsDefault *bool   `json:"is_default"`
}

type AddressService struct {
	addresses AddressStore
	log       *logrus.Entry
	now       func() time.Time
}

func NewAddressService(addresses AddressStore, log *logrus.Entry) *AddressService {
	return &AddressService{addresses: addresses, log: log, now: time.Now}
}

func (s *AddressService) List(ctx context.Context, userID primitive.ObjectID) ([]models.UserAddress, error) {
	list, err := s.addresses.List(ctx, userID)
	if err != nil {
		return nil, internalErr(s.log, "listAddresses", logrus.Fields{"user_id": userID.Hex()}, err)
	}
	return list, nil
}

func (s *AddressService) Get(ctx context.Context, userID primitive.ObjectID, id string) (*models.UserAddress, error) {
	oid, err := parseID(id, "无效的地址ID")
	if err != nil {
		return nil, err
	}
	a, err := s.addresses.Find(ctx, userID, oid)
	if err != nil {
		return nil, internalErr(s.log, "getAddress", logrus.Fields{"user_id": userID.Hex(), "address_id": id}, err)
	}
	if a == nil {
		return nil, common.NotFound("地址未找到")
	}
	return a, nil
}

func (s *AddressService) Create(ctx context.Context, userID primitive.ObjectID, in AddressInput) (*models.UserAddress, error) {
	required := []*string{in.Name, in.Phone, in.Province, in.City, in.District, in.Address}
	for _, v := range required {
		if v == nil || strings.TrimSpace(*v) == "" {
			return nil, common.Validation("缺少必要的地址信息", nil)
		}
	}
	now := s.now()
	a := &models.UserAddress{
		UserID:    userID,
		Tag:       models.DefaultAddressTag,
		CreatedAt: now,
		UpdatedAt: now,
	}
	applyAddress(a, in)

	err := s.save(ctx, a, func() error { return s.addresses.Insert(ctx, a) })
	if err != nil {
		return nil, internalErr(s.log, "createAddress", logrus.Fields{"user_id": userID.Hex()}, err)
	}
	return a, nil
}

func (s *AddressService) Update(ctx context.Context, userID primitive.ObjectID, id string, in AddressInput) (*models.UserAddress, error) {
	a, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	applyAddress(a, in)
	a.UserID = userID
	a.UpdatedAt = s.now()

	if err := s.save(ctx, a, func() error { return s.addresses.Replace(ctx, a) }); err != nil {
		return nil, internalErr(s.log, "updateAddress", logrus.Fields{"user_id": userID.Hex(), "address_id": id}, err)
	}
	return a, nil
}

func (s *AddressService) Delete(ctx context.Context, userID primitive.ObjectID, id string) error {
	oid, err := parseID(id, "无效的地址ID")
	if err != nil {
		return err
	}
	deleted, err := s.addresses.Delete(ctx, userID, oid)
	if err != nil {
		return internalErr(s.log, "deleteAddress", logrus.Fields{"user_id": userID.Hex(), "address_id": id}, err)
	}
	if !deleted {
		return common.NotFound("要删除的地址未找到或不属于该用户")
	}
	return nil
}

// SetDefault 已是默认地址时原样返回，changed 为 false
func (s *AddressService) SetDefault(ctx context.Context, userID primitive.ObjectID, id string) (a *models.UserAddress, changed bool, err error) {
	a, err = s.Get(ctx, userID, id)
	if err != nil {
		return nil, false, err
	}
	if a.IsDefault {
		return a, false, nil
	}
	a.IsDefault = true
	a.UpdatedAt = s.now()
	if err := s.save(ctx, a, func() error { return s.addresses.Replace(ctx, a) }); err != nil {
		return nil, false, internalErr(s.log, "setDefaultAddress", logrus.Fields{"user_id": userID.Hex(), "address_id": id}, err)
	}
	return a, true, nil
}

// save 默认地址先清掉其他默认再写入；并发写入撞上唯一索引时重试一次
func (s *AddressService) save(ctx context.Context, a *models.UserAddress, write func() error) error {
	if !a.IsDefault {
		return write()
	}
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		if err = s.addresses.ClearDefault(ctx, a.UserID, a.ID); err != nil {
			return err
		}
		if err = write(); err == nil || !common.IsDuplicate(err) {
			return err
		}
	}
	return common.Conflict("默认地址设置冲突，请重试", nil)
}

func applyAddress(a *models.UserAddress, in AddressInput) {
	set := func(dst *string, v *string) {
		if v != nil && strings.TrimSpace(*v) != "" {
			*dst = strings.TrimSpace(*v)
		}
	}
	set(&a.Name, in.Name)
	set(&a.Phone, in.Phone)
	set(&a.Province, in.Province)
	set(&a.City, in.City)
	set(&a.District, in.District)
	set(&a.Address, in.Address)
	set(&a.Tag, in.Tag)
	if in.IsDefault != nil {
		a.IsDefault = *in.IsDefault
	}
}
