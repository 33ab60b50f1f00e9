package controllers

import (
	"context"

	"multishop-server/models"
	"multishop-server/services"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type AddressService interface {
	List(ctx context.Context, userID primitive.ObjectID) ([]models.UserAddress, error)
	Get(ctx context.Context, userID primitive.ObjectID, id string) (*models.UserAddress, error)
	Create(ctx context.Context, userID primitive.ObjectID, in services.AddressInput) (*models.UserAddress, error)
	Update(ctx context.Context, userID primitive.ObjectID, id string, in services.AddressInput) (*models.UserAddress, error)
	Delete(ctx context.Context, userID primitive.ObjectID, id string) error
	SetDefault(ctx context.Context, userID primitive.ObjectID, id string) (*models.UserAddress, bool, error)
}

type AddressController struct {
	addresses AddressService
}

// NewAddressController 构造函数
func NewAddressController(addresses AddressService) *AddressController {
	return &AddressController{addresses: addresses}
}

// GetAddresses 获取当前用户的所有地址
func (ac *AddressController) GetAddresses(c *fiber.Ctx) error {
	userID, err := userOID(c)
	if err != nil {
		return err
	}
	list, err := ac.addresses.List(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, fiber.Map{"data": list})
}

func (ac *AddressController) GetAddress(c *fiber.Ctx) error {
	userID, err := userOID(c)
	if err != nil {
		return err
	}
	a, err := ac.addresses.Get(c.UserContext(), userID, c.Params("id"))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, fiber.Map{"data": a})
}

// AddAddress 添加新地址
func (ac *AddressController) AddAddress(c *fiber.Ctx) error {
	userID, err := userOID(c)
	if err != nil {
		return err
	}
	var in services.AddressInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	a, err := ac.addresses.Create(c.UserContext(), userID, in)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusCreated, fiber.Map{"message": "地址添加成功", "data": a})
}

func (ac *AddressController) UpdateAddress(c *fiber.Ctx) error {
	userID, err := userOID(c)
	if err != nil {
		return err
	}
	var in services.AddressInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	a, err := ac.addresses.Update(c.UserContext(), userID, c.Params("id"), in)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, fiber.Map{"message": "地址更新成功", "data": a})
}

func (ac *AddressController) DelAddress(c *fiber.Ctx) error {
	userID, err := userOID(c)
	if err != nil {
		return err
	}
	if err := ac.addresses.Delete(c.UserContext(), userID, c.Params("id")); err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, fiber.Map{"message": "地址删除成功"})
}

func (ac *AddressController) SetDefault(c *fiber.Ctx) error {
	userID, err := userOID(c)
	if err != nil {
		return err
	}
	a, changed, err := ac.addresses.SetDefault(c.UserContext(), userID, c.Params("id"))
	if err != nil {
		return err
	}
	msg := "默认地址设置成功"
	if !changed {
		msg = "该地址已是默认地址"
	}
	return respond(c, fiber.StatusOK, fiber.Map{"message": msg, "data": a})
}
