package controllers

import (
	"context"

	"multishop-server/models"
	"multishop-server/services"

	"github.com/gofiber/fiber/v2"
)

type UserService interface {
	Register(ctx context.Context, in services.RegisterInput) (*services.AuthResult, error)
	Login(ctx context.Context, username, password string) (*services.AuthResult, error)
	List(ctx context.Context) ([]models.User, error)
	Get(ctx context.Context, id string) (*models.User, error)
	Update(ctx context.Context, id string, in services.UpdateUserInput) (*models.User, error)
	Delete(ctx context.Context, id string) error
	UsernameExists(ctx context.Context, username string) (bool, error)
}

type UserController struct {
	users UserService
}

// NewUserController 构造函数
func NewUserController(users UserService) *UserController {
	return &UserController{users: users}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (uc *UserController) Register(c *fiber.Ctx) error {
	var in services.RegisterInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	res, err := uc.users.Register(c.UserContext(), in)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusCreated, fiber.Map{"message": "注册成功", "token": res.Token, "data": res.User})
}

func (uc *UserController) Login(c *fiber.Ctx) error {
	var in loginRequest
	if err := parseBody(c, &in); err != nil {
		return err
	}
	res, err := uc.users.Login(c.UserContext(), in.Username, in.Password)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, fiber.Map{"message": "登录成功", "token": res.Token, "data": res.User})
}

func (uc *UserController) CheckUsername(c *fiber.Ctx) error {
	exists, err := uc.users.UsernameExists(c.UserContext(), c.Params("username"))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, fiber.Map{"exists": exists})
}

func (uc *UserController) List(c *fiber.Ctx) error {
	users, err := uc.users.List(c.UserContext())
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, fiber.Map{"data": users})
}

func (uc *UserController) Get(c *fiber.Ctx) error {
	u, err := uc.users.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, fiber.Map{"data": u})
}

func (uc *UserController) Update(c *fiber.Ctx) error {
	var in services.UpdateUserInput
	if err := parseBody(c, &in); err != nil {
		return err
	}
	u, err := uc.users.Update(c.UserContext(), c.Params("id"), in)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, fiber.Map{"message": "用户信息更新成功", "data": u})
}

func (uc *UserController) Delete(c *fiber.Ctx) error {
	if err := uc.users.Delete(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, fiber.Map{"message": "用户删除成功"})
}
