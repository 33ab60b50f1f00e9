package services

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"multishop-server/cache"
	"multishop-server/common"
	"multishop-server/models"
	"multishop-server/utils"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type RegisterInput struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	AccountName string `json:"account_name"`
	Nickname    string `json:"nickname"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
}

// UpdateUserInput 只允许修改这些字段，空字符串视为未提供
type UpdateUserInput struct {
	Username    string `json:"username"`
	AccountName string `json:"account_name"`
	Nickname    string `json:"nickname"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Avatar      string `json:"avatar"`
	Bio         string `json:"bio"`
	Birthday    string `json:"birthday"`
	Gender      *int   `json:"gender"`
	RealName    string `json:"real_name"`
}

type PublicProfile struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	AccountName string `json:"account_name"`
	Nickname    string `json:"nickname"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Avatar      string `json:"avatar,omitempty"`
}

type AuthResult struct {
	User  PublicProfile
	Token string
}

// Principal 认证后挂在请求上的用户信息
type Principal struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	AccountName string `json:"account_name"`
	Email       string `json:"email"`
	Status      int    `json:"status"`
}

type UserService struct {
	users  UserStore
	tokens *utils.TokenManager
	cache  cache.Cache
	ttl    time.Duration
	log    *logrus.Entry
	now    func() time.Time
}

func NewUserService(users UserStore, tokens *utils.TokenManager, c cache.Cache, ttl time.Duration, log *logrus.Entry) *UserService {
	if c == nil {
		c = cache.Nop{}
	}
	return &UserService{users: users, tokens: tokens, cache: c, ttl: ttl, log: log, now: time.Now}
}

func profileOf(u *models.User) PublicProfile {
	return PublicProfile{
		ID:          u.ID.Hex(),
		Username:    u.Username,
		AccountName: u.AccountName,
		Nickname:    u.Nickname,
		Email:       u.Email,
		Phone:       u.Phone,
		Avatar:      u.Avatar,
	}
}

func principalCacheKey(id string) string {
	return "auth:user:" + id
}

func (s *UserService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.Username = strings.TrimSpace(in.Username)
	if in.Username == "" || in.Password == "" {
		return nil, common.Validation("用户名和密码不能为空", nil)
	}
	existing, err := s.users.FindByUsername(ctx, in.Username)
	if err != nil {
		return nil, internalErr(s.log, "register", logrus.Fields{"username": in.Username}, err)
	}
	if existing != nil {
		return nil, common.NewError(common.CodeUsernameExists, "用户名已存在", http.StatusBadRequest, nil)
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email != "" {
		byEmail, err := s.users.FindByEmail(ctx, email)
		if err != nil {
			return nil, internalErr(s.log, "register", logrus.Fields{"username": in.Username}, err)
		}
		if byEmail != nil {
			return nil, common.NewError(common.CodeEmailExists, "邮箱已存在", http.StatusBadRequest, nil)
		}
	}

	hashed, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, internalErr(s.log, "register", logrus.Fields{"username": in.Username}, err)
	}
	now := s.now()
	u := &models.User{
		Username:     in.Username,
		Password:     hashed,
		AccountName:  firstNonEmpty(in.AccountName, in.Username),
		Nickname:     firstNonEmpty(in.Nickname, in.Username),
		Email:        email,
		Phone:        strings.TrimSpace(in.Phone),
		Status:       models.UserStatusNormal,
		RegisterTime: now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Insert(ctx, u); err != nil {
		if common.IsDuplicate(err) {
			return nil, common.NewError(common.CodeUsernameExists, "用户名已存在", http.StatusBadRequest, nil)
		}
		return nil, internalErr(s.log, "register", logrus.Fields{"username": in.Username}, err)
	}
	return s.issue(u)
}

func (s *UserService) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	if username == "" || password == "" {
		return nil, common.Validation("用户名和密码不能为空", nil)
	}
	u, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, internalErr(s.log, "login", logrus.Fields{"username": username}, err)
	}
	if u == nil || utils.VerifyPassword(password, u.Password) != nil {
		return nil, common.Unauthorized("用户名或密码错误")
	}
	if u.Status == models.UserStatusDisabled {
		return nil, common.Forbidden("用户已被禁用，请联系管理员")
	}
	now := s.now()
	if err := s.users.TouchLogin(ctx, u.ID, now); err != nil {
		return nil, internalErr(s.log, "login", logrus.Fields{"user_id": u.ID.Hex()}, err)
	}
	u.LastLoginTime = &now
	return s.issue(u)
}

func (s *UserService) issue(u *models.User) (*AuthResult, error) {
	token, err := s.tokens.Issue(u.ID.Hex(), u.Username)
	if err != nil {
		return nil, internalErr(s.log, "issueToken", logrus.Fields{"user_id": u.ID.Hex()}, err)
	}
	return &AuthResult{User: profileOf(u), Token: token}, nil
}

func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, internalErr(s.log, "listUsers", nil, err)
	}
	return users, nil
}

func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	oid, err := parseID(id, "无效的用户ID")
	if err != nil {
		return nil, err
	}
	u, err := s.users.FindByID(ctx, oid)
	if err != nil {
		return nil, internalErr(s.log, "getUser", logrus.Fields{"user_id": id}, err)
	}
	if u == nil {
		return nil, common.NotFound("用户未找到")
	}
	return u, nil
}

func (s *UserService) Update(ctx context.Context, id string, in UpdateUserInput) (*models.User, error) {
	oid, err := parseID(id, "无效的用户ID")
	if err != nil {
		return nil, err
	}
	set := bson.M{}
	setIf := func(key, val string) {
		if val != "" {
			set[key] = val
		}
	}
	setIf("username", strings.TrimSpace(in.Username))
	setIf("account_name", strings.TrimSpace(in.AccountName))
	setIf("nickname", strings.TrimSpace(in.Nickname))
	setIf("email", strings.ToLower(strings.TrimSpace(in.Email)))
	setIf("phone", strings.TrimSpace(in.Phone))
	setIf("avatar", in.Avatar)
	setIf("bio", in.Bio)
	setIf("birthday", in.Birthday)
	setIf("real_name", strings.TrimSpace(in.RealName))
	if in.Gender != nil {
		set["gender"] = *in.Gender
	}
	if len(set) == 0 {
		return nil, common.Validation("没有提供可更新的数据", nil)
	}
	if err := validateUserPatch(set); err != nil {
		return nil, err
	}
	if email, ok := set["email"].(string); ok {
		other, err := s.users.FindByEmail(ctx, email)
		if err != nil {
			return nil, internalErr(s.log, "updateUser", logrus.Fields{"user_id": id}, err)
		}
		if other != nil && other.ID != oid {
			return nil, common.Validation("更新失败，用户名或邮箱已存在。", nil)
		}
	}
	set["updatedAt"] = s.now()

	u, err := s.users.Update(ctx, oid, set)
	if err != nil {
		if common.IsDuplicate(err) {
			return nil, common.Validation("更新失败，用户名或邮箱已存在。", nil)
		}
		return nil, internalErr(s.log, "updateUser", logrus.Fields{"user_id": id}, err)
	}
	if u == nil {
		return nil, common.NotFound("用户未找到，无法更新")
	}
	s.forget(ctx, id)
	return u, nil
}

func validateUserPatch(set bson.M) error {
	var details []models.FieldError
	if name, ok := set["username"].(string); ok && (len([]rune(name)) < 3 || len([]rune(name)) > 50) {
		details = append(details, models.FieldError{Field: "username", Rule: "len", Param: "3-50"})
	}
	if email, ok := set["email"].(string); ok && !utils.IsValidEmail(email) {
		details = append(details, models.FieldError{Field: "email", Rule: "email"})
	}
	if g, ok := set["gender"].(int); ok && (g < 0 || g > 2) {
		details = append(details, models.FieldError{Field: "gender", Rule: "oneof", Param: "0 1 2"})
	}
	if len(details) > 0 {
		return common.Validation("数据验证失败", details)
	}
	return nil
}

func (s *UserService) Delete(ctx context.Context, id string) error {
	oid, err := parseID(id, "无效的用户ID")
	if err != nil {
		return err
	}
	deleted, err := s.users.Delete(ctx, oid)
	if err != nil {
		return internalErr(s.log, "deleteUser", logrus.Fields{"user_id": id}, err)
	}
	if !deleted {
		return common.NotFound("用户未找到，无法删除")
	}
	s.forget(ctx, id)
	return nil
}

func (s *UserService) UsernameExists(ctx context.Context, username string) (bool, error) {
	u, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return false, internalErr(s.log, "checkUsername", logrus.Fields{"username": username}, err)
	}
	return u != nil, nil
}

// Principal 先读缓存再查库，用户不存在返回 nil, nil
func (s *UserService) Principal(ctx context.Context, id string) (*Principal, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}
	var cached Principal
	switch err := s.cache.Get(ctx, principalCacheKey(id), &cached); {
	case err == nil:
		return &cached, nil
	case !errors.Is(err, cache.ErrMiss):
		s.log.WithFields(logrus.Fields{"user_id": id, "error": err}).Warn("读取用户缓存失败")
	}

	u, err := s.users.FindByID(ctx, oid)
	if err != nil {
		return nil, internalErr(s.log, "principal", logrus.Fields{"user_id": id}, err)
	}
	if u == nil {
		return nil, nil
	}
	p := &Principal{
		ID:          u.ID.Hex(),
		Username:    u.Username,
		AccountName: firstNonEmpty(u.AccountName, u.Username),
		Email:       u.Email,
		Status:      u.Status,
	}
	if err := s.cache.Set(ctx, principalCacheKey(id), p, s.ttl); err != nil {
		s.log.WithFields(logrus.Fields{"user_id": id, "error": err}).Warn("写入用户缓存失败")
	}
	return p, nil
}

// ParseToken 校验令牌，返回用户ID
func (s *UserService) ParseToken(token string) (string, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		if errors.Is(err, utils.ErrTokenExpired) {
			return "", common.TokenExpired()
		}
		return "", common.Forbidden("无效的认证令牌")
	}
	return claims.ID, nil
}

func (s *UserService) forget(ctx context.Context, id string) {
	if err := s.cache.Delete(ctx, principalCacheKey(id)); err != nil {
		s.log.WithFields(logrus.Fields{"user_id": id, "error": err}).Warn("清除用户缓存失败")
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
