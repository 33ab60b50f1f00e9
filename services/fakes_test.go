package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"multishop-server/common"
	"multishop-server/models"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var errStoreDown = errors.New("store unavailable")

func testLog() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func dup(what string) error {
	return fmt.Errorf("%s: %w", what, common.ErrDuplicateKey)
}

func price(v float64) *float64 { return &v }

// memUsers

type memUsers struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]*models.User
}

func newMemUsers() *memUsers {
	return &memUsers{users: make(map[primitive.ObjectID]*models.User)}
}

func (m *memUsers) List(ctx context.Context) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, *u)
	}
	return out, nil
}

func (m *memUsers) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (m *memUsers) find(match func(*models.User) bool) *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if match(u) {
			cp := *u
			return &cp
		}
	}
	return nil
}

func (m *memUsers) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return m.find(func(u *models.User) bool { return u.Username == username }), nil
}

func (m *memUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return m.find(func(u *models.User) bool { return u.Email == email }), nil
}

func (m *memUsers) Insert(ctx context.Context, u *models.User) error {
	if m.find(func(x *models.User) bool { return x.Username == u.Username }) != nil {
		return dup("users.username")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u.ID = primitive.NewObjectID()
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memUsers) Update(ctx context.Context, id primitive.ObjectID, set bson.M) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	for k, v := range set {
		switch k {
		case "username":
			u.Username = v.(string)
		case "email":
			u.Email = v.(string)
		case "nickname":
			u.Nickname = v.(string)
		case "phone":
			u.Phone = v.(string)
		case "gender":
			u.Gender = v.(int)
		case "updatedAt":
			u.UpdatedAt = v.(time.Time)
		}
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) TouchLogin(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		u.LastLoginTime = &at
	}
	return nil
}

func (m *memUsers) Delete(ctx context.Context, id primitive.ObjectID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.users[id]
	delete(m.users, id)
	return ok, nil
}

// memAddresses 模拟 (user_id, is_default) 部分唯一索引

type memAddresses struct {
	mu    sync.Mutex
	items map[primitive.ObjectID]*models.UserAddress
}

func newMemAddresses() *memAddresses {
	return &memAddresses{items: make(map[primitive.ObjectID]*models.UserAddress)}
}

func (m *memAddresses) List(ctx context.Context, userID primitive.ObjectID) ([]models.UserAddress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.UserAddress
	for _, a := range m.items {
		if a.UserID == userID {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IsDefault && !out[j].IsDefault })
	return out, nil
}

func (m *memAddresses) Find(ctx context.Context, userID, id primitive.ObjectID) (*models.UserAddress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.items[id]; ok && a.UserID == userID {
		cp := *a
		return &cp, nil
	}
	return nil, nil
}

func (m *memAddresses) conflict(a *models.UserAddress) bool {
	if !a.IsDefault {
		return false
	}
	for id, other := range m.items {
		if id != a.ID && other.UserID == a.UserID && other.IsDefault {
			return true
		}
	}
	return false
}

func (m *memAddresses) Insert(ctx context.Context, a *models.UserAddress) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conflict(a) {
		return dup("useraddresses.user_id_is_default")
	}
	a.ID = primitive.NewObjectID()
	cp := *a
	m.items[a.ID] = &cp
	return nil
}

func (m *memAddresses) Replace(ctx context.Context, a *models.UserAddress) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conflict(a) {
		return dup("useraddresses.user_id_is_default")
	}
	cp := *a
	m.items[a.ID] = &cp
	return nil
}

func (m *memAddresses) ClearDefault(ctx context.Context, userID, exceptID primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, a := range m.items {
		if id != exceptID && a.UserID == userID {
			a.IsDefault = false
		}
	}
	return nil
}

func (m *memAddresses) Delete(ctx context.Context, userID, id primitive.ObjectID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.items[id]; ok && a.UserID == userID {
		delete(m.items, id)
		return true, nil
	}
	return false, nil
}

func (m *memAddresses) defaults(userID primitive.ObjectID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, a := range m.items {
		if a.UserID == userID && a.IsDefault {
			n++
		}
	}
	return n
}

// memShops 每个店铺一组数据，failing 中的店铺所有操作报错

type memShop struct {
	profile    *models.ShopProfile
	products   []*models.Product
	categories []models.ProductCategory
}

type memShops struct {
	mu      sync.Mutex
	shops   map[string]*memShop
	failing map[string]bool
}

func newMemShops() *memShops {
	return &memShops{shops: make(map[string]*memShop), failing: make(map[string]bool)}
}

func (m *memShops) shop(id string) (*memShop, error) {
	if m.failing[id] {
		return nil, errStoreDown
	}
	s, ok := m.shops[id]
	if !ok {
		s = &memShop{}
		m.shops[id] = s
	}
	return s, nil
}

func (m *memShops) addProfile(id, name, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, _ := m.shop(id)
	s.profile = &models.ShopProfile{ShopID: id, Name: name, Status: status, LogoURL: "logo-" + id}
}

func (m *memShops) addProduct(shopID string, p models.Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, _ := m.shop(shopID)
	p.ShopID = shopID
	cp := p
	s.products = append(s.products, &cp)
}

func (m *memShops) FindProfile(ctx context.Context, shopID string) (*models.ShopProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.shop(shopID)
	if err != nil || s.profile == nil {
		return nil, err
	}
	cp := *s.profile
	return &cp, nil
}

func (m *memShops) UpsertProfile(ctx context.Context, shopID string, set, setOnInsert bson.M) (*models.ShopProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.shop(shopID)
	if err != nil {
		return nil, err
	}
	if s.profile == nil {
		s.profile = &models.ShopProfile{}
		applyProfile(s.profile, setOnInsert)
	}
	applyProfile(s.profile, set)
	cp := *s.profile
	return &cp, nil
}

func applyProfile(p *models.ShopProfile, fields bson.M) {
	for k, v := range fields {
		switch k {
		case "shop_id":
			p.ShopID = v.(string)
		case "name":
			p.Name = v.(string)
		case "description":
			p.Description = v.(string)
		case "logo_url":
			p.LogoURL = v.(string)
		case "status":
			p.Status = v.(string)
		case "created_at":
			p.CreatedAt = v.(time.Time)
		case "updated_at":
			p.UpdatedAt = v.(time.Time)
		}
	}
}

func (m *memShops) ListProducts(ctx context.Context, shopID string, filter ProductFilter) ([]models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.shop(shopID)
	if err != nil {
		return nil, err
	}
	var out []models.Product
	for _, p := range s.products {
		if filter.OnShelfOnly && p.Status != models.ProductOnShelf {
			continue
		}
		out = append(out, *p)
		if filter.Limit > 0 && int64(len(out)) >= filter.Limit {
			break
		}
	}
	return out, nil
}

func (m *memShops) FindProduct(ctx context.Context, shopID, productID string) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.shop(shopID)
	if err != nil {
		return nil, err
	}
	for _, p := range s.products {
		if p.ProductID == productID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memShops) InsertProduct(ctx context.Context, shopID string, p *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.shop(shopID)
	if err != nil {
		return err
	}
	for _, existing := range s.products {
		if existing.ProductID == p.ProductID {
			return dup("products.product_id")
		}
	}
	p.ID = primitive.NewObjectID()
	cp := *p
	s.products = append(s.products, &cp)
	return nil
}

func (m *memShops) ReplaceProduct(ctx context.Context, shopID string, p *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.shop(shopID)
	if err != nil {
		return err
	}
	for i, existing := range s.products {
		if existing.ID == p.ID {
			cp := *p
			s.products[i] = &cp
			return nil
		}
	}
	return nil
}

func (m *memShops) DeleteProduct(ctx context.Context, shopID, productID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.shop(shopID)
	if err != nil {
		return false, err
	}
	for i, p := range s.products {
		if p.ProductID == productID {
			s.products = append(s.products[:i], s.products[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (m *memShops) CountProducts(ctx context.Context, shopID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.shop(shopID)
	if err != nil {
		return 0, err
	}
	return int64(len(s.products)), nil
}

func (m *memShops) ListCategories(ctx context.Context, shopID string) ([]models.ProductCategory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.shop(shopID)
	if err != nil {
		return nil, err
	}
	return append([]models.ProductCategory(nil), s.categories...), nil
}

func (m *memShops) InsertCategory(ctx context.Context, shopID string, c *models.ProductCategory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.shop(shopID)
	if err != nil {
		return err
	}
	for _, existing := range s.categories {
		if existing.CategoryIDNum == c.CategoryIDNum {
			return dup("productcategories.category_id_num")
		}
	}
	c.ID = primitive.NewObjectID()
	s.categories = append(s.categories, *c)
	return nil
}

// memOrders

type memOrders struct {
	mu     sync.Mutex
	orders []*models.Order
	sweeps []models.OrderSweepStatistics
	// raceOnApply 模拟其他请求抢先修改了状态
	raceOnApply bool
}

func newMemOrders() *memOrders { return &memOrders{} }

func (m *memOrders) Insert(ctx context.Context, o *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.orders {
		if existing.OrderNo == o.OrderNo {
			return dup("orders.order_no")
		}
	}
	if o.ID.IsZero() {
		o.ID = primitive.NewObjectID()
	}
	cp := *o
	m.orders = append(m.orders, &cp)
	return nil
}

func (m *memOrders) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.ID == id {
			cp := *o
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memOrders) FindByNo(ctx context.Context, shopID, orderNo string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.ShopID == shopID && o.OrderNo == orderNo {
			cp := *o
			return &cp, nil
		}
	}
	return nil, nil
}

func queryMatches(q OrderQuery, o *models.Order) bool {
	if q.UserID != "" && o.UserID != q.UserID {
		return false
	}
	if q.ShopID != "" && o.ShopID != q.ShopID {
		return false
	}
	if !q.CreatedBefore.IsZero() && !o.CreateTime.Before(q.CreatedBefore) {
		return false
	}
	if len(q.Statuses) == 0 {
		return true
	}
	for _, st := range q.Statuses {
		if o.Status == st {
			return true
		}
	}
	return false
}

func (m *memOrders) List(ctx context.Context, q OrderQuery) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Order
	for _, o := range m.orders {
		if queryMatches(q, o) {
			out = append(out, *o)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if q.SortDesc {
			return out[i].CreateTime.After(out[j].CreateTime)
		}
		return out[i].CreateTime.Before(out[j].CreateTime)
	})
	if q.Skip > 0 {
		if int(q.Skip) >= len(out) {
			return nil, nil
		}
		out = out[q.Skip:]
	}
	if q.Limit > 0 && int(q.Limit) < len(out) {
		out = out[:q.Limit]
	}
	return out, nil
}

func (m *memOrders) Count(ctx context.Context, q OrderQuery) (int64, error) {
	q.Skip, q.Limit = 0, 0
	list, _ := m.List(ctx, q)
	return int64(len(list)), nil
}

func (m *memOrders) CountByStatus(ctx context.Context, userID string) (map[string]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int64)
	for _, o := range m.orders {
		if o.UserID == userID {
			out[o.Status]++
		}
	}
	return out, nil
}

func (m *memOrders) SumTotal(ctx context.Context, shopID, status string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var sum float64
	for _, o := range m.orders {
		if o.ShopID == shopID && o.Status == status {
			sum += o.TotalAmount
		}
	}
	return sum, nil
}

func (m *memOrders) Apply(ctx context.Context, id primitive.ObjectID, expectStatus string, set bson.M) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.raceOnApply {
		return nil, nil
	}
	for _, o := range m.orders {
		if o.ID != id {
			continue
		}
		if o.Status != expectStatus {
			return nil, nil
		}
		for k, v := range set {
			switch k {
			case "status":
				o.Status = v.(string)
			case "update_time":
				o.UpdateTime = v.(time.Time)
			case "pay_time":
				t := v.(time.Time)
				o.PayTime = &t
			case "ship_time":
				t := v.(time.Time)
				o.ShipTime = &t
			case "complete_time":
				t := v.(time.Time)
				o.CompleteTime = &t
			case "cancel_time":
				t := v.(time.Time)
				o.CancelTime = &t
			case "cancel_reason":
				o.CancelReason = v.(string)
			}
		}
		cp := *o
		return &cp, nil
	}
	return nil, nil
}

func (m *memOrders) DeleteByID(ctx context.Context, id primitive.ObjectID) (bool, error) {
	return m.deleteWhere(func(o *models.Order) bool { return o.ID == id }), nil
}

func (m *memOrders) DeleteByNo(ctx context.Context, shopID, orderNo string) (bool, error) {
	return m.deleteWhere(func(o *models.Order) bool { return o.ShopID == shopID && o.OrderNo == orderNo }), nil
}

func (m *memOrders) deleteWhere(match func(*models.Order) bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, o := range m.orders {
		if match(o) {
			m.orders = append(m.orders[:i], m.orders[i+1:]...)
			return true
		}
	}
	return false
}

func (m *memOrders) RecordSweep(ctx context.Context, stats *models.OrderSweepStatistics) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweeps = append(m.sweeps, *stats)
	return nil
}

func (m *memOrders) seed(o models.Order) *models.Order {
	o.ID = primitive.NewObjectID()
	if o.OrderNo == "" {
		o.OrderNo = "ORD-" + o.ID.Hex()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := o
	m.orders = append(m.orders, &cp)
	return &o
}

// memFavorites

type memFavorites struct {
	mu       sync.Mutex
	products []models.ProductFavorite
	shops    []models.ShopFavorite
	// staleFind 模拟查重之后另一请求抢先写入
	staleFind bool
}

func (m *memFavorites) FindProduct(ctx context.Context, userID, productID string) (*models.ProductFavorite, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.staleFind {
		return nil, nil
	}
	for _, f := range m.products {
		if f.UserID == userID && f.ProductIDOriginal == productID {
			cp := f
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memFavorites) InsertProduct(ctx context.Context, f *models.ProductFavorite) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.products {
		if existing.UserID == f.UserID && existing.ProductIDOriginal == f.ProductIDOriginal {
			return dup("productfavorites")
		}
	}
	f.ID = primitive.NewObjectID()
	m.products = append(m.products, *f)
	return nil
}

func (m *memFavorites) DeleteProduct(ctx context.Context, userID, productID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, f := range m.products {
		if f.UserID == userID && f.ProductIDOriginal == productID {
			m.products = append(m.products[:i], m.products[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (m *memFavorites) ListProducts(ctx context.Context, userID string, skip, limit int64) ([]models.ProductFavorite, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ProductFavorite
	for _, f := range m.products {
		if f.UserID == userID {
			out = append(out, f)
		}
	}
	return window(out, skip, limit), nil
}

func (m *memFavorites) CountProducts(ctx context.Context, userID string) (int64, error) {
	list, _ := m.ListProducts(ctx, userID, 0, 0)
	return int64(len(list)), nil
}

func (m *memFavorites) FindShop(ctx context.Context, userID, shopID string) (*models.ShopFavorite, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range m.shops {
		if f.UserID == userID && f.ShopIDOriginal == shopID {
			cp := f
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memFavorites) InsertShop(ctx context.Context, f *models.ShopFavorite) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.shops {
		if existing.UserID == f.UserID && existing.ShopIDOriginal == f.ShopIDOriginal {
			return dup("shopfavorites")
		}
	}
	f.ID = primitive.NewObjectID()
	m.shops = append(m.shops, *f)
	return nil
}

func (m *memFavorites) DeleteShop(ctx context.Context, userID, shopID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, f := range m.shops {
		if f.UserID == userID && f.ShopIDOriginal == shopID {
			m.shops = append(m.shops[:i], m.shops[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (m *memFavorites) ListShops(ctx context.Context, userID string, skip, limit int64) ([]models.ShopFavorite, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ShopFavorite
	for _, f := range m.shops {
		if f.UserID == userID {
			out = append(out, f)
		}
	}
	return window(out, skip, limit), nil
}

func (m *memFavorites) CountShops(ctx context.Context, userID string) (int64, error) {
	list, _ := m.ListShops(ctx, userID, 0, 0)
	return int64(len(list)), nil
}

func window[T any](items []T, skip, limit int64) []T {
	if skip >= int64(len(items)) {
		return nil
	}
	items = items[skip:]
	if limit > 0 && limit < int64(len(items)) {
		items = items[:limit]
	}
	return items
}

type stubLister struct {
	ids   []string
	err   error
	calls int
	mu    sync.Mutex
}

func (s *stubLister) ListShopIDs(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return s.ids, s.err
}
