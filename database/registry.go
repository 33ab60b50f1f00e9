package database

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"multishop-server/common"
	"multishop-server/config"
	"multishop-server/registry"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/event"
	"golang.org/x/sync/singleflight"
)

const closeTimeout = 10 * time.Second

// 店铺ID会拼进数据库名，限制字符集与长度
var shopIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,48}$`)

// CheckShopID 店铺ID为空或含非法字符时返回 400
func CheckShopID(shopID string) error {
	if shopID == "" {
		return common.Validation("店铺ID不能为空", nil)
	}
	if !shopIDPattern.MatchString(shopID) {
		return common.Validation("无效的店铺ID: "+shopID, nil)
	}
	return nil
}

// Registry 逻辑库名到连接的映射：首次使用时建立，健康时复用，断连时移除
type Registry struct {
	cfg   config.Mongo
	dial  Dialer
	log   *logrus.Entry
	conns *registry.Registry[*Connection]
	group singleflight.Group
}

type Option func(*Registry)

// WithDialer 替换默认的 Mongo 拨号实现
func WithDialer(d Dialer) Option {
	return func(r *Registry) { r.dial = d }
}

func NewRegistry(cfg config.Mongo, log *logrus.Entry, opts ...Option) *Registry {
	r := &Registry{
		cfg:   cfg,
		dial:  MongoDialer(cfg),
		log:   log,
		conns: registry.New[*Connection](),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Get 返回 dbName 对应的健康连接；同一库名同一时刻只有一次拨号在进行
func (r *Registry) Get(ctx context.Context, dbName string) (*Connection, error) {
	if dbName == "" {
		return nil, errors.New("数据库名不能为空")
	}
	if conn, ok := r.conns.Get(dbName); ok {
		if conn.Healthy() {
			return conn, nil
		}
		r.drop(conn)
	}

	ch := r.group.DoChan(dbName, func() (interface{}, error) {
		if conn, ok := r.conns.Get(dbName); ok && conn.Healthy() {
			return conn, nil
		}
		// 拨号不跟随单个调用方取消，其他等待者共享结果
		dialCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.cfg.ConnectTimeout+r.cfg.PingTimeout)
		defer cancel()
		return r.open(dialCtx, dbName)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Connection), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (r *Registry) open(ctx context.Context, dbName string) (*Connection, error) {
	conn := &Connection{name: dbName, openedAt: time.Now()}
	conn.healthy.Store(true)
	monitor := &event.ServerMonitor{
		ServerHeartbeatFailed: func(e *event.ServerHeartbeatFailedEvent) {
			r.log.WithFields(logrus.Fields{"db": dbName, "error": e.Failure}).Warn("数据库心跳失败，移除连接")
			r.evict(conn)
		},
		ServerClosed: func(*event.ServerClosedEvent) {
			r.evict(conn)
		},
	}

	client, err := r.dial(ctx, dbName, BuildURI(r.cfg, dbName), monitor)
	if err != nil {
		r.log.WithFields(logrus.Fields{"db": dbName, "error": err}).Error("连接数据库失败")
		return nil, fmt.Errorf("连接数据库 %s 失败: %w", dbName, err)
	}
	conn.bind(client)

	// 拨号期间如果已收到断连事件，不再放入注册表
	if !conn.Healthy() {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("连接数据库 %s 失败: 连接建立后立即断开", dbName)
	}
	_, _ = r.conns.Register(dbName, conn)
	r.log.WithField("db", dbName).Info("数据库连接成功")
	return conn, nil
}

// evict 由驱动事件回调触发：只移除仍在注册表中的同一个连接，然后异步断开
func (r *Registry) evict(conn *Connection) {
	conn.markUnhealthy()
	if r.conns.DeleteIf(conn.name, func(c *Connection) bool { return c == conn }) {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
			defer cancel()
			_ = conn.Disconnect(ctx)
		}()
	}
}

func (r *Registry) drop(conn *Connection) {
	r.conns.DeleteIf(conn.name, func(c *Connection) bool { return c == conn })
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	if err := conn.Disconnect(ctx); err != nil {
		r.log.WithFields(logrus.Fields{"db": conn.name, "error": err}).Warn("关闭失效连接出错")
	}
}

// Close 关闭并移除单个库的连接
func (r *Registry) Close(ctx context.Context, dbName string) error {
	conn, ok := r.conns.Delete(dbName)
	if !ok {
		return nil
	}
	return conn.Disconnect(ctx)
}

// CloseAll 关闭全部连接并清空注册表
func (r *Registry) CloseAll(ctx context.Context) error {
	var errs []error
	for name, conn := range r.conns.Drain() {
		if err := conn.Disconnect(ctx); err != nil {
			errs = append(errs, fmt.Errorf("关闭 %s 失败: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// Names 当前注册的库名
func (r *Registry) Names() []string {
	return r.conns.Names()
}

func (r *Registry) UserDB(ctx context.Context) (*Connection, error) {
	return r.Get(ctx, r.cfg.UserDBName)
}

func (r *Registry) OrdersDB(ctx context.Context) (*Connection, error) {
	return r.Get(ctx, r.cfg.OrdersDBName)
}

func (r *Registry) ShopDB(ctx context.Context, shopID string) (*Connection, error) {
	if err := CheckShopID(shopID); err != nil {
		return nil, err
	}
	return r.Get(ctx, r.ShopDBName(shopID))
}

// ShopDBName 店铺库名为 prefix_shopId
func (r *Registry) ShopDBName(shopID string) string {
	return r.cfg.ShopDBPrefix + "_" + shopID
}

// ShopIDFromDBName 从库名解析店铺ID，模板库与非店铺库返回 false
func (r *Registry) ShopIDFromDBName(dbName string) (string, bool) {
	if dbName == r.cfg.ShopTemplateDB {
		return "", false
	}
	id, ok := strings.CutPrefix(dbName, r.cfg.ShopDBPrefix+"_")
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// FilterShopIDs 从库名列表中挑出店铺ID并排序
func (r *Registry) FilterShopIDs(dbNames []string) []string {
	ids := make([]string, 0, len(dbNames))
	for _, name := range dbNames {
		if id, ok := r.ShopIDFromDBName(name); ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// ListShopIDs 通过用户库所在的服务器列出全部店铺库
func (r *Registry) ListShopIDs(ctx context.Context) ([]string, error) {
	conn, err := r.UserDB(ctx)
	if err != nil {
		return nil, err
	}
	if conn.Client() == nil {
		return nil, errors.New("用户库连接不可用")
	}
	filter := bson.D{{Key: "name", Value: bson.D{{Key: "$regex", Value: "^" + regexp.QuoteMeta(r.cfg.ShopDBPrefix+"_")}}}}
	names, err := conn.Client().ListDatabaseNames(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("列出店铺数据库失败: %w", err)
	}
	return r.FilterShopIDs(names), nil
}
