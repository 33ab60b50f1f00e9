package database

import (
	"context"
	"net"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"multishop-server/config"

	"go.mongodb.org/mongo-driver/event"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Connection 一个逻辑库对应的客户端句柄
type Connection struct {
	name     string
	client   *mongo.Client
	db       *mongo.Database
	openedAt time.Time

	healthy   atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// NewConnection 把已连接的客户端包装为健康的 Connection，client 可为 nil（测试用）
func NewConnection(name string, client *mongo.Client) *Connection {
	c := &Connection{name: name, openedAt: time.Now()}
	c.bind(client)
	c.healthy.Store(true)
	return c
}

func (c *Connection) bind(client *mongo.Client) {
	c.client = client
	if client != nil {
		c.db = client.Database(c.name)
	}
}

func (c *Connection) Name() string { return c.name }

func (c *Connection) Client() *mongo.Client { return c.client }

func (c *Connection) Database() *mongo.Database { return c.db }

func (c *Connection) OpenedAt() time.Time { return c.openedAt }

func (c *Connection) Healthy() bool { return c.healthy.Load() }

func (c *Connection) markUnhealthy() { c.healthy.Store(false) }

// Disconnect 只执行一次，重复调用返回第一次的结果
func (c *Connection) Disconnect(ctx context.Context) error {
	c.closeOnce.Do(func() {
		c.markUnhealthy()
		if c.client != nil {
			c.closeErr = c.client.Disconnect(ctx)
		}
	})
	return c.closeErr
}

// BuildURI mongodb://[user:pass@]host:port/dbName?authSource=admin&directConnection=true
func BuildURI(cfg config.Mongo, dbName string) string {
	u := url.URL{
		Scheme: "mongodb",
		Host:   net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:   "/" + dbName,
	}
	if cfg.User != "" {
		u.User = url.UserPassword(cfg.User, cfg.Password)
	}
	q := url.Values{}
	if cfg.AuthSource != "" {
		q.Set("authSource", cfg.AuthSource)
	}
	q.Set("directConnection", strconv.FormatBool(cfg.DirectConnection))
	u.RawQuery = q.Encode()
	return u.String()
}

// Dialer 建立到某个库的客户端，monitor 必须挂到客户端上以便注册表感知断连
type Dialer func(ctx context.Context, dbName, uri string, monitor *event.ServerMonitor) (*mongo.Client, error)

// MongoDialer 带连接池参数与 ping 校验的默认 Dialer
func MongoDialer(cfg config.Mongo) Dialer {
	return func(ctx context.Context, dbName, uri string, monitor *event.ServerMonitor) (*mongo.Client, error) {
		opts := options.Client().
			ApplyURI(uri).
			SetMaxPoolSize(cfg.MaxPoolSize).
			SetMinPoolSize(cfg.MinPoolSize).
			SetConnectTimeout(cfg.ConnectTimeout).
			SetSocketTimeout(cfg.SocketTimeout).
			SetServerMonitor(monitor).
			SetBSONOptions(&options.BSONOptions{DefaultDocumentM: true})

		client, err := mongo.Connect(ctx, opts)
		if err != nil {
			return nil, err
		}

		pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
		defer cancel()
		if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, err
		}
		return client, nil
	}
}
