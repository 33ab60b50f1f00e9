package tasks

import (
	"context"
	"fmt"
	"time"

	"multishop-server/config"
	"multishop-server/services"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const sweepRunTimeout = 2 * time.Minute

type OrderSweeper interface {
	SweepStale(ctx context.Context, payTimeout time.Duration) (services.SweepResult, error)
}

// OrderSweepTask 定时取消超时未支付的订单
type OrderSweepTask struct {
	sweeper OrderSweeper
	cfg     config.Order
	cron    *cron.Cron
	log     *logrus.Entry
}

// NewOrderSweepTask 创建订单超时清理任务
func NewOrderSweepTask(sweeper OrderSweeper, cfg config.Order, log *logrus.Entry) *OrderSweepTask {
	return &OrderSweepTask{
		sweeper: sweeper,
		cfg:     cfg,
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithChain(cron.SkipIfStillRunning(cron.PrintfLogger(log))),
		),
		log: log,
	}
}

// Start 立即执行一次，之后按 cron 表达式执行
func (t *OrderSweepTask) Start() error {
	if _, err := t.cron.AddFunc(t.cfg.SweepCron, t.run); err != nil {
		return fmt.Errorf("无效的订单清理周期 %q: %w", t.cfg.SweepCron, err)
	}
	go t.run()
	t.cron.Start()
	t.log.WithFields(logrus.Fields{"cron": t.cfg.SweepCron, "pay_timeout": t.cfg.PayTimeout.String()}).Info("订单超时清理任务已启动")
	return nil
}

// Stop 等待正在执行的任务结束
func (t *OrderSweepTask) Stop() {
	<-t.cron.Stop().Done()
	t.log.Info("订单超时清理任务已停止")
}

func (t *OrderSweepTask) run() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepRunTimeout)
	defer cancel()
	t.RunOnce(ctx)
}

// RunOnce 执行一次清理，错误只记录日志
func (t *OrderSweepTask) RunOnce(ctx context.Context) services.SweepResult {
	res, err := t.sweeper.SweepStale(ctx, t.cfg.PayTimeout)
	if err != nil {
		t.log.WithError(err).Error("清理超时订单失败")
		return res
	}
	if res.Cancelled > 0 {
		t.log.WithFields(logrus.Fields{"cancelled": res.Cancelled, "total_amount": res.TotalAmount}).Info("已取消超时未支付订单")
	}
	return res
}
