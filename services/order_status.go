package services

import (
	"context"
	"time"

	"multishop-server/common"
	"multishop-server/models"

	"go.mongodb.org/mongo-driver/bson"
)

// statusUpdater 用户端与店铺端共用的订单状态变更逻辑
type statusUpdater struct {
	orders OrderStore
	strict bool
	now    func() time.Time
}

func (u *statusUpdater) apply(ctx context.Context, o *models.Order, requested, reason string) (*models.Order, error) {
	target, ok := models.NormalizeRequestedStatus(requested)
	if !ok {
		return nil, common.Validation("无效的订单状态: "+requested, nil)
	}
	if u.strict && !models.CanTransition(o.Status, target) {
		return nil, common.InvalidTransition(o.Status, target)
	}
	updated, err := u.orders.Apply(ctx, o.ID, o.Status, transitionSet(o, target, reason, u.now()))
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, common.Conflict("订单状态已被修改，请刷新后重试", nil)
	}
	return updated, nil
}

// transitionSet 时间戳只在首次进入对应状态时写入
func transitionSet(o *models.Order, target, reason string, now time.Time) bson.M {
	set := bson.M{"status": target, "update_time": now}
	switch target {
	case models.StatusToShip:
		if o.PayTime == nil {
			set["pay_time"] = now
		}
	case models.StatusToReceive:
		if o.ShipTime == nil {
			set["ship_time"] = now
		}
	case models.StatusCompleted:
		if o.CompleteTime == nil {
			set["complete_time"] = now
		}
		if o.PayTime == nil {
			set["pay_time"] = now
		}
		if o.ShipTime == nil {
			set["ship_time"] = now
		}
	case models.StatusCancelled:
		if o.CancelTime == nil {
			set["cancel_time"] = now
		}
		if reason != "" {
			set["cancel_reason"] = reason
		}
	}
	return set
}
