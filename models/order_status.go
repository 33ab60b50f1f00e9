package models

const (
	StatusToPay           = "to_pay"
	StatusToShip          = "to_ship"
	StatusToReceive       = "to_receive"
	StatusCompleted       = "completed"
	StatusCancelled       = "cancelled"
	StatusRefundRequest   = "refund_request"
	StatusRefundApproved  = "refund_approved"
	StatusRefundCompleted = "refund_completed"

	// StatusShipped 只作为请求值，落库为 to_receive
	StatusShipped = "shipped"
)

var orderStatuses = []string{
	StatusToPay, StatusToShip, StatusToReceive, StatusCompleted, StatusCancelled,
	StatusRefundRequest, StatusRefundApproved, StatusRefundCompleted,
}

// RefundStatuses 计数接口里合并为 refund
var RefundStatuses = []string{StatusRefundRequest, StatusRefundApproved, StatusRefundCompleted}

// 创建订单时允许客户端指定的初始状态
var createStatuses = map[string]struct{}{StatusToPay: {}, StatusToShip: {}}

var orderTransitions = map[string][]string{
	StatusToPay:          {StatusToShip, StatusCancelled},
	StatusToShip:         {StatusToReceive, StatusCompleted, StatusCancelled, StatusRefundRequest},
	StatusToReceive:      {StatusCompleted, StatusRefundRequest},
	StatusCompleted:      {StatusRefundRequest},
	StatusRefundRequest:  {StatusRefundApproved, StatusToShip, StatusToReceive, StatusCompleted},
	StatusRefundApproved: {StatusRefundCompleted},
}

func OrderStatuses() []string {
	out := make([]string, len(orderStatuses))
	copy(out, orderStatuses)
	return out
}

func IsOrderStatus(s string) bool {
	for _, st := range orderStatuses {
		if st == s {
			return true
		}
	}
	return false
}

// NormalizeRequestedStatus 把请求中的状态转换为落库状态，不认识的状态返回 false
func NormalizeRequestedStatus(s string) (string, bool) {
	if s == StatusShipped {
		return StatusToReceive, true
	}
	return s, IsOrderStatus(s)
}

// InitialStatus 创建订单的初始状态，不在允许列表内时为 to_pay
func InitialStatus(requested string) string {
	if _, ok := createStatuses[requested]; ok {
		return requested
	}
	return StatusToPay
}

// CanTransition 状态不变总是允许
func CanTransition(from, to string) bool {
	if from == to {
		return true
	}
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
