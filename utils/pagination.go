package utils

import (
	"math"
	"strconv"
)

// Pagination 列表接口返回的分页信息
type Pagination struct {
	CurrentPage int   `json:"currentPage"`
	TotalPages  int   `json:"totalPages"`
	TotalItems  int64 `json:"totalItems"`
	Limit       int   `json:"limit"`
}

// OrderPagination 订单列表沿用 totalOrders 字段名
type OrderPagination struct {
	CurrentPage int   `json:"currentPage"`
	TotalPages  int   `json:"totalPages"`
	TotalOrders int64 `json:"totalOrders"`
	Limit       int   `json:"limit"`
}

func NewPagination(page, limit int, total int64) Pagination {
	return Pagination{CurrentPage: page, TotalPages: TotalPages(total, limit), TotalItems: total, Limit: limit}
}

func NewOrderPagination(page, limit int, total int64) OrderPagination {
	return OrderPagination{CurrentPage: page, TotalPages: TotalPages(total, limit), TotalOrders: total, Limit: limit}
}

const maxPageSize = 100

// ParsePage 解析 page/limit，非法值退回默认
func ParsePage(pageStr, limitStr string, defaultLimit int) (page, limit int) {
	page, err := strconv.Atoi(pageStr)
	if err != nil || page < 1 {
		page = 1
	}
	limit, err = strconv.Atoi(limitStr)
	if err != nil || limit < 1 {
		limit = defaultLimit
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return page, limit
}

func Skip(page, limit int) int64 {
	return int64((page - 1) * limit)
}

func TotalPages(total int64, limit int) int {
	if limit <= 0 {
		return 0
	}
	return int(math.Ceil(float64(total) / float64(limit)))
}
