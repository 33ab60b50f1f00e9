package services

import (
	"context"
	"fmt"
	"strings"

	"multishop-server/models"

	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

const exportSheet = "订单详情"

const exportTimeLayout = "2006-01-02 15:04:05"

var exportTitles = []string{
	"订单号", "用户", "订单状态", "订单金额", "运费", "手续费",
	"创建时间", "支付时间", "商品ID", "商品名称", "单价", "数量", "规格",
	"收件人", "联系电话", "收件地址", "备注",
}

// ExportOrders 生成店铺订单表格，每个订单商品占一行
func (s *ShopService) ExportOrders(ctx context.Context, shopID, status string) (*excelize.File, error) {
	query := OrderQuery{ShopID: shopID, SortField: "create_time", SortDesc: true}
	if status != "" {
		query.Statuses = []string{status}
	}
	orders, err := s.orders.List(ctx, query)
	if err != nil {
		return nil, internalErr(s.log, "exportOrders", logrus.Fields{"shop_id": shopID}, err)
	}

	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), exportSheet); err != nil {
		return nil, fmt.Errorf("创建工作表失败: %w", err)
	}
	for i, title := range exportTitles {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(exportSheet, cell, title); err != nil {
			return nil, fmt.Errorf("写入表头失败: %w", err)
		}
	}

	row := 2
	for i := range orders {
		o := &orders[i]
		for _, item := range o.OrderItems {
			values := []interface{}{
				o.OrderNo, o.UserID, o.Status, o.TotalAmount, o.ShippingFee, o.HandlingFee,
				o.CreateTime.Format(exportTimeLayout), payTime(o),
				item.ProductIDOriginal, item.ProductSnapshot.Name, item.Price, item.Count, specText(item),
				addressField(o, "name"), addressField(o, "phone"), fullAddress(o), o.Remark,
			}
			for col, v := range values {
				cell, _ := excelize.CoordinatesToCellName(col+1, row)
				if err := f.SetCellValue(exportSheet, cell, v); err != nil {
					return nil, fmt.Errorf("写入订单 %s 失败: %w", o.OrderNo, err)
				}
			}
			row++
		}
	}

	f.SetActiveSheet(0)
	s.log.WithFields(logrus.Fields{"shop_id": shopID, "orders": len(orders), "rows": row - 2}).Info("订单导出完成")
	return f, nil
}

func payTime(o *models.Order) string {
	if o.PayTime == nil {
		return ""
	}
	return o.PayTime.Format(exportTimeLayout)
}

func addressField(o *models.Order, key string) string {
	v, ok := o.AddressSnapshot[key]
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

func fullAddress(o *models.Order) string {
	parts := make([]string, 0, 4)
	for _, key := range []string{"province", "city", "district", "address"} {
		if v := addressField(o, key); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, " ")
}
