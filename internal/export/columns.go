package export

import (
	"github.com/fulingwei1/non-standard-automation-pms-sub014/internal/page"
)

// ArrivalColumns lays out the arrivals download.
func ArrivalColumns() []Column[page.ArrivalRow] {
	return []Column[page.ArrivalRow]{
		{Header: "到货单号", Width: 16, Value: func(r page.ArrivalRow) any { return r.ArrivalNo }},
		{Header: "物料编码", Width: 16, Value: func(r page.ArrivalRow) any { return r.MaterialCode }},
		{Header: "物料名称", Width: 24, Value: func(r page.ArrivalRow) any { return r.MaterialName }},
		{Header: "供应商", Width: 20, Value: func(r page.ArrivalRow) any { return r.SupplierName }},
		{Header: "项目", Width: 20, Value: func(r page.ArrivalRow) any { return r.ProjectName }},
		{Header: "应到数量", Width: 10, Value: func(r page.ArrivalRow) any { return r.ExpectedQty }},
		{Header: "已到数量", Width: 10, Value: func(r page.ArrivalRow) any { return r.ReceivedQty }},
		{Header: "预计到货", Width: 12, Value: func(r page.ArrivalRow) any { return r.ExpectedText }},
		{Header: "延期天数", Width: 10, Value: func(r page.ArrivalRow) any { return r.DelayDays }},
		{Header: "状态", Width: 10, Value: func(r page.ArrivalRow) any { return r.Badge.Label }},
	}
}

// PurchaseOrderColumns lays out the purchase order download.
func PurchaseOrderColumns() []Column[page.PurchaseOrderRow] {
	return []Column[page.PurchaseOrderRow]{
		{Header: "订单号", Width: 18, Value: func(r page.PurchaseOrderRow) any { return r.OrderNo }},
		{Header: "供应商", Width: 20, Value: func(r page.PurchaseOrderRow) any { return r.SupplierName }},
		{Header: "项目", Width: 20, Value: func(r page.PurchaseOrderRow) any { return r.ProjectName }},
		{Header: "金额", Width: 14, Value: func(r page.PurchaseOrderRow) any { return r.TotalAmount.InexactFloat64() }},
		{Header: "下单日期", Width: 12, Value: func(r page.PurchaseOrderRow) any { return r.OrderText }},
		{Header: "要求到货", Width: 12, Value: func(r page.PurchaseOrderRow) any { return r.RequiredText }},
		{Header: "明细数", Width: 8, Value: func(r page.PurchaseOrderRow) any { return r.ItemCount }},
		{Header: "状态", Width: 10, Value: func(r page.PurchaseOrderRow) any { return r.Badge.Label }},
	}
}
