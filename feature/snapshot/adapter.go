package snapshot

import (
	"fmt"
	"time"

	"price-pipeline/core/reconcile"
	"price-pipeline/core/utils"
	"price-pipeline/feature/pricefile"
)

// priceAdapter diffs snapshot rows by product id.
type priceAdapter struct{}

var _ reconcile.Adapter[CurrentStateRow] = priceAdapter{}

func (priceAdapter) Name() string { return "current_state" }

func (priceAdapter) Key(row CurrentStateRow) string { return row.ProductID }

// CompareFields compares the tracked attributes. Prices compare by value, so 10 and
// 10.00 are equal.
func (priceAdapter) CompareFields(stored, incoming CurrentStateRow) []string {
	var diffs []string
	if !stored.Price.Equal(incoming.Price) {
		diffs = append(diffs, fmt.Sprintf("price: stored=%s incoming=%s", stored.Price, incoming.Price))
	}
	if stored.StockQuantity != incoming.StockQuantity {
		diffs = append(diffs, fmt.Sprintf("stockQuantity: stored=%d incoming=%d", stored.StockQuantity, incoming.StockQuantity))
	}
	for _, f := range []struct{ name, s, in string }{
		{"productName", stored.ProductName, incoming.ProductName},
		{"description", stored.Description, incoming.Description},
		{"category", stored.Category, incoming.Category},
		{"manufacturer", stored.Manufacturer, incoming.Manufacturer},
		{"supplierCode", stored.SupplierCode, incoming.SupplierCode},
		{"currency", stored.Currency, incoming.Currency},
	} {
		if f.s != f.in {
			diffs = append(diffs, fmt.Sprintf("%s: stored=%q incoming=%q", f.name, f.s, f.in))
		}
	}
	return diffs
}

// rowsFrom converts items to snapshot rows. A repeated product id keeps the position
// of its first occurrence and the values of its last.
func rowsFrom(company, batchID string, fileProcessedAt time.Time, items []pricefile.PriceItem) []CurrentStateRow {
	company = utils.NormalizeCompany(company)
	rows := make([]CurrentStateRow, 0, len(items))
	pos := make(map[string]int, len(items))
	for _, item := range items {
		row := CurrentStateRow{
			Company:         company,
			ProductID:       item.ProductID,
			ItemID:          item.ItemID,
			ProductName:     item.ProductName,
			Price:           item.Price,
			Currency:        item.Currency,
			StockQuantity:   item.StockQuantity,
			Category:        item.Category,
			Manufacturer:    item.Manufacturer,
			SupplierCode:    item.SupplierCode,
			Description:     item.Description,
			BatchID:         batchID,
			FileProcessedAt: fileProcessedAt.UTC(),
		}
		if i, ok := pos[row.ProductID]; ok {
			rows[i] = row
			continue
		}
		pos[row.ProductID] = len(rows)
		rows = append(rows, row)
	}
	return rows
}

// deltaFrom turns a plan into a delta.
func deltaFrom(plan *reconcile.Plan[CurrentStateRow]) Delta {
	d := Delta{
		Added:   plan.Items(reconcile.ActionAdd),
		Updated: plan.Items(reconcile.ActionUpdate),
	}
	d.DeletedIDs = plan.Keys(reconcile.ActionDelete)
	return d
}
