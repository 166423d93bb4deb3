package exporter

import (
	"fmt"

	"pricingcli/pkg/contracts/domain"
)

// PricedItemHeaders is the column order of the services table
var PricedItemHeaders = []string{
	"index",
	"source_library",
	"code",
	"description",
	"unit",
	"quantity",
	"manual_price",
	"bdi_percent",
	"kind",
	"resolved_price",
	"method",
	"status",
}

// DetailHeaders is the column order of the composition detail table
var DetailHeaders = []string{
	"parent_code",
	"source",
	"child_code",
	"description",
	"unit",
	"coefficient",
	"unit_price",
	"subtotal",
	"composition_source",
}

// PricedItemRecords converts priced items to CSV records
func PricedItemRecords(items []domain.PricedItem) [][]string {
	records := make([][]string, 0, len(items))
	for _, it := range items {
		records = append(records, []string{
			it.Index,
			it.SourceLibrary,
			it.Code,
			it.Description,
			it.Unit,
			formatFloat(it.Quantity),
			formatFloat(it.ManualPrice),
			formatFloat(it.BDIPercent),
			string(it.Kind),
			formatFloat(it.ResolvedPrice),
			string(it.Method),
			string(it.Status),
		})
	}
	return records
}

// DetailRecords converts composition detail rows to CSV records
func DetailRecords(details []domain.CompositionDetail) [][]string {
	records := make([][]string, 0, len(details))
	for _, d := range details {
		records = append(records, []string{
			d.ParentCode,
			string(d.Source),
			d.ChildCode,
			d.Description,
			d.Unit,
			formatFloat(d.Coefficient),
			formatFloat(d.UnitPrice),
			formatFloat(d.Subtotal),
			string(d.Composition),
		})
	}
	return records
}

// pricedItemFromRecord is the inverse of PricedItemRecords for one row
func pricedItemFromRecord(rec []string) (domain.PricedItem, error) {
	if len(rec) < len(PricedItemHeaders) {
		return domain.PricedItem{}, fmt.Errorf("expected %d columns, got %d", len(PricedItemHeaders), len(rec))
	}

	var nums [4]float64
	for i, col := range []int{5, 6, 7, 9} {
		v, err := parseFloat(rec[col])
		if err != nil {
			return domain.PricedItem{}, fmt.Errorf("column %s: %w", PricedItemHeaders[col], err)
		}
		nums[i] = v
	}

	return domain.PricedItem{
		RequestedItem: domain.RequestedItem{
			Index:         rec[0],
			SourceLibrary: rec[1],
			Code:          rec[2],
			Description:   rec[3],
			Unit:          rec[4],
			Quantity:      nums[0],
			ManualPrice:   nums[1],
			BDIPercent:    nums[2],
			Kind:          domain.ItemKind(rec[8]),
		},
		ResolvedPrice: nums[3],
		Method:        domain.Method(rec[10]),
		Status:        domain.Status(rec[11]),
	}, nil
}

// detailFromRecord is the inverse of DetailRecords for one row
func detailFromRecord(rec []string) (domain.CompositionDetail, error) {
	if len(rec) < len(DetailHeaders) {
		return domain.CompositionDetail{}, fmt.Errorf("expected %d columns, got %d", len(DetailHeaders), len(rec))
	}

	var nums [3]float64
	for i, col := range []int{5, 6, 7} {
		v, err := parseFloat(rec[col])
		if err != nil {
			return domain.CompositionDetail{}, fmt.Errorf("column %s: %w", DetailHeaders[col], err)
		}
		nums[i] = v
	}

	return domain.CompositionDetail{
		ParentCode:  rec[0],
		Source:      domain.SourceTag(rec[1]),
		ChildCode:   rec[2],
		Description: rec[3],
		Unit:        rec[4],
		Coefficient: nums[0],
		UnitPrice:   nums[1],
		Subtotal:    nums[2],
		Composition: domain.SourceTag(rec[8]),
	}, nil
}
