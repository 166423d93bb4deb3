package domain

// ItemKind distinguishes grouping rows from priceable rows in a budget
type ItemKind string

const (
	ItemKindHeader ItemKind = "HEADER"
	ItemKindItem   ItemKind = "ITEM"
)

// Method records which resolution tier produced an item's price
type Method string

const (
	MethodCalculated    Method = "CALCULATED"
	MethodCatalogDirect Method = "CATALOG_DIRECT"
	MethodQuotation     Method = "QUOTATION"
	MethodManual        Method = "MANUAL"
	MethodUnknown       Method = "UNKNOWN"
	MethodSumChildren   Method = "SUM_CHILDREN"
)

// Status qualifies how trustworthy a resolved price is
type Status string

const (
	StatusOK            Status = "OK"
	StatusPartial       Status = "PARTIAL"
	StatusNoComposition Status = "NO_COMPOSITION"
	StatusError         Status = "ERROR"
	StatusHeader        Status = "HEADER"
)

// SourceTag identifies the cost library a price or composition came from
type SourceTag string

const (
	SourceSINAPI SourceTag = "SINAPI"
	SourceCDHU   SourceTag = "CDHU"
	SourceSICRO  SourceTag = "SICRO"
	SourceMarket SourceTag = "MERCADO"
	SourceManual SourceTag = "PO_MANUAL"
)

// RequestedItem is one row of the budget spreadsheet (PO).
// BDIPercent is kept as the fraction stored in the sheet (0.25 means 25%).
type RequestedItem struct {
	Index         string   `json:"index"`
	SourceLibrary string   `json:"source_library"`
	Code          string   `json:"code"`
	Description   string   `json:"description"`
	Unit          string   `json:"unit"`
	Quantity      float64  `json:"quantity"`
	ManualPrice   float64  `json:"manual_price"`
	BDIPercent    float64  `json:"bdi_percent"`
	Kind          ItemKind `json:"kind"`
}

// IsHeader reports whether the row only groups other rows
func (r RequestedItem) IsHeader() bool {
	return r.Kind == ItemKindHeader
}

// PricedItem is a requested item after resolution
type PricedItem struct {
	RequestedItem
	ResolvedPrice float64 `json:"resolved_price"`
	Method        Method  `json:"method"`
	Status        Status  `json:"status"`
}

// LeafPrice is a unit price read directly from a price table
type LeafPrice struct {
	Code  string  `json:"code"`
	Price float64 `json:"price"`
}

// CompositionChild is one weighted component of a composition.
// UnitPrice carries the price printed on the source row, zero when the
// source does not print one. It only prices detail lines whose child no
// library priced; the solver never reads it.
type CompositionChild struct {
	Code        string  `json:"code"`
	Coefficient float64 `json:"coefficient"`
	Description string  `json:"description"`
	Unit        string  `json:"unit"`
	UnitPrice   float64 `json:"unit_price"`
}

// CompositionBlock is a header row with the component rows that followed it
type CompositionBlock struct {
	Code     string             `json:"code"`
	Source   SourceTag          `json:"source"`
	Children []CompositionChild `json:"children"`
}

// SourceFragment is everything one parser extracted from one sheet, in row order
type SourceFragment struct {
	Source       SourceTag          `json:"source"`
	Sheet        string             `json:"sheet"`
	Prices       []LeafPrice        `json:"prices"`
	Compositions []CompositionBlock `json:"compositions"`
	RowsRead     int                `json:"rows_read"`
}

// CompositionDetail is one exported (parent, child) line. Source is the
// library the child's unit price came from; Composition is the library whose
// sheet listed the line.
type CompositionDetail struct {
	ParentCode  string    `json:"parent_code"`
	Source      SourceTag `json:"source"`
	ChildCode   string    `json:"child_code"`
	Description string    `json:"description"`
	Unit        string    `json:"unit"`
	Coefficient float64   `json:"coefficient"`
	UnitPrice   float64   `json:"unit_price"`
	Subtotal    float64   `json:"subtotal"`
	Composition SourceTag `json:"composition_source"`
}

// Quotation is a market price mapped to a budget item index
type Quotation struct {
	ItemIndex   string  `json:"item_index"`
	Code        string  `json:"code"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
}
