package model

// SalesTotals is the output-tax side of one period as seen by the aggregation port.
type SalesTotals struct {
	NetCents        int64 `json:"net_cents"`
	TaxCents        int64 `json:"tax_cents"`
	IntraEUNetCents int64 `json:"intra_eu_net_cents"` // 역내 공급가액 (세액 없음)
	DocumentCount   int   `json:"document_count"`
}

// PurchaseTotals is the input-tax side of one period.
type PurchaseTotals struct {
	NetCents int64 `json:"net_cents"`
	TaxCents int64 `json:"tax_cents"`
	Count    int   `json:"count"`
}

// IntraEUSupply is the intra-community supply total to one customer country.
type IntraEUSupply struct {
	CountryCode   string `json:"country_code"`
	NetCents      int64  `json:"net_cents"`
	DocumentCount int    `json:"document_count"`
}
