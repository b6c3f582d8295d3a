package models

// Requests for the signals HTTP endpoints. Defined in domain for consistency
// and reuse between handlers.

type SignalRequest struct {
	Symbol   string `query:"symbol" json:"symbol" validate:"required"`
	Quantity int    `query:"quantity" json:"quantity" default:"0" validate:"gte=0"`
	N        int    `query:"n" json:"n" default:"100" validate:"gte=1,lte=5000"`
	TF       string `query:"tf" json:"tf" default:"1m" validate:"oneof=1s 1m 5m 1d"`
}

type ScanRequest struct {
	Symbols []string `query:"symbols" json:"symbols" validate:"required,min=1,max=50,dive,required"`
	N       int      `query:"n" json:"n" default:"100" validate:"gte=1,lte=5000"`
	TF      string   `query:"tf" json:"tf" default:"1m" validate:"oneof=1s 1m 5m 1d"`
}

type ConsensusRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
	N      int    `query:"n" json:"n" default:"100" validate:"gte=1,lte=5000"`
	TF     string `query:"tf" json:"tf" default:"1m" validate:"oneof=1s 1m 5m 1d"`
}
