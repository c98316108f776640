package models

// Requests for dashboard HTTP endpoints.

type DashboardRequest struct {
	Symbol   string `query:"symbol" json:"symbol" validate:"required,alphanum,max=16"`
	Address  string `query:"address" json:"address" validate:"omitempty,alphanum,max=128"`
	Interval string `query:"interval" json:"interval" default:"1d" validate:"oneof=1h 4h 12h 1d 3d 1w"`
	Limit    int    `query:"limit" json:"limit" default:"180" validate:"gte=2,lte=1000"`
}

type WalletRequest struct {
	Symbol  string `query:"symbol" json:"symbol" validate:"required,oneof=BTC ETH btc eth"`
	Address string `query:"address" json:"address" validate:"required,alphanum,max=128"`
}

type SelectionRequest struct {
	SessionID string `param:"id" json:"-" validate:"required,max=64"`
	Symbol    string `json:"symbol" validate:"required,alphanum,max=16"`
	Address   string `json:"address" validate:"omitempty,alphanum,max=128"`
}

type SessionRequest struct {
	SessionID string `param:"id" validate:"required,max=64"`
}

// Selection is the coin a session last viewed.
type Selection struct {
	Symbol  string `json:"symbol"`
	Address string `json:"address,omitempty"`
}
