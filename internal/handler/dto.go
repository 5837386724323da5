package handler

import "github.com/shopspring/decimal"

type ConvertRequest struct {
	Amount *decimal.Decimal `json:"amount" binding:"required"`
	From   string           `json:"from" binding:"required,currency_code"`
	To     string           `json:"to" binding:"required,currency_code"`
}

type RateQuery struct {
	From string `form:"from" binding:"required,currency_code"`
	To   string `form:"to" binding:"required,currency_code"`
}

type HistoryQuery struct {
	Limit int `form:"limit"`
}
