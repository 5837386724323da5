package cbr

import (
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

type ValCurs struct {
	XMLName xml.Name `xml:"ValCurs"`
	Date    string   `xml:"Date,attr"`
	Name    string   `xml:"name,attr"`
	Valutes []Valute `xml:"Valute"`
}

type Valute struct {
	ID        string `xml:"ID,attr"`
	NumCode   string `xml:"NumCode"`
	CharCode  string `xml:"CharCode"`
	Nominal   int    `xml:"Nominal"`
	Name      string `xml:"Name"`
	Value     string `xml:"Value"`
	VunitRate string `xml:"VunitRate"`
}

// GetValue parses the comma-decimal RUB value of Nominal units.
func (v Valute) GetValue() (decimal.Decimal, error) {
	return decimal.NewFromString(strings.Replace(strings.TrimSpace(v.Value), ",", ".", -1))
}

// UnitRate is the RUB price of a single unit of the currency.
func (v Valute) UnitRate() (decimal.Decimal, error) {
	value, err := v.GetValue()
	if err != nil {
		return decimal.Zero, err
	}
	if v.Nominal <= 0 {
		return decimal.Zero, fmt.Errorf("invalid nominal %d for %s", v.Nominal, v.CharCode)
	}
	return value.Div(decimal.NewFromInt(int64(v.Nominal))), nil
}

// RubRate returns the RUB price of one unit of code. RUB itself is 1.
func (vc ValCurs) RubRate(code string) (decimal.Decimal, error) {
	if code == BaseCurrency {
		return decimal.NewFromInt(1), nil
	}
	for _, v := range vc.Valutes {
		if v.CharCode == code {
			rate, err := v.UnitRate()
			if err != nil {
				return decimal.Zero, fmt.Errorf("parse %s: %w", code, err)
			}
			if !rate.IsPositive() {
				return decimal.Zero, fmt.Errorf("non-positive rate for %s", code)
			}
			return rate, nil
		}
	}
	return decimal.Zero, fmt.Errorf("currency %s not quoted by CBR", code)
}
