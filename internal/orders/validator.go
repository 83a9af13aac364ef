package orders

import (
	"strconv"
	"strings"

	"sheetvault/internal/model"
)

// Validator cleans raw spreadsheet rows into order records. Rows missing an
// order id or customer, or carrying unparseable numbers, are silently
// dropped; callers receive only the accepted records.
type Validator struct{}

func NewValidator() *Validator {
	return &Validator{}
}

func (v *Validator) CleanAndValidate(rows []map[string]string) []model.OrderRow {
	out := make([]model.OrderRow, 0, len(rows))
	for _, row := range rows {
		rec, ok := v.clean(row)
		if !ok {
			continue
		}
		out = append(out, rec)
	}
	return out
}

func (v *Validator) clean(row map[string]string) (model.OrderRow, bool) {
	orderID := strings.TrimSpace(row["order_id"])
	if orderID == "" {
		orderID = strings.TrimSpace(row["order id"])
	}
	customer := strings.TrimSpace(row["customer"])
	if orderID == "" || customer == "" {
		return model.OrderRow{}, false
	}

	rec := model.OrderRow{
		OrderID:  orderID,
		Customer: customer,
		Product:  strings.TrimSpace(row["product"]),
		Quantity: 1,
	}

	if q := row["quantity"]; q != "" {
		n, err := strconv.Atoi(strings.TrimSpace(q))
		if err != nil || n < 0 {
			return model.OrderRow{}, false
		}
		rec.Quantity = n
	}

	if t := row["total"]; t != "" {
		cleaned := strings.NewReplacer("$", "", ",", "", " ", "").Replace(t)
		f, err := strconv.ParseFloat(cleaned, 64)
		if err != nil || f < 0 {
			return model.OrderRow{}, false
		}
		rec.Total = f
	}

	return rec, true
}
