package errors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// moneyGuards names the constraints that stop a double credit or a negative
// balance, so a log line says which rule tripped.
var moneyGuards = map[string]string{
	"ux_seller_payouts_order_seller":     "seller payout already recorded for order",
	"ux_promotor_payouts_order_promotor": "promotor commission already recorded for order",
	"ux_driver_earnings_order_type":      "driver earning already recorded for order",
	"ux_coupon_redemptions_slot":         "coupon redemption slot taken",
	"ux_coupon_redemptions_order":        "coupon already redeemed on order",
	"chk_users_wallet_non_negative":      "buyer wallet would go negative",
	"chk_drivers_balance_non_negative":   "driver balance would go negative",
	"chk_drivers_pending_non_negative":   "driver pending payout would go negative",
	"chk_sellers_pending_non_negative":   "seller pending payout would go negative",
	"chk_promotors_pending_non_negative": "promotor pending payout would go negative",
	"chk_orders_payment_split":           "wallet and cash split does not add up",
	"chk_payout_batches_total_positive":  "payout batch total must be positive",
	"chk_withdraws_amount_positive":      "withdrawal amount must be positive",
}

// ErrorDump flattens an error for structured logs: the typed code and reason,
// any paise amounts from the details, and the Postgres error underneath.
type ErrorDump struct {
	TopMessage string           `json:"top_message"`
	Code       Code             `json:"code,omitempty"`
	Reason     Reason           `json:"reason,omitempty"`
	Retryable  bool             `json:"retryable,omitempty"`
	Amounts    map[string]int64 `json:"amounts,omitempty"`

	Chain []string `json:"chain,omitempty"`

	PGCode       string `json:"pg_code,omitempty"`
	PGConstraint string `json:"pg_constraint,omitempty"`
	PGTable      string `json:"pg_table,omitempty"`
	PGColumn     string `json:"pg_column,omitempty"`
	PGDetail     string `json:"pg_detail,omitempty"`
	PGMessage    string `json:"pg_message,omitempty"`
	MoneyGuard   string `json:"money_guard,omitempty"`
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}

	d := ErrorDump{
		TopMessage: err.Error(),
	}

	if te := As(err); te != nil {
		d.Code = te.Code()
		d.Reason = ReasonOf(te)
		d.Retryable = MetadataFor(te.Code()).Retryable
		d.Amounts = paiseAmounts(te.Details())
	}

	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}

	var pgxErr *pgconn.PgError
	var pqErr *pq.Error
	switch {
	case errors.As(err, &pgxErr):
		d.PGCode = pgxErr.Code
		d.PGConstraint = pgxErr.ConstraintName
		d.PGTable = pgxErr.TableName
		d.PGColumn = pgxErr.ColumnName
		d.PGDetail = pgxErr.Detail
		d.PGMessage = pgxErr.Message
	case errors.As(err, &pqErr):
		d.PGCode = string(pqErr.Code)
		d.PGConstraint = pqErr.Constraint
		d.PGTable = pqErr.Table
		d.PGColumn = pqErr.Column
		d.PGDetail = pqErr.Detail
		d.PGMessage = pqErr.Message
	}
	d.MoneyGuard = moneyGuards[d.PGConstraint]
	return d
}

// paiseAmounts picks the integer *_paise entries out of a details map.
func paiseAmounts(details any) map[string]int64 {
	m, ok := details.(map[string]any)
	if !ok {
		return nil
	}
	var out map[string]int64
	for k, v := range m {
		if !strings.HasSuffix(k, "_paise") {
			continue
		}
		var amount int64
		switch n := v.(type) {
		case int64:
			amount = n
		case int:
			amount = int64(n)
		default:
			continue
		}
		if out == nil {
			out = make(map[string]int64)
		}
		out[k] = amount
	}
	return out
}
