package models

// All lists every persisted model. Tests AutoMigrate these against SQLite;
// production schema comes from the goose migrations.
func All() []any {
	return []any{
		&User{},
		&Seller{},
		&Promotor{},
		&Product{},
		&Driver{},
		&Coupon{},
		&CouponRedemption{},
		&Order{},
		&OrderItem{},
		&SellerPayout{},
		&PromotorPayout{},
		&DriverEarning{},
		&PayoutBatch{},
		&Withdraw{},
		&OutboxEvent{},
	}
}
