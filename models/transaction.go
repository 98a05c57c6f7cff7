package models

// Transaction is the append-only audit record of one completed gift purchase.
// Rows are never updated or deleted.
type Transaction struct {
	ID     string `db:"id" json:"id"`
	UserID string `db:"user_id" json:"user_id"`
	GiftID string `db:"gift_id" json:"gift_id"`
	Room   string `db:"room" json:"room"`
	Time   int64  `db:"time" json:"time"` // unix milliseconds
}

// TransactionDetail joins the audit row with sender and gift reference data
// for the admin panel.
type TransactionDetail struct {
	Transaction
	Username string `db:"username" json:"username"`
	GiftName string `db:"gift_name" json:"gift_name"`
	GiftCost int64  `db:"cost" json:"cost"`
}
