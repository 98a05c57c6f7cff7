package models

// Stats holds the aggregate counters shown on the public and admin pages.
// Gifts counts completed transactions, not catalog entries.
type Stats struct {
	Users    int64 `json:"users"`
	Messages int64 `json:"messages"`
	Gifts    int64 `json:"gifts"`
}

// GiftReceipt is the result of a successful gift send: everything the room
// broadcast needs, including the sender's post-debit balance.
type GiftReceipt struct {
	From      string `json:"from"`
	Gift      *Gift  `json:"gift"`
	UserCoins int64  `json:"userCoins"`
	Room      string `json:"room"`
	Time      int64  `json:"time"`
}
