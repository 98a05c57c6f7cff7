package models

// Message is one chat line in a room. The username is captured at send time
// and intentionally not refreshed if the author later renames.
type Message struct {
	ID       string `db:"id" json:"id"`
	Room     string `db:"room" json:"room"`
	UserID   string `db:"user_id" json:"user_id"`
	Username string `db:"username" json:"username"`
	Text     string `db:"text" json:"text"`
	Time     int64  `db:"time" json:"time"` // unix milliseconds
}
