package models

// OrderRemovedEvent is the relay payload announcing a hard-deleted order.
type OrderRemovedEvent struct {
	ID      int64 `json:"id"`
	UserID  int64 `json:"user_id"`
	Removed bool  `json:"removed"`
}
