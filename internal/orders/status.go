package orders

import "github.com/01moynul/stepup-orders/internal/models"

// workflow lists the statuses reachable from each status. Terminal statuses
// have no entry.
var workflow = map[models.OrderStatus][]models.OrderStatus{
	models.StatusToPay:     {models.StatusToShip, models.StatusCancelled},
	models.StatusToShip:    {models.StatusToReceive, models.StatusCancelled},
	models.StatusToReceive: {models.StatusCompleted, models.StatusCancelled},
}

var knownStatuses = map[models.OrderStatus]bool{
	models.StatusToPay:     true,
	models.StatusToShip:    true,
	models.StatusToReceive: true,
	models.StatusCompleted: true,
	models.StatusCancelled: true,
}

// ParseStatus validates a status string.
func ParseStatus(s string) (models.OrderStatus, error) {
	status := models.OrderStatus(s)
	if !knownStatuses[status] {
		return "", validationErr("Invalid status")
	}
	return status, nil
}

// IsValidStatus reports whether s names a known status.
func IsValidStatus(s string) bool {
	return knownStatuses[models.OrderStatus(s)]
}

// CanTransition reports whether an order may move from one status to another.
// Staying in the same status is always allowed so that a delivery date can be
// edited on its own.
func CanTransition(from, to models.OrderStatus) bool {
	if from == to {
		return knownStatuses[from]
	}
	for _, next := range workflow[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func IsTerminal(s models.OrderStatus) bool {
	return s == models.StatusCompleted || s == models.StatusCancelled
}

// CustomerCancellable reports whether the owner may still cancel.
func CustomerCancellable(s models.OrderStatus) bool {
	return s == models.StatusToPay || s == models.StatusToShip
}

// Rateable reports whether an order in this state accepts a rating.
func Rateable(o *models.Order) bool {
	if o.Rating != nil {
		return false
	}
	return o.Status == models.StatusToReceive || o.Status == models.StatusCompleted
}
