package relay

import (
	"encoding/json"
	"errors"

	"github.com/01moynul/stepup-orders/internal/broadcast"
)

// ErrInvalidPayload is returned for ingress bodies without a usable order id.
var ErrInvalidPayload = errors.New("invalid payload")

// Frame is what subscribers receive.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Delivery is one frame addressed to one scope.
type Delivery struct {
	Scope string
	Frame Frame
}

type ingressHeader struct {
	ID      int64 `json:"id"`
	UserID  int64 `json:"user_id"`
	Removed bool  `json:"removed"`
}

type removedNotice struct {
	ID     int64 `json:"id"`
	UserID int64 `json:"user_id"`
}

// Route decides which scopes receive an ingress payload and in what shape.
// Admins always get the payload verbatim. The owning customer gets it
// verbatim for updates and only {id, user_id} for removals.
func Route(raw []byte) (int64, []Delivery, error) {
	var hdr ingressHeader
	if err := json.Unmarshal(raw, &hdr); err != nil || hdr.ID <= 0 {
		return 0, nil, ErrInvalidPayload
	}

	payload := json.RawMessage(raw)
	var out []Delivery

	if hdr.Removed {
		if hdr.UserID > 0 {
			notice, err := json.Marshal(removedNotice{ID: hdr.ID, UserID: hdr.UserID})
			if err != nil {
				return 0, nil, err
			}
			out = append(out, Delivery{
				Scope: UserScope(hdr.UserID),
				Frame: Frame{Event: broadcast.EventOrderRemoved, Data: notice},
			})
		}
		out = append(out, Delivery{
			Scope: AdminScope,
			Frame: Frame{Event: broadcast.EventOrderRemoved, Data: payload},
		})
		return hdr.ID, out, nil
	}

	if hdr.UserID > 0 {
		out = append(out, Delivery{
			Scope: UserScope(hdr.UserID),
			Frame: Frame{Event: broadcast.EventOrderUpdated, Data: payload},
		})
	}
	out = append(out, Delivery{
		Scope: AdminScope,
		Frame: Frame{Event: broadcast.EventOrderUpdated, Data: payload},
	})
	return hdr.ID, out, nil
}
