package event

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeBidAccepted     Type = "bid.accepted"
	TypeAuctionExtended Type = "auction.extended"
	TypeAuctionEnded    Type = "auction.ended"
	TypeItemSettled     Type = "item.settled"
	TypeOrderPaid       Type = "order.paid"
)

// Event is the broadcast envelope. Fields that do not apply to a type are
// left zero and omitted from the JSON encoding.
type Event struct {
	ID             string     `json:"id"`
	Type           Type       `json:"type"`
	SessionID      int64      `json:"session_id"`
	ItemID         int64      `json:"item_id,omitempty"`
	UserID         int64      `json:"user_id,omitempty"`
	Amount         int64      `json:"amount,omitempty"`
	EndTime        *time.Time `json:"end_time,omitempty"`
	ExtensionCount int        `json:"extension_count,omitempty"`
	Sold           bool       `json:"sold,omitempty"`
	OrderID        int64      `json:"order_id,omitempty"`
	OccurredAt     time.Time  `json:"occurred_at"`
}

// Key partitions events so that everything about one item (or one session,
// for session-wide events) stays in order on the broker.
func (e Event) Key() string {
	if e.ItemID != 0 {
		return "item:" + strconv.FormatInt(e.ItemID, 10)
	}
	return "session:" + strconv.FormatInt(e.SessionID, 10)
}

func newEvent(t Type, sessionID int64, at time.Time) Event {
	return Event{ID: uuid.NewString(), Type: t, SessionID: sessionID, OccurredAt: at}
}

func BidAccepted(sessionID, itemID, userID, amount int64, at time.Time) Event {
	e := newEvent(TypeBidAccepted, sessionID, at)
	e.ItemID, e.UserID, e.Amount = itemID, userID, amount
	return e
}

func AuctionExtended(sessionID, itemID int64, endTime time.Time, extensionCount int, at time.Time) Event {
	e := newEvent(TypeAuctionExtended, sessionID, at)
	e.ItemID = itemID
	e.EndTime = &endTime
	e.ExtensionCount = extensionCount
	return e
}

func AuctionEnded(sessionID int64, endTime time.Time, at time.Time) Event {
	e := newEvent(TypeAuctionEnded, sessionID, at)
	e.EndTime = &endTime
	return e
}

func ItemSettled(sessionID, itemID int64, winnerID *int64, finalPrice int64, sold bool, orderID *int64, at time.Time) Event {
	e := newEvent(TypeItemSettled, sessionID, at)
	e.ItemID, e.Amount, e.Sold = itemID, finalPrice, sold
	if winnerID != nil {
		e.UserID = *winnerID
	}
	if orderID != nil {
		e.OrderID = *orderID
	}
	return e
}

func OrderPaid(sessionID, itemID, buyerID, orderID, amount int64, at time.Time) Event {
	e := newEvent(TypeOrderPaid, sessionID, at)
	e.ItemID, e.UserID, e.OrderID, e.Amount = itemID, buyerID, orderID, amount
	return e
}
