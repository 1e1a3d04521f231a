package domain

import "time"

// TicketMessage is one entry in a ticket's conversation thread. The author is
// a User (customer or staff); attachment metadata is optional.
type TicketMessage struct {
	ID             int64
	TicketID       int64
	UserID         int64
	Body           string
	AttachmentPath *string
	AttachmentName *string
	CreatedAt      time.Time
}
