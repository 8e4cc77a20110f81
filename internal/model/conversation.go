// Package model defines data structures for the marketplace reactor.
package model

// Conversation is a two-party chat room attached to a product listing.
// The seller is party A and the buyer party B.
type Conversation struct {
	ID               string `json:"id"`
	SellerID         string `json:"sellerId"`
	BuyerID          string `json:"buyerId"`
	SellerName       string `json:"sellerName,omitempty"`
	BuyerName        string `json:"buyerName,omitempty"`
	ProductID        string `json:"productId,omitempty"`
	ProductTitle     string `json:"productTitle,omitempty"`
	FirstMessageSent bool   `json:"isFirstMessageSent"`
	SellerUnread     int64  `json:"sellerUnreadCount"`
	BuyerUnread      int64  `json:"buyerUnreadCount"`
}

// ConversationFromDocument normalizes a raw chat room document.
// A nil document yields nil, meaning the record does not exist.
func ConversationFromDocument(id string, doc map[string]any) *Conversation {
	if doc == nil {
		return nil
	}
	return &Conversation{
		ID:               id,
		SellerID:         TrimmedString(doc["sellerId"]),
		BuyerID:          TrimmedString(doc["buyerId"]),
		SellerName:       TrimmedString(doc["sellerName"]),
		BuyerName:        TrimmedString(doc["buyerName"]),
		ProductID:        TrimmedString(doc["productId"]),
		ProductTitle:     TrimmedString(doc["productTitle"]),
		FirstMessageSent: Bool(doc["isFirstMessageSent"]),
		SellerUnread:     NonNegativeInt(doc["sellerUnreadCount"]),
		BuyerUnread:      NonNegativeInt(doc["buyerUnreadCount"]),
	}
}

// Peer returns the other participant for senderID, or "" when senderID
// is not one of the two recorded participants.
func (c *Conversation) Peer(senderID string) string {
	switch senderID {
	case "":
		return ""
	case c.SellerID:
		return c.BuyerID
	case c.BuyerID:
		return c.SellerID
	default:
		return ""
	}
}

// DisplayName returns the recorded display name of a participant.
func (c *Conversation) DisplayName(participantID string) string {
	if participantID == c.SellerID {
		return c.SellerName
	}
	return c.BuyerName
}

// Product is a marketplace listing with its derived counters.
type Product struct {
	ID        string `json:"id"`
	SellerID  string `json:"sellerId"`
	Title     string `json:"title"`
	LikeCount int64  `json:"likeCount"`
	ChatCount int64  `json:"chatCount"`
}

// User is the subset of a user profile the reactor reads.
type User struct {
	ID          string   `json:"id"`
	Nickname    string   `json:"nickname"`
	Tokens      []string `json:"fcmTokens"`
	UnreadTotal int64    `json:"unreadTotal"`
}
