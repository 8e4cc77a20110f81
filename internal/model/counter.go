package model

import "fmt"

// Collection names a family of records that own counters.
type Collection string

const (
	CollectionProducts Collection = "products"
	CollectionUsers    Collection = "users"
)

// Counter field names.
const (
	FieldLikeCount   = "likeCount"
	FieldChatCount   = "chatCount"
	FieldUnreadTotal = "unreadTotal"
)

// CounterRef identifies one non-negative integer field on one record.
type CounterRef struct {
	Collection Collection
	ID         string
	Field      string
}

func (r CounterRef) String() string {
	return fmt.Sprintf("%s/%s.%s", r.Collection, r.ID, r.Field)
}

// Name is the low-cardinality label used for metrics.
func (r CounterRef) Name() string {
	return string(r.Collection) + "." + r.Field
}

// LikeCounter is the like count of a product.
func LikeCounter(productID string) CounterRef {
	return CounterRef{Collection: CollectionProducts, ID: productID, Field: FieldLikeCount}
}

// ChatCounter counts conversations started about a product.
func ChatCounter(productID string) CounterRef {
	return CounterRef{Collection: CollectionProducts, ID: productID, Field: FieldChatCount}
}

// UnreadTotal is the personal unread badge total of a user.
func UnreadTotal(userID string) CounterRef {
	return CounterRef{Collection: CollectionUsers, ID: userID, Field: FieldUnreadTotal}
}

// ClampedSum returns max(0, current+delta).
func ClampedSum(current, delta int64) int64 {
	next := current + delta
	if next < 0 {
		return 0
	}
	return next
}
