package order

import "context"

// ListFilter narrows the admin order listing. Zero Status lists every status.
type ListFilter struct {
	Status Status
	Limit  int
	Offset int
}

// Summary is an order header joined with its buyer contact details.
type Summary struct {
	Order
	BuyerName    string
	BuyerEmail   string
	BuyerPhone   string
	BuyerAddress string
}

// StockIssue is one entry of the compensating log: an inventory or line-item
// sub-step that was rolled back while the order itself was kept.
type StockIssue struct {
	ID          int64
	OrderID     int64
	ProductID   int64
	SizeStockID int64
	Kind        string
	Quantity    int
	Reason      string
}

const (
	IssueLineItemInsert = "line_item_insert"
	IssueFlatDecrement  = "flat_decrement"
	IssueSizedDecrement = "sized_decrement"
	IssueFlatRestore    = "flat_restore"
	IssueSizedRestore   = "sized_restore"
	IssueReasonRejected = "insufficient_stock"
	IssueReasonFailed   = "storage_error"
)

// Reader is the read side used by the admin query surface and idempotent replay.
type Reader interface {
	Get(ctx context.Context, id int64) (*Order, error)
	FindBySession(ctx context.Context, sessionID string) (*Order, error)
	List(ctx context.Context, f ListFilter) ([]Summary, error)
	StockIssues(ctx context.Context, orderID int64) ([]StockIssue, error)
}

// Writer holds the order-side writes performed inside a unit of work.
type Writer interface {
	// Insert assigns ID. A duplicate payment session yields ErrConflict.
	Insert(ctx context.Context, o *Order) error
	InsertLineItem(ctx context.Context, orderID int64, li *LineItem) error
	// Lock loads the order with its items for update.
	Lock(ctx context.Context, id int64) (*Order, error)
	UpdateStatus(ctx context.Context, o *Order) error
	RecordStockIssue(ctx context.Context, issue StockIssue) error
	// StockIssues reads the compensating log as seen by the unit of work.
	StockIssues(ctx context.Context, orderID int64) ([]StockIssue, error)
}
