package enums

// OutboxEventType names the domain events recorded in the outbox.
type OutboxEventType string

const (
	EventPrintOrderCreated       OutboxEventType = "print_order.created"
	EventPrintOrderStatusChanged OutboxEventType = "print_order.status_changed"
)

// OutboxAggregateType names the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregatePrintOrder OutboxAggregateType = "print_order"
)
