package orders

const (
	TopicOrderCommitted       = "order.committed"
	TopicReconciliationNeeded = "order.reconciliation.needed"
)

// Partition key = order_id so all events of one order stay ordered.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
