package message_broaker

// MessageBroker publishes sync outcome events to an external queue so
// dashboards and audit pipelines can observe delivery without polling the
// durable store. Consumers live outside this module.
type MessageBroker interface {
	Publish(queue string, message []byte) error
	Close() error
}
