package config

type StorageDriver int

const (
	SQLite StorageDriver = iota + 1
	Postgres
)

// String converts the StorageDriver enum to a human-readable string.
func (d StorageDriver) String() string {
	switch d {
	case SQLite:
		return "sqlite"
	case Postgres:
		return "postgres"
	}
	return "unknown"
}

type MessageQueueDriver int

const (
	RabbitMQ MessageQueueDriver = iota + 1
)

func (d MessageQueueDriver) String() string {
	switch d {
	case RabbitMQ:
		return "rabbitmq"
	default:
		return "unknown"
	}
}
