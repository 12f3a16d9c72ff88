package constants

const (
	MigrationLock = iota
	DrainLock
	ResurrectLock
	ReleaseStaleLock
)

var Locks = []int{
	MigrationLock,
	DrainLock,
	ResurrectLock,
	ReleaseStaleLock,
}
