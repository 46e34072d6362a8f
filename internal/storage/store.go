package storage

import (
	"context"
	"errors"
	"strings"
)

// Partition names. Shared keys are visible to every user, private keys only to one device.
const (
	sharedPartition        = "shared"
	privatePartitionPrefix = "private:"
)

var (
	// ErrNoDevice is returned for private-partition operations on a store without a device scope
	ErrNoDevice = errors.New("storage: private partition requires a device scope")
	// ErrEmptyKey is returned when a key is blank
	ErrEmptyKey = errors.New("storage: empty key")
)

// Entry is a stored value
type Entry struct {
	Key    string `json:"key"`
	Value  string `json:"value"`
	Shared bool   `json:"shared"`
}

// Store is the key-value boundary used by every service.
// Get returns (nil, nil) for a missing key and Delete of a missing key succeeds.
type Store interface {
	Get(ctx context.Context, key string, shared bool) (*Entry, error)
	Set(ctx context.Context, key, value string, shared bool) error
	Delete(ctx context.Context, key string, shared bool) error
	List(ctx context.Context, prefix string, shared bool) ([]string, error)
}

// Backend hands out device scoped views of one physical store
type Backend interface {
	// ForDevice returns a store whose private partition belongs to deviceID
	ForDevice(deviceID string) Store
	// Shared returns a store that only serves the shared partition
	Shared() Store
	Ping(ctx context.Context) error
	Close() error
}

// partitionFor resolves the partition name of a key
func partitionFor(deviceID string, shared bool) (string, error) {
	if shared {
		return sharedPartition, nil
	}
	if deviceID == "" {
		return "", ErrNoDevice
	}
	return privatePartitionPrefix + deviceID, nil
}

func checkKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return ErrEmptyKey
	}
	return nil
}
