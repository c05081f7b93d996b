package store

import "fmt"

// ConnectionError means a remote is unknown or a client for it could not be built.
type ConnectionError struct {
	Remote string
	Err    error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection to %q failed: %v", e.Remote, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// ListError means a listing page could not be fetched.
type ListError struct {
	Bucket string
	Prefix string
	Err    error
}

func (e *ListError) Error() string {
	if e.Prefix == "" {
		return fmt.Sprintf("listing %s failed: %v", e.Bucket, e.Err)
	}
	return fmt.Sprintf("listing %s/%s failed: %v", e.Bucket, e.Prefix, e.Err)
}

func (e *ListError) Unwrap() error { return e.Err }

// TransferError means a single get or write of one object failed.
type TransferError struct {
	Op     string
	Bucket string
	Key    string
	Err    error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("%s %s/%s: %v", e.Op, e.Bucket, e.Key, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }

// BatchDeleteError means a bulk delete call failed or reported per-key errors.
type BatchDeleteError struct {
	Bucket string
	Count  int
	Err    error
}

func (e *BatchDeleteError) Error() string {
	return fmt.Sprintf("bulk delete of %d keys in %s failed: %v", e.Count, e.Bucket, e.Err)
}

func (e *BatchDeleteError) Unwrap() error { return e.Err }
