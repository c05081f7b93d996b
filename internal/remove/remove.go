// Package remove deletes single objects and whole prefixes.
package remove

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/slmtnm/s4browse/internal/store"
)

// BatchLimit is the largest key batch sent in one bulk delete.
const BatchLimit = store.MaxDeleteBatch

var errEmptyPrefix = errors.New("refusing to delete an empty prefix")

// Object deletes one key.
func Object(ctx context.Context, st store.Store, bucket, key string) error {
	if err := st.DeleteObject(ctx, bucket, key); err != nil {
		return &store.TransferError{Op: "delete", Bucket: bucket, Key: key, Err: err}
	}
	logrus.WithFields(logrus.Fields{"bucket": bucket, "key": key}).Info("remove: object deleted")
	return nil
}

// NormalizePrefix makes prefix end in "/" so that "docs" never matches
// "docs-old/".
func NormalizePrefix(prefix string) string {
	if prefix == "" || strings.HasSuffix(prefix, "/") {
		return prefix
	}
	return prefix + "/"
}

// MatchesPrefix reports whether key lies under the directory prefix.
func MatchesPrefix(key, prefix string) bool {
	return strings.HasPrefix(key, NormalizePrefix(prefix))
}

// Prefix deletes every object under prefix and returns how many keys were
// deleted. Keys are buffered across listing pages so that exactly
// ceil(total/BatchLimit) bulk deletes are issued.
func Prefix(ctx context.Context, st store.Store, bucket, prefix string) (int, error) {
	prefix = NormalizePrefix(prefix)
	if prefix == "" {
		return 0, &store.BatchDeleteError{Bucket: bucket, Err: errEmptyPrefix}
	}

	deleted := 0
	batch := make([]string, 0, BatchLimit)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := st.DeleteObjects(ctx, bucket, batch); err != nil {
			return &store.BatchDeleteError{Bucket: bucket, Count: len(batch), Err: err}
		}
		deleted += len(batch)
		batch = batch[:0]
		return nil
	}

	err := store.Walk(ctx, st, bucket, prefix, func(p store.Page) error {
		for _, o := range p.Objects {
			batch = append(batch, o.Key)
			if len(batch) == BatchLimit {
				if err := flush(); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err == nil {
		err = flush()
	}

	fields := logrus.Fields{"bucket": bucket, "prefix": prefix, "deleted": deleted}
	if err != nil {
		logrus.WithFields(fields).WithError(err).Error("remove: prefix delete failed")
		return deleted, err
	}
	logrus.WithFields(fields).Info("remove: prefix deleted")
	return deleted, nil
}
