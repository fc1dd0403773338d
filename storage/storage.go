// Package storage persists named state slices. Every store in core serializes
// its whole slice under one key on each mutation, so a backend only needs
// to support get/put/delete of opaque blobs.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"github.com/sirupsen/logrus"
)

// Keys used by the stores.
const (
	CartKey        = "cart-storage"
	CourseKey      = "course-storage"
	CouponKey      = "coupon-storage"
	CertificateKey = "certificate-storage"
	NotesKey       = "student-notes-storage"
)

var ErrNotFound = errors.New("key not found")

// Storage is a durable key-value backend for serialized slices.
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}

// Load decodes the slice stored under key into val. A missing key leaves val
// untouched. A blob that cannot be decoded is logged and treated as missing,
// so an interrupted write never prevents the store from opening.
func Load(ctx context.Context, s Storage, log logrus.FieldLogger, key string, val any) error {
	b, err := s.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return fmt.Errorf("reading %s: %w", key, err)
	}

	if err := json.Unmarshal(b, val); err != nil {
		log.WithFields(logrus.Fields{
			"key":   key,
			"bytes": len(b),
		}).Warnf("discarding unreadable state: %v", err)

		v := reflect.ValueOf(val).Elem()
		v.Set(reflect.Zero(v.Type()))
		return nil
	}

	return nil
}

// Save serializes val and writes it under key.
func Save(ctx context.Context, s Storage, key string, val any) error {
	b, err := json.Marshal(val)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}

	if err := s.Put(ctx, key, b); err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}
