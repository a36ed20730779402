package storage

import (
	"encoding/json"
	stderrors "errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/manav03panchal/personalvault/internal/errors"
)

var (
	// ErrKeyNotFound is returned when a key is not in the cache.
	ErrKeyNotFound = stderrors.New("key not found")
)

// IsErrKeyNotFound returns true if the error is a key not found error.
func IsErrKeyNotFound(err error) bool {
	return stderrors.Is(err, ErrKeyNotFound) || stderrors.Is(err, badger.ErrKeyNotFound)
}

// unavailable tags a Badger failure as a cache failure.
func unavailable(op, key string, err error) error {
	if err == nil {
		return nil
	}
	if isDiskFullError(err) {
		err = stderrors.Join(errors.ErrDiskFull, err)
	}
	return fmt.Errorf("%s %q: %w", op, key, stderrors.Join(errors.ErrLocalCacheUnavailable, err))
}

// GetBytes retrieves raw bytes by key.
func (d *DB) GetBytes(key string) ([]byte, error) {
	var result []byte
	err := d.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		result, err = item.ValueCopy(nil)
		return err
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, unavailable("read", key, err)
	}
	return result, nil
}

// SetBytes stores raw bytes under key.
func (d *DB) SetBytes(key string, data []byte) error {
	if err := d.checkSpace(); err != nil {
		return err
	}
	err := d.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
	return unavailable("write", key, err)
}

// SetMany writes every pair in one transaction.
func (d *DB) SetMany(pairs map[string][]byte) error {
	if err := d.checkSpace(); err != nil {
		return err
	}
	err := d.db.Update(func(txn *badger.Txn) error {
		for k, v := range pairs {
			if err := txn.Set([]byte(k), v); err != nil {
				return err
			}
		}
		return nil
	})
	return unavailable("write", "batch", err)
}

// GetJSON decodes the value stored under key into v. A value that does not
// decode is reported as ErrLocalCacheUnavailable.
func (d *DB) GetJSON(key string, v any) error {
	data, err := d.GetBytes(key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return unavailable("decode", key, err)
	}
	return nil
}

// SetJSON encodes v and stores it under key.
func (d *DB) SetJSON(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}
	return d.SetBytes(key, data)
}

// Delete removes key. Deleting a missing key is not an error.
func (d *DB) Delete(key string) error {
	err := d.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	return unavailable("delete", key, err)
}

// DeleteMany removes every key in one transaction.
func (d *DB) DeleteMany(keys ...string) error {
	err := d.db.Update(func(txn *badger.Txn) error {
		for _, k := range keys {
			if err := txn.Delete([]byte(k)); err != nil {
				return err
			}
		}
		return nil
	})
	return unavailable("delete", "batch", err)
}

// Exists checks if a key exists.
func (d *DB) Exists(key string) (bool, error) {
	_, err := d.GetBytes(key)
	if err == nil {
		return true, nil
	}
	if IsErrKeyNotFound(err) {
		return false, nil
	}
	return false, err
}

// Keys returns every key starting with prefix.
func (d *DB) Keys(prefix string) ([]string, error) {
	var keys []string
	err := d.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, string(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	if err != nil {
		return nil, unavailable("list", prefix, err)
	}
	return keys, nil
}

// Snapshot returns a copy of every key and value.
func (d *DB) Snapshot() (map[string][]byte, error) {
	out := make(map[string][]byte)
	err := d.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			out[string(item.KeyCopy(nil))] = val
		}
		return nil
	})
	if err != nil {
		return nil, unavailable("snapshot", "*", err)
	}
	return out, nil
}

func (d *DB) checkSpace() error {
	if d.path == "" {
		return nil
	}
	if err := CheckDiskSpace(d.path, d.minFreeSpace); err != nil {
		return stderrors.Join(errors.ErrLocalCacheUnavailable, err)
	}
	return nil
}
