package cache

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Snapshots stored in bbolt use one bucket per service. Keys within a bucket
// join operation, scope and resource with a unit separator, which never
// appears in service or region names.
const keySeparator = "\x1f"

func boltKey(k Key) []byte {
	parts := []string{k.Operation, k.Scope}
	if k.Resource != "" {
		parts = append(parts, k.Resource)
	}
	return []byte(strings.Join(parts, keySeparator))
}

func parseBoltKey(service string, raw []byte) (Key, error) {
	parts := strings.SplitN(string(raw), keySeparator, 3)
	if len(parts) < 2 {
		return Key{}, fmt.Errorf("malformed key in bucket %s: %q", service, raw)
	}
	k := NewKey(service, parts[0], parts[1])
	if len(parts) == 3 {
		k.Resource = parts[2]
	}
	return k, nil
}

// SaveBolt writes s to a bbolt database at path, replacing buckets of the
// services it contains.
func SaveBolt(path string, s *Snapshot) error {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return fmt.Errorf("open bolt db: %w", err)
	}
	defer db.Close()

	return db.Update(func(tx *bolt.Tx) error {
		seen := make(map[string]bool)
		for _, k := range s.Keys() {
			if !seen[k.Service] {
				seen[k.Service] = true
				if tx.Bucket([]byte(k.Service)) != nil {
					if err := tx.DeleteBucket([]byte(k.Service)); err != nil {
						return fmt.Errorf("reset bucket %s: %w", k.Service, err)
					}
				}
			}
			bucket, err := tx.CreateBucketIfNotExists([]byte(k.Service))
			if err != nil {
				return fmt.Errorf("create bucket %s: %w", k.Service, err)
			}
			value, err := json.Marshal(s.Get(k))
			if err != nil {
				return fmt.Errorf("%s: %w", k, err)
			}
			if err := bucket.Put(boltKey(k), value); err != nil {
				return fmt.Errorf("%s: %w", k, err)
			}
		}
		return nil
	})
}

// OpenBolt reads a whole bbolt snapshot into memory. The database is closed
// before OpenBolt returns so evaluation never touches the disk.
func OpenBolt(path string) (*Snapshot, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second, ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}
	defer db.Close()

	b := NewBuilder()
	err = db.View(func(tx *bolt.Tx) error {
		return tx.ForEach(func(name []byte, bucket *bolt.Bucket) error {
			service := string(name)
			return bucket.ForEach(func(rawKey, value []byte) error {
				k, err := parseBoltKey(service, rawKey)
				if err != nil {
					return err
				}
				var o Outcome
				if err := json.Unmarshal(value, &o); err != nil {
					return fmt.Errorf("%s: %w", k, err)
				}
				b.Set(k, o)
				return nil
			})
		})
	})
	if err != nil {
		return nil, fmt.Errorf("read bolt db: %w", err)
	}
	return b.Build()
}
