// Package udev keeps a registry of the synthetic input devices the
// daemon exposes, standing in for the kernel's udev database inside a
// container that has no real one. Consumers look devices up by node
// path or by subsystem and name.
package udev

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	bolt "go.etcd.io/bbolt"
	"golang.org/x/exp/slices"
)

const (
	BucketDevices   = "devices"
	BucketSubsystem = "subsystem"
)

// Device is one synthetic device node and its udev-style metadata.
type Device struct {
	Path       string            `json:"path"`
	Subsystem  string            `json:"subsystem"`
	Name       string            `json:"name"`
	Properties map[string]string `json:"properties,omitempty"`
	Sysattrs   map[string]string `json:"sysattrs,omitempty"`
}

// SubsystemKey is the key for a device in the subsystem index.
func SubsystemKey(subsystem, name string) string {
	return subsystem + ":" + name
}

// Registry is a bbolt-backed device registry.
type Registry struct {
	db *bolt.DB
}

// Open opens (creating if needed) the registry database at path and
// initializes its buckets.
func Open(path string) (*Registry, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}

	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range []string{BucketDevices, BucketSubsystem} {
			if _, err := tx.CreateBucketIfNotExists([]byte(bucket)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Registry{db: db}, nil
}

func (r *Registry) Close() error {
	return r.db.Close()
}

// Register inserts or replaces a device and its subsystem index entry.
func (r *Registry) Register(d Device) error {
	if d.Path == "" || d.Subsystem == "" || d.Name == "" {
		return fmt.Errorf("device needs path, subsystem and name: %+v", d)
	}
	v, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return r.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket([]byte(BucketDevices)).Put([]byte(d.Path), v); err != nil {
			return err
		}
		sk := SubsystemKey(d.Subsystem, d.Name)
		return tx.Bucket([]byte(BucketSubsystem)).Put([]byte(sk), []byte(d.Path))
	})
}

// ByPath returns the device registered at a node path.
func (r *Registry) ByPath(path string) (Device, error) {
	var d Device
	err := r.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(BucketDevices)).Get([]byte(path))
		if v == nil {
			return fmt.Errorf("no device registered at %s", path)
		}
		return json.Unmarshal(v, &d)
	})
	return d, err
}

// BySubsystemName returns the device registered under a subsystem with
// the given sysname.
func (r *Registry) BySubsystemName(subsystem, name string) (Device, error) {
	var path string
	err := r.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(BucketSubsystem)).Get([]byte(SubsystemKey(subsystem, name)))
		if v == nil {
			return fmt.Errorf("no %s device named %s", subsystem, name)
		}
		path = string(v)
		return nil
	})
	if err != nil {
		return Device{}, err
	}
	return r.ByPath(path)
}

// List returns all registered devices sorted by node path, optionally
// filtered to one subsystem.
func (r *Registry) List(subsystem string) ([]Device, error) {
	var out []Device
	err := r.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(BucketDevices)).ForEach(func(k, v []byte) error {
			var d Device
			if err := json.Unmarshal(v, &d); err != nil {
				return err
			}
			if subsystem == "" || d.Subsystem == subsystem {
				out = append(out, d)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(out, func(a, b Device) bool {
		return a.Path < b.Path
	})
	return out, nil
}
