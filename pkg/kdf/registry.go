package kdf

import (
	"errors"
	"fmt"
	"sort"
)

// Registry resolves versions to Deriver strategies.
type Registry struct {
	derivers map[Version]Deriver
	latest   Version
}

type RegistryOpt = func(*Registry) error

// WithDeriver registers d for v, replacing any existing strategy for that version.
func WithDeriver(v Version, d Deriver) RegistryOpt {
	return func(r *Registry) error {
		if len(v) == 0 {
			return errors.New("cannot register an empty version")
		}
		if d == nil {
			return fmt.Errorf("nil Deriver given for version '%s'", v)
		}
		r.derivers[v] = d
		return nil
	}
}

// WithLatest sets the version reported by Latest. The version must be registered by the time all options are applied.
func WithLatest(v Version) RegistryOpt {
	return func(r *Registry) error {
		r.latest = v
		return nil
	}
}

// NewRegistry creates a Registry holding every Builtin version, with Latest as the latest version.
func NewRegistry(opts ...RegistryOpt) (*Registry, error) {
	r := &Registry{
		derivers: map[Version]Deriver{},
		latest:   Latest,
	}
	for _, v := range BuiltinVersions() {
		d, err := Builtin(v)
		if err != nil {
			return nil, err
		}
		r.derivers[v] = d
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	if _, ok := r.derivers[r.latest]; !ok {
		return nil, fmt.Errorf("latest version is not registered: %w", &UnsupportedVersionError{Version: r.latest})
	}
	return r, nil
}

// Lookup returns the Deriver for v.
func (r *Registry) Lookup(v Version) (Deriver, error) {
	d, ok := r.derivers[v]
	if !ok {
		return nil, &UnsupportedVersionError{Version: v}
	}
	return d, nil
}

// Supports reports whether v has a registered Deriver.
func (r *Registry) Supports(v Version) bool {
	_, ok := r.derivers[v]
	return ok
}

// Latest returns the version that new blocks should use.
func (r *Registry) Latest() Version {
	return r.latest
}

// Versions returns the registered versions in sorted order.
func (r *Registry) Versions() []Version {
	versions := make([]Version, 0, len(r.derivers))
	for v := range r.derivers {
		versions = append(versions, v)
	}
	sort.Slice(versions, func(i, j int) bool {
		return versions[i] < versions[j]
	})
	return versions
}

// Derive produces the key for v from the passphrase and salt.
func (r *Registry) Derive(v Version, passphrase, salt []byte) ([]byte, error) {
	d, err := r.Lookup(v)
	if err != nil {
		return nil, err
	}
	key, err := d.DeriveKey(passphrase, salt)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key for version '%s': %w", v, err)
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: version '%s' produced %d bytes, expected %d", ErrInvalidKey, v, len(key), KeySize)
	}
	return key, nil
}
