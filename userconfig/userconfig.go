package userconfig

import (
	"errors"
	"fmt"
	"io"
	"time"

	units "github.com/docker/go-units"
	yaml "gopkg.in/yaml.v2"

	"github.com/strivelabs/tenantkv/storage"
	"github.com/strivelabs/tenantkv/sweeper"
	"github.com/strivelabs/tenantkv/tenant"
)

// Sweeps must run at a minimum every 5s. Anything faster just burns cycles
// re-reading records the request path already expires lazily.
const minSweepMS int64 = 5000

const defaultMetricsAddr = ":2112"

// Meta represents all current config options that the application can use,
// i.e., after validation and parsing
type Meta struct {
	Storage     storage.KVConfig `yaml:"storage"`
	Sweep       Sweep            `yaml:"sweep"`
	MetricsAddr string           `yaml:"metricsAddr"`
	Tenants     []TenantEntry    `yaml:"tenants"`
}

// Sweep contains config options that apply to the background expiration
// sweeper
type Sweep struct {
	Interval time.Duration
}

// UnmarshalYAML parses a user-provided YAML configuration, returning any
// parsing errors.
func (s *Sweep) UnmarshalYAML(unmarshal func(interface{}) error) error {
	v := make(map[string]string)
	err := unmarshal(&v)

	if err != nil {
		return fmt.Errorf("can't parse the sweep config: %v", err)
	}

	d, ok := v["interval"]
	if !ok {
		d = "0s"
	}

	pd, err := time.ParseDuration(d)
	if err != nil {
		return fmt.Errorf(
			"can't parse the user-provided sweep interval as a duration: %v",
			err,
		)
	}
	s.Interval = pd

	return nil
}

// TenantEntry is one tenant registration as written in the config file. The
// storage limit is human readable, e.g. "64MB" or "512KiB".
type TenantEntry struct {
	ID           string `yaml:"id"`
	StorageLimit string `yaml:"storageLimit"`
}

// CheckAndSetDefaults validates s and either returns a copy of s with
// default settings applied or returns an error due to an invalid
// configuration
func (s *Sweep) CheckAndSetDefaults() (Sweep, error) {
	if s.Interval == 0 {
		return Sweep{Interval: sweeper.DefaultInterval}, nil
	}
	if s.Interval.Milliseconds() < minSweepMS {
		minS := minSweepMS / 1000
		return Sweep{}, fmt.Errorf("sweep interval must be at least %v seconds", minS)
	}
	return *s, nil
}

// CheckAndSetDefaults validates m and either returns a copy of m with
// default settings applied or returns an error due to an invalid
// configuration
func (m *Meta) CheckAndSetDefaults() (Meta, error) {
	c := Meta{}

	if m.Storage.StorageDirPath == "" {
		return Meta{}, errors.New(
			"user-provided config does not include a storage path",
		)
	}
	c.Storage = m.Storage

	s, err := m.Sweep.CheckAndSetDefaults()
	if err != nil {
		return Meta{}, err
	}
	c.Sweep = s

	c.MetricsAddr = m.MetricsAddr
	if c.MetricsAddr == "" {
		c.MetricsAddr = defaultMetricsAddr
	}

	c.Tenants = make([]TenantEntry, len(m.Tenants))
	for n, entry := range m.Tenants {
		if entry.ID == "" {
			return Meta{}, fmt.Errorf("tenant %d has no id", n)
		}
		if len(entry.ID) > tenant.MaxIDLength {
			return Meta{}, fmt.Errorf(
				"tenant id %q exceeds %d bytes",
				entry.ID,
				tenant.MaxIDLength,
			)
		}
		if _, err := parseStorageLimit(entry.StorageLimit); err != nil {
			return Meta{}, err
		}
		c.Tenants[n] = entry
	}

	return c, nil
}

// parseStorageLimit converts a human-readable limit into bytes.
func parseStorageLimit(limit string) (uint64, error) {
	if limit == "" {
		return 0, errors.New("every tenant needs a storageLimit")
	}
	n, err := units.RAMInBytes(limit)
	if err != nil {
		return 0, fmt.Errorf("can't parse the storage limit %q: %v", limit, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("the storage limit %q must be positive", limit)
	}
	return uint64(n), nil
}

// TenantRegistry converts the validated tenant entries into the registry the
// engine consumes. Call this only after CheckAndSetDefaults.
func (m *Meta) TenantRegistry() (*tenant.StaticRegistry, error) {
	tenants := make([]tenant.Tenant, len(m.Tenants))
	for n, entry := range m.Tenants {
		limit, err := parseStorageLimit(entry.StorageLimit)
		if err != nil {
			return nil, err
		}
		tenants[n] = tenant.Tenant{ID: entry.ID, StorageLimitBytes: limit}
	}
	return tenant.NewStaticRegistry(tenants), nil
}

// Parse generates usable configurations from possibly arbitrary user input.
// An error indicates a problem with parsing or validation. The Reader r
// can be either JSON or YAML.
func Parse(r io.Reader) (*Meta, error) {
	var m Meta
	err := yaml.NewDecoder(r).Decode(&m)
	if err != nil {
		return &Meta{}, fmt.Errorf("can't read the config file as YAML: %v", err)
	}

	if m.Storage.StorageDirPath == "" {
		return &Meta{}, errors.New("must include a \"storage\" section")
	}

	if len(m.Tenants) == 0 {
		return &Meta{}, errors.New("must include at least one item within \"tenants\"")
	}

	return &m, nil
}
