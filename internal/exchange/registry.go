package exchange

import (
	"sort"
	"sync"

	"github.com/rxtech-lab/argo-dca/internal/logger"
	"github.com/rxtech-lab/argo-dca/pkg/errors"
)

// DriverConfig carries the credentials and options of one exchange entry in the config file.
type DriverConfig struct {
	Name      string         `yaml:"name" json:"name" validate:"required"`
	Driver    string         `yaml:"driver" json:"driver" validate:"required"`
	APIKey    string         `yaml:"api_key" json:"api_key"`
	APISecret string         `yaml:"api_secret" json:"api_secret"`
	Testnet   bool           `yaml:"testnet" json:"testnet"`
	Options   map[string]any `yaml:"options" json:"options"`
}

// Factory creates a driver instance.
type Factory func(cfg DriverConfig, log *logger.Logger) (Exchange, error)

var (
	driversMu sync.RWMutex
	drivers   = make(map[string]Factory)
)

// Register makes a driver available by name. Registering the same name twice panics.
func Register(name string, factory Factory) {
	driversMu.Lock()
	defer driversMu.Unlock()

	if factory == nil {
		panic("exchange: Register factory is nil")
	}

	if _, dup := drivers[name]; dup {
		panic("exchange: Register called twice for driver " + name)
	}

	drivers[name] = factory
}

// Drivers returns the sorted names of the registered drivers.
func Drivers() []string {
	driversMu.RLock()
	defer driversMu.RUnlock()

	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// New instantiates the driver named by cfg.Driver.
func New(cfg DriverConfig, log *logger.Logger) (Exchange, error) {
	driversMu.RLock()
	factory, ok := drivers[cfg.Driver]
	driversMu.RUnlock()

	if !ok {
		return nil, errors.Newf(errors.ErrCodeUnknownExchange, "unknown exchange driver %q", cfg.Driver)
	}

	ex, err := factory(cfg, log)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeExchangeUnavailable, err, "create %s driver", cfg.Driver)
	}

	return ex, nil
}
