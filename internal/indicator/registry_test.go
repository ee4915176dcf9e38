package indicator

import (
	"testing"

	"github.com/rxtech-lab/argo-dca/internal/types"
	"github.com/rxtech-lab/argo-dca/pkg/errors"
	"github.com/stretchr/testify/suite"
)

// mockIndicator is a simple mock indicator for testing the registry
type mockIndicator struct {
	key    string
	value  float64
	failed bool
}

func newMockIndicator(key string, value float64) *mockIndicator {
	return &mockIndicator{key: key, value: value}
}

func (m *mockIndicator) Name() Name { return Name(m.key) }

func (m *mockIndicator) Key() string { return m.key }

func (m *mockIndicator) RequiredCandles() int { return 3 }

func (m *mockIndicator) Compute(series *types.CandleSeries) Result {
	if m.failed {
		return Result{Key: m.key, Err: errors.New(errors.ErrCodeIndicatorCalculation, "boom")}
	}

	return Result{Key: m.key, Value: m.value}
}

type RegistryTestSuite struct {
	suite.Suite
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistryTestSuite))
}

func (suite *RegistryTestSuite) TestRegisterIndicator() {
	registry := NewIndicatorRegistry()

	indicator := newMockIndicator("rsi_14", 1)
	suite.NoError(registry.RegisterIndicator(indicator))

	retrieved, err := registry.GetIndicator("rsi_14")
	suite.NoError(err)
	suite.Equal(indicator, retrieved)
}

func (suite *RegistryTestSuite) TestRegisterIndicatorDuplicate() {
	registry := NewIndicatorRegistry()

	suite.NoError(registry.RegisterIndicator(newMockIndicator("rsi_14", 1)))

	err := registry.RegisterIndicator(newMockIndicator("rsi_14", 2))
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeIndicatorAlreadyExists))
	suite.Contains(err.Error(), "already registered")
}

func (suite *RegistryTestSuite) TestGetAndRemoveNotFound() {
	registry := NewIndicatorRegistry()

	_, err := registry.GetIndicator("ema_20")
	suite.True(errors.HasCode(err, errors.ErrCodeIndicatorNotFound))
	suite.Error(registry.RemoveIndicator("ema_20"))
}

func (suite *RegistryTestSuite) TestListIndicatorsSorted() {
	registry := NewIndicatorRegistry()
	suite.NoError(registry.RegisterIndicator(newMockIndicator("rsi_14", 1)))
	suite.NoError(registry.RegisterIndicator(newMockIndicator("atr_14", 1)))
	suite.NoError(registry.RegisterIndicator(newMockIndicator("ema_20", 1)))

	suite.Equal([]string{"atr_14", "ema_20", "rsi_14"}, registry.ListIndicators())

	suite.NoError(registry.RemoveIndicator("ema_20"))
	suite.Equal([]string{"atr_14", "rsi_14"}, registry.ListIndicators())
}

func (suite *RegistryTestSuite) TestComputeSkipsFailures() {
	registry := NewIndicatorRegistry()
	broken := newMockIndicator("broken", 0)
	broken.failed = true

	suite.NoError(registry.RegisterIndicator(newMockIndicator("ema_20", 42)))
	suite.NoError(registry.RegisterIndicator(broken))

	snapshot := registry.Compute(types.NewCandleSeries(nil))

	value, ok := snapshot.Get("ema_20")
	suite.True(ok)
	suite.Equal(42.0, value)

	_, ok = snapshot.Get("broken")
	suite.False(ok)
	suite.Require().Len(snapshot.Failures, 1)
	suite.Equal("broken", snapshot.Failures[0].Key)
	suite.Equal(3, MaxRequiredCandles(registry))
}
