package exchange_test

import (
	"fmt"
	"testing"

	"github.com/rxtech-lab/argo-dca/internal/exchange"
	"github.com/rxtech-lab/argo-dca/internal/logger"
	"github.com/rxtech-lab/argo-dca/mocks"
	"github.com/rxtech-lab/argo-dca/pkg/errors"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type RegistryTestSuite struct {
	suite.Suite
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistryTestSuite))
}

func (suite *RegistryTestSuite) TestRegisterAndCreate() {
	ctrl := gomock.NewController(suite.T())
	mock := mocks.NewMockExchange(ctrl)

	exchange.Register("registry-test", func(cfg exchange.DriverConfig, _ *logger.Logger) (exchange.Exchange, error) {
		suite.Equal("key", cfg.APIKey)

		return mock, nil
	})

	suite.Contains(exchange.Drivers(), "registry-test")

	ex, err := exchange.New(exchange.DriverConfig{Name: "main", Driver: "registry-test", APIKey: "key"}, logger.NewNopLogger())
	suite.Require().NoError(err)
	suite.Same(mock, ex)
}

func (suite *RegistryTestSuite) TestDuplicateRegistrationPanics() {
	factory := func(exchange.DriverConfig, *logger.Logger) (exchange.Exchange, error) { return nil, nil }

	exchange.Register("registry-dup", factory)
	suite.Panics(func() { exchange.Register("registry-dup", factory) })
	suite.Panics(func() { exchange.Register("registry-nil", nil) })
}

func (suite *RegistryTestSuite) TestUnknownDriver() {
	_, err := exchange.New(exchange.DriverConfig{Name: "x", Driver: "nope"}, logger.NewNopLogger())
	suite.True(errors.HasCode(err, errors.ErrCodeUnknownExchange))
}

func (suite *RegistryTestSuite) TestFactoryFailureIsWrapped() {
	exchange.Register("registry-broken", func(exchange.DriverConfig, *logger.Logger) (exchange.Exchange, error) {
		return nil, fmt.Errorf("bad credentials")
	})

	_, err := exchange.New(exchange.DriverConfig{Name: "x", Driver: "registry-broken"}, logger.NewNopLogger())
	suite.True(errors.HasCode(err, errors.ErrCodeExchangeUnavailable))
	suite.Contains(err.Error(), "bad credentials")
}
