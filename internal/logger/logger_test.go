package logger

import (
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type LoggerTestSuite struct {
	suite.Suite
}

func TestLoggerSuite(t *testing.T) {
	suite.Run(t, new(LoggerTestSuite))
}

func (suite *LoggerTestSuite) TestLevels() {
	tests := []struct {
		level   zapcore.Level
		debug   bool
		info    bool
		warning bool
	}{
		{zapcore.DebugLevel, true, true, true},
		{zapcore.InfoLevel, false, true, true},
		{zapcore.WarnLevel, false, false, true},
		{zapcore.ErrorLevel, false, false, false},
	}

	for _, tt := range tests {
		suite.Run(tt.level.String(), func() {
			logger, err := NewLoggerWithLevel(tt.level)
			suite.Require().NoError(err)

			suite.Equal(tt.debug, logger.Core().Enabled(zapcore.DebugLevel))
			suite.Equal(tt.info, logger.Core().Enabled(zapcore.InfoLevel))
			suite.Equal(tt.warning, logger.Core().Enabled(zapcore.WarnLevel))
		})
	}
}

func (suite *LoggerTestSuite) TestDefaultIsInfo() {
	logger, err := NewLogger()
	suite.Require().NoError(err)

	suite.False(logger.Core().Enabled(zapcore.DebugLevel))
	suite.True(logger.Core().Enabled(zapcore.InfoLevel))
}

func (suite *LoggerTestSuite) TestWithFieldsCarriesContext() {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := &Logger{Logger: zap.New(core)}

	child := logger.WithFields(zap.String("run_id", "abc"))
	suite.NotSame(logger, child)

	child.Info("Cycle done", zap.Int("closed", 2))
	logger.Info("Parent entry")

	entries := logs.All()
	suite.Require().Len(entries, 2)
	suite.Equal("abc", entries[0].ContextMap()["run_id"])
	suite.EqualValues(2, entries[0].ContextMap()["closed"])
	suite.NotContains(entries[1].ContextMap(), "run_id")
}

func (suite *LoggerTestSuite) TestNopLoggerDiscards() {
	logger := NewNopLogger()
	suite.False(logger.Core().Enabled(zapcore.ErrorLevel))
	suite.NoError(logger.Sync())
}

func (suite *LoggerTestSuite) TestSyncWithoutInnerLogger() {
	logger := &Logger{}
	suite.NoError(logger.Sync())
}
