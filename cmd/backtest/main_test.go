package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type BacktestCmdTestSuite struct {
	suite.Suite
	ctx        context.Context
	tempDir    string
	configPath string
}

func TestBacktestCmdSuite(t *testing.T) {
	suite.Run(t, new(BacktestCmdTestSuite))
}

func (suite *BacktestCmdTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.tempDir = suite.T().TempDir()
	suite.configPath = filepath.Join(suite.tempDir, "config.yaml")

	config := fmt.Sprintf(`
database:
  path: %s
log:
  level: error
backtest:
  initial_balance: 1000
  results_folder: %s
exchanges:
  - name: paper
    driver: paper
    pairs:
      - symbol: BTC/USDT
        timeframe: 1h
        market_type: SPOT
        strategy: single_entry
        params:
          entry_volume: 100
          take_profit_percent: 2
      - symbol: ETH/USDT
        timeframe: 1h
        market_type: SPOT
        strategy: single_entry
        params:
          entry_volume: 100
          direction: short
`, filepath.Join(suite.tempDir, "argo.duckdb"), filepath.Join(suite.tempDir, "results"))

	suite.Require().NoError(os.WriteFile(suite.configPath, []byte(config), 0644))
}

func (suite *BacktestCmdTestSuite) run(args ...string) error {
	return newCommand().Run(suite.ctx, append([]string{"backtest", "--config", suite.configPath}, args...))
}

func (suite *BacktestCmdTestSuite) runWithOutput(args ...string) (string, error) {
	var out bytes.Buffer

	cmd := newCommand()
	cmd.Writer = &out
	err := cmd.Run(suite.ctx, append([]string{"backtest", "--config", suite.configPath}, args...))

	return out.String(), err
}

func (suite *BacktestCmdTestSuite) writeCSV(hours int) string {
	var b strings.Builder

	b.WriteString("time,open,high,low,close,volume\n")

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range hours {
		price := 100 + float64(i%5)
		fmt.Fprintf(&b, "%s,%.2f,%.2f,%.2f,%.2f,10\n",
			start.Add(time.Duration(i)*time.Hour).Format("2006-01-02 15:04:05"), price, price+3, price-1, price+1)
	}

	path := filepath.Join(suite.tempDir, "btc.csv")
	suite.Require().NoError(os.WriteFile(path, []byte(b.String()), 0644))

	return path
}

func (suite *BacktestCmdTestSuite) TestImportThenRun() {
	csv := suite.writeCSV(48)

	suite.Require().NoError(suite.run("import", "--exchange", "paper", "--symbol", "btc/usdt", "--file", csv))

	suite.Require().NoError(suite.run("run",
		"--exchange", "paper",
		"--symbol", "BTC/USDT",
		"--start", "2024-01-01T12:00:00Z",
		"--end", "2024-01-02T12:00:00Z",
		"--events", filepath.Join(suite.tempDir, "events.jsonl"),
	))

	stats, err := filepath.Glob(filepath.Join(suite.tempDir, "results", "*", "stats.yaml"))
	suite.Require().NoError(err)
	suite.Len(stats, 1)

	events, err := os.ReadFile(filepath.Join(suite.tempDir, "events.jsonl"))
	suite.Require().NoError(err)
	suite.Contains(string(events), `"result"`)

	exported := filepath.Join(suite.tempDir, "btc.parquet")
	suite.Require().NoError(suite.run("export", "--exchange", "paper", "--symbol", "BTC/USDT", "--out", exported))
	suite.FileExists(exported)
}

func (suite *BacktestCmdTestSuite) TestUnknownPair() {
	err := suite.run("run", "--exchange", "paper", "--symbol", "DOGE/USDT")
	suite.Require().Error(err)
	suite.Contains(err.Error(), "not configured")
}

func (suite *BacktestCmdTestSuite) TestPreflight() {
	out, err := suite.runWithOutput("preflight", "--exchange", "paper", "--symbol", "BTC/USDT")
	suite.Require().NoError(err)
	suite.Contains(out, "Preflight BTC/USDT 1h on paper")
	suite.Contains(out, "ok")

	out, err = suite.runWithOutput("preflight", "--exchange", "paper", "--symbol", "ETH/USDT")
	suite.Require().Error(err)
	suite.Contains(err.Error(), "unsafe to trade")
	suite.Contains(out, "error:   direction short needs a futures market")
}

func (suite *BacktestCmdTestSuite) TestSchemaToFile() {
	out := filepath.Join(suite.tempDir, "schema.json")

	suite.Require().NoError(suite.run("schema", "--out", out))

	data, err := os.ReadFile(out)
	suite.Require().NoError(err)
	suite.Contains(string(data), "argo-dca-config")
}
