// Package marketdata downloads historical candles into the candle store so
// pairs can be backtested without a CSV export.
package marketdata

import (
	"context"
	"strconv"
	"strings"
	"time"

	binance "github.com/adshao/go-binance/v2"
	"github.com/rxtech-lab/argo-dca/internal/logger"
	"github.com/rxtech-lab/argo-dca/internal/types"
	"github.com/rxtech-lab/argo-dca/pkg/errors"
	"go.uber.org/zap"
)

// pageSize is the number of klines requested per call. Binance caps it at 1000.
const pageSize = 1000

// OnDownloadProgress reports how much of the requested window is done, in
// milliseconds relative to its start.
type OnDownloadProgress = func(current, total int64)

// CandleWriter receives the downloaded candles page by page.
type CandleWriter interface {
	SaveCandles(ctx context.Context, pair types.Pair, candles []types.Candle) error
}

// BinanceKlinesService is the subset of the go-binance klines service used here.
type BinanceKlinesService interface {
	Symbol(symbol string) BinanceKlinesService
	Interval(interval string) BinanceKlinesService
	StartTime(startTime int64) BinanceKlinesService
	EndTime(endTime int64) BinanceKlinesService
	Limit(limit int) BinanceKlinesService
	Do(ctx context.Context) ([]*binance.Kline, error)
}

// BinanceAPIClient creates klines requests.
type BinanceAPIClient interface {
	NewKlinesService() BinanceKlinesService
}

type binanceAPI struct {
	client *binance.Client
}

func (a *binanceAPI) NewKlinesService() BinanceKlinesService {
	return &binanceKlines{svc: a.client.NewKlinesService()}
}

type binanceKlines struct {
	svc *binance.KlinesService
}

func (k *binanceKlines) Symbol(symbol string) BinanceKlinesService {
	k.svc.Symbol(symbol)
	return k
}

func (k *binanceKlines) Interval(interval string) BinanceKlinesService {
	k.svc.Interval(interval)
	return k
}

func (k *binanceKlines) StartTime(startTime int64) BinanceKlinesService {
	k.svc.StartTime(startTime)
	return k
}

func (k *binanceKlines) EndTime(endTime int64) BinanceKlinesService {
	k.svc.EndTime(endTime)
	return k
}

func (k *binanceKlines) Limit(limit int) BinanceKlinesService {
	k.svc.Limit(limit)
	return k
}

func (k *binanceKlines) Do(ctx context.Context) ([]*binance.Kline, error) {
	return k.svc.Do(ctx)
}

// BinanceDownloader pages through Binance public klines.
type BinanceDownloader struct {
	api BinanceAPIClient
	log *logger.Logger
}

// NewBinanceDownloader uses the public Binance REST API. No key is needed.
func NewBinanceDownloader(log *logger.Logger) *BinanceDownloader {
	return NewBinanceDownloaderWithAPI(&binanceAPI{client: binance.NewClient("", "")}, log)
}

// NewBinanceDownloaderWithAPI uses api for every request.
func NewBinanceDownloaderWithAPI(api BinanceAPIClient, log *logger.Logger) *BinanceDownloader {
	return &BinanceDownloader{api: api, log: log}
}

// Download fetches the candles of pair opened in [start, end) and writes them
// to w. It returns the number of candles written.
func (d *BinanceDownloader) Download(ctx context.Context, pair types.Pair, start, end time.Time, w CandleWriter, onProgress OnDownloadProgress) (int, error) {
	interval, err := BinanceInterval(pair.Timeframe)
	if err != nil {
		return 0, err
	}

	if !end.After(start) {
		return 0, errors.New(errors.ErrCodeInvalidParameter, "download end must be after start")
	}

	ticker := strings.ToUpper(pair.BaseCurrency + pair.QuoteCurrency)
	startMillis := start.UnixMilli()
	endMillis := end.UnixMilli()
	current := startMillis
	written := 0

	for current < endMillis {
		klines, err := d.api.NewKlinesService().
			Symbol(ticker).
			Interval(interval).
			StartTime(current).
			EndTime(endMillis - 1).
			Limit(pageSize).
			Do(ctx)
		if err != nil {
			return written, errors.Wrapf(errors.ErrCodeExchangeUnavailable, err, "failed to fetch %s klines from Binance", ticker)
		}

		if len(klines) == 0 {
			break
		}

		candles, err := convertKlines(klines)
		if err != nil {
			return written, err
		}

		if err := w.SaveCandles(ctx, pair, candles); err != nil {
			return written, err
		}

		written += len(candles)
		// the next page starts after the close of the last kline
		current = klines[len(klines)-1].CloseTime + 1

		if onProgress != nil {
			onProgress(min(current, endMillis)-startMillis, endMillis-startMillis)
		}

		if len(klines) < pageSize {
			break
		}
	}

	d.log.Info("Downloaded candles",
		zap.String("ticker", ticker),
		zap.String("interval", interval),
		zap.Int("candles", written),
	)

	return written, nil
}

// convertKlines parses the string fields of Binance klines.
func convertKlines(klines []*binance.Kline) ([]types.Candle, error) {
	candles := make([]types.Candle, 0, len(klines))

	for _, k := range klines {
		var (
			c   = types.Candle{OpenTime: time.UnixMilli(k.OpenTime).UTC()}
			err error
		)

		fields := []struct {
			raw string
			dst *float64
		}{
			{k.Open, &c.Open},
			{k.High, &c.High},
			{k.Low, &c.Low},
			{k.Close, &c.Close},
			{k.Volume, &c.Volume},
		}

		for _, f := range fields {
			if *f.dst, err = strconv.ParseFloat(f.raw, 64); err != nil {
				return nil, errors.Wrapf(errors.ErrCodeInvalidPrice, err, "kline at %d", k.OpenTime)
			}
		}

		candles = append(candles, c)
	}

	return candles, nil
}

// BinanceInterval converts a timeframe into a Binance kline interval.
// Binance intervals: 1m, 3m, 5m, 15m, 30m, 1h, 2h, 4h, 6h, 8h, 12h, 1d, 3d, 1w, 1M
// Ref: https://binance-docs.github.io/apidocs/spot/en/#kline-candlestick-data
func BinanceInterval(tf types.Timeframe) (string, error) {
	if tf.Duration() <= 0 {
		return "", errors.Newf(errors.ErrCodeInvalidTimeframe, "unsupported timeframe for Binance: %q", tf)
	}

	// every supported timeframe is spelled the Binance way
	return string(tf), nil
}
