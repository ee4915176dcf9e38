package backtest

import (
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/rxtech-lab/argo-dca/internal/types"
	"github.com/shopspring/decimal"
)

// EventType names a record of the replay stream.
type EventType string

const (
	EventInit          EventType = "init"
	EventCandle        EventType = "candle"
	EventPositionOpen  EventType = "positionOpen"
	EventDCAFill       EventType = "dcaFill"
	EventBreakevenLock EventType = "breakevenLock"
	EventPositionClose EventType = "positionClose"
	EventBalance       EventType = "balance"
	EventProgress      EventType = "progress"
	EventResult        EventType = "result"
	EventError         EventType = "error"
	EventDone          EventType = "done"
)

// InitPayload describes the run that is about to replay.
type InitPayload struct {
	Ticker         string          `json:"ticker"`
	Exchange       string          `json:"exchange"`
	MarketType     string          `json:"market_type"`
	Timeframe      string          `json:"timeframe"`
	Strategy       string          `json:"strategy"`
	Params         map[string]any  `json:"params"`
	Start          time.Time       `json:"start"`
	End            time.Time       `json:"end"`
	InitialBalance decimal.Decimal `json:"initial_balance"`
	TicksPerCandle int             `json:"ticks_per_candle"`
}

// BalancePayload is the account after a candle.
type BalancePayload struct {
	Balance       decimal.Decimal `json:"balance"`
	UnrealizedPnl decimal.Decimal `json:"unrealized_pnl"`
	Equity        decimal.Decimal `json:"equity"`
}

// ProgressPayload reports replay progress in candles.
type ProgressPayload struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}

// Event is one record of the append-only replay stream. Only the payload
// matching Type is set.
type Event struct {
	Type       EventType          `json:"type"`
	RunID      string             `json:"run_id"`
	Time       time.Time          `json:"time"`
	Init       *InitPayload       `json:"init,omitempty"`
	Candle     *types.Candle      `json:"candle,omitempty"`
	Indicators map[string]float64 `json:"indicators,omitempty"`
	Position   *types.Position    `json:"position,omitempty"`
	Balance    *BalancePayload    `json:"balance,omitempty"`
	Progress   *ProgressPayload   `json:"progress,omitempty"`
	Result     *Result            `json:"result,omitempty"`
	Error      string             `json:"error,omitempty"`
}

// Sink consumes replay events. Emit must not retain the event's pointers
// beyond the call unless it owns a copy.
type Sink interface {
	Emit(event Event) error
}

// NopSink drops every event.
type NopSink struct{}

func (NopSink) Emit(Event) error { return nil }

// JSONLinesSink writes one JSON object per line.
type JSONLinesSink struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewJSONLinesSink writes events to w.
func NewJSONLinesSink(w io.Writer) *JSONLinesSink {
	return &JSONLinesSink{enc: json.NewEncoder(w)}
}

func (s *JSONLinesSink) Emit(event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.enc.Encode(event)
}

// ChannelSink forwards events to a channel. Emit blocks while the channel is full.
type ChannelSink struct {
	ch chan<- Event
}

// NewChannelSink forwards events to ch.
func NewChannelSink(ch chan<- Event) *ChannelSink {
	return &ChannelSink{ch: ch}
}

func (s *ChannelSink) Emit(event Event) error {
	s.ch <- event

	return nil
}

// MemorySink keeps every event in order.
type MemorySink struct {
	mu     sync.Mutex
	events []Event
}

// NewMemorySink creates an empty memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Emit(event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = append(s.events, event)

	return nil
}

// Events returns a copy of the recorded events.
func (s *MemorySink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]Event(nil), s.events...)
}

// OfType returns the recorded events of one type.
func (s *MemorySink) OfType(t EventType) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Event

	for _, e := range s.events {
		if e.Type == t {
			out = append(out, e)
		}
	}

	return out
}
