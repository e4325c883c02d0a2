// Package dispatch runs a message through the configured provider adapters in
// priority order, retrying whole rounds with exponential backoff and falling
// back to a canned reply when every round fails.
package dispatch

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/linnemanlabs/ethicamind/internal/provider"
)

const (
	DefaultMaxRounds      = 3
	DefaultBaseDelay      = time.Second
	DefaultAttemptTimeout = 30 * time.Second

	tracerName = "github.com/linnemanlabs/ethicamind/internal/dispatch"
)

// DefaultFallbackMessages are shown when no provider produced a reply. None
// of them carry error detail.
var DefaultFallbackMessages = []string{
	"Sorry, I'm having trouble reaching the AI service; please try again later.",
	"I'm having a little trouble responding right now. Please try again in a moment.",
	"Something on my side isn't working at the moment. Please try again shortly, and take care in the meantime.",
}

// Kind tags a dispatch Outcome.
type Kind string

const (
	KindReplied  Kind = "replied"
	KindFallback Kind = "fallback"
)

// Outcome is the final result of Dispatch. Provider is empty for fallbacks.
type Outcome struct {
	Kind     Kind
	Text     string
	Provider string
	Rounds   int
	Attempts int
}

// Hooks receives dispatch lifecycle events. Nil fields are skipped.
type Hooks struct {
	OnAttempt  func(provider string, ok bool, duration float64)
	OnBackoff  func(round int, delay time.Duration)
	OnComplete func(o Outcome, duration float64)
}

// Options configures a Dispatcher. Zero values take the package defaults.
type Options struct {
	MaxRounds        int
	BaseDelay        time.Duration
	AttemptTimeout   time.Duration
	FallbackMessages []string

	// Pick returns an index in [0,n). Defaults to math/rand/v2.IntN.
	Pick func(n int) int

	// Sleep waits d or until ctx is done. Defaults to a timer-based wait.
	Sleep func(ctx context.Context, d time.Duration) error

	Logger log.Logger
	Hooks  Hooks
}

// Dispatcher is safe for concurrent use; it holds only read-only configuration.
type Dispatcher struct {
	providers      []provider.Provider
	maxRounds      int
	baseDelay      time.Duration
	attemptTimeout time.Duration
	fallbacks      []string
	pick           func(int) int
	sleep          func(context.Context, time.Duration) error
	logger         log.Logger
	hooks          Hooks
}

// New creates a Dispatcher over providers, tried in the given order.
func New(providers []provider.Provider, opts Options) *Dispatcher {
	for i, p := range providers {
		if p == nil {
			panic(xerrors.New(fmt.Sprintf("provider %d is nil", i)))
		}
	}

	d := &Dispatcher{
		providers:      append([]provider.Provider(nil), providers...),
		maxRounds:      opts.MaxRounds,
		baseDelay:      opts.BaseDelay,
		attemptTimeout: opts.AttemptTimeout,
		fallbacks:      append([]string(nil), opts.FallbackMessages...),
		pick:           opts.Pick,
		sleep:          opts.Sleep,
		logger:         opts.Logger,
		hooks:          opts.Hooks,
	}
	if d.maxRounds <= 0 {
		d.maxRounds = DefaultMaxRounds
	}
	if d.baseDelay <= 0 {
		d.baseDelay = DefaultBaseDelay
	}
	if d.attemptTimeout <= 0 {
		d.attemptTimeout = DefaultAttemptTimeout
	}
	if len(d.fallbacks) == 0 {
		d.fallbacks = DefaultFallbackMessages
	}
	if d.pick == nil {
		d.pick = rand.IntN
	}
	if d.sleep == nil {
		d.sleep = sleepContext
	}
	if d.logger == nil {
		d.logger = log.Nop()
	}
	return d
}

// Providers returns the adapter names in priority order.
func (d *Dispatcher) Providers() []string {
	names := make([]string, 0, len(d.providers))
	for _, p := range d.providers {
		names = append(names, p.Name())
	}
	return names
}

// Dispatch returns the first successful reply or a fallback. It never fails:
// exhaustion and cancellation both yield KindFallback.
func (d *Dispatcher) Dispatch(ctx context.Context, message string) Outcome {
	start := time.Now()

	ctx, span := otel.Tracer(tracerName).Start(ctx, "dispatch", trace.WithAttributes(
		attribute.Int("ethicamind.message.length", len(message)),
		attribute.Int("ethicamind.dispatch.max_rounds", d.maxRounds),
		attribute.Int("ethicamind.dispatch.providers", len(d.providers)),
	))
	defer span.End()

	bo := d.newBackOff()
	attempts := 0

	for round := 1; round <= d.maxRounds; round++ {
		d.logger.Info(ctx, "dispatch round",
			"round", round,
			"message_length", len(message),
		)

		for _, p := range d.providers {
			if ctx.Err() != nil {
				return d.finish(ctx, span, start, d.fallback(round, attempts))
			}

			attempts++
			res := d.attempt(ctx, p, message, round)
			if res.OK() {
				return d.finish(ctx, span, start, Outcome{
					Kind:     KindReplied,
					Text:     res.Text,
					Provider: p.Name(),
					Rounds:   round,
					Attempts: attempts,
				})
			}
		}

		if round == d.maxRounds {
			break
		}

		delay := bo.NextBackOff()
		d.logger.Warn(ctx, "all providers failed, backing off",
			"round", round,
			"delay", delay.String(),
		)
		span.AddEvent("backoff", trace.WithAttributes(
			attribute.Int("ethicamind.dispatch.round", round),
			attribute.Float64("ethicamind.dispatch.delay_seconds", delay.Seconds()),
		))
		if d.hooks.OnBackoff != nil {
			d.hooks.OnBackoff(round, delay)
		}

		if err := d.sleep(ctx, delay); err != nil {
			d.logger.Warn(ctx, "dispatch interrupted during backoff", "round", round, "error", err.Error())
			return d.finish(ctx, span, start, d.fallback(round, attempts))
		}
	}

	return d.finish(ctx, span, start, d.fallback(d.maxRounds, attempts))
}

func (d *Dispatcher) attempt(ctx context.Context, p provider.Provider, message string, round int) provider.Result {
	actx, cancel := context.WithTimeout(ctx, d.attemptTimeout)
	defer cancel()

	actx, span := otel.Tracer(tracerName).Start(actx, "provider.attempt", trace.WithAttributes(
		attribute.String("ethicamind.provider", p.Name()),
		attribute.Int("ethicamind.dispatch.round", round),
	))
	defer span.End()

	start := time.Now()
	res := safeAttempt(actx, p, message)
	dur := time.Since(start)

	ok := res.OK()
	if ok {
		span.SetAttributes(attribute.Int("ethicamind.reply.length", len(res.Text)))
	} else {
		err := res.Err
		if err == nil {
			err = provider.ErrEmptyReply
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, res.Reason())
		d.logger.Error(ctx, err, "provider attempt failed",
			"provider", p.Name(),
			"round", round,
			"duration", dur.Seconds(),
		)
	}

	if d.hooks.OnAttempt != nil {
		d.hooks.OnAttempt(p.Name(), ok, dur.Seconds())
	}
	return res
}

// safeAttempt turns an adapter panic into a failed Result.
func safeAttempt(ctx context.Context, p provider.Provider, message string) (res provider.Result) {
	defer func() {
		if r := recover(); r != nil {
			res = provider.Failure(fmt.Errorf("%s: panic: %v", p.Name(), r))
		}
	}()
	return p.Attempt(ctx, message)
}

func (d *Dispatcher) fallback(rounds, attempts int) Outcome {
	return Outcome{
		Kind:     KindFallback,
		Text:     d.fallbacks[d.pick(len(d.fallbacks))],
		Rounds:   rounds,
		Attempts: attempts,
	}
}

func (d *Dispatcher) finish(ctx context.Context, span trace.Span, start time.Time, o Outcome) Outcome {
	dur := time.Since(start).Seconds()

	span.SetAttributes(
		attribute.String("ethicamind.dispatch.outcome", string(o.Kind)),
		attribute.Int("ethicamind.dispatch.rounds", o.Rounds),
		attribute.Int("ethicamind.dispatch.attempts", o.Attempts),
	)
	if o.Provider != "" {
		span.SetAttributes(attribute.String("ethicamind.provider", o.Provider))
	}

	if o.Kind == KindFallback {
		d.logger.Warn(ctx, "providers exhausted, using fallback",
			"rounds", o.Rounds,
			"attempts", o.Attempts,
			"duration", dur,
		)
	} else {
		d.logger.Info(ctx, "provider replied",
			"provider", o.Provider,
			"rounds", o.Rounds,
			"attempts", o.Attempts,
			"duration", dur,
		)
	}

	if d.hooks.OnComplete != nil {
		d.hooks.OnComplete(o, dur)
	}
	return o
}

// newBackOff yields BaseDelay, 2*BaseDelay, 4*BaseDelay, ... with no jitter.
func (d *Dispatcher) newBackOff() *backoff.ExponentialBackOff {
	bo := &backoff.ExponentialBackOff{
		InitialInterval:     d.baseDelay,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         time.Duration(math.MaxInt64),
	}
	bo.Reset()
	return bo
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
