// Package forwarder implements the retry and reply-assembly policy that
// turns one inbound client datagram into at most one upstream transaction
// and at most one client reply.
package forwarder

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/google/uuid"

	"github.com/quietloop/dnsfwd/internal/dns/common/clock"
	"github.com/quietloop/dnsfwd/internal/dns/common/log"
	"github.com/quietloop/dnsfwd/internal/dns/domain"
)

const (
	maxAttempts    = 3
	attemptTimeout = 3 * time.Second
	dohBackoff     = 1 * time.Second
	debugDelay     = 3 * time.Second
)

// Options configures a Forwarder. Codec, Transport, and Sink are required;
// Clock and Logger default to the real clock and a no-op logger.
type Options struct {
	Codec     Codec
	Transport Transport
	Sink      Sink
	Logger    log.Logger
	Clock     clock.Clock

	// DoH selects DoH-mode forwarding semantics (decode-and-rebuild the
	// reply) over UDP-relay semantics (forward upstream bytes verbatim).
	DoH bool

	// Debug injects a fixed delay at the start of every forwarding task,
	// to make concurrent interleaving observable. It never changes
	// forwarding semantics.
	Debug bool
}

// Forwarder turns inbound client datagrams into upstream transactions and
// client replies, retrying transient failures per a fixed policy.
type Forwarder struct {
	codec     Codec
	transport Transport
	sink      Sink
	logger    log.Logger
	clock     clock.Clock
	doh       bool
	debug     bool

	sleep func(ctx context.Context, d time.Duration)
}

// New returns a Forwarder built from opts.
func New(opts Options) *Forwarder {
	c := opts.Clock
	if c == nil {
		c = clock.RealClock{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &Forwarder{
		codec:     opts.Codec,
		transport: opts.Transport,
		sink:      opts.Sink,
		logger:    logger,
		clock:     c,
		doh:       opts.DoH,
		debug:     opts.Debug,
		sleep:     ctxSleep,
	}
}

// ctxSleep blocks for d or until ctx is cancelled, whichever comes first.
func ctxSleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

// Forward resolves queryBytes against the configured upstream and, on
// success, writes exactly one reply to clientAddr via sender. On total
// failure it sends nothing. Every log line emitted for this call carries
// the same correlation id.
func (f *Forwarder) Forward(ctx context.Context, sender ReplySender, queryBytes []byte, clientAddr net.Addr) {
	correlationID := uuid.NewString()
	start := f.clock.Now()

	if f.debug {
		f.sleep(ctx, debugDelay)
	}

	if f.doh {
		f.forwardDoH(ctx, sender, queryBytes, clientAddr, correlationID, start)
		return
	}
	f.forwardUDP(ctx, sender, queryBytes, clientAddr, correlationID, start)
}

func (f *Forwarder) forwardUDP(ctx context.Context, sender ReplySender, queryBytes []byte, clientAddr net.Addr, correlationID string, start time.Time) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		respBytes, err := f.attempt(ctx, queryBytes)
		if err == nil {
			end := f.clock.Now()
			if _, werr := sender.WriteTo(respBytes, clientAddr); werr != nil {
				f.logger.Error(map[string]any{
					"correlation_id": correlationID,
					"error":          werr.Error(),
				}, "forwarder: failed to write reply to client")
				return
			}
			f.logSuccess(respBytes, correlationID, end.Sub(start), clientAddr)
			return
		}
		lastErr = err
		if !errors.Is(err, domain.ErrTimeout) {
			break
		}
	}
	f.logFailure(lastErr, correlationID, clientAddr)
}

func (f *Forwarder) forwardDoH(ctx context.Context, sender ReplySender, queryBytes []byte, clientAddr net.Addr, correlationID string, start time.Time) {
	clientMsg, err := f.codec.Decode(queryBytes)
	if err != nil {
		f.logger.Debug(map[string]any{
			"correlation_id": correlationID,
			"error":          err.Error(),
		}, "forwarder: dropping undecodable query")
		return
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		respBytes, err := f.attempt(ctx, queryBytes)
		if err == nil {
			upstreamMsg, decErr := f.codec.Decode(respBytes)
			if decErr != nil {
				f.logger.Error(map[string]any{
					"correlation_id": correlationID,
					"error":          decErr.Error(),
				}, "forwarder: failed to decode upstream DoH response")
				lastErr = decErr
				continue
			}
			reply, encErr := f.codec.EncodeReply(queryBytes, upstreamMsg)
			if encErr != nil {
				f.logger.Error(map[string]any{
					"correlation_id": correlationID,
					"error":          encErr.Error(),
				}, "forwarder: failed to encode reply")
				lastErr = encErr
				break
			}
			end := f.clock.Now()
			if _, werr := sender.WriteTo(reply, clientAddr); werr != nil {
				f.logger.Error(map[string]any{
					"correlation_id": correlationID,
					"error":          werr.Error(),
				}, "forwarder: failed to write reply to client")
				return
			}
			f.sink.Record(upstreamMsg)
			f.logSuccess(reply, correlationID, end.Sub(start), clientAddr)
			return
		}
		lastErr = err
		var te *domain.TransportError
		if errors.As(err, &te) && te.StatusCode != 0 && !domain.IsRetryableHTTPStatus(te.StatusCode) {
			break
		}
		if errors.Is(err, domain.ErrNetwork) && attempt < maxAttempts {
			f.sleep(ctx, dohBackoff)
		}
	}

	f.logFailureWithQuestion(lastErr, correlationID, clientAddr, clientMsg)
}

// attempt runs a single upstream transaction bounded by attemptTimeout.
func (f *Forwarder) attempt(ctx context.Context, queryBytes []byte) ([]byte, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, attemptTimeout)
	defer cancel()
	return f.transport.Resolve(attemptCtx, queryBytes)
}

func (f *Forwarder) logSuccess(respBytes []byte, correlationID string, elapsed time.Duration, clientAddr net.Addr) {
	fields := map[string]any{
		"correlation_id": correlationID,
		"client_addr":    clientAddr.String(),
		"elapsed_ms":     elapsed.Milliseconds(),
	}
	msg, err := f.codec.Decode(respBytes)
	if err != nil {
		f.logger.Info(fields, "forwarder: reply sent (upstream response undecodable for summary)")
		return
	}
	if q, ok := msg.FirstQuestion(); ok {
		fields["question_name"] = q.Name.String()
		fields["question_type"] = q.Type.String()
	}
	fields["answer_count"] = len(msg.Answers)
	fields["authority_count"] = len(msg.Authority)
	fields["additional_count"] = len(msg.Additional)
	f.logger.Info(fields, "forwarder: reply sent")

	if !f.doh {
		f.sink.Record(msg)
	}
}

func (f *Forwarder) logFailure(err error, correlationID string, clientAddr net.Addr) {
	f.logger.Error(map[string]any{
		"correlation_id": correlationID,
		"client_addr":    clientAddr.String(),
		"error":          err.Error(),
	}, "forwarder: all upstream attempts failed, dropping query")
}

func (f *Forwarder) logFailureWithQuestion(err error, correlationID string, clientAddr net.Addr, clientMsg domain.Message) {
	fields := map[string]any{
		"correlation_id": correlationID,
		"client_addr":    clientAddr.String(),
		"error":          err.Error(),
	}
	if q, ok := clientMsg.FirstQuestion(); ok {
		fields["question_name"] = q.Name.String()
		fields["question_type"] = q.Type.String()
	}
	f.logger.Error(fields, "forwarder: all upstream attempts failed, dropping query")
}
