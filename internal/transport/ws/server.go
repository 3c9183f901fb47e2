package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"shipforge.ai/internal/persistence/indexdb"
	plog "shipforge.ai/internal/persistence/log"
	"shipforge.ai/internal/protocol"
	"shipforge.ai/internal/ship/validation"
)

type Config struct {
	// MaxBlocks rejects larger structures with E_TOO_LARGE. Zero means no limit.
	MaxBlocks       int
	MaxMessageBytes int
	SendQueue       int
	ReadTimeout     time.Duration
	// RatePerSecond caps VALIDATE requests per connection; zero disables it.
	RatePerSecond float64
	RateBurst     int
}

func DefaultConfig() Config {
	return Config{
		MaxBlocks:       200_000,
		MaxMessageBytes: 32 << 20,
		SendQueue:       8,
		ReadTimeout:     60 * time.Second,
		RatePerSecond:   20,
		RateBurst:       40,
	}
}

type Server struct {
	v       *validation.Validator
	log     *log.Logger
	cfg     Config
	reports *plog.ReportLogger
	index   *indexdb.SQLiteIndex
	metrics *Metrics

	upgrader websocket.Upgrader
}

type Option func(*Server)

func WithConfig(c Config) Option                   { return func(s *Server) { s.cfg = c } }
func WithReportLogger(l *plog.ReportLogger) Option { return func(s *Server) { s.reports = l } }
func WithIndex(idx *indexdb.SQLiteIndex) Option    { return func(s *Server) { s.index = idx } }
func WithMetrics(m *Metrics) Option                { return func(s *Server) { s.metrics = m } }

func NewServer(v *validation.Validator, logger *log.Logger, opts ...Option) *Server {
	s := &Server{
		v:   v,
		log: logger,
		cfg: DefaultConfig(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
	for _, o := range opts {
		o(s)
	}
	if s.cfg.SendQueue <= 0 {
		s.cfg.SendQueue = 8
	}
	if s.cfg.ReadTimeout <= 0 {
		s.cfg.ReadTimeout = 60 * time.Second
	}
	return s
}

func (s *Server) printf(format string, args ...any) {
	if s.log != nil {
		s.log.Printf(format, args...)
	}
}

// Handler serves one validation session per connection: WELCOME on connect,
// then one REPORT or ERROR per incoming message, in request order.
func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		if s.cfg.MaxMessageBytes > 0 {
			// Leave headroom so slightly oversized requests get an E_TOO_LARGE
			// reply instead of a dropped connection.
			conn.SetReadLimit(int64(s.cfg.MaxMessageBytes) * 2)
		}

		sessionID := uuid.NewString()
		if s.metrics != nil {
			s.metrics.Connections.Inc()
			defer s.metrics.Connections.Dec()
		}
		welcome := protocol.NewWelcomeMsg(sessionID, s.v.Catalogs(), s.v.Tuning(), s.cfg.MaxBlocks)
		if err := writeJSON(conn, welcome); err != nil {
			return
		}
		s.printf("session=%s connected remote=%s", sessionID, r.RemoteAddr)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()
		out := make(chan []byte, s.cfg.SendQueue)
		done := make(chan struct{})
		var limiter *rate.Limiter
		if s.cfg.RatePerSecond > 0 {
			limiter = rate.NewLimiter(rate.Limit(s.cfg.RatePerSecond), max(s.cfg.RateBurst, 1))
		}

		// Writer goroutine.
		go func() {
			defer close(done)
			for {
				select {
				case <-ctx.Done():
					return
				case b := <-out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			var reply any
			if limiter != nil && !limiter.Allow() {
				reply = s.rateLimited(msg)
			} else {
				reply = s.Handle(msg)
			}
			b, err := json.Marshal(reply)
			if err != nil {
				continue
			}
			select {
			case out <- b:
			case <-ctx.Done():
			}
			if ctx.Err() != nil {
				break
			}
		}
		cancel()
		<-done
		s.printf("session=%s closed", sessionID)
	}
}

func (s *Server) countError(code string) {
	if s.metrics != nil {
		s.metrics.Requests.WithLabelValues("error").Inc()
		s.metrics.Errors.WithLabelValues(code).Inc()
	}
}

func (s *Server) rateLimited(msg []byte) protocol.ErrorMsg {
	base, _ := protocol.DecodeBase(msg)
	s.countError(protocol.ErrRateLimit)
	return protocol.NewErrorMsg(base.RequestID, protocol.ErrRateLimit, "too many requests on this connection")
}

// Handle answers one raw client message with a REPORT or an ERROR message.
// A panic inside the analyzers becomes E_INTERNAL.
func (s *Server) Handle(msg []byte) (reply any) {
	reqID := ""
	fail := func(code, format string, args ...any) any {
		s.countError(code)
		return protocol.NewErrorMsg(reqID, code, fmt.Sprintf(format, args...))
	}
	defer func() {
		if r := recover(); r != nil {
			s.printf("request=%s panic: %v", reqID, r)
			reply = fail(protocol.ErrInternal, "internal error")
		}
	}()

	if s.cfg.MaxMessageBytes > 0 && len(msg) > s.cfg.MaxMessageBytes {
		return fail(protocol.ErrTooLarge, "message is %d bytes, limit %d", len(msg), s.cfg.MaxMessageBytes)
	}
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		return fail(protocol.ErrProtoBadRequest, "bad json: %v", err)
	}
	reqID = base.RequestID
	if !protocol.SupportsVersion(base.ProtocolVersion) {
		return fail(protocol.ErrProtoVersion, "unsupported protocol_version %q", base.ProtocolVersion)
	}
	if base.Type != protocol.TypeValidate {
		return fail(protocol.ErrProtoUnknownType, "unexpected message type %q", base.Type)
	}
	var vm protocol.ValidateMsg
	if err := json.Unmarshal(msg, &vm); err != nil {
		return fail(protocol.ErrProtoBadRequest, "bad VALIDATE: %v", err)
	}
	st, err := protocol.DecodeStructure(vm.Structure)
	if err != nil {
		return fail(protocol.CodeFor(err), "%v", err)
	}
	if s.cfg.MaxBlocks > 0 && st.Len() > s.cfg.MaxBlocks {
		return fail(protocol.ErrTooLarge, "structure has %d blocks, limit %d", st.Len(), s.cfg.MaxBlocks)
	}

	start := time.Now()
	rep, err := s.v.Run(st, validation.RunOptions{
		Stage:      validation.Stage(vm.Stage),
		StyleID:    vm.Style,
		AutoRepair: vm.AutoRepair,
	})
	if err != nil {
		em := protocol.NewValidationError(reqID, err)
		return fail(em.Code, "%s", em.Message)
	}

	runID := uuid.NewString()
	m := protocol.NewReportMsg(reqID, rep)
	if err := s.reports.WriteReport(runID, m); err != nil {
		s.printf("run=%s report log: %v", runID, err)
	}
	s.index.RecordReport(runID, time.Now(), m)
	if s.metrics != nil {
		s.metrics.Requests.WithLabelValues("report").Inc()
		s.metrics.Duration.WithLabelValues(string(rep.Stage)).Observe(time.Since(start).Seconds())
		s.metrics.Blocks.Observe(float64(st.Len()))
		s.metrics.Repairs.Add(float64(len(rep.Repairs)))
		for _, d := range rep.Diagnostics {
			s.metrics.Diagnostics.WithLabelValues(d.Code).Inc()
		}
	}
	s.printf("run=%s request=%s id=%s stage=%s blocks=%d valid=%v took=%s",
		runID, reqID, rep.StructureID, rep.Stage, st.Len(), rep.Valid, time.Since(start))
	return m
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
