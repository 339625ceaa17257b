package ws

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/DoyleJ11/deckwars-server/internal/conn"
	"github.com/DoyleJ11/deckwars-server/internal/hub"
)

type Options struct {
	OutboxDepth  int
	ReadLimit    int64
	WriteTimeout time.Duration
	PingInterval time.Duration
	PingTimeout  time.Duration
	// RateLimit is messages per second with RateBurst headroom.
	RateLimit rate.Limit
	RateBurst int
	// OriginPatterns loosens the same-origin check, e.g. "localhost:*".
	OriginPatterns []string
}

func DefaultOptions() Options {
	return Options{
		OutboxDepth:  64,
		ReadLimit:    16 << 10,
		WriteTimeout: 5 * time.Second,
		PingInterval: 30 * time.Second,
		PingTimeout:  10 * time.Second,
		RateLimit:    20,
		RateBurst:    40,
	}
}

func Handler(h *hub.Hub, opts Options, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: opts.OriginPatterns})
		if err != nil {
			log.Debug("websocket accept", zap.String("remote", r.RemoteAddr), zap.Error(err))
			return
		}
		defer c.CloseNow()
		c.SetReadLimit(opts.ReadLimit)

		out := conn.NewOutbox(opts.OutboxDepth)
		reply, err := h.Connect(r.Context(), conn.WebSocket{Outbox: out, Remote: r.RemoteAddr})
		if err != nil {
			c.Close(websocket.StatusTryAgainLater, "server full")
			return
		}
		log := log.With(zap.Int64("conn_id", int64(reply.ID)), zap.String("client_id", reply.ClientID.String()))
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			h.Submit(ctx, hub.Disconnect{ID: reply.ID})
		}()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// Writer goroutine
		go func() {
			defer cancel()
			ping := time.NewTicker(opts.PingInterval)
			defer ping.Stop()
			for {
				select {
				case <-ctx.Done():
					return

				case payload, ok := <-out.C():
					if !ok {
						// Hub dropped us (slow consumer) or is shutting down.
						c.Close(websocket.StatusGoingAway, "closing")
						return
					}
					wctx, wcancel := context.WithTimeout(ctx, opts.WriteTimeout)
					err := c.Write(wctx, websocket.MessageText, payload)
					wcancel()
					if err != nil {
						log.Debug("write", zap.Error(err))
						return
					}

				case <-ping.C:
					pctx, pcancel := context.WithTimeout(ctx, opts.PingTimeout)
					err := c.Ping(pctx)
					pcancel()
					if err != nil {
						log.Debug("ping", zap.Error(err))
						return
					}
				}
			}
		}()

		// Reader loop
		limiter := rate.NewLimiter(opts.RateLimit, opts.RateBurst)
		for {
			typ, data, err := c.Read(ctx)
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				default:
					if !errors.Is(err, context.Canceled) {
						log.Debug("read", zap.Error(err))
					}
				}
				return
			}
			if typ != websocket.MessageText {
				c.Close(websocket.StatusUnsupportedData, "text frames only")
				return
			}
			if !limiter.Allow() {
				log.Info("rate limit exceeded")
				c.Close(websocket.StatusPolicyViolation, "rate limit exceeded")
				return
			}
			if !h.Submit(ctx, hub.Inbound{ID: reply.ID, Data: data, At: time.Now()}) {
				return
			}
		}
	}
}
