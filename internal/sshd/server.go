// Package sshd is the SSH transport: a textual mirror of the protocol for
// terminal players. Typed commands are translated into protocol JSON and
// outbound messages are rendered back into lines.
package sshd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"
	"golang.org/x/term"
	"golang.org/x/time/rate"

	"github.com/DoyleJ11/deckwars-server/internal/conn"
	"github.com/DoyleJ11/deckwars-server/internal/hub"
)

var (
	ErrNoHostKey  = errors.New("sshd: host key required")
	errAnonymous  = errors.New("username required")
	errNoPassword = errors.New("password required")
)

type Options struct {
	Addr         string
	HostKey      ssh.Signer
	OutboxDepth  int
	AuthTimeout  time.Duration
	IdleTimeout  time.Duration
	MaxAuthTries int
	RateLimit    rate.Limit
	RateBurst    int
}

func DefaultOptions() Options {
	return Options{
		Addr:         ":2222",
		OutboxDepth:  64,
		AuthTimeout:  30 * time.Second,
		IdleTimeout:  10 * time.Minute,
		MaxAuthTries: 3,
		RateLimit:    5,
		RateBurst:    10,
	}
}

type Server struct {
	hub  *hub.Hub
	opts Options
	cfg  *ssh.ServerConfig
	log  *zap.Logger
	wg   sync.WaitGroup
}

func New(h *hub.Hub, opts Options, log *zap.Logger) (*Server, error) {
	if opts.HostKey == nil {
		return nil, ErrNoHostKey
	}
	cfg := &ssh.ServerConfig{
		MaxAuthTries: opts.MaxAuthTries,
		PasswordCallback: func(c ssh.ConnMetadata, password []byte) (*ssh.Permissions, error) {
			if c.User() == "" {
				return nil, errAnonymous
			}
			if len(password) == 0 {
				return nil, errNoPassword
			}
			return nil, nil
		},
		PublicKeyCallback: func(c ssh.ConnMetadata, key ssh.PublicKey) (*ssh.Permissions, error) {
			if c.User() == "" {
				return nil, errAnonymous
			}
			return &ssh.Permissions{Extensions: map[string]string{"pubkey-fp": ssh.FingerprintSHA256(key)}}, nil
		},
		AuthLogCallback: func(c ssh.ConnMetadata, method string, err error) {
			if err != nil && method != "none" {
				log.Debug("ssh auth failed", zap.String("user", c.User()), zap.String("method", method),
					zap.String("remote", c.RemoteAddr().String()), zap.Error(err))
			}
		},
	}
	cfg.AddHostKey(opts.HostKey)
	return &Server{hub: h, opts: opts, cfg: cfg, log: log}, nil
}

func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("sshd listen: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts on ln until ctx is cancelled, then waits for every
// connection goroutine to finish.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.log.Info("ssh listening", zap.String("addr", ln.Addr().String()))
	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer stop()
	defer s.wg.Wait()

	for {
		nc, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			return fmt.Errorf("sshd accept: %w", err)
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(ctx, nc)
		}()
	}
}

func (s *Server) handleConn(ctx context.Context, nc net.Conn) {
	defer nc.Close()
	log := s.log.With(zap.String("remote", nc.RemoteAddr().String()))

	if s.opts.AuthTimeout > 0 {
		nc.SetDeadline(time.Now().Add(s.opts.AuthTimeout))
	}
	sconn, chans, reqs, err := ssh.NewServerConn(nc, s.cfg)
	if err != nil {
		log.Debug("ssh handshake", zap.Error(err))
		return
	}
	defer sconn.Close()
	nc.SetDeadline(time.Time{})
	stop := context.AfterFunc(ctx, func() { sconn.Close() })
	defer stop()

	log = log.With(zap.String("user", sconn.User()))
	go ssh.DiscardRequests(reqs)

	var wg sync.WaitGroup
	defer wg.Wait()
	for nch := range chans {
		if nch.ChannelType() != "session" {
			nch.Reject(ssh.UnknownChannelType, "only session channels are supported")
			continue
		}
		ch, creqs, err := nch.Accept()
		if err != nil {
			log.Debug("ssh channel accept", zap.Error(err))
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.session(ctx, sconn, ch, creqs, log)
		}()
	}
}

type ptyRequest struct {
	Term   string
	Width  uint32
	Height uint32
	PxW    uint32
	PxH    uint32
	Modes  string
}

type windowChange struct {
	Width  uint32
	Height uint32
	PxW    uint32
	PxH    uint32
}

type exitStatus struct {
	Status uint32
}

// session runs one shell: it waits for the client to ask for a shell, then
// registers with the hub and pumps lines both ways until either side quits.
func (s *Server) session(ctx context.Context, sconn *ssh.ServerConn, ch ssh.Channel, reqs <-chan *ssh.Request, log *zap.Logger) {
	defer ch.Close()
	t := term.NewTerminal(ch, "> ")

	shell, gone := make(chan struct{}), make(chan struct{})
	go func() {
		defer close(gone)
		var once sync.Once
		for req := range reqs {
			ok := false
			switch req.Type {
			case "pty-req":
				var p ptyRequest
				if ssh.Unmarshal(req.Payload, &p) == nil {
					t.SetSize(int(p.Width), int(p.Height))
					ok = true
				}
			case "window-change":
				var w windowChange
				if ssh.Unmarshal(req.Payload, &w) == nil {
					t.SetSize(int(w.Width), int(w.Height))
					ok = true
				}
			case "shell":
				once.Do(func() { close(shell) })
				ok = true
			case "env":
				ok = true
			}
			if req.WantReply {
				req.Reply(ok, nil)
			}
		}
	}()

	select {
	case <-shell:
	case <-gone:
		return
	case <-ctx.Done():
		return
	}

	out := conn.NewOutbox(s.opts.OutboxDepth)
	reply, err := s.hub.Connect(ctx, conn.SSH{Outbox: out, User: sconn.User(), Remote: sconn.RemoteAddr().String()})
	if err != nil {
		fmt.Fprintln(t, "server full, try again later")
		return
	}
	log = log.With(zap.Int64("conn_id", int64(reply.ID)), zap.String("client_id", reply.ClientID.String()))

	fmt.Fprintf(t, "welcome %s, type help for commands\n", sconn.User())

	// Writer goroutine
	done := make(chan struct{})
	go func() {
		defer close(done)
		for payload := range out.C() {
			for _, line := range Render(payload) {
				if _, err := fmt.Fprintln(t, line); err != nil {
					return
				}
			}
		}
		// Hub dropped us or is shutting down.
		ch.Close()
	}()

	var idle *time.Timer
	if s.opts.IdleTimeout > 0 {
		idle = time.AfterFunc(s.opts.IdleTimeout, func() {
			fmt.Fprintln(t, "idle timeout")
			ch.Close()
		})
		defer idle.Stop()
	}

	// Reader loop
	limiter := rate.NewLimiter(s.opts.RateLimit, s.opts.RateBurst)
	for {
		input, err := t.ReadLine()
		if err != nil {
			break
		}
		if idle != nil {
			idle.Reset(s.opts.IdleTimeout)
		}

		line, err := Translate(input)
		if err != nil {
			fmt.Fprintln(t, err.Error())
			continue
		}
		if line.Help {
			for _, l := range HelpText() {
				fmt.Fprintln(t, l)
			}
			continue
		}
		if line.Quit {
			ch.SendRequest("exit-status", false, ssh.Marshal(exitStatus{}))
			break
		}
		if line.JSON == nil {
			continue
		}
		if !limiter.Allow() {
			log.Info("rate limit exceeded")
			fmt.Fprintln(t, "rate limit exceeded, closing")
			break
		}
		if !s.hub.Submit(ctx, hub.Inbound{ID: reply.ID, Data: line.JSON, At: time.Now()}) {
			break
		}
	}

	ch.Close()
	dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.hub.Submit(dctx, hub.Disconnect{ID: reply.ID})
	select {
	case <-done:
	case <-dctx.Done():
	}
}
