package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/example/venueboard/internal/devserver"
	"github.com/example/venueboard/internal/platform/config"
	"github.com/example/venueboard/internal/platform/httpserver"
	"github.com/example/venueboard/internal/platform/logging"
	"github.com/example/venueboard/internal/platform/run"
	"github.com/example/venueboard/internal/remote"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log, err := logging.New(cfg.LogLevel, "devapi")
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	srv := devserver.New(log, cfg.DevAPI.JWTSecret)
	seed(srv.Store)

	httpSrv := httpserver.New(httpserver.Options{Addr: cfg.DevAPI.Addr, Router: srv.Router()})

	runner := run.New(log)
	code := runner.WithSignals(func(ctx context.Context) error {
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = httpSrv.Shutdown(shutdownCtx)
		}()
		return httpSrv.Start(log)
	})

	log.Info("exit", zap.Int("code", code))
	run.Exit(code)
}

// seed fills the store with enough content to exercise every client surface:
// a couple of boards, a venue event, and a short comment thread.
func seed(s *devserver.Store) {
	ha := s.AddMember("haru")
	mi := s.AddMember("mina")

	free := s.AddPost("free", ha, "first visit to the new listening bar", "worth the queue, ask for the back room")
	s.AddPost("free", mi, "weekend flea market recap", "picked up three records and a lamp")
	s.AddPost("meetups", ha, "board game night, thursday", "six seats, first come first served")
	s.AddEvent(1, "rooftop film screening", time.Now().Add(72*time.Hour))

	if c, err := s.CreateComment(mi, remote.CreateCommentRequest{PostID: free, Content: "which back room?"}); err == nil {
		_, _ = s.CreateComment(ha, remote.CreateCommentRequest{PostID: free, ParentID: &c.ID, Content: "behind the bar, knock twice"})
	}
}
