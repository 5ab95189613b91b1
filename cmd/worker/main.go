package main

import (
	"context"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Hadesalive/smart-attendace-tracking-sub005/internal/attendance"
	"github.com/Hadesalive/smart-attendace-tracking-sub005/internal/config"
	"github.com/Hadesalive/smart-attendace-tracking-sub005/internal/faceclient"
	"github.com/Hadesalive/smart-attendace-tracking-sub005/internal/logger"
	"github.com/Hadesalive/smart-attendace-tracking-sub005/internal/queue"
	"github.com/Hadesalive/smart-attendace-tracking-sub005/internal/realtime"
	"github.com/Hadesalive/smart-attendace-tracking-sub005/internal/session"
	"github.com/Hadesalive/smart-attendace-tracking-sub005/internal/store"
)

// Worker scores face marks and keeps stored session statuses in step with the clock.
func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect failed")
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer redisClient.Close()

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "attendance:jobs")
	}

	var pub realtime.Publisher
	if cfg.RealtimeBackend == "redis" {
		pub = realtime.NewRedisBroker(redisClient.Client, realtime.NewHub(1))
	}

	clock := session.SystemClock(cfg.Location())
	sessionRepo := session.NewRepository(db.Client)
	recordRepo := attendance.NewRepository(db.Client)
	gateway := session.NewGateway(sessionRepo, recordRepo, pub, cfg.PublicOrigin, clock)

	face := faceclient.New(cfg.FaceServiceURL, cfg.FaceSkip)
	if !cfg.FaceSkip {
		if err := face.Health(ctx); err != nil {
			log.Warn().Err(err).Msg("face service not available, jobs will fail until it is")
		} else {
			log.Info().Msg("face service connected")
		}
	}
	processor := attendance.NewFaceProcessor(face, recordRepo)

	messages, err := q.Consume(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("queue consume init failed")
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		consumeFaceJobs(ctx, messages, processor)
	}()
	go func() {
		defer wg.Done()
		syncStatuses(ctx, cfg.StatusSyncEvery, clock, sessionRepo, gateway)
	}()

	log.Info().Msg("worker started")
	wg.Wait()
	log.Info().Msg("worker stopped")
}

func consumeFaceJobs(ctx context.Context, messages <-chan queue.Message, p *attendance.FaceProcessor) {
	for msg := range messages {
		if msg.Type != attendance.JobFaceVerify {
			log.Warn().Str("type", msg.Type).Msg("skipping unknown job")
			continue
		}
		jobCtx, cancel := context.WithTimeout(ctx, time.Minute)
		score, err := p.Handle(jobCtx, msg)
		cancel()
		if err != nil {
			log.Error().Err(err).Msg("face job failed")
			continue
		}
		log.Info().Float64("confidence", score).Msg("face job processed")
	}
}

type unsettledLister interface {
	ListUnsettled(ctx context.Context, day string) ([]session.Session, error)
}

func syncStatuses(ctx context.Context, every time.Duration, clock session.Clock, repo unsettledLister, g *session.Gateway) {
	if every <= 0 {
		every = time.Minute
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		syncOnce(ctx, clock, repo, g)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func syncOnce(ctx context.Context, clock session.Clock, repo unsettledLister, g *session.Gateway) {
	sessions, err := repo.ListUnsettled(ctx, clock().Format("2006-01-02"))
	if err != nil {
		if ctx.Err() == nil {
			log.Error().Err(err).Msg("list unsettled sessions failed")
		}
		return
	}
	moved := 0
	for _, s := range sessions {
		changed, err := g.SyncStatus(ctx, s)
		if err != nil {
			log.Warn().Err(err).Str("session_id", s.ID).Msg("status sync failed")
			continue
		}
		if changed {
			moved++
		}
	}
	if moved > 0 {
		log.Info().Int("sessions", moved).Msg("session statuses advanced")
	}
}
