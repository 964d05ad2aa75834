package api

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"santatrack/internal/auth"
	"santatrack/internal/catalog"
	"santatrack/internal/config"
	"santatrack/internal/itinerary"
	"santatrack/internal/schedule"
	"santatrack/internal/store"
	"santatrack/internal/tracker"
	"santatrack/internal/webhooks"
)

type Server struct {
	Config  config.Config
	Tracker *tracker.Tracker
	Store   store.Store
	Broker  EventBroker
	Trail   *TrailCache
	Queue   *webhooks.Queue
	Pub     *webhooks.Publisher
	Auth    *auth.Verifier
}

// NewServer wires the tracker and its collaborators from cfg. Storage is
// Postgres when DATABASE_URL is set, SQLite when SQLITE_PATH is set and
// in-memory otherwise.
func NewServer(ctx context.Context, cfg config.Config) (*Server, error) {
	st, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	mode, err := tracker.ParseMode(cfg.Mode)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	// Broker selection
	var broker EventBroker
	if cfg.RedisURL != "" {
		if rb, err := NewRedisBroker(cfg.RedisURL); err == nil {
			broker = rb
		} else {
			log.Printf("redis broker unavailable, using in-memory: %v", err)
			broker = NewBroker()
		}
	} else {
		broker = NewBroker()
	}

	q := webhooks.NewQueue()
	pub := webhooks.NewPublisher(q, cfg.WebhookURLs)
	trail := NewTrailCache()

	seed := cfg.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	t := tracker.New(cat, tracker.Options{
		TrackerID:    cfg.TrackerID,
		Mode:         mode,
		Bounds:       schedule.BoundsFromDurations(cfg.MoveIntervalMin, cfg.MoveIntervalMax),
		Units:        itinerary.UnitsRange{Min: cfg.PresentsMin, Max: cfg.PresentsMax},
		PathSegments: cfg.PathSegments,
		PlaceOnStart: cfg.AdvanceOnStart,
		Location:     loc,
		Rand:         rand.New(rand.NewSource(seed)),
		Store:        st,
		Sink:         tracker.Sinks{trail, BrokerSink(broker, cfg.TrackerID), pub},
	})
	if err := t.LoadAchievements(ctx); err != nil {
		log.Printf("tracker=%s could not restore achievements: %v", cfg.TrackerID, err)
	}

	return &Server{
		Config:  cfg,
		Tracker: t,
		Store:   st,
		Broker:  broker,
		Trail:   trail,
		Queue:   q,
		Pub:     pub,
		Auth:    auth.NewVerifier(cfg.AuthMode, cfg.AuthHMACSecret),
	}, nil
}

func openStore(ctx context.Context, cfg config.Config) (store.Store, error) {
	switch {
	case strings.TrimSpace(cfg.DatabaseURL) != "":
		s, err := store.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("init store: %w", err)
		}
		return s, nil
	case strings.TrimSpace(cfg.SQLitePath) != "":
		s, err := store.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("init store: %w", err)
		}
		return s, nil
	default:
		return store.NewMemory(), nil
	}
}

// NewWebhookWorker creates a background worker for webhook deliveries.
func (s *Server) NewWebhookWorker() *webhooks.Worker {
	return webhooks.NewWorker(s.Queue, s.Config.WebhookSecret, s.Config.WebhookMaxAttempts, s.Config.WebhookRPS)
}

// Close releases the broker and store.
func (s *Server) Close() error {
	if c, ok := s.Broker.(interface{ Close() error }); ok {
		_ = c.Close()
	}
	return s.Store.Close()
}
