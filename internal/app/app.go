// Package app arma el core del cliente a partir de la configuración.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"smush/internal/apiclient"
	"smush/internal/config"
	"smush/internal/credstore"
	"smush/internal/domain"
	"smush/internal/service"
)

// App agrupa las piezas que comparten las superficies (servidor y CLI).
type App struct {
	Config  *config.Config
	Logger  *zap.Logger
	Client  *apiclient.Client
	Store   credstore.Store
	Session *service.SessionManager
	Caches  *service.Caches
	Profile *service.ProfileService
	Form    *service.MatchForm
	Notices *service.RecordingNotifier

	redis       *redis.Client
	unsubscribe func()

	loadMu     sync.Mutex
	baseCtx    context.Context
	baseCancel context.CancelFunc
	loadCancel context.CancelFunc
	loads      sync.WaitGroup
	lastUserID int64
}

// New construye el App. notifier recibe además cada toast y diálogo.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, notifier service.Notifier, opts ...service.SessionOption) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	client, err := apiclient.New(cfg.APIBaseURL, cfg.HTTPTimeout, logger.Named("api"))
	if err != nil {
		return nil, fmt.Errorf("api client: %w", err)
	}

	a := &App{Config: cfg, Logger: logger, Client: client}
	a.Store = a.openStore(ctx)
	a.Notices = service.NewRecordingNotifier(notifier)

	ep := cfg.Endpoints()
	sessionOpts := append([]service.SessionOption{service.WithCookies(client, cfg.PersistCookies)}, opts...)
	a.Session = service.NewSessionManager(logger.Named("session"), client, a.Store, a.Notices, service.SessionConfig{
		AuthPath:         ep.Auth,
		UserPath:         ep.User,
		CheckInterval:    cfg.SessionCheckInterval,
		RefreshLookahead: cfg.RefreshLookahead,
		LandingRoute:     cfg.LandingRoute,
	}, sessionOpts...)

	retry := apiclient.RetryPolicy{Attempts: cfg.ReadRetryAttempts, Delay: cfg.ReadRetryDelay}
	cacheLogger := logger.Named("cache")
	a.Caches = &service.Caches{
		Matches:    service.NewMatchCache(cacheLogger, client, a.Notices, ep.Match, cfg.NewHighlightDuration),
		Characters: service.NewCharacterCache(cacheLogger, client, a.Notices, ep.Character, retry),
		Tags:       service.NewTagCache(cacheLogger, client, a.Notices, ep.Tag),
		Users:      service.NewUserDirectory(cacheLogger, client, a.Notices, ep.User),
	}
	a.Profile = service.NewProfileService(logger.Named("profile"), a.Session, a.Caches.Matches, a.Caches.Users, a.Notices)
	a.Form = service.NewMatchForm(logger.Named("match_form"), a.Session, a.Caches.Matches, a.Notices)

	a.baseCtx, a.baseCancel = context.WithCancel(context.Background())
	a.unsubscribe = a.Session.Subscribe(a.onUser)
	return a, nil
}

// Start ejecuta el chequeo inicial de sesión y programa los siguientes.
func (a *App) Start(ctx context.Context) {
	a.Session.Start(ctx)
}

// WaitLoads espera las cargas de caches en curso.
func (a *App) WaitLoads() {
	a.loads.Wait()
}

// Close detiene la tarea de sesión y libera conexiones.
func (a *App) Close() {
	a.Session.Stop()
	if a.unsubscribe != nil {
		a.unsubscribe()
	}
	a.baseCancel()
	a.loads.Wait()
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.Logger.Warn("redis close failed", zap.Error(err))
		}
	}
}

// onUser corre en la entrega de la sesión; la carga va en otra goroutine para
// no demorar al publicador. Cada login tiene su propio contexto: salir o
// cambiar de usuario lo cancela antes de vaciar los caches.
func (a *App) onUser(user *domain.User) {
	a.loadMu.Lock()
	defer a.loadMu.Unlock()

	if user != nil && user.UserID == a.lastUserID {
		return
	}
	if a.lastUserID != 0 {
		a.cancelLoadLocked()
		a.Caches.Reset()
	}
	if user == nil {
		a.lastUserID = 0
		return
	}
	a.lastUserID = user.UserID

	ctx, cancel := context.WithCancel(a.baseCtx)
	a.loadCancel = cancel
	a.loads.Add(1)
	go func() {
		defer a.loads.Done()
		err := a.Caches.LoadAll(ctx, user)
		switch {
		case err == nil:
		case errors.Is(err, context.Canceled), errors.Is(err, service.ErrLoadSuperseded):
			a.Logger.Debug("cache load abandoned", zap.Int64("user_id", user.UserID))
		default:
			a.Logger.Warn("initial cache load incomplete", zap.Int64("user_id", user.UserID), zap.Error(err))
		}
	}()
}

func (a *App) cancelLoadLocked() {
	if a.loadCancel != nil {
		a.loadCancel()
		a.loadCancel = nil
	}
}

func (a *App) openStore(ctx context.Context) credstore.Store {
	cfg := a.Config
	switch strings.ToLower(cfg.CredentialStore) {
	case "memory":
		return credstore.NewMemoryStore()
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := client.Ping(ctxPing).Err(); err != nil {
			a.Logger.Warn("redis ping failed, using file credential store", zap.Error(err))
			_ = client.Close()
			break
		}
		a.redis = client
		return credstore.NewRedisStore(client, cfg.RedisPrefix)
	case "file", "":
	default:
		a.Logger.Warn("unknown credential store, using file", zap.String("store", cfg.CredentialStore))
	}
	if cfg.CredentialPassphrase == "" {
		a.Logger.Debug("credential file is not sealed")
	}
	return credstore.NewFileStore(cfg.CredentialFile, cfg.CredentialPassphrase)
}
