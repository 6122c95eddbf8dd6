package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"smush/internal/apiclient"
	"smush/internal/credstore"
	"smush/internal/domain"
	"smush/internal/observe"
)

const (
	defaultCheckInterval    = 60 * time.Second
	defaultRefreshLookahead = 120 * time.Second
	defaultLandingRoute     = "/home"

	sessionExpiredTitle   = "Session Expired"
	sessionExpiredMessage = "You've been logged out because your session has expired. Log in again to continue tracking matches :)"
	sessionExpiredButton  = "Okey"
)

// SessionConfig fija rutas y tiempos del SessionManager.
type SessionConfig struct {
	AuthPath         string
	UserPath         string
	CheckInterval    time.Duration
	RefreshLookahead time.Duration
	LandingRoute     string
}

// SessionOption ajusta dependencias opcionales del SessionManager.
type SessionOption func(*SessionManager)

// WithClock reemplaza time.Now. Pensado para tests.
func WithClock(now func() time.Time) SessionOption {
	return func(m *SessionManager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithCookies conecta el cookie jar del cliente. Con persist, las cookies se
// guardan junto al resto de la sesión.
func WithCookies(keeper CookieKeeper, persist bool) SessionOption {
	return func(m *SessionManager) {
		m.cookies = keeper
		m.persistCookies = persist && keeper != nil
	}
}

func WithNavigator(n Navigator) SessionOption {
	return func(m *SessionManager) {
		if n != nil {
			m.navigator = n
		}
	}
}

// SessionManager autentica al usuario, mantiene vivo el access token y
// publica el usuario actual (o nil).
//
// Es el único escritor del credstore. Los cambios se encolan bajo m.mu y los
// callbacks de Subscribe corren en la goroutine que publica, ya sin el lock.
type SessionManager struct {
	logger         *zap.Logger
	api            API
	store          credstore.Store
	notifier       Notifier
	navigator      Navigator
	cookies        CookieKeeper
	persistCookies bool
	cfg            SessionConfig
	now            func() time.Time

	mu   sync.Mutex
	user *observe.Subject[*domain.User]

	stateMu sync.RWMutex
	access  *time.Time
	refresh *time.Time

	taskMu sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewSessionManager(logger *zap.Logger, api API, store credstore.Store, notifier Notifier, cfg SessionConfig, opts ...SessionOption) *SessionManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = NewLogNotifier(logger)
	}
	if cfg.AuthPath == "" {
		cfg.AuthPath = "/auth"
	}
	if cfg.UserPath == "" {
		cfg.UserPath = "/user"
	}
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = defaultCheckInterval
	}
	if cfg.RefreshLookahead <= 0 {
		cfg.RefreshLookahead = defaultRefreshLookahead
	}
	if cfg.LandingRoute == "" {
		cfg.LandingRoute = defaultLandingRoute
	}
	m := &SessionManager{
		logger:    logger,
		api:       api,
		store:     store,
		notifier:  notifier,
		navigator: noopNavigator{},
		cfg:       cfg,
		now:       time.Now,
		user:      observe.NewSubject[*domain.User](nil),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Current devuelve una copia del usuario publicado, o nil.
func (m *SessionManager) Current() *domain.User {
	return m.user.Value().Clone()
}

// Session devuelve una instantánea de usuario y expiraciones.
func (m *SessionManager) Session() domain.Session {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()
	s := domain.Session{User: m.user.Value().Clone()}
	if m.access != nil {
		t := *m.access
		s.AccessExpiresAt = &t
	}
	if m.refresh != nil {
		t := *m.refresh
		s.RefreshExpiresAt = &t
	}
	return s
}

// Subscribe entrega el usuario actual de inmediato y luego cada cambio.
func (m *SessionManager) Subscribe(fn func(*domain.User)) (cancel func()) {
	return m.user.Subscribe(func(u *domain.User) { fn(u.Clone()) })
}

// Start ejecuta el chequeo inicial y programa los siguientes. Llamarlo de
// nuevo detiene la tarea anterior antes de crear otra.
func (m *SessionManager) Start(ctx context.Context) {
	m.taskMu.Lock()
	defer m.taskMu.Unlock()
	m.stopLocked()

	m.check(ctx, true)

	taskCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	m.cancel, m.done = cancel, done
	go m.loop(taskCtx, done)
}

// Stop cancela la tarea periódica y espera a que termine.
func (m *SessionManager) Stop() {
	m.taskMu.Lock()
	defer m.taskMu.Unlock()
	m.stopLocked()
}

func (m *SessionManager) stopLocked() {
	if m.cancel == nil {
		return
	}
	m.cancel()
	<-m.done
	m.cancel, m.done = nil, nil
}

func (m *SessionManager) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(m.cfg.CheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.check(ctx, false)
		}
	}
}

// Check ejecuta un chequeo periódico fuera de agenda.
func (m *SessionManager) Check(ctx context.Context) {
	m.check(ctx, false)
}

func (m *SessionManager) check(ctx context.Context, initial bool) {
	defer m.user.Flush()
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	access, accessOK := m.readTime(ctx, credstore.KeyAccessExpire)
	refresh, refreshOK := m.readTime(ctx, credstore.KeyRefreshExpire)

	if !accessOK || !refreshOK {
		m.clearStorageLocked(ctx)
		m.setExpirations(nil, nil)
		if m.user.Value() != nil {
			m.user.Stage(nil)
		}
		return
	}

	if !now.Before(refresh) {
		m.logger.Info("refresh token expired, logging out", zap.Bool("initial", initial))
		if !initial {
			m.notifier.Confirm(sessionExpiredTitle, sessionExpiredMessage, sessionExpiredButton)
		}
		m.logOutLocked(ctx)
		return
	}

	m.setExpirations(&access, &refresh)

	if initial {
		if !m.hydrateLocked(ctx) {
			return
		}
	}

	if access.Sub(now) < m.cfg.RefreshLookahead {
		m.refreshLocked(ctx)
	}
}

// hydrateLocked publica el usuario persistido. Sin usuario legible la sesión
// se descarta.
func (m *SessionManager) hydrateLocked(ctx context.Context) bool {
	user, ok := m.readUser(ctx)
	if !ok {
		m.logger.Warn("persisted session has no readable user, clearing")
		m.clearStorageLocked(ctx)
		m.setExpirations(nil, nil)
		return false
	}
	m.restoreCookies(ctx)
	m.user.Stage(user)
	return true
}

func (m *SessionManager) refreshLocked(ctx context.Context) {
	userID, ok := m.sessionUserIDLocked(ctx)
	if !ok {
		m.logger.Warn("session refresh skipped, no user id")
		return
	}

	var data struct {
		AccessExpiration *time.Time `json:"accessExpiration"`
	}
	err := m.api.Post(ctx, m.cfg.AuthPath+"/refresh", map[string]int64{"userId": userID}, &data)
	if err != nil && !errors.Is(err, apiclient.ErrEmptyData) {
		m.logger.Warn("session refresh failed, deferring to next check", zap.Int64("user_id", userID), zap.Error(err))
		return
	}

	next := data.AccessExpiration
	if next == nil && m.cookies != nil {
		if exp, err := m.cookies.AccessTokenExpiry(); err == nil {
			next = &exp
		}
	}
	if next == nil {
		m.logger.Warn("session refresh returned no access expiration", zap.Int64("user_id", userID))
		return
	}

	if err := m.writeTime(ctx, credstore.KeyAccessExpire, *next); err != nil {
		m.logger.Warn("persist access expiration failed", zap.Error(err))
	}
	m.stateMu.Lock()
	t := *next
	m.access = &t
	m.stateMu.Unlock()
	m.saveCookies(ctx)
	m.logger.Debug("session refreshed", zap.Int64("user_id", userID), zap.Time("access_expires_at", t))
}

func (m *SessionManager) sessionUserIDLocked(ctx context.Context) (int64, bool) {
	if u := m.user.Value(); u != nil {
		return u.UserID, true
	}
	if u, ok := m.readUser(ctx); ok {
		return u.UserID, true
	}
	return 0, false
}

type authData struct {
	User              *domain.User           `json:"user"`
	UserCharacters    []domain.UserCharacter `json:"userCharacters"`
	AccessExpiration  *time.Time             `json:"accessExpiration"`
	RefreshExpiration *time.Time             `json:"refreshExpiration"`
}

// LogIn autentica y, sólo si todo llega bien, persiste y publica la sesión.
func (m *SessionManager) LogIn(ctx context.Context, creds domain.Credentials) (*domain.User, error) {
	if m == nil || m.api == nil || m.store == nil {
		return nil, ErrNotConfigured
	}
	creds.Email = strings.TrimSpace(creds.Email)
	if creds.Email == "" || creds.Password == "" {
		return nil, newValidationError([]string{"Email and password are required."})
	}

	var data authData
	if err := m.api.Post(ctx, m.cfg.AuthPath+"/login", creds, &data); err != nil {
		return nil, fmt.Errorf("log in: %w", err)
	}
	if data.User == nil || data.AccessExpiration == nil || data.RefreshExpiration == nil {
		return nil, ErrIncompleteLogin
	}
	user := data.User.Clone()
	if data.UserCharacters != nil {
		user.UserCharacters = data.UserCharacters
	}

	defer m.user.Flush()
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.writeUser(ctx, user); err != nil {
		return nil, m.abortLoginLocked(ctx, err)
	}
	if err := m.writeTime(ctx, credstore.KeyAccessExpire, *data.AccessExpiration); err != nil {
		return nil, m.abortLoginLocked(ctx, err)
	}
	if err := m.writeTime(ctx, credstore.KeyRefreshExpire, *data.RefreshExpiration); err != nil {
		return nil, m.abortLoginLocked(ctx, err)
	}
	m.saveCookies(ctx)
	m.setExpirations(data.AccessExpiration, data.RefreshExpiration)
	m.user.Stage(user)

	m.logger.Info("logged in", zap.Int64("user_id", user.UserID))
	return user.Clone(), nil
}

func (m *SessionManager) abortLoginLocked(ctx context.Context, err error) error {
	m.clearStorageLocked(ctx)
	return fmt.Errorf("persist session: %w", err)
}

// LogOut termina la sesión local de inmediato; el aviso al servidor es
// best-effort y sus errores sólo se registran.
func (m *SessionManager) LogOut(ctx context.Context) {
	defer m.user.Flush()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logOutLocked(ctx)
}

func (m *SessionManager) logOutLocked(ctx context.Context) {
	prev := m.user.Value()

	m.clearStorageLocked(ctx)
	m.setExpirations(nil, nil)
	m.user.Stage(nil)
	m.navigator.Navigate(m.cfg.LandingRoute)

	if prev != nil && m.api != nil {
		if err := m.api.Post(ctx, m.cfg.AuthPath+"/logout", map[string]int64{"userId": prev.UserID}, nil); err != nil {
			m.logger.Warn("server logout failed", zap.Int64("user_id", prev.UserID), zap.Error(err))
		}
	}
	if m.cookies != nil {
		m.cookies.ClearCookies()
	}
}

func (m *SessionManager) setExpirations(access, refresh *time.Time) {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	m.access, m.refresh = nil, nil
	if access != nil {
		t := *access
		m.access = &t
	}
	if refresh != nil {
		t := *refresh
		m.refresh = &t
	}
}

func (m *SessionManager) clearStorageLocked(ctx context.Context) {
	if m.store == nil {
		return
	}
	if err := m.store.Delete(ctx, credstore.SessionKeys...); err != nil {
		m.logger.Warn("clear credential store failed", zap.Error(err))
	}
}

func (m *SessionManager) readTime(ctx context.Context, key string) (time.Time, bool) {
	if m.store == nil {
		return time.Time{}, false
	}
	raw, ok, err := m.store.Get(ctx, key)
	if err != nil {
		m.logger.Warn("read credential failed", zap.String("key", key), zap.Error(err))
		return time.Time{}, false
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return time.Time{}, false
	}
	var t time.Time
	if err := json.Unmarshal([]byte(raw), &t); err == nil {
		return t, true
	}
	t, err = time.Parse(time.RFC3339Nano, strings.Trim(raw, `"`))
	if err != nil {
		m.logger.Warn("unparsable credential date", zap.String("key", key))
		return time.Time{}, false
	}
	return t, true
}

func (m *SessionManager) writeTime(ctx context.Context, key string, t time.Time) error {
	b, err := json.Marshal(t.UTC())
	if err != nil {
		return err
	}
	return m.store.Set(ctx, key, string(b))
}

func (m *SessionManager) readUser(ctx context.Context) (*domain.User, bool) {
	raw, ok, err := m.store.Get(ctx, credstore.KeyUser)
	if err != nil || !ok {
		return nil, false
	}
	var u domain.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		m.logger.Warn("unparsable persisted user", zap.Error(err))
		return nil, false
	}
	return &u, true
}

func (m *SessionManager) writeUser(ctx context.Context, u *domain.User) error {
	b, err := json.Marshal(u)
	if err != nil {
		return err
	}
	return m.store.Set(ctx, credstore.KeyUser, string(b))
}

func (m *SessionManager) saveCookies(ctx context.Context) {
	if !m.persistCookies {
		return
	}
	b, err := json.Marshal(m.cookies.ExportCookies())
	if err != nil {
		return
	}
	if err := m.store.Set(ctx, credstore.KeyCookies, string(b)); err != nil {
		m.logger.Warn("persist cookies failed", zap.Error(err))
	}
}

func (m *SessionManager) restoreCookies(ctx context.Context) {
	if !m.persistCookies {
		return
	}
	raw, ok, err := m.store.Get(ctx, credstore.KeyCookies)
	if err != nil || !ok {
		return
	}
	var cookies []apiclient.Cookie
	if err := json.Unmarshal([]byte(raw), &cookies); err != nil {
		m.logger.Warn("unparsable persisted cookies", zap.Error(err))
		return
	}
	m.cookies.ImportCookies(cookies)
}
