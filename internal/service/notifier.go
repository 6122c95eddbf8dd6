package service

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// ToastLevel define el estilo y la duración de un toast.
type ToastLevel int

const (
	ToastStandard ToastLevel = iota
	ToastSuccess
	ToastWarning
	ToastDanger
)

func (l ToastLevel) String() string {
	switch l {
	case ToastSuccess:
		return "success"
	case ToastWarning:
		return "warning"
	case ToastDanger:
		return "danger"
	default:
		return "standard"
	}
}

// Duration es el tiempo que el toast queda visible.
func (l ToastLevel) Duration() time.Duration {
	if l == ToastDanger {
		return 10 * time.Second
	}
	return 5 * time.Second
}

// Toast es una notificación efímera para el usuario.
type Toast struct {
	Level      ToastLevel `json:"-"`
	Kind       string     `json:"level"`
	Message    string     `json:"message"`
	DurationMs int64      `json:"durationMs"`
}

// Confirmation es un diálogo modal de un solo botón.
type Confirmation struct {
	Title   string `json:"title"`
	Message string `json:"message"`
	Button  string `json:"button"`
}

// Notifier presenta toasts y diálogos. Las implementaciones no deben bloquear.
type Notifier interface {
	Toast(level ToastLevel, message string)
	Confirm(title, message, button string)
}

// NewToast arma un Toast con la duración del nivel.
func NewToast(level ToastLevel, message string) Toast {
	return Toast{Level: level, Kind: level.String(), Message: message, DurationMs: level.Duration().Milliseconds()}
}

type logNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier registra cada notificación con zap.
func NewLogNotifier(logger *zap.Logger) Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &logNotifier{logger: logger}
}

func (n *logNotifier) Toast(level ToastLevel, message string) {
	fields := []zap.Field{zap.String("level", level.String()), zap.String("message", message)}
	switch level {
	case ToastDanger:
		n.logger.Error("toast", fields...)
	case ToastWarning:
		n.logger.Warn("toast", fields...)
	default:
		n.logger.Info("toast", fields...)
	}
}

func (n *logNotifier) Confirm(title, message, button string) {
	n.logger.Warn("confirm", zap.String("title", title), zap.String("message", message), zap.String("button", button))
}

// RecordingNotifier acumula notificaciones hasta que alguien las drena.
type RecordingNotifier struct {
	mu       sync.Mutex
	next     Notifier
	toasts   []Toast
	confirms []Confirmation
}

// NewRecordingNotifier reenvía además a next si no es nil.
func NewRecordingNotifier(next Notifier) *RecordingNotifier {
	return &RecordingNotifier{next: next}
}

func (n *RecordingNotifier) Toast(level ToastLevel, message string) {
	n.mu.Lock()
	n.toasts = append(n.toasts, NewToast(level, message))
	n.mu.Unlock()
	if n.next != nil {
		n.next.Toast(level, message)
	}
}

func (n *RecordingNotifier) Confirm(title, message, button string) {
	n.mu.Lock()
	n.confirms = append(n.confirms, Confirmation{Title: title, Message: message, Button: button})
	n.mu.Unlock()
	if n.next != nil {
		n.next.Confirm(title, message, button)
	}
}

// Drain devuelve y descarta lo acumulado.
func (n *RecordingNotifier) Drain() ([]Toast, []Confirmation) {
	n.mu.Lock()
	defer n.mu.Unlock()
	toasts, confirms := n.toasts, n.confirms
	n.toasts, n.confirms = nil, nil
	return toasts, confirms
}
