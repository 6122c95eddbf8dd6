package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"smush/internal/apiclient"
	"smush/internal/service"
)

// Handlers mantiene dependencias para páginas y acciones.
type Handlers struct {
	logger  *zap.Logger
	session *service.SessionManager
	caches  *service.Caches
	profile *service.ProfileService
	form    *service.MatchForm
	notices *service.RecordingNotifier
}

// NewHandlers crea una instancia de Handlers con las dependencias necesarias.
// notices acumula los toasts que se devuelven con la próxima respuesta.
func NewHandlers(
	logger *zap.Logger,
	session *service.SessionManager,
	caches *service.Caches,
	profile *service.ProfileService,
	form *service.MatchForm,
	notices *service.RecordingNotifier,
) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		logger:  logger,
		session: session,
		caches:  caches,
		profile: profile,
		form:    form,
		notices: notices,
	}
}

// respond agrega al cuerpo los toasts y diálogos pendientes.
func (h *Handlers) respond(c *gin.Context, status int, body gin.H) {
	if body == nil {
		body = gin.H{}
	}
	if h.notices != nil {
		toasts, confirms := h.notices.Drain()
		if len(toasts) > 0 {
			body["toasts"] = toasts
		}
		if len(confirms) > 0 {
			body["confirmations"] = confirms
		}
	}
	c.JSON(status, body)
}

// fail traduce errores del core a respuestas HTTP.
func (h *Handlers) fail(c *gin.Context, op string, err error) {
	var verr *service.ValidationError
	var rej *apiclient.RejectedError
	switch {
	case errors.As(err, &verr):
		h.respond(c, http.StatusBadRequest, gin.H{"error": "validation failed", "warnings": verr.Warnings})
	case errors.Is(err, service.ErrNotLoggedIn):
		h.respond(c, http.StatusUnauthorized, gin.H{"error": "not logged in"})
	case errors.Is(err, service.ErrUserCharNotFound):
		h.respond(c, http.StatusNotFound, gin.H{"error": "user character not found"})
	case errors.As(err, &rej):
		h.logger.Warn(op+" rejected", zap.String("message", rej.Message))
		msg := rej.Message
		if msg == "" {
			msg = "request rejected"
		}
		h.respond(c, http.StatusUnprocessableEntity, gin.H{"error": msg})
	default:
		h.logger.Error(op+" failed", zap.Error(err))
		h.respond(c, http.StatusBadGateway, gin.H{"error": "could not " + op})
	}
}

func (h *Handlers) badRequest(c *gin.Context, op string, err error) {
	h.logger.Warn("invalid "+op+" request", zap.Error(err))
	h.respond(c, http.StatusBadRequest, gin.H{"error": "invalid request"})
}
