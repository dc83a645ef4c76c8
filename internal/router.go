package internal

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/johndosdos/anonbox/internal/handler"
	"github.com/johndosdos/anonbox/internal/inbox"
)

// RouterOpts carries the collaborators the router needs.
type RouterOpts struct {
	Inbox     *inbox.Service
	JWTSecret string

	// SendLimiter wraps the public send endpoint. Nil disables limiting.
	SendLimiter func(http.Handler) http.Handler
}

// NewRouter builds the HTTP surface.
func NewRouter(opts RouterOpts) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(15 * time.Second))

	r.Get("/healthz", handler.Healthz())

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if opts.SendLimiter != nil {
				r.Use(opts.SendLimiter)
			}
			r.Post("/send-message", handler.SendMessage(opts.Inbox))
		})

		r.Group(func(r chi.Router) {
			r.Use(Middleware(opts.JWTSecret))
			r.Get("/get-messages", handler.GetMessages(opts.Inbox))
			r.Delete("/delete-message/{messageid}", handler.DeleteMessage(opts.Inbox))
			r.Get("/accept-messages", handler.GetAcceptMessages(opts.Inbox))
			r.Post("/accept-messages", handler.SetAcceptMessages(opts.Inbox))
		})
	})

	return r
}
