package gateway

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type RouterDeps struct {
	Tokens    *TokenIssuer
	Orders    http.Handler
	Inventory http.Handler
	Logger    *log.Logger
}

func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "api-gateway"})
	})

	r.Post("/api/auth/login", LoginHandler(deps.Tokens, deps.Logger))

	r.Group(func(r chi.Router) {
		r.Use(RequireAuth(deps.Tokens, deps.Logger))
		r.Mount("/api/orders", deps.Orders)
		r.Mount("/api/products", deps.Inventory)
	})

	return r
}
