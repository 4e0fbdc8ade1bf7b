// Package rest реализует HTTP API сервиса поверх chi-роутера.
// Ошибки доменного слоя транслируются в HTTP-статусы единым маппером.
package rest

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/restaurant-oms/internal/service/branch"
	"github.com/vladislavdragonenkov/restaurant-oms/internal/service/menu"
	"github.com/vladislavdragonenkov/restaurant-oms/internal/service/order"
	"github.com/vladislavdragonenkov/restaurant-oms/internal/service/settlement"
)

// NewRouter собирает полный REST API сервиса.
func NewRouter(
	orders *order.Service,
	engine *settlement.Engine,
	catalog *menu.Service,
	branches *branch.Service,
	logger *log.Entry,
) chi.Router {
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	logger = logger.WithField("component", "rest")

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))

	r.Route("/orders", NewOrderHandlers(orders, logger).Routes)
	r.Route("/payments", NewPaymentHandlers(engine, logger).Routes)
	r.Route("/branches", NewBranchHandlers(branches, catalog, logger).Routes)
	r.Route("/menu-items", NewMenuHandlers(catalog, logger).Routes)

	return r
}

// requestLogger пишет одну строку на запрос: метод, путь, статус, длительность.
func requestLogger(logger *log.Entry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.WithFields(log.Fields{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      ww.Status(),
				"duration_ms": time.Since(start).Milliseconds(),
			}).Info("http request")
		})
	}
}
