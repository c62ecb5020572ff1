// Package v1 wires the HTTP surface of the groupledger service.
// It keeps handlers thin, delegating business rules to the service layer.
package v1

import (
	"log/slog"
	"net/http"
	"time"

	chi "github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/tinoosan/groupledger/internal/auth"
	"github.com/tinoosan/groupledger/internal/events"
	"github.com/tinoosan/groupledger/internal/service/account"
	"github.com/tinoosan/groupledger/internal/service/balance"
	"github.com/tinoosan/groupledger/internal/service/group"
	"github.com/tinoosan/groupledger/internal/service/lifecycle"
	"github.com/tinoosan/groupledger/internal/service/membership"
	"github.com/tinoosan/groupledger/internal/service/role"
	"github.com/tinoosan/groupledger/internal/service/transaction"
)

// Options tune the server. The zero value runs with X-User-ID identities,
// no event publishing, UTC dates and BRL as the default currency.
type Options struct {
	// Verifier enables bearer token authentication. Nil falls back to the X-User-ID header.
	Verifier        *auth.Verifier
	Publisher       events.Publisher
	Location        *time.Location
	DefaultCurrency string
}

// Server wires handlers and middleware using Chi.
// It composes read (repo) and write (writer) dependencies through services.
type Server struct {
	users        UserStore
	ready        ReadyChecker
	groups       group.Service
	members      membership.Service
	roles        role.Service
	accounts     account.Service
	balances     balance.Service
	transactions transaction.Service
	lifecycle    lifecycle.Coordinator

	verifier *auth.Verifier
	loc      *time.Location
	now      func() time.Time
	log      *slog.Logger
	rt       *chi.Mux
}

// New constructs the HTTP server with routes and middleware.
// The logger is used by request logging, panic recovery and event publishing failures.
func New(store Store, opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(requestLogger(logger))
	r.Use(recoverer(logger))
	r.Use(metricsMiddleware)

	s := &Server{
		users:        store,
		ready:        store,
		groups:       group.New(store, store, opts.Publisher, logger),
		members:      membership.New(store, store, opts.Publisher, logger),
		roles:        role.New(store, store),
		accounts:     account.New(store, store, opts.DefaultCurrency),
		balances:     balance.New(store, store, opts.DefaultCurrency),
		transactions: transaction.New(store, store, opts.Publisher, logger),
		lifecycle:    lifecycle.New(store, store, opts.Publisher, logger),
		verifier:     opts.Verifier,
		loc:          loc,
		now:          time.Now,
		log:          logger,
		rt:           r,
	}
	s.routes()
	return s
}

// Handler exposes the configured http.Handler.
func (s *Server) Handler() http.Handler { return s.rt }

// routes declares the public HTTP API endpoints and attaches any per-route middleware.
func (s *Server) routes() {
	// Health and metrics (unversioned, unauthenticated)
	s.rt.Get("/healthz", s.healthz)
	s.rt.Get("/readyz", s.readyz)
	s.rt.Method(http.MethodGet, "/metrics", metricsHandler())

	s.rt.Route("/v1", func(r chi.Router) {
		r.Use(s.authenticate)

		r.Get("/permissions", s.permissionMatrix)
		r.Get("/users/me", s.me)
		r.Get("/dictionary/account-types", s.accountTypesDictionary)
		r.Get("/dictionary/transaction-types", s.transactionTypesDictionary)

		// Groups
		r.Post("/groups", s.createGroup)
		r.Get("/groups", s.listGroups)
		r.Route("/groups/{groupID}", func(r chi.Router) {
			r.Get("/", s.getGroup)
			r.Patch("/", s.updateGroup)
			r.Delete("/", s.deleteGroup)
			r.Post("/leave", s.leaveGroup)
			r.Get("/permissions", s.groupPermissions)

			r.Get("/members", s.listMembers)
			r.Post("/members", s.addMember)
			r.Patch("/members/{memberID}", s.updateMember)
			r.Delete("/members/{memberID}", s.removeMember)

			r.Get("/roles", s.listRoles)
			r.Post("/roles", s.createRole)
			r.Patch("/roles/{roleID}", s.updateRole)
			r.Delete("/roles/{roleID}", s.deleteRole)
		})

		// Accounts
		r.Post("/accounts", s.createAccount)
		r.Get("/accounts", s.listAccounts)
		r.Get("/accounts/totals", s.accountTotals)
		r.Route("/accounts/{accountID}", func(r chi.Router) {
			r.Get("/", s.getAccount)
			r.Patch("/", s.updateAccount)
			r.Delete("/", s.deleteAccount)
			r.Get("/cycle", s.accountCycle)
			r.Get("/balance", s.currentBalance)
			r.Get("/balances", s.balanceHistory)
			r.Post("/balances", s.appendBalance)
			r.Get("/transactions", s.listTransactions)
			r.Get("/transactions/count", s.countTransactions)
			r.Post("/transactions/move", s.moveTransactions)
		})

		// Transactions
		r.Post("/transactions", s.createTransaction)
	})
}
