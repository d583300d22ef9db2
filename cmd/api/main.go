// cmd/api/main.go
package main

import (
	"log"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"foodshare/internal/config"
)

func main() {
	cfg := config.Load()

	donationsProxy := proxyFor(cfg.DonationsURL)
	usersProxy := proxyFor(cfg.UsersURL)
	notificationsProxy := proxyFor(cfg.NotificationsURL)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	strip := func(h http.Handler) http.Handler { return http.StripPrefix("/api/v1", h) }

	// Inbox routes are more specific than the users routes, so they are
	// registered first and win the match.
	r.Handle("/api/v1/users/{userID}/notifications", strip(notificationsProxy))
	r.Handle("/api/v1/users/{userID}/notifications/*", strip(notificationsProxy))

	r.Handle("/api/v1/donations", strip(donationsProxy))
	r.Handle("/api/v1/donations/*", strip(donationsProxy))
	r.Handle("/api/v1/stats", strip(donationsProxy))
	r.Handle("/api/v1/users", strip(usersProxy))
	r.Handle("/api/v1/users/*", strip(usersProxy))
	r.Handle("/api/v1/login", strip(usersProxy))

	log.Printf("API Gateway listening on port %s", cfg.GatewayPort)
	log.Fatal(http.ListenAndServe(cfg.Addr(cfg.GatewayPort), r))
}

func proxyFor(rawURL string) *httputil.ReverseProxy {
	target, err := url.Parse(rawURL)
	if err != nil {
		log.Fatalf("Invalid service URL %q: %v", rawURL, err)
	}
	return httputil.NewSingleHostReverseProxy(target)
}
