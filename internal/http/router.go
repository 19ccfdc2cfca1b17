package http

import (
	"fmt"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/nurpe/freelancehub/internal/http/middleware"
)

type RouterOptions struct {
	Environment    string
	AllowedOrigins []string
	Registry       *prometheus.Registry
	// Media is served under MediaURL when set.
	Media    http.FileSystem
	MediaURL string
	// TrustedProxies lists proxy IPs or CIDRs whose forwarding headers are honored.
	TrustedProxies []string
	Log            zerolog.Logger
}

func NewRouter(handler *Handler, authMiddleware, optionalAuth gin.HandlerFunc, opts RouterOptions) (*gin.Engine, error) {
	if opts.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	proxies, err := parseProxies(opts.TrustedProxies)
	if err != nil {
		return nil, err
	}
	handler.proxies = proxies

	router := gin.New()
	if err := router.SetTrustedProxies(opts.TrustedProxies); err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(opts.Log))
	if opts.Registry != nil {
		router.Use(middleware.NewMetrics(opts.Registry).Handler())
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Registry, promhttp.HandlerOpts{})))
	}
	router.Use(cors.New(corsConfig(opts.AllowedOrigins)))

	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if opts.Media != nil && opts.MediaURL != "" {
		router.StaticFS(strings.TrimSuffix(opts.MediaURL, "/"), opts.Media)
	}

	handler.Register(router, authMiddleware, optionalAuth)
	return router, nil
}

func parseProxies(entries []string) ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(entries))
	for _, entry := range entries {
		if strings.Contains(entry, "/") {
			prefix, err := netip.ParsePrefix(entry)
			if err != nil {
				return nil, fmt.Errorf("trusted proxy %q: %w", entry, err)
			}
			prefixes = append(prefixes, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", entry, err)
		}
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}
