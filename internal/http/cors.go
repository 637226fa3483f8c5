package http

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// newCORSMiddleware allows browser back-office tools on the listed origins to
// call the API. It returns nil when CORS is disabled or no usable origin is
// configured. Wildcards are refused: every API response carries user data.
func newCORSMiddleware(enabled bool, allowOrigins string, logger *slog.Logger) gin.HandlerFunc {
	if !enabled {
		return nil
	}

	origins, rejected := splitOrigins(allowOrigins)
	for _, origin := range rejected {
		logger.Warn("ignoring cors origin", slog.String("origin", origin))
	}
	if len(origins) == 0 {
		logger.Warn("cors enabled without a usable origin, cors disabled")
		return nil
	}

	logger.Info("cors enabled", slog.Any("origins", origins))

	return cors.New(cors.Config{
		AllowOrigins:  origins,
		AllowMethods:  []string{http.MethodGet, http.MethodPost},
		AllowHeaders:  []string{"Authorization", "Content-Type", "X-Request-Id"},
		ExposeHeaders: []string{"X-Request-Id"},
		MaxAge:        10 * time.Minute,
	})
}

// splitOrigins parses a comma-separated origin list. Entries that are not a bare
// http(s) scheme and host are returned in rejected.
func splitOrigins(list string) (origins, rejected []string) {
	for _, part := range strings.Split(list, ",") {
		origin := strings.TrimRight(strings.TrimSpace(part), "/")
		if origin == "" {
			continue
		}
		if !validOrigin(origin) {
			rejected = append(rejected, origin)
			continue
		}
		origins = append(origins, origin)
	}
	return origins, rejected
}

func validOrigin(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return false
	}
	return u.Host != "" && !strings.Contains(u.Host, "*") && u.Path == "" && u.RawQuery == "" && u.User == nil
}
