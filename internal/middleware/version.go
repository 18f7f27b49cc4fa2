package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
)

// APIVersion describes one mounted API version
type APIVersion struct {
	Version    string     `json:"version"`
	Status     string     `json:"status"` // "active" or "deprecated"
	SunsetDate *time.Time `json:"sunset_date,omitempty"`
	Message    string     `json:"message,omitempty"`
}

// VersionMiddleware mounts versioned route groups and stamps version headers on responses
type VersionMiddleware struct {
	versions map[string]APIVersion
}

func NewVersionMiddleware() *VersionMiddleware {
	return &VersionMiddleware{
		versions: map[string]APIVersion{
			"v1": {Version: "v1", Status: "active", Message: "Current stable API version"},
		},
	}
}

// VersionHeader sets X-API-Version, plus deprecation headers for deprecated versions
func (vm *VersionMiddleware) VersionHeader(version string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			h.Set("X-API-Version", version)
			if ver, ok := vm.versions[version]; ok {
				if ver.Status == "deprecated" {
					h.Set("X-API-Deprecated", "true")
					if ver.SunsetDate != nil {
						h.Set("X-API-Sunset", ver.SunsetDate.Format(time.RFC3339))
					}
				}
				if ver.Message != "" {
					h.Set("X-API-Message", ver.Message)
				}
			}
			return next(c)
		}
	}
}

// VersionRoute creates a route group under /<version> with version headers applied
func (vm *VersionMiddleware) VersionRoute(e *echo.Echo, version string) *echo.Group {
	return e.Group("/"+version, vm.VersionHeader(version))
}

// Deprecate marks version as deprecated from now on
func (vm *VersionMiddleware) Deprecate(version, message string, sunset *time.Time) {
	vm.versions[version] = APIVersion{
		Version:    version,
		Status:     "deprecated",
		SunsetDate: sunset,
		Message:    message,
	}
}
