// internal/middleware/i18n.go
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/storefront/internal/i18n"
)

const defaultLanguage = "en"

// I18nMiddleware stores the caller's language under "lang" for the handlers.
func I18nMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("lang", preferredLanguage(c.GetHeader("Accept-Language")))
		c.Next()
	}
}

// preferredLanguage maps the first Accept-Language entry, e.g.
// "ka-GE,ka;q=0.9,en;q=0.8", onto a loaded locale.
func preferredLanguage(header string) string {
	first := strings.TrimSpace(strings.Split(strings.Split(header, ",")[0], ";")[0])
	primary := strings.ToLower(first)
	if i := strings.IndexAny(primary, "-_"); i >= 0 {
		primary = primary[:i]
	}

	for _, lang := range i18n.GetSupportedLanguages() {
		if lang == primary {
			return lang
		}
	}
	return defaultLanguage
}
