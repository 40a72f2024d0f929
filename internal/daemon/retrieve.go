package daemon

import (
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode"

	"github.com/go-chi/chi/v5/middleware"

	"poolpack/internal/logging"
	"poolpack/internal/services"
)

const archiveContentType = "application/zip"

// handleRetrieve streams an archive to whoever presents a valid token. The
// token is the only credential, and any number of downloads are allowed
// until the reaper evicts the artifact.
func (s *apiServer) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
	defer func() {
		s.daemon.metrics.Retrieval(ww.Status())
	}()
	logger := logging.WithContext(r.Context(), s.log())

	claims, err := s.daemon.signer.Verify(strings.TrimSpace(r.URL.Query().Get("token")))
	if err != nil {
		logger.Debug("retrieval rejected", logging.Error(err))
		writeError(ww, services.HTTPStatus(err), "invalid token")
		return
	}

	file, artifact, err := s.daemon.registry.Open(claims.Locator)
	if err != nil {
		logger.Debug("retrieval target unavailable",
			logging.String(logging.FieldLocator, claims.Locator),
			logging.Error(err),
		)
		writeError(ww, services.HTTPStatus(err), "artifact not found or expired")
		return
	}
	defer file.Close()

	filename := claims.Filename
	if filename == "" {
		filename = artifact.Filename
	}
	header := ww.Header()
	header.Set("Content-Type", archiveContentType)
	header.Set("Content-Disposition", contentDisposition(filename))
	header.Set("Cache-Control", "private, no-cache")
	if artifact.Digest != "" {
		header.Set("ETag", `"`+artifact.Digest+`"`)
	}

	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})
	http.ServeContent(ww, r, filename, artifact.CreatedAt, file)
	logger.Info("artifact retrieved",
		logging.String(logging.FieldLocator, artifact.Locator),
		logging.Int("status", ww.Status()),
		logging.Int("bytes", ww.BytesWritten()),
		logging.String(logging.FieldEventType, "artifact_retrieved"),
	)
}

// contentDisposition renders an attachment header with a quoted ASCII
// filename, adding an RFC 5987 form when the name has other characters.
func contentDisposition(filename string) string {
	var ascii strings.Builder
	plain := true
	for _, r := range filename {
		switch {
		case r == '"' || r == '\\':
			ascii.WriteRune('_')
		case r > unicode.MaxASCII || unicode.IsControl(r):
			ascii.WriteRune('_')
			plain = false
		default:
			ascii.WriteRune(r)
		}
	}
	value := `attachment; filename="` + ascii.String() + `"`
	if !plain {
		value += "; filename*=UTF-8''" + url.PathEscape(filename)
	}
	return value
}
