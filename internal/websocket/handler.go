package websocket

import (
	"net/http"
	"strings"

	ws "github.com/coder/websocket"
)

// HandleWebSocket upgrades the request and runs it as a hub client. The
// optional stream query parameter is a comma-separated list of streams;
// without it the client receives all of them. Cross-origin upgrades are
// accepted from allowedOrigins.
func HandleWebSocket(hub *Hub, allowedOrigins []string) http.HandlerFunc {
	patterns := originPatterns(allowedOrigins)
	return func(w http.ResponseWriter, r *http.Request) {
		var streams []string
		if raw := r.URL.Query().Get("stream"); raw != "" {
			for _, s := range strings.Split(raw, ",") {
				s = strings.TrimSpace(s)
				if !KnownStream(s) {
					http.Error(w, "unknown stream "+s, http.StatusBadRequest)
					return
				}
				streams = append(streams, s)
			}
		}

		conn, err := ws.Accept(w, r, &ws.AcceptOptions{OriginPatterns: patterns})
		if err != nil {
			hub.logger.Warn("websocket accept failed", "error", err)
			return
		}
		defer conn.CloseNow()

		NewClient(hub, conn, streams...).Run(r.Context())
	}
}

// originPatterns turns origins like "https://example.com" into the host
// patterns the upgrader matches against.
func originPatterns(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		if _, host, ok := strings.Cut(o, "://"); ok {
			o = host
		}
		if o = strings.TrimSuffix(o, "/"); o != "" {
			out = append(out, o)
		}
	}
	return out
}
