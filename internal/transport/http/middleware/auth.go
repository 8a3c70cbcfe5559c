package httpmw

import (
	"context"
	"net/http"
	"strings"
)

type ctxKey string

const (
	ctxKeyToken       ctxKey = "token"
	ctxKeyParticipant ctxKey = "participant_id"
)

// простая авторизация: требуем Bearer + X-Participant-ID, без валидации токена.
// Идентичность выдаёт сервис курсов; здесь она — непрозрачный вход.
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") || len(auth) <= 7 {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"missing bearer token"}`))
			return
		}

		pid := strings.TrimSpace(r.Header.Get("X-Participant-ID"))
		if pid == "" {
			http.Error(w, `{"error":"missing X-Participant-ID"}`, http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), ctxKeyToken, strings.TrimSpace(auth[7:]))
		ctx = context.WithValue(ctx, ctxKeyParticipant, pid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func ParticipantIDFromCtx(ctx context.Context) string {
	if v := ctx.Value(ctxKeyParticipant); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}
