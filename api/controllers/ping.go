package controllers

import (
	"net/http"

	"github.com/tilldesk/register-backend/api/middleware"
	"github.com/tilldesk/register-backend/api/responses"
)

func PublicPing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"scope": "public", "status": "ok"})
	}
}

func RegisterPing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]string{"scope": "register", "status": "ok"}
		if registerID := middleware.RegisterIDFromContext(r.Context()); registerID != "" {
			payload["register_id"] = registerID
		}
		responses.WriteSuccess(w, payload)
	}
}
