package hostsim

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

// SetupRoutes configures the control routes and the app socket
func (h *Host) SetupRoutes(router *mux.Router) {
	router.HandleFunc("/ws", h.ServeWS)
	router.HandleFunc("/health", h.healthHandler).Methods("GET")
	router.HandleFunc("/status", h.statusHandler).Methods("GET")

	router.HandleFunc("/contacts", h.connectHandler).Methods("POST")
	router.HandleFunc("/contacts/{id}/clear", h.contactHandler(h.ClearContact)).Methods("POST")
	router.HandleFunc("/contacts/{id}/missed", h.contactHandler(h.MissContact)).Methods("POST")
	router.HandleFunc("/contacts/{id}/acw", h.contactHandler(h.StartACW)).Methods("POST")

	router.HandleFunc("/agent/state", h.agentStateHandler).Methods("PUT")
	router.HandleFunc("/agent/permission", h.permissionHandler).Methods("PUT")
	router.HandleFunc("/settings/language", h.languageHandler).Methods("PUT")
	router.HandleFunc("/destroy", h.destroyHandler).Methods("POST")
	router.HandleFunc("/errors", h.hostErrorHandler).Methods("POST")
	router.HandleFunc("/disconnect", h.disconnectHandler).Methods("POST")
}

// Start serves the simulator until ctx is cancelled
func (h *Host) Start(ctx context.Context, addr string) error {
	router := mux.NewRouter()
	h.SetupRoutes(router)

	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		<-ctx.Done()
		h.logger.Info().Msg("shutting down workspace simulator")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	h.logger.Info().Str("addr", addr).Msg("workspace simulator started")
	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (h *Host) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (h *Host) statusHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Status())
}

// connectHandler connects a new current contact
func (h *Host) connectHandler(w http.ResponseWriter, r *http.Request) {
	var c Contact
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
	}
	writeJSON(w, http.StatusCreated, h.ConnectContact(c))
}

func (h *Host) contactHandler(action func(id string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		if err := action(id); err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"contactId": id})
	}
}

func (h *Host) agentStateHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.SetAgentState(req.Name); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, h.Status().Agent)
}

func (h *Host) permissionHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Allowed bool `json:"allowed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	h.SetOutboundPermission(req.Allowed)
	writeJSON(w, http.StatusOK, req)
}

func (h *Host) languageHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Language string `json:"language"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Language == "" {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	h.SetLanguage(req.Language)
	writeJSON(w, http.StatusOK, req)
}

func (h *Host) destroyHandler(w http.ResponseWriter, r *http.Request) {
	h.Destroy()
	writeJSON(w, http.StatusOK, map[string]string{"message": "destroy sent"})
}

func (h *Host) disconnectHandler(w http.ResponseWriter, r *http.Request) {
	h.Disconnect()
	writeJSON(w, http.StatusOK, map[string]string{"message": "sessions dropped"})
}

func (h *Host) hostErrorHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Key     string `json:"key"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Key == "" {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	h.SendHostError(req.Key, req.Message)
	writeJSON(w, http.StatusOK, map[string]string{"message": "error sent"})
}
