package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/denny0223/todo-api/internal/service"
)

func (s *Server) RegisterRoutes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	// Clients address collection routes with a trailing slash
	// (/users/x/todos/); strip it so both spellings resolve.
	r.Use(middleware.StripSlashes)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/", s.welcomeHandler)

	r.Get("/health", s.healthHandler)

	r.Route("/users/{username}", func(r chi.Router) {
		r.Route("/todos", func(r chi.Router) {
			r.Post("/", s.createTodoHandler)
			r.Get("/", s.listTodosHandler)
			r.Get("/{id}", s.getTodoHandler)
			r.Put("/{id}", s.updateTodoHandler)
			r.Delete("/{id}", s.deleteTodoHandler)
		})
		r.Put("/rename/{newUsername}", s.renameUserHandler)
	})

	return r
}

func (s *Server) welcomeHandler(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Welcome to the Todo API. Use /docs for API documentation."})
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	healthStats := s.store.Health()
	if status, ok := healthStats["status"]; ok && status == "down" {
		respondWithJSON(w, http.StatusServiceUnavailable, healthStats)
		return
	}
	respondWithJSON(w, http.StatusOK, healthStats)
}

func (s *Server) createTodoHandler(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	var req service.CreateTodoRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	err := decoder.Decode(&req)
	if err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError
		if errors.As(err, &syntaxError) {
			msg := fmt.Sprintf("Request body contains badly-formed JSON (at position %d)", syntaxError.Offset)
			respondWithError(w, http.StatusBadRequest, msg)
		} else if errors.Is(err, io.ErrUnexpectedEOF) {
			msg := "Request body contains badly-formed JSON"
			respondWithError(w, http.StatusBadRequest, msg)
		} else if errors.As(err, &unmarshalTypeError) {
			msg := fmt.Sprintf("Request body contains an invalid value for the %q field (at position %d)", unmarshalTypeError.Field, unmarshalTypeError.Offset)
			respondWithError(w, http.StatusBadRequest, msg)
		} else if strings.HasPrefix(err.Error(), "json: unknown field ") {
			fieldName := strings.TrimPrefix(err.Error(), "json: unknown field ")
			msg := fmt.Sprintf("Request body contains unknown field %s", fieldName)
			respondWithError(w, http.StatusBadRequest, msg)
		} else if errors.Is(err, io.EOF) {
			msg := "Request body must not be empty"
			respondWithError(w, http.StatusBadRequest, msg)
		} else {
			log.Printf("Error decoding create todo request: %v", err)
			respondWithError(w, http.StatusInternalServerError, "Error processing request")
		}
		return
	}

	todo, err := s.todoService.CreateTodo(r.Context(), username, req)
	if err != nil {
		s.respondServiceError(w, err, "CreateTodo", "Failed to create todo")
		return
	}

	respondWithJSON(w, http.StatusCreated, todo)
}

func (s *Server) listTodosHandler(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	todos, err := s.todoService.ListTodos(r.Context(), username)
	if err != nil {
		s.respondServiceError(w, err, "ListTodos", "Failed to retrieve todos")
		return
	}

	respondWithJSON(w, http.StatusOK, todos)
}

func (s *Server) getTodoHandler(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	id := chi.URLParam(r, "id")

	todo, err := s.todoService.GetTodo(r.Context(), username, id)
	if err != nil {
		s.respondServiceError(w, err, "GetTodo", "Failed to retrieve todo")
		return
	}

	respondWithJSON(w, http.StatusOK, todo)
}

func (s *Server) updateTodoHandler(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	id := chi.URLParam(r, "id")

	var req service.UpdateTodoRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	err := decoder.Decode(&req)
	if err != nil {
		log.Printf("Error decoding update todo request: %v", err)
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	updatedTodo, err := s.todoService.UpdateTodo(r.Context(), username, id, req)
	if err != nil {
		s.respondServiceError(w, err, "UpdateTodo", "Failed to update todo")
		return
	}

	respondWithJSON(w, http.StatusOK, updatedTodo)
}

func (s *Server) deleteTodoHandler(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	id := chi.URLParam(r, "id")

	err := s.todoService.DeleteTodo(r.Context(), username, id)
	if err != nil {
		s.respondServiceError(w, err, "DeleteTodo", "Failed to delete todo")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Todo deleted successfully"})
}

func (s *Server) renameUserHandler(w http.ResponseWriter, r *http.Request) {
	oldUsername := chi.URLParam(r, "username")
	newUsername := chi.URLParam(r, "newUsername")

	err := s.todoService.RenameUser(r.Context(), oldUsername, newUsername)
	if err != nil {
		s.respondServiceError(w, err, "RenameUser", "Failed to rename user")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Username renamed successfully"})
}

// respondServiceError translates the service error taxonomy into the wire
// contract: 404 for missing user/todo, 409 for a taken username, 422 for
// rejected input, 500 otherwise.
func (s *Server) respondServiceError(w http.ResponseWriter, err error, operation, fallback string) {
	var validationErr *service.ValidationError
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		respondWithError(w, http.StatusNotFound, "User not found")
	case errors.Is(err, service.ErrTodoNotFound):
		respondWithError(w, http.StatusNotFound, "Todo not found")
	case errors.Is(err, service.ErrUsernameExists):
		respondWithError(w, http.StatusConflict, "New username already exists")
	case errors.As(err, &validationErr):
		respondWithError(w, http.StatusUnprocessableEntity, validationErr.Error())
	default:
		log.Printf("Error calling %s service: %v", operation, err)
		respondWithError(w, http.StatusInternalServerError, fallback)
	}
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"detail": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Error marshaling JSON response: %v", err)
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"detail":"Internal server error preparing response"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}
