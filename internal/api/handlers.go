package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/charlachat/charla/internal/blob"
	"github.com/charlachat/charla/internal/database"
	"github.com/charlachat/charla/internal/server"
	"github.com/gorilla/websocket"
)

const minPasswordLength = 4

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RegisterResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type SessionResponse struct {
	Success  bool   `json:"success"`
	Username string `json:"username"`
	UserId   int    `json:"userId"`
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type UploadErrorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (s *CharlaApp) writeJson(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Printf("json encode: %v", err)
	}
}

func (s *CharlaApp) createAccount(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJson(w, http.StatusBadRequest, ErrorResponse{Error: "Usuario y contraseña (mín. 4 caracteres) son requeridos."})
		return
	}

	if req.Username == "" || len(req.Password) < minPasswordLength {
		s.writeJson(w, http.StatusBadRequest, ErrorResponse{Error: "Usuario y contraseña (mín. 4 caracteres) son requeridos."})
		return
	}

	pwdHash, err := hashPassword(req.Password)
	if err != nil {
		s.log.Println("hash password:", err)
		s.writeJson(w, http.StatusInternalServerError, ErrorResponse{Error: "Ocurrió un error en el servidor."})
		return
	}

	params := database.CreateAccountParams{
		Username:     strings.ToLower(req.Username),
		PasswordHash: pwdHash,
	}

	if _, err := s.db.CreateAccount(params); err != nil {
		if errors.Is(err, database.ErrDuplicateUsername) {
			s.writeJson(w, http.StatusConflict, ErrorResponse{Error: "El nombre de usuario ya está en uso."})
			return
		}

		s.log.Println("create account:", err)
		s.writeJson(w, http.StatusInternalServerError, ErrorResponse{Error: "Ocurrió un error en el servidor."})
		return
	}

	s.writeJson(w, http.StatusCreated, RegisterResponse{
		Success: true,
		Message: "Usuario registrado con éxito.",
	})
}

func (s *CharlaApp) login(w http.ResponseWriter, r *http.Request) {
	var lr LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&lr); err != nil {
		s.writeJson(w, http.StatusBadRequest, ErrorResponse{Error: "Usuario y contraseña requeridos."})
		return
	}

	if lr.Username == "" || lr.Password == "" {
		s.writeJson(w, http.StatusBadRequest, ErrorResponse{Error: "Usuario y contraseña requeridos."})
		return
	}

	dbUser, err := s.db.GetAccountByUsername(strings.ToLower(lr.Username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// identical response for unknown user and wrong password
			s.writeJson(w, http.StatusUnauthorized, ErrorResponse{Error: "Credenciales inválidas."})
			return
		}

		s.log.Println("get account:", err)
		s.writeJson(w, http.StatusInternalServerError, ErrorResponse{Error: "Ocurrió un error en el servidor."})
		return
	}

	if !verifyPassword(dbUser.PasswordHash, lr.Password) {
		s.writeJson(w, http.StatusUnauthorized, ErrorResponse{Error: "Credenciales inválidas."})
		return
	}

	token, err := s.createJwtForSession(dbUser.Id, dbUser.Username, defaultExp)
	if err != nil {
		s.log.Println("create session token:", err)
		s.writeJson(w, http.StatusInternalServerError, ErrorResponse{Error: "Ocurrió un error en el servidor."})
		return
	}

	http.SetCookie(w, createJwtCookie(token, defaultExp))

	s.writeJson(w, http.StatusOK, SessionResponse{
		Success:  true,
		Username: dbUser.Username,
		UserId:   dbUser.Id,
	})
}

func (s *CharlaApp) session(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		s.writeJson(w, http.StatusUnauthorized, ErrorResponse{Error: "Credenciales inválidas."})
		return
	}

	username, _ := Username(r.Context())
	s.writeJson(w, http.StatusOK, SessionResponse{
		Success:  true,
		Username: username,
		UserId:   userId,
	})
}

func (s *CharlaApp) upload(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	filename := r.URL.Query().Get("filename")
	if filename == "" {
		filename = "archivo"
	}

	respBody, err := s.uploader.Upload(r.Context(), filename, r.Header.Get("Content-Type"), r.Body)
	if err != nil {
		if errors.Is(err, blob.ErrUnsupportedContentType) {
			s.writeJson(w, http.StatusBadRequest, UploadErrorResponse{
				Message: "Error al subir el archivo.",
				Error:   "tipo de contenido no permitido",
			})
			return
		}

		s.log.Println("upload:", err)
		s.writeJson(w, http.StatusInternalServerError, UploadErrorResponse{
			Message: "Error al subir el archivo.",
			Error:   "upstream upload failure",
		})
		return
	}

	// pass the blob store's JSON response through verbatim
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(respBody); err != nil {
		s.log.Printf("write upload response: %v", err)
	}
}

func (s *CharlaApp) healthCheck(w http.ResponseWriter, _ *http.Request) {
	if err := s.db.Ping(); err != nil {
		s.log.Println("health check:", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *CharlaApp) serveWs(w http.ResponseWriter, r *http.Request) {
	roomId := r.PathValue("room")
	if roomId == "" {
		roomId = server.PublicRoomId
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			// only allow connections from allowed origins
			origin := r.Header.Get("Origin")
			if origin == "" {
				// if no origin header, allow the request
				return true
			}

			return slices.Contains(s.allowedOrigins, origin)
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Println("error upgrading connection:", err)
		return
	}

	client := server.NewClient(r.URL.Query().Get("user"), conn, s.cs, s.log)

	s.cs.Connect(client, roomId)
	go client.Write()
	go client.Read()
}
