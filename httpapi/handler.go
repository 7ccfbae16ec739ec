package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/MrEthical07/magicAuth"
)

type handler struct {
	engine *magicAuth.Engine
	logger *slog.Logger
}

type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type publicUser struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      *string   `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

func toPublicUser(u magicAuth.User) publicUser {
	pu := publicUser{ID: u.ID, Email: u.Email, CreatedAt: u.CreatedAt}
	if u.Name != "" {
		name := u.Name
		pu.Name = &name
	}
	return pu
}

// decodeBody reads a JSON object into dst. An empty body leaves dst zero.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		writeStatus(w, r, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

type issueRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

func (h *handler) issueMagicLink(w http.ResponseWriter, r *http.Request) {
	var req issueRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := h.engine.IssueMagicLink(r.Context(), req.Email, req.Name)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type verifyRequest struct {
	Token string `json:"token"`
}

type verifyResponse struct {
	Success   bool       `json:"success"`
	User      publicUser `json:"user"`
	IsNewUser bool       `json:"isNewUser"`
}

func (h *handler) verify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Token == "" {
		req.Token = r.URL.Query().Get("token")
	}

	res, err := h.engine.VerifyAndConsume(r.Context(), w, req.Token)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, verifyResponse{
		Success:   true,
		User:      toPublicUser(res.User),
		IsNewUser: res.IsNewUser,
	})
}

type meResponse struct {
	User *publicUser `json:"user"`
}

func (h *handler) me(w http.ResponseWriter, r *http.Request) {
	var resp meResponse
	if u := h.engine.GetMe(r.Context(), w, r); u != nil {
		pu := toPublicUser(*u)
		resp.User = &pu
	}
	writeJSON(w, http.StatusOK, resp)
}

type updateRequest struct {
	Email *string `json:"email"`
	Name  *string `json:"name"`
}

type updateResponse struct {
	Success bool       `json:"success"`
	User    publicUser `json:"user"`
}

func (h *handler) updateMe(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	user, err := h.engine.UpdateUser(r.Context(), r, magicAuth.UserPatch{Email: req.Email, Name: req.Name})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, updateResponse{Success: true, User: toPublicUser(user)})
}

func (h *handler) logout(w http.ResponseWriter, r *http.Request) {
	h.engine.Logout(r.Context(), w)
	writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: "Logged out successfully"})
}
