package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/motosaga/moto-saga/internal/config"
	"github.com/motosaga/moto-saga/internal/model"
	"github.com/motosaga/moto-saga/internal/repository"
	"github.com/motosaga/moto-saga/internal/utils"
)

// AuthHandler bundles dependencies for signup, login and profile
// endpoints.
type AuthHandler struct {
	Cfg   config.Config
	Users *repository.UserRepo
}

func NewAuthHandler(cfg config.Config, u *repository.UserRepo) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u}
}

// ----- DTOs -----

type signupReq struct {
	Email    string          `json:"email"`
	Password string          `json:"password"`
	Name     string          `json:"name"`
	Role     string          `json:"role"` // rider | club | creator | admin
	Bio      string          `json:"bio"`
	BikeInfo json.RawMessage `json:"bikeInfo"`
	ClubInfo json.RawMessage `json:"clubInfo"`
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResp struct {
	User  *model.User `json:"user"`
	Token string      `json:"token"`
}

type profileUpdateReq struct {
	Name         *string         `json:"name"`
	Bio          *string         `json:"bio"`
	ProfileImage *string         `json:"profileImage"`
	BikeInfo     json.RawMessage `json:"bikeInfo"`
	ClubInfo     json.RawMessage `json:"clubInfo"`
}

// Signup handles POST /v1/auth/signup: create the user and return it
// with a token immediately.
func (h *AuthHandler) Signup(c echo.Context) error {
	var req signupReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" || req.Name == "" || req.Role == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Missing required fields"})
	}
	role := model.Role(strings.ToLower(strings.TrimSpace(req.Role)))
	if !role.Valid() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid role"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	user, err := h.Users.Create(ctx, req.Email, req.Password, req.Name, role, req.BikeInfo, req.ClubInfo, req.Bio, h.Cfg.BcryptCost)
	if err != nil {
		return fail(c, err)
	}
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, user, h.Cfg.AccessTTLMin)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, authResp{User: user, Token: access.Token})
}

// Login handles POST /v1/auth/login: verify credentials and return the
// user with a fresh token. Unknown emails and wrong passwords get the
// same answer.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Missing email or password"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	user, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil || !utils.VerifyPassword(user.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Invalid credentials"})
	}
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, user, h.Cfg.AccessTTLMin)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, authResp{User: user, Token: access.Token})
}

// Me handles GET /v1/auth/me: return the authenticated user's record.
func (h *AuthHandler) Me(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	user, err := h.Users.GetByID(c.Request().Context(), userID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, user)
}

// GetProfile handles GET /v1/users/:id: public profile view.
func (h *AuthHandler) GetProfile(c echo.Context) error {
	user, err := h.Users.GetByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, user)
}

// UpdateProfile handles PUT /v1/users/:id: apply allow-listed profile
// fields. Only the user themselves or an administrator may update a
// profile.
func (h *AuthHandler) UpdateProfile(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	targetID := c.Param("id")
	if targetID != userID && !isAdmin(c) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	var req profileUpdateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	user, err := h.Users.UpdateProfile(c.Request().Context(), targetID,
		req.Name, req.Bio, req.ProfileImage, req.BikeInfo, req.ClubInfo)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, user)
}
