package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/glowbook/glowbook/internal/identity"
)

// ProvisionFunc prepares account-scoped resources (the wallet) for a
// freshly registered user.
type ProvisionFunc func(ctx context.Context, userID string) error

// Handler exposes registration and token endpoints.
type Handler struct {
	identity  *identity.Service
	auth      *Service
	provision ProvisionFunc
}

// NewHandler builds an auth handler. provision runs once per successful
// registration; nil skips provisioning.
func NewHandler(identitySvc *identity.Service, authSvc *Service, provision ProvisionFunc) *Handler {
	return &Handler{identity: identitySvc, auth: authSvc, provision: provision}
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// Register creates a client or stylist account. Admin accounts are not
// self-service.
func (h *Handler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	role := identity.Role(req.Role)
	if role == identity.RoleAdmin {
		return fiber.NewError(http.StatusForbidden, "admin accounts cannot be self-registered")
	}

	user, err := h.identity.Register(c.UserContext(), identity.Credentials{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
		Role:     role,
	})
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	if h.provision != nil {
		if err := h.provision(c.UserContext(), user.ID); err != nil {
			return fiber.NewError(http.StatusInternalServerError, "provision wallet: "+err.Error())
		}
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"user_id":    user.ID,
		"name":       user.Name,
		"email":      user.Email,
		"role":       user.Role,
		"created_at": user.CreatedAt,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates and issues a token pair.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	user, err := h.identity.Authenticate(c.UserContext(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) {
			return fiber.NewError(http.StatusUnauthorized, "invalid credentials")
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	pair, err := h.auth.Login(user)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(pair)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh exchanges a refresh token for a new access token.
func (h *Handler) Refresh(c *fiber.Ctx) error {
	var req refreshRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	access, expiresIn, err := h.auth.Refresh(c.UserContext(), req.RefreshToken)
	if err != nil {
		return fiber.NewError(http.StatusUnauthorized, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"access_token": access,
		"expires_in":   expiresIn,
	})
}
