package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nurpe/freelancehub/internal/http/middleware"
	"github.com/nurpe/freelancehub/internal/model"
	"github.com/nurpe/freelancehub/internal/service"
)

func (h *Handler) registerAccounts(group *gin.RouterGroup, authMiddleware gin.HandlerFunc) {
	group.POST("/register", h.register)
	group.POST("/token", h.obtainToken)
	group.POST("/token/refresh", h.refreshToken)
	group.GET("/users/:id", h.publicUser)

	protected := group.Group("")
	protected.Use(authMiddleware)
	protected.GET("/profile", h.profile)
	protected.PATCH("/profile", h.updateProfile)
	protected.PUT("/profile/avatar", h.uploadAvatar)
	protected.PATCH("/profile/avatar", h.uploadAvatar)
}

type registerRequest struct {
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	Phone     string `json:"phone" binding:"required,phone"`
	Role      string `json:"role" binding:"required,oneof=executor customer"`
	Password  string `json:"password" binding:"required"`
	Confirm   string `json:"confirm" binding:"required"`
}

type registerResponse struct {
	ID    string     `json:"id"`
	Email string     `json:"email"`
	Phone *string    `json:"phone"`
	Role  model.Role `json:"role"`
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	user, err := h.users.Register(c.Request.Context(), service.RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
		Role:      model.Role(req.Role),
		Password:  req.Password,
		Confirm:   req.Confirm,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, registerResponse{
		ID:    user.ID.String(),
		Email: user.Email,
		Phone: user.Phone,
		Role:  user.Role,
	})
}

type tokenRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) obtainToken(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	pair, err := h.users.Login(c.Request.Context(), service.LoginInput{
		Email:    req.Email,
		Username: req.Username,
		Password: req.Password,
		ClientIP: c.ClientIP(),
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"access": pair.Access, "refresh": pair.Refresh})
}

type refreshRequest struct {
	Refresh string `json:"refresh" binding:"required"`
}

func (h *Handler) refreshToken(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	access, err := h.users.Refresh(c.Request.Context(), req.Refresh)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"access": access})
}

func (h *Handler) profile(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	user, err := h.users.Profile(c.Request.Context(), principal)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.toProfile(c, user))
}

func (h *Handler) updateProfile(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	profile := model.DefaultPublicProfile()
	if err := c.ShouldBindJSON(&profile); err != nil {
		h.bindError(c, err)
		return
	}

	user, err := h.users.UpdatePublicProfile(c.Request.Context(), principal, profile)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.toProfile(c, user))
}

func (h *Handler) uploadAvatar(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	h.limitBody(c)
	header, err := c.FormFile("avatar")
	if err != nil {
		h.missingFile(c, "avatar", err)
		return
	}
	file, err := header.Open()
	if err != nil {
		h.handleError(c, err)
		return
	}
	defer file.Close()

	user, err := h.users.UploadAvatar(c.Request.Context(), principal, header.Filename, file)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.toProfile(c, user))
}

func (h *Handler) publicUser(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	user, err := h.users.PublicCard(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.toPublicUser(c, user))
}
