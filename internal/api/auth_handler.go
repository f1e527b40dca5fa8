package api

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"classroom/internal/service"
	v1 "classroom/pkg/api/v1"

	"github.com/gin-gonic/gin"
)

const maxAvatarBytes = 5 << 20

type AuthHandler struct {
	auth  *service.AuthService
	users *service.UserService
}

func NewAuthHandler(auth *service.AuthService, users *service.UserService) *AuthHandler {
	return &AuthHandler{auth: auth, users: users}
}

func (h *AuthHandler) Login(c *gin.Context) {
	var body v1.LoginRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err.Error())
		return
	}

	tokens, err := h.auth.Login(c.Request.Context(), body.Username, body.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, v1.ErrorResponse{Error: "no active account found with the given credentials"})
			return
		}
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, tokens)
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	var body v1.RefreshRequest
	if err := c.ShouldBindJSON(&body); err != nil || body.Refresh == "" {
		badRequest(c, "refresh token is required")
		return
	}

	access, err := h.auth.Refresh(c.Request.Context(), body.Refresh)
	if err != nil {
		if errors.Is(err, service.ErrTokenInvalid) || errors.Is(err, service.ErrSessionExpired) {
			c.JSON(http.StatusUnauthorized, v1.ErrorResponse{Error: "token is invalid or expired"})
			return
		}
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, v1.RefreshResponse{Access: access})
}

func (h *AuthHandler) Me(c *gin.Context) {
	p, err := h.users.Me(c.Request.Context(), service.GetOperatorInfo(c.Request.Context()))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *AuthHandler) UpdateMe(c *gin.Context) {
	var body v1.UpdateMeRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err.Error())
		return
	}
	ctx := c.Request.Context()
	p, err := h.users.UpdateMe(ctx, service.GetOperatorInfo(ctx), body)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var body v1.ChangePasswordRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err.Error())
		return
	}
	ctx := c.Request.Context()
	if err := h.users.ChangePassword(ctx, service.GetOperatorInfo(ctx), body.OldPassword, body.NewPassword); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"detail": "password changed"})
}

// UploadAvatar accepts the image in multipart field "file" or "avatar".
func (h *AuthHandler) UploadAvatar(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		fh, err = c.FormFile("avatar")
	}
	if err != nil {
		badRequest(c, "no file was submitted")
		return
	}
	if fh.Size > maxAvatarBytes {
		badRequest(c, "file too large")
		return
	}

	data, err := readPart(fh)
	if err != nil {
		writeError(c, err)
		return
	}

	ctx := c.Request.Context()
	contentType := fh.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	url, err := h.users.SetAvatar(ctx, service.GetOperatorInfo(ctx), fh.Filename, contentType, data, baseURL(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, v1.AvatarResponse{AvatarURL: url})
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, maxAvatarBytes))
}

// Avatar serves an uploaded image by the user ID in its file name.
func (h *AuthHandler) Avatar(c *gin.Context) {
	id, ok := avatarOwner(c.Param("file"))
	if !ok {
		c.Status(http.StatusNotFound)
		return
	}
	a, err := h.users.Avatar(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	if a.Filename != c.Param("file") {
		c.Status(http.StatusNotFound)
		return
	}
	c.Data(http.StatusOK, a.ContentType, a.Data)
}

func avatarOwner(file string) (int64, bool) {
	base, _, _ := strings.Cut(file, ".")
	id, err := strconv.ParseInt(base, 10, 64)
	return id, err == nil && id > 0
}
