package client

import (
	"context"
	"io"
	"net/http"

	v1 "classroom/pkg/api/v1"
	"classroom/pkg/constraints"
)

// Login exchanges credentials for a token pair. It does not touch the token
// store; Session.Login does.
func (c *Client) Login(ctx context.Context, username, password string) (v1.TokenPair, error) {
	var pair v1.TokenPair
	err := c.call(ctx, http.MethodPost, constraints.PathLogin, nil, v1.LoginRequest{
		Username: username,
		Password: password,
	}, &pair)
	return pair, err
}

func (c *Client) Me(ctx context.Context) (*v1.Profile, error) {
	var p v1.Profile
	if err := c.call(ctx, http.MethodGet, constraints.PathMe, nil, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) UpdateMe(ctx context.Context, in v1.UpdateMeRequest) (*v1.Profile, error) {
	var p v1.Profile
	if err := c.call(ctx, http.MethodPatch, constraints.PathMe, nil, in, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) ChangePassword(ctx context.Context, oldPassword, newPassword string) error {
	return c.call(ctx, http.MethodPost, constraints.PathChangePassword, nil, v1.ChangePasswordRequest{
		OldPassword: oldPassword,
		NewPassword: newPassword,
	}, nil)
}

// UploadAvatar sends the image as multipart field "file" and returns the new
// avatar URL.
func (c *Client) UploadAvatar(ctx context.Context, filename string, content io.Reader) (string, error) {
	body, err := newMultipartBody(FilePart{Field: "file", Filename: filename, Content: content})
	if err != nil {
		return "", err
	}
	var out v1.AvatarResponse
	if err := c.call(ctx, http.MethodPost, constraints.PathAvatar, nil, body, &out); err != nil {
		return "", err
	}
	return out.AvatarURL, nil
}
