package api

import (
	"context"
	"net/http"
	"net/url"

	"booking-calendar/internal/model"
)

type loginRequest struct {
	Username string `json:"Username"`
	Password string `json:"Password"`
}

// Login exchanges admin credentials for a bearer credential.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	var cred string
	err := c.do(ctx, request{
		op:     "login",
		method: http.MethodPost,
		path:   "/admin/login",
		body:   loginRequest{Username: username, Password: password},
	}, &cred)
	return cred, err
}

// RefreshToken renews the credential. The current credential is sent as the
// bearer even if expired; the server may also rely on its refresh cookie.
func (c *Client) RefreshToken(ctx context.Context, credential string) (string, error) {
	var cred string
	err := c.do(ctx, request{
		op:     "refresh",
		method: http.MethodGet,
		path:   "/admin/token",
		bearer: credential,
	}, &cred)
	return cred, err
}

// DeleteUser erases a person's future bookings and anonymizes past ones.
func (c *Client) DeleteUser(ctx context.Context, ref model.UserRef) error {
	return c.do(ctx, request{
		op:     "delete user",
		method: http.MethodDelete,
		path:   "/admin/user",
		query: url.Values{
			"firstname": {ref.FirstName},
			"lastname":  {ref.LastName},
			"email":     {ref.Email},
		},
	}, nil)
}
