package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	domainerrors "farmlink/internal/domain/errors"
	"farmlink/internal/domain/service"
)

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signInResponse struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
}

// SignIn exchanges credentials for a bearer token. The user id is included by
// newer backends; older ones return only the token.
func (c *Client) SignIn(ctx context.Context, email, password string) (service.SignInResult, error) {
	body, err := c.do(ctx, http.MethodPost, "/api/signin", "", signInRequest{
		Email:    email,
		Password: password,
	}, nil)
	if err != nil {
		if domainerrors.IsKind(err, domainerrors.KindAuthInvalid) {
			return service.SignInResult{}, domainerrors.New(domainerrors.KindAuthInvalid, "invalid email or password")
		}

		return service.SignInResult{}, err
	}

	var resp signInResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return service.SignInResult{}, domainerrors.Wrap(domainerrors.KindTransient, "malformed sign-in response", err)
	}
	if resp.Token == "" {
		return service.SignInResult{}, domainerrors.New(domainerrors.KindTransient, "sign-in response missing token")
	}

	c.logger.Debug("sign-in succeeded", slog.Bool("userIdIncluded", resp.UserID != ""))

	return service.SignInResult{Token: resp.Token, UserID: resp.UserID}, nil
}
