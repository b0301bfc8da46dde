package backend

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"vltd-dashboard/internal/domain/organization"
	"vltd-dashboard/internal/manufacturer/lifecycle"
	"vltd-dashboard/internal/tokenstore"
	appErrors "vltd-dashboard/pkg/errors"
	"vltd-dashboard/pkg/utils"
)

const loginFailedMessage = "Login failed"

func (c *Client) login(ctx context.Context, role tokenstore.Role, path string, creds Credentials) (*LoginResult, error) {
	creds.Email = strings.TrimSpace(creds.Email)
	if msg, ok := utils.FirstValidationMessage(&creds); !ok {
		return nil, appErrors.Validation(msg)
	}

	env, err := c.do(ctx, call{
		role:   role,
		method: http.MethodPost,
		path:   path,
		body:   creds,
		public: true,
	})
	if err != nil {
		return nil, loginFailure(err)
	}

	token := firstString(env.fields, "token", "accessToken", "access_token")
	if !strings.EqualFold(env.marker, statusSuccess) || token == "" {
		msg := env.message
		if msg == "" {
			msg = loginFailedMessage
		}
		return nil, &appErrors.AppError{Code: "LOGIN_FAILED", Message: msg, Kind: appErrors.KindApplication, Status: env.status}
	}

	result := &LoginResult{Role: role, Token: token}
	if _, err := env.decode("user", &result.User); err != nil {
		return nil, err
	}
	if err := c.tokens.Set(role, token); err != nil {
		return nil, err
	}

	c.log.Info("Logged in",
		zap.String("role", string(role)),
		zap.String("account_id", result.User.ID),
		zap.String("event", "backend_login"),
	)
	return result, nil
}

// loginFailure keeps transport and network kinds but re-labels backend
// rejections as login failures.
func loginFailure(err error) error {
	switch appErrors.KindOf(err) {
	case appErrors.KindApplication, appErrors.KindUnauthenticated:
		msg := appErrors.Message(err)
		if msg == "" || msg == "Request failed" || msg == "Session expired, please log in again" {
			msg = loginFailedMessage
		}
		return &appErrors.AppError{Code: "LOGIN_FAILED", Message: msg, Kind: appErrors.KindApplication, Err: err}
	default:
		return err
	}
}

func (c *Client) logout(role tokenstore.Role) {
	c.tokens.Remove(role)
	c.log.Info("Logged out", zap.String("role", string(role)), zap.String("event", "backend_logout"))
}

func markOnboarding(result *LoginResult) {
	if result.User.Status == "" {
		result.User.Status = organization.StatusPending
	}
	result.RequiresOnboarding = lifecycle.RequiresOnboarding(result.User.Status)
}
