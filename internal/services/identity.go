package services

import (
	"context"
	"errors"
	"net/http"

	"github.com/yungbote/coursegen-backend/internal/platform/apierr"
	"github.com/yungbote/coursegen-backend/internal/platform/ctxutil"
)

// callerID returns the user resolved by the auth middleware.
func callerID(ctx context.Context) (string, error) {
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || rd.UserID == "" {
		return "", apierr.New(http.StatusUnauthorized, "unauthorized", errors.New("no caller identity"))
	}
	return rd.UserID, nil
}
