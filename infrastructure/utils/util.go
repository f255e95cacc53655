package utils

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt"

	"social-publisher/infrastructure/logger"
)

func GetCurrentTime() time.Time {
	return time.Now().UTC()
}

func GenerateToken(payload map[string]interface{}, secretKey string) (string, error) {
	var claims jwt.MapClaims = payload
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(secretKey))
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while generate token")
		return "", err
	}
	return tokenString, nil
}

// ErrPollTimeout is returned by Poll when the condition never became true
// within the attempt budget.
var ErrPollTimeout = errors.New("poll: attempts exhausted")

// Poll runs fn up to attempts times, waiting interval between tries, until fn
// reports done. Any adapter with asynchronous remote processing (media
// containers, upload status) waits through this instead of an inline sleep
// loop. fn errors abort immediately; exhausting attempts returns
// ErrPollTimeout.
func Poll(ctx context.Context, attempts int, interval time.Duration, fn func(ctx context.Context) (done bool, err error)) error {
	for i := 0; i < attempts; i++ {
		done, err := fn(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
	return ErrPollTimeout
}
