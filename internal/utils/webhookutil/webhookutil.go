package webhookutil

import (
	"net/url"

	"github.com/cozy-creator/influencer-studio/internal/utils/hashutil"
)

const (
	JobIDParam = "job_id"
	TokenParam = "token"
)

// SignedCallbackURL appends the job id and, when a secret is configured, an
// HMAC token over it so the webhook handler can authenticate the callback.
func SignedCallbackURL(base, secret, jobID string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}

	q := u.Query()
	q.Set(JobIDParam, jobID)
	if secret != "" {
		q.Set(TokenParam, hashutil.HMACSha3(secret, jobID))
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// VerifyCallback reports whether token authenticates jobID. With no secret
// configured every callback is accepted.
func VerifyCallback(secret, jobID, token string) bool {
	if secret == "" {
		return true
	}
	if jobID == "" || token == "" {
		return false
	}
	return hashutil.VerifyHMACSha3(secret, jobID, token)
}
