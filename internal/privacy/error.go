package privacy

import "strings"

// redactedSecret replaces configured secrets found in error text.
const redactedSecret = "[REDACTED]"

// RedactedError carries a scrubbed message while keeping the original error in the chain.
type RedactedError struct {
	cause error
	msg   string
}

func (e *RedactedError) Error() string { return e.msg }

func (e *RedactedError) Unwrap() error { return e.cause }

// RedactError returns err with a message safe to log. The message is passed through
// ScrubMessage and every non-empty secret is masked, which covers drivers that echo a
// password outside of a URL or DSN. RedactError(nil) is nil.
func RedactError(err error, secrets ...string) error {
	if err == nil {
		return nil
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret != "" {
			msg = strings.ReplaceAll(msg, secret, redactedSecret)
		}
	}
	return &RedactedError{cause: err, msg: ScrubMessage(msg)}
}
