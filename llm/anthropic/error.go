package anthropic

import (
	"errors"

	sdk "github.com/anthropics/anthropic-sdk-go"

	"github.com/domainkit/platform/llm/model"
)

// translateError maps a provider error to model.ErrRateLimited when the
// underlying SDK reports a 429, leaving other errors unwrapped so callers
// see the original cause.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) && apiErr.StatusCode == 429 {
		return errors.Join(model.ErrRateLimited, err)
	}
	return err
}
