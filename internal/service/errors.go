package service

import (
	"errors"
	"fmt"

	"github.com/fjod/go_storefront/internal/client"
)

var (
	// ErrConnection is returned when the backend could not be reached.
	ErrConnection = errors.New("connection error")
	// ErrInvalidQuantity marks a cart quantity that can not form a line.
	ErrInvalidQuantity = errors.New("invalid cart quantity")

	IllegalTransitionError = errors.New("illegal transition of checkout step")
)

// boundary converts a collaborator error into the error reported by a public
// operation. Transport failures gain ErrConnection; rejections keep their status.
func boundary(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, client.ErrTransport) {
		return fmt.Errorf("%s: %w: %w", op, ErrConnection, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
