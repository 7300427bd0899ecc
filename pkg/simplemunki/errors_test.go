package simplemunki_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tendant/simple-munki/pkg/simplemunki"
)

func TestFileError(t *testing.T) {
	t.Run("message names the operation and repo path", func(t *testing.T) {
		err := &simplemunki.FileError{
			Op:       "create",
			Kind:     "manifests",
			Pathname: "site/default",
			Err:      simplemunki.ErrFileAlreadyExists,
		}
		assert.Equal(t, "create manifests/site/default: file already exists", err.Error())
	})

	t.Run("classification survives wrapping", func(t *testing.T) {
		cause := errors.New("disk full")
		err := &simplemunki.FileError{
			Op:       "write",
			Kind:     "pkgsinfo",
			Pathname: "apps/Thing-1.0",
			Err:      fmt.Errorf("%w: %w", simplemunki.ErrFileWrite, cause),
		}

		assert.ErrorIs(t, err, simplemunki.ErrFileWrite)
		assert.ErrorIs(t, err, cause)
		assert.NotErrorIs(t, err, simplemunki.ErrFileRead)

		var fileErr *simplemunki.FileError
		assert.ErrorAs(t, fmt.Errorf("handler: %w", err), &fileErr)
	})
}
