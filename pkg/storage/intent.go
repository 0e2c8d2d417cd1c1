package storage

import (
	"fmt"
	"io"
	"strings"
)

// Intent describes one upload event. It is a closed set of three shapes:
// Upload, Clear and NoChange.
type Intent interface {
	intent()
}

// Upload stores a new file, replacing whatever is stored under the same
// resource id and munged filename.
type Upload struct {
	// Body is read once. It is not rewound or retried on failure.
	Body io.Reader

	// Filename is the original (unmunged) filename.
	Filename string

	// ContentType overrides detection when set.
	ContentType string
}

// Clear deletes a previously uploaded file. Only meaningful for a resource
// that already existed before the current edit.
type Clear struct {
	// PriorFilename is the filename recorded for the existing upload.
	PriorFilename string
}

// NoChange leaves storage untouched.
type NoChange struct{}

func (Upload) intent()   {}
func (Clear) intent()    {}
func (NoChange) intent() {}

// NewIntent builds an Intent from independently optional form fields:
// an uploaded body with its filename, the clear flag, and the filename
// recorded before this edit.
//
// A body together with a clear request is contradictory and fails with
// ErrInvalidIntent, as does a body without a filename. A clear request
// without a prior filename has nothing to delete and becomes NoChange.
func NewIntent(body io.Reader, name string, clear bool, priorFilename string) (Intent, error) {
	switch {
	case body != nil && clear:
		return nil, fmt.Errorf("%w: upload and clear requested together", ErrInvalidIntent)
	case body != nil:
		if strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("%w: upload without filename", ErrInvalidIntent)
		}
		return Upload{Body: body, Filename: name}, nil
	case clear && strings.TrimSpace(priorFilename) != "":
		return Clear{PriorFilename: priorFilename}, nil
	default:
		return NoChange{}, nil
	}
}
