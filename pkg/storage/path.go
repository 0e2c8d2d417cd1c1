package storage

import (
	"strings"

	"github.com/dmitrymomot/cloudstorage/pkg/filename"
)

// DerivePath returns the storage path for a resource file:
// resources/{resource_id}/{munged filename}.
//
// The filename goes through filename.Munge, the same routine used when the
// host records the canonical filename, so upload-time and read-time paths
// agree without shared state. Two uploads with the same resource id and
// munged name map to the same path; that is the replace semantics.
func DerivePath(resourceID, name string) (string, error) {
	if err := validateResourceID(resourceID); err != nil {
		return "", err
	}
	return PathPrefix + "/" + resourceID + "/" + filename.Munge(name), nil
}

// validateResourceID rejects ids that are empty or would escape their path segment.
func validateResourceID(id string) error {
	switch {
	case strings.TrimSpace(id) == "":
		return ErrInvalidResourceID
	case strings.ContainsAny(id, `/\`), strings.Contains(id, ".."), id == ".":
		return ErrInvalidResourceID
	}
	return nil
}
