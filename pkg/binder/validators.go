package binder

import (
	"net/url"

	"github.com/driveview/driveview/pkg/storage"
	"github.com/go-playground/validator/v10"
)

// folderRefValidator accepts anything storage.ParseFolderRef understands: a
// share URL or a bare folder id. The empty string is allowed so that it can
// be combined with required_without.
func folderRefValidator(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	_, err := storage.ParseFolderRef(value)
	return err == nil
}

// urlValidator requires an absolute http(s) URL, or the empty string.
func urlValidator(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	u, err := url.Parse(value)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
