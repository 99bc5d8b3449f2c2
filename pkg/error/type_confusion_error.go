package error

import "net/http"

// TypeConfusionError marks a declared/detected media type mismatch. It is
// treated as a security event and logged distinctly from operational errors.
type TypeConfusionError string

func (err TypeConfusionError) Error() string {
	return string(err)
}

func (err TypeConfusionError) ErrCode() string {
	return "TYPE_CONFUSION_ERROR"
}

func (err TypeConfusionError) StatusCode() int {
	return http.StatusUnprocessableEntity
}
