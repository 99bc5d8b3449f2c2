package error

import "net/http"

type CorruptImageError string

func (err CorruptImageError) Error() string {
	return string(err)
}

func (err CorruptImageError) ErrCode() string {
	return "CORRUPT_IMAGE_ERROR"
}

func (err CorruptImageError) StatusCode() int {
	return http.StatusUnprocessableEntity
}
