package error

import "net/http"

type DecryptionError string

func (err DecryptionError) Error() string {
	return string(err)
}

func (err DecryptionError) ErrCode() string {
	return "DECRYPTION_ERROR"
}

func (err DecryptionError) StatusCode() int {
	return http.StatusUnprocessableEntity
}
