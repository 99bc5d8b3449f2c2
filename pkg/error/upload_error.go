package error

import "net/http"

type UploadError string

func (err UploadError) Error() string {
	return string(err)
}

func (err UploadError) ErrCode() string {
	return "UPLOAD_ERROR"
}

func (err UploadError) StatusCode() int {
	return http.StatusBadGateway
}
