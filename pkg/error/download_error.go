package error

import "net/http"

type DownloadError string

func (err DownloadError) Error() string {
	return string(err)
}

func (err DownloadError) ErrCode() string {
	return "DOWNLOAD_ERROR"
}

func (err DownloadError) StatusCode() int {
	return http.StatusBadGateway
}
