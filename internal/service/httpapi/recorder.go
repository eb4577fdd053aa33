package httpapi

import (
	"bytes"
	"net/http"
)

// responseRecorder дублирует ответ в буфер, чтобы его можно было сохранить
// как idempotent-ответ и отдать при повторе ключа.
type responseRecorder struct {
	inner  http.ResponseWriter
	body   bytes.Buffer
	status int
}

func newResponseRecorder(inner http.ResponseWriter) *responseRecorder {
	return &responseRecorder{inner: inner, status: http.StatusOK}
}

func (r *responseRecorder) Header() http.Header {
	return r.inner.Header()
}

func (r *responseRecorder) WriteHeader(status int) {
	r.status = status
	r.inner.WriteHeader(status)
}

func (r *responseRecorder) Write(p []byte) (int, error) {
	r.body.Write(p)
	return r.inner.Write(p)
}
