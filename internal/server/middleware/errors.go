package middleware

import (
	"net/http"
	"time"

	"HealthPulse/internal/biz"
	pkglog "HealthPulse/pkg/log"

	"github.com/go-kratos/kratos/v2/errors"
	khttp "github.com/go-kratos/kratos/v2/transport/http"
)

const internalErrorMessage = "Internal server error"

// ErrorEncoder renders errors as {error, reason, requestId, timestamp, ...metadata}.
// Server errors other than CIRCUIT_OPEN never expose their cause.
func ErrorEncoder(w http.ResponseWriter, r *http.Request, err error) {
	se := errors.FromError(err)

	message := se.Message
	if se.Code >= 500 && se.Reason != biz.ReasonCircuitOpen {
		message = internalErrorMessage
	}

	requestID := w.Header().Get(pkglog.RequestIDHeader)
	if requestID == "" {
		requestID = r.Header.Get(pkglog.RequestIDHeader)
	}

	body := make(map[string]interface{}, len(se.Metadata)+4)
	for k, v := range se.Metadata {
		body[k] = v
	}
	body["error"] = message
	body["reason"] = se.Reason
	body["requestId"] = requestID
	body["timestamp"] = time.Now().UTC()

	if se.Reason == biz.ReasonCircuitOpen {
		if retryAfter := se.Metadata[biz.MetadataRetryAfter]; retryAfter != "" {
			w.Header().Set("Retry-After", retryAfter)
		}
	}

	codec, _ := khttp.CodecForRequest(r, "Accept")
	data, mErr := codec.Marshal(body)
	if mErr != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/"+codec.Name())
	w.WriteHeader(int(se.Code))
	_, _ = w.Write(data)
}
