package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"reflect"
	"runtime/debug"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"

	"vacations-api/internal/apperror"
	"vacations-api/internal/auth"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Status  string            `json:"status"`
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
}

func errorBody(message string, fields map[string]string) ErrorResponse {
	return ErrorResponse{Status: "error", Message: message, Errors: fields}
}

// Normalize maps any error to the status code and body sent to the client.
// The first matching rule wins.
func Normalize(err error) (int, ErrorResponse) {
	var appErr *apperror.Error
	isApp := errors.As(err, &appErr)

	if isApp && appErr.Kind == apperror.KindConflict {
		msg := appErr.Message
		if msg == "" {
			msg = "value already exists"
		}
		return http.StatusBadRequest, errorBody(msg, nil)
	}

	if !isApp {
		if fields, ok := validationFields(err); ok {
			return http.StatusBadRequest, errorBody("invalid data", fields)
		}
	}
	if isApp && appErr.Kind == apperror.KindValidation {
		msg := appErr.Message
		if msg == "" {
			msg = "invalid data"
		}
		return http.StatusBadRequest, errorBody(msg, appErr.Fields)
	}

	if msg, ok := uploadMessage(err, appErr); ok {
		return http.StatusBadRequest, errorBody("upload error: "+msg, nil)
	}

	if errors.Is(err, auth.ErrTokenInvalid) || errors.Is(err, jwt.ErrTokenSignatureInvalid) {
		return http.StatusUnauthorized, errorBody("invalid token", nil)
	}

	if isApp && appErr.Kind == apperror.KindQuery {
		return http.StatusBadRequest, errorBody("database query error", nil)
	}

	if isApp && appErr.Kind != apperror.KindUnknown {
		msg := appErr.Message
		if msg == "" {
			msg = http.StatusText(appErr.Status())
		}
		return appErr.Status(), errorBody(msg, nil)
	}
	return http.StatusInternalServerError, errorBody("internal server error", nil)
}

// validationFields recognizes binding failures that happen before any
// service code runs.
func validationFields(err error) (map[string]string, bool) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = describeRule(fe)
		}
		return fields, true
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &typeErr):
		field := typeErr.Field
		if field == "" {
			field = "body"
		}
		return map[string]string{field: "must be a " + typeErr.Type.String()}, true
	case errors.As(err, &syntaxErr):
		return map[string]string{"body": "malformed JSON"}, true
	}
	return nil, false
}

// bindError classifies a ShouldBind* failure. Short bodies and unparsable
// values only mean bad input here, so they are not recognized by Normalize
// on their own. Size limit errors pass through as upload errors.
func bindError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) || errors.Is(err, multipart.ErrMessageTooLarge) {
		return err
	}

	fields, ok := validationFields(err)
	if !ok {
		var numErr *strconv.NumError
		switch {
		case errors.Is(err, io.ErrUnexpectedEOF):
			fields = map[string]string{"body": "is malformed"}
		case errors.Is(err, io.EOF):
			fields = map[string]string{"body": "is required"}
		case errors.As(err, &numErr):
			fields = map[string]string{"value": fmt.Sprintf("%q is not valid", numErr.Num)}
		default:
			return err
		}
	}
	return &apperror.Error{Kind: apperror.KindValidation, Message: "invalid data", Fields: fields, Err: err}
}

func describeRule(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "min":
		return "must be at least " + fe.Param() + unit(fe)
	case "max":
		return "must be at most " + fe.Param() + unit(fe)
	case "gt":
		return "must be greater than " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "datetime":
		return "must be a date formatted " + fe.Param()
	default:
		return "is invalid"
	}
}

func unit(fe validator.FieldError) string {
	if fe.Kind() == reflect.String {
		return " characters"
	}
	return ""
}

func uploadMessage(err error, appErr *apperror.Error) (string, bool) {
	var maxErr *http.MaxBytesError
	switch {
	case appErr != nil && appErr.Kind == apperror.KindUpload:
		return appErr.Message, true
	case errors.Is(err, http.ErrMissingFile):
		return "image is required", true
	case errors.As(err, &maxErr):
		return fmt.Sprintf("request exceeds %d bytes", maxErr.Limit), true
	case errors.Is(err, multipart.ErrMessageTooLarge):
		return "request is too large", true
	}
	return "", false
}

// errorHandler turns the last error recorded by a handler into the response.
// It must be installed before any middleware that records errors.
func errorHandler(logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		last := c.Errors.Last()
		if last == nil {
			return
		}

		status, body := Normalize(last.Err)
		entry := logger.WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
			"status": status,
		}).WithError(last.Err)
		var appErr *apperror.Error
		if errors.As(last.Err, &appErr) && appErr.Internal != nil {
			entry = entry.WithField("cause", appErr.Internal.Error())
		}
		if status >= http.StatusInternalServerError {
			entry.Error("request failed")
		} else {
			entry.Warn("request rejected")
		}

		if c.Writer.Written() {
			return
		}
		c.AbortWithStatusJSON(status, body)
	}
}

// recovery converts panics into an error for errorHandler.
func recovery() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered any) {
		_ = c.Error(apperror.New(apperror.KindUnknown, "internal server error").
			WithInternal(fmt.Errorf("panic: %v\n%s", recovered, debug.Stack())))
		c.Abort()
	})
}
