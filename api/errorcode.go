package api

import (
	"errors"
	"net/http"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"

	"github.com/bitmark-inc/plasmalink-api/chat"
	"github.com/bitmark-inc/plasmalink-api/donation"
	"github.com/bitmark-inc/plasmalink-api/search"
	"github.com/bitmark-inc/plasmalink-api/store"
)

var (
	errorMessageMap = map[int64]string{
		999:  "internal server error",
		1001: "invalid authorization format",
		1003: "invalid token",

		1010: "invalid parameters",
		1011: "cannot parse request",

		1100: store.ErrEmailTaken.Error(),
		1101: store.ErrUserNotFound.Error(),
		1102: "invalid email or password",
		1103: "operation not allowed for this role",

		1200: donation.ErrRequestNotFound.Error(),
		1201: donation.ErrDuplicateRequest.Error(),
		1202: donation.ErrSelfRequest.Error(),
		1203: donation.ErrDonorNotFound.Error(),
		1204: "incompatible blood group",
		1205: donation.ErrRecipientNotFound.Error(),
		1206: donation.ErrInvalidDonationDate.Error(),
		1207: donation.ErrInvalidBloodGroup.Error(),

		1300: chat.ErrNotMatched.Error(),
		1301: store.ErrNotificationNotFound.Error(),
		1302: chat.ErrIdentityMismatch.Error(),

		1400: search.ErrInvalidQuery.Error(),

		1500: "too many requests",
	}

	errorInternalServer             = errorJSON(999)
	errorInvalidAuthorizationFormat = errorJSON(1001)
	errorInvalidToken               = errorJSON(1003)

	errorInvalidParameters  = errorJSON(1010)
	errorCannotParseRequest = errorJSON(1011)

	errorEmailTaken         = errorJSON(1100)
	errorUserNotFound       = errorJSON(1101)
	errorInvalidCredentials = errorJSON(1102)
	errorRoleNotAllowed     = errorJSON(1103)

	errorRequestNotExist          = errorJSON(1200)
	errorRequestExists            = errorJSON(1201)
	errorSelfRequest              = errorJSON(1202)
	errorDonorNotFound            = errorJSON(1203)
	errorIncompatibleBloodGroup   = errorJSON(1204)
	errorRecipientNotFound        = errorJSON(1205)
	errorInvalidDonationDate      = errorJSON(1206)
	errorInvalidRequestBloodGroup = errorJSON(1207)

	errorNotMatched           = errorJSON(1300)
	errorNotificationNotFound = errorJSON(1301)
	errorIdentityMismatch     = errorJSON(1302)

	errorInvalidSearchQuery = errorJSON(1400)

	errorTooManyRequests = errorJSON(1500)
)

type ErrorResponse struct {
	Code    int64  `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`

	DonorBloodGroup     string `json:"donor_blood_group,omitempty"`
	RequestedBloodGroup string `json:"requested_blood_group,omitempty"`
}

// errorJSON converts an error code to a standardized error object
func errorJSON(code int64) ErrorResponse {
	var message string
	if msg, ok := errorMessageMap[code]; ok {
		message = msg
	} else {
		message = "unknown"
	}

	return ErrorResponse{
		Code:    code,
		Message: message,
	}
}

func developmentMode() bool {
	return viper.GetString("server.mode") == "development"
}

// internalError is the generic failure response. The error detail is only
// exposed in development mode.
func internalError(err error) ErrorResponse {
	resp := errorInternalServer
	if err != nil && developmentMode() {
		resp.Details = err.Error()
	}
	return resp
}

// domainErrorResponse maps a domain error to its status and response.
// Unknown errors are internal.
func domainErrorResponse(err error) (int, ErrorResponse) {
	var incompatible *donation.IncompatibleBloodGroupError
	if errors.As(err, &incompatible) {
		resp := errorIncompatibleBloodGroup
		resp.DonorBloodGroup = incompatible.DonorBloodGroup
		resp.RequestedBloodGroup = incompatible.RequestedBloodGroup
		return http.StatusBadRequest, resp
	}

	switch {
	case errors.Is(err, donation.ErrRequestNotFound):
		return http.StatusNotFound, errorRequestNotExist
	case errors.Is(err, donation.ErrDuplicateRequest):
		return http.StatusBadRequest, errorRequestExists
	case errors.Is(err, donation.ErrSelfRequest):
		return http.StatusBadRequest, errorSelfRequest
	case errors.Is(err, donation.ErrDonorNotFound):
		return http.StatusNotFound, errorDonorNotFound
	case errors.Is(err, donation.ErrRecipientNotFound):
		return http.StatusNotFound, errorRecipientNotFound
	case errors.Is(err, donation.ErrInvalidDonationDate):
		return http.StatusBadRequest, errorInvalidDonationDate
	case errors.Is(err, donation.ErrInvalidBloodGroup):
		return http.StatusBadRequest, errorInvalidRequestBloodGroup
	case errors.Is(err, store.ErrUserNotFound):
		return http.StatusNotFound, errorUserNotFound
	case errors.Is(err, store.ErrEmailTaken):
		return http.StatusBadRequest, errorEmailTaken
	case errors.Is(err, store.ErrNotificationNotFound):
		return http.StatusNotFound, errorNotificationNotFound
	case errors.Is(err, chat.ErrNotMatched):
		return http.StatusForbidden, errorNotMatched
	case errors.Is(err, chat.ErrIdentityMismatch):
		return http.StatusForbidden, errorIdentityMismatch
	case errors.Is(err, chat.ErrEmptyMessage), errors.Is(err, chat.ErrMessageTooLong):
		resp := errorInvalidParameters
		resp.Details = err.Error()
		return http.StatusBadRequest, resp
	case errors.Is(err, search.ErrInvalidQuery):
		return http.StatusBadRequest, errorInvalidSearchQuery
	}

	return http.StatusInternalServerError, internalError(err)
}

// abortWithError responds with the mapped domain error, infrastructure
// errors are logged by the request logger and reported to sentry
func abortWithError(c *gin.Context, err error) {
	code, resp := domainErrorResponse(err)
	if code == http.StatusInternalServerError {
		if hub := sentrygin.GetHubFromContext(c); hub != nil {
			hub.CaptureException(err)
		}
	}
	abortWithEncoding(c, code, resp, err)
}
