package http

import (
	"errors"
	"net/http"

	"github.com/Presidentty1/nestling-care-log-sub003/internal/service"
	"github.com/Presidentty1/nestling-care-log-sub003/internal/store"
)

var errorStatusMap = map[error]int{
	service.ErrInvalidDataProvided:     http.StatusBadRequest,
	service.ErrInvalidMutation:         http.StatusBadRequest,
	service.ErrUnknownOperation:        http.StatusBadRequest,
	service.ErrWrongPassword:           http.StatusUnauthorized,
	service.ErrTokenIsExpired:          http.StatusUnauthorized,
	service.ErrTokenIsExpiredOrInvalid: http.StatusUnauthorized,

	store.ErrLoginAlreadyExists:  http.StatusConflict,
	store.ErrNoUserWasFound:      http.StatusNotFound,
	store.ErrRecordNotFound:      http.StatusNotFound,
	store.ErrVersionConflict:     http.StatusConflict,
	store.ErrRecordAlreadyExists: http.StatusConflict,
}

func statusFromError(err error) int {
	for target, status := range errorStatusMap {
		if errors.Is(err, target) {
			return status
		}
	}
	return http.StatusInternalServerError
}
