package handlers

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"go.uber.org/zap"
)

var (
	// Page denotes the starting Page for pagination results
	Page = 0
)

// Sentinel errors carried in the error envelope when the handler itself
// rejects the request.
var (
	errMissingIdentity = errors.New("no authenticated identity on request")
	errNotPermitted    = errors.New("caller does not have access")
	errAlreadyRead     = errors.New("notification is already read")
	errMissingField    = errors.New("required field is empty")
)

func getPage(Page int, r *http.Request) int {
	if r.URL.Query().Get("page") == "" {
		zap.S().Warnf("page not set, using default of %v", Page)
	} else {
		var err error
		Page, err = strconv.Atoi(r.URL.Query().Get("page"))
		if err != nil {
			zap.S().Errorf(fmt.Sprintf("error parsing page number: %v", err))
		}
		if Page < 0 {
			zap.S().Warnf(fmt.Sprintf("cannot process page number less than 1. Got: %v", Page))
			return 0
		}
	}
	return Page
}

func getPageLimit(r *http.Request) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("page_limit"))
	if err != nil || limit <= 0 {
		zap.S().Warnf("page_limit not set, using default of 20")
		return 20
	}
	return limit
}

func decodeBase64(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}
