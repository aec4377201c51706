package handlers

import (
	"errors"
	"log"
	"net/http"

	"babylog/internal/service"
)

func respondWithError(w http.ResponseWriter, status int, userMsg, logMsg string, err error) {
	if err != nil {
		if logMsg == "" {
			logMsg = userMsg
		}
		log.Printf("%s: %v", logMsg, err)
	}

	http.Error(w, userMsg, status)
}

// statusForError maps service errors onto HTTP statuses
func statusForError(err error) int {
	switch {
	case errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrFamilyNotFound),
		errors.Is(err, service.ErrBabyNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrNotFamilyMember):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// respondWithServiceError answers with the status matching err. Only
// unexpected errors are logged.
func respondWithServiceError(w http.ResponseWriter, logMsg string, err error) {
	switch status := statusForError(err); status {
	case http.StatusNotFound:
		respondWithError(w, status, ErrNotFound, "", nil)
	case http.StatusForbidden:
		respondWithError(w, status, ErrForbidden, "", nil)
	default:
		respondWithError(w, status, ErrInternalServerError, logMsg, err)
	}
}
